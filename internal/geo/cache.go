// Package geo resolves visitor addresses to countries.
package geo

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mixelka/tempinbox/pkg/models"
)

// Unknown is reported when a lookup fails or returns nothing
const Unknown = "Unknown"

// Locator looks up the country for an IP address or host name
type Locator interface {
	Country(ctx context.Context, host string) (string, error)
}

// Cache memoizes lookups for the lifetime of one request.
// It is not safe for concurrent use.
type Cache struct {
	locator Locator
	logger  *slog.Logger
	entries map[string]string
}

// NewCache creates an empty cache in front of locator
func NewCache(locator Locator, logger *slog.Logger) *Cache {
	return &Cache{
		locator: locator,
		logger:  logger,
		entries: make(map[string]string),
	}
}

// Country returns the country for token, asking the locator once per token
func (c *Cache) Country(ctx context.Context, token string) string {
	if country, ok := c.entries[token]; ok {
		return country
	}

	country := Unknown
	if strings.TrimSpace(token) != "" && c.locator != nil {
		name, err := c.locator.Country(ctx, token)
		switch {
		case err != nil:
			c.logger.Debug("geolocation lookup failed", "host", token, "error", err)
		case strings.TrimSpace(name) != "":
			country = name
		}
	}

	c.entries[token] = country
	return country
}

// Locate annotates each visit with its country, keeping order
func (c *Cache) Locate(ctx context.Context, visits []models.Visit) []models.LocatedVisit {
	out := make([]models.LocatedVisit, 0, len(visits))
	for _, v := range visits {
		out = append(out, models.LocatedVisit{
			Visit:   v,
			Country: c.Country(ctx, v.IP),
		})
	}
	return out
}
