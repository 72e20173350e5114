// Package accesslog records inbox lookups as an append-only visit log.
package accesslog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mixelka/tempinbox/pkg/models"
)

// TimeLayout is the timestamp layout of a log line, always in UTC
const TimeLayout = "2006-01-02 15:04:05 MST"

const separator = " - "

// ErrMalformedLine is returned for lines that do not have four fields
var ErrMalformedLine = errors.New("malformed log line")

// Store persists visits and returns the most recent ones
type Store interface {
	Append(ctx context.Context, v models.Visit) error
	// Recent returns at most n visits, newest first
	Recent(ctx context.Context, n int) ([]models.Visit, error)
}

// Format renders v as `<timestamp> - <mailbox> - <ip> - <user-agent>`
func Format(v models.Visit) string {
	return strings.Join([]string{
		v.Time.UTC().Format(TimeLayout),
		column(v.Mailbox),
		column(v.IP),
		field(v.UserAgent),
	}, separator)
}

// Parse reads a line produced by Format. The user agent keeps any
// separators it contains.
func Parse(line string) (models.Visit, error) {
	parts := strings.SplitN(strings.TrimRight(line, "\r\n"), separator, 4)
	if len(parts) != 4 {
		return models.Visit{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	v := models.Visit{
		Mailbox:   parts[1],
		IP:        parts[2],
		UserAgent: parts[3],
	}
	if t, err := time.Parse(TimeLayout, parts[0]); err == nil {
		v.Time = t
	}
	return v, nil
}

// column is field for any value followed by another one. It never
// contains " -", so the separator after it is the first one Parse sees.
func column(s string) string {
	return strings.ReplaceAll(field(s), " -", " /")
}

// field keeps a value on one line
func field(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}
