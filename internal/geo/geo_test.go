package geo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/tempinbox/pkg/models"
)

type countingLocator struct {
	calls   map[string]int
	results map[string]string
}

func (l *countingLocator) Country(_ context.Context, host string) (string, error) {
	l.calls[host]++
	country, ok := l.results[host]
	if !ok {
		return "", errors.New("no result")
	}
	return country, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCacheLooksUpEachTokenOnce(t *testing.T) {
	loc := &countingLocator{
		calls:   map[string]int{},
		results: map[string]string{"1.1.1.1": "Australia", "8.8.8.8": "United States"},
	}
	cache := NewCache(loc, discardLogger())

	visits := []models.Visit{{IP: "1.1.1.1"}, {IP: "8.8.8.8"}, {IP: "1.1.1.1"}}
	located := cache.Locate(context.Background(), visits)

	require.Len(t, located, 3)
	assert.Equal(t, "Australia", located[0].Country)
	assert.Equal(t, "United States", located[1].Country)
	assert.Equal(t, "Australia", located[2].Country)
	assert.Equal(t, map[string]int{"1.1.1.1": 1, "8.8.8.8": 1}, loc.calls)
}

func TestCacheUnknown(t *testing.T) {
	loc := &countingLocator{
		calls:   map[string]int{},
		results: map[string]string{"10.0.0.1": "  "},
	}
	cache := NewCache(loc, discardLogger())
	ctx := context.Background()

	assert.Equal(t, Unknown, cache.Country(ctx, "unresolvable.invalid"))
	assert.Equal(t, Unknown, cache.Country(ctx, "10.0.0.1"))
	assert.Equal(t, Unknown, cache.Country(ctx, ""))
	assert.Equal(t, Unknown, cache.Country(ctx, "unresolvable.invalid"))

	assert.Equal(t, 1, loc.calls["unresolvable.invalid"])
	assert.Zero(t, loc.calls[""], "empty token is never looked up")
}

func TestCacheNilLocator(t *testing.T) {
	cache := NewCache(nil, discardLogger())
	assert.Equal(t, Unknown, cache.Country(context.Background(), "1.2.3.4"))
}

func TestClientCountry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json/8.8.8.8":
			assert.Equal(t, "status,message,country", r.URL.Query().Get("fields"))
			_, _ = w.Write([]byte(`{"status":"success","country":"United States"}`))
		case "/json/10.0.0.1":
			_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
		default:
			http.Error(w, "nope", http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	c := NewClient(Config{Endpoint: srv.URL + "/json", Timeout: time.Second})
	ctx := context.Background()

	country, err := c.Country(ctx, "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "United States", country)

	_, err = c.Country(ctx, "10.0.0.1")
	assert.ErrorContains(t, err, "private range")

	_, err = c.Country(ctx, "other")
	assert.ErrorContains(t, err, "429")

	_, err = c.Country(ctx, " ")
	assert.Error(t, err)
}
