package accesslog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mixelka/tempinbox/pkg/models"
)

func TestFormatAndParse(t *testing.T) {
	at := time.Date(2024, 3, 9, 17, 4, 5, 0, time.FixedZone("CET", 3600))
	v := models.Visit{
		Time:      at,
		Mailbox:   "joe@example.com",
		IP:        "203.0.113.7",
		UserAgent: "curl/8.0 - custom\nbuild",
	}

	line := Format(v)
	assert.Equal(t, "2024-03-09 16:04:05 UTC - joe@example.com - 203.0.113.7 - curl/8.0 - custom build", line)

	got, err := Parse(line)
	require.NoError(t, err)
	assert.True(t, got.Time.Equal(at))
	assert.Equal(t, "joe@example.com", got.Mailbox)
	assert.Equal(t, "203.0.113.7", got.IP)
	assert.Equal(t, "curl/8.0 - custom build", got.UserAgent)
}

func TestFormatEmptyFields(t *testing.T) {
	line := Format(models.Visit{Time: time.Unix(0, 0), Mailbox: "a@b.co"})
	assert.Equal(t, "1970-01-01 00:00:00 UTC - a@b.co - - - -", line)
}

func TestFormatKeepsColumnsAligned(t *testing.T) {
	for _, ip := range []string{"1.1.1.1 - x", "1.1.1.1 -", "10.0.0.1 - - 10.0.0.2"} {
		line := Format(models.Visit{Time: time.Unix(0, 0), Mailbox: "a@b.co", IP: ip, UserAgent: "ua"})

		got, err := Parse(line)
		require.NoError(t, err, ip)
		assert.Equal(t, "a@b.co", got.Mailbox, ip)
		assert.NotContains(t, got.IP, " - ", ip)
		assert.True(t, strings.HasPrefix(got.IP, strings.Fields(ip)[0]), ip)
		assert.Equal(t, "ua", got.UserAgent, ip)
	}

	got, err := Parse(Format(models.Visit{Time: time.Unix(0, 0), Mailbox: "x - y", IP: "1.2.3.4", UserAgent: "ua"}))
	require.NoError(t, err)
	assert.Equal(t, "x / y", got.Mailbox)
	assert.Equal(t, "1.2.3.4", got.IP)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("just some text")
	assert.ErrorIs(t, err, ErrMalformedLine)

	v, err := Parse("yesterday - a@b.co - 1.2.3.4 - ua")
	require.NoError(t, err)
	assert.True(t, v.Time.IsZero())
	assert.Equal(t, "1.2.3.4", v.IP)
}

func TestFileStoreRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "history.log")
	store := NewFileStore(path)
	ctx := context.Background()

	visits, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, visits, "missing file is an empty log")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 7 {
		require.NoError(t, store.Append(ctx, models.Visit{
			Time:      base.Add(time.Duration(i) * time.Minute),
			Mailbox:   fmt.Sprintf("user%d@example.com", i),
			IP:        "198.51.100.1",
			UserAgent: "test",
		}))
	}

	// garbage lines are skipped
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("not a log line\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	visits, err = store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, visits, 3)
	assert.Equal(t, "user6@example.com", visits[0].Mailbox)
	assert.Equal(t, "user5@example.com", visits[1].Mailbox)
	assert.Equal(t, "user4@example.com", visits[2].Mailbox)

	visits, err = store.Recent(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, visits, 7)
	assert.Equal(t, "user0@example.com", visits[6].Mailbox)

	visits, err = store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, visits)
}
