package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-imap"
)

// addressRegex is deliberately strict; anything it rejects never reaches the server
var addressRegex = regexp.MustCompile(`(?i)^[\w+\-.]+@[a-z\d\-]+(\.[a-z\d\-]+)*\.[a-z]+$`)

// ValidAddress reports whether addr is acceptable as a search recipient
func ValidAddress(addr string) bool {
	return addressRegex.MatchString(addr)
}

// Envelope is the listing metadata for one message
type Envelope struct {
	UID     uint32
	Subject string
	From    []*Address
	To      []*Address
	Cc      []*Address
	Date    time.Time // zero when missing or unparseable
}

// Address represents an email address
type Address struct {
	Name    string
	Address string
}

// Mailbox runs searches and fetches over pooled connections
type Mailbox struct {
	pool   *Pool
	logger *slog.Logger
}

// NewMailbox creates a query engine on top of pool
func NewMailbox(pool *Pool, logger *slog.Logger) *Mailbox {
	return &Mailbox{
		pool:   pool,
		logger: logger.With("component", "mailbox"),
	}
}

// List returns up to limit messages addressed to recipient, newest first.
func (m *Mailbox) List(ctx context.Context, recipient string, limit int) ([]*Envelope, error) {
	if !ValidAddress(recipient) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, recipient)
	}

	var envelopes []*Envelope
	err := m.pool.With(ctx, func(s Session) error {
		uids, err := searchRecipient(s, recipient)
		if err != nil {
			return err
		}
		if len(uids) == 0 {
			return nil
		}

		envelopes, err = fetchEnvelopes(s, uids)
		return err
	})
	if err != nil {
		m.logger.Error("failed to list mailbox", "recipient", recipient, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrListUnavailable, err)
	}

	envelopes = filterRecipient(envelopes, recipient)
	SortNewestFirst(envelopes)
	if limit > 0 && len(envelopes) > limit {
		envelopes = envelopes[:limit]
	}

	m.logger.Debug("listed mailbox", "recipient", recipient, "count", len(envelopes))
	return envelopes, nil
}

// Fetch returns the full raw message for uid
func (m *Mailbox) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	var raw []byte
	err := m.pool.With(ctx, func(s Session) error {
		var err error
		raw, err = fetchRaw(s, uid)
		return err
	})
	if err != nil {
		m.logger.Error("failed to fetch message", "uid", uid, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFetchUnavailable, err)
	}
	return raw, nil
}

// SortNewestFirst orders by date descending; zero dates go last
func SortNewestFirst(envelopes []*Envelope) {
	sort.SliceStable(envelopes, func(i, j int) bool {
		a, b := envelopes[i].Date, envelopes[j].Date
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.After(b)
		}
	})
}

// filterRecipient drops envelopes the substring search matched by accident,
// e.g. data@example.com for a@example.com. Envelopes without any To or Cc
// address are kept.
func filterRecipient(envelopes []*Envelope, recipient string) []*Envelope {
	out := envelopes[:0]
	for _, env := range envelopes {
		if addressedTo(env, recipient) {
			out = append(out, env)
		}
	}
	return out
}

func addressedTo(env *Envelope, recipient string) bool {
	if len(env.To) == 0 && len(env.Cc) == 0 {
		return true
	}
	for _, list := range [][]*Address{env.To, env.Cc} {
		for _, a := range list {
			if strings.EqualFold(strings.TrimSpace(a.Address), recipient) {
				return true
			}
		}
	}
	return false
}

func searchRecipient(s Session, recipient string) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("To", recipient)

	uids, err := s.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	return uids, nil
}

// fetchEnvelopes fetches ENVELOPE for each uid
func fetchEnvelopes(s Session, uids []uint32) ([]*Envelope, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid}

	messages := make(chan *imap.Message, 32)
	done := make(chan error, 1)

	go func() {
		done <- s.UidFetch(seqSet, items, messages)
	}()

	envelopes := make([]*Envelope, 0, len(uids))
	for msg := range messages {
		envelopes = append(envelopes, parseEnvelope(msg))
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch envelopes: %w", err)
	}
	return envelopes, nil
}

// fetchRaw fetches BODY.PEEK[] for one uid
func fetchRaw(s Session, uid uint32) ([]byte, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	var readErr error
	for msg := range messages {
		if msg.Uid != uid || raw != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, body); err != nil {
			readErr = err
			continue
		}
		raw = append([]byte{}, buf.Bytes()...)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read message body: %w", readErr)
	}
	if raw == nil {
		return nil, fmt.Errorf("uid %d: %w", uid, ErrMessageNotFound)
	}
	return raw, nil
}

// parseEnvelope converts an IMAP message, tolerating a missing envelope
func parseEnvelope(msg *imap.Message) *Envelope {
	env := &Envelope{UID: msg.Uid}
	if msg.Envelope == nil {
		return env
	}

	env.Subject = msg.Envelope.Subject
	env.Date = msg.Envelope.Date
	env.From = convertAddresses(msg.Envelope.From)
	env.To = convertAddresses(msg.Envelope.To)
	env.Cc = convertAddresses(msg.Envelope.Cc)
	return env
}

func convertAddresses(list []*imap.Address) []*Address {
	out := make([]*Address, 0, len(list))
	for _, a := range list {
		if a == nil {
			continue
		}
		out = append(out, &Address{
			Name:    a.PersonalName,
			Address: a.Address(),
		})
	}
	return out
}
