package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-sasl"

	"github.com/mixelka/tempinbox/internal/config"
)

var errRejected = errors.New("NO authentication failed")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCreds() config.Credentials {
	return config.Credentials{Username: "catchall@example.com", Secret: "hunter2"}
}

// fakeConn is an in-memory IMAP session
type fakeConn struct {
	mu sync.Mutex

	acceptLogin bool
	acceptSASL  map[string]bool
	attempts    []string
	selected    string
	readOnly    bool
	selectErr   error

	searchUIDs []uint32
	searchErr  error
	searches   []*imap.SearchCriteria
	messages   []*imap.Message
	fetchErr   error
	fetches    int

	loggedOut chan struct{}
	onLogout  func()
	closed    bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		acceptLogin: true,
		acceptSASL:  map[string]bool{},
		loggedOut:   make(chan struct{}),
	}
}

func (c *fakeConn) Login(username, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, "LOGIN")
	if !c.acceptLogin {
		return errRejected
	}
	return nil
}

func (c *fakeConn) Authenticate(auth sasl.Client) error {
	mech, _, err := auth.Start()
	if err != nil {
		return err
	}
	if mech == "CRAM-MD5" {
		if _, err := auth.Next([]byte("<1896.697170952@postoffice.example.net>")); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, "AUTHENTICATE "+mech)
	if !c.acceptSASL[mech] {
		return errRejected
	}
	return nil
}

func (c *fakeConn) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selectErr != nil {
		return nil, c.selectErr
	}
	c.selected = name
	c.readOnly = readOnly
	return &imap.MailboxStatus{Name: name, ReadOnly: readOnly}, nil
}

func (c *fakeConn) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searches = append(c.searches, criteria)
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	return c.searchUIDs, nil
}

func (c *fakeConn) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	defer close(ch)

	c.mu.Lock()
	c.fetches++
	msgs := c.messages
	err := c.fetchErr
	c.mu.Unlock()

	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if seqset.Contains(msg.Uid) {
			ch <- msg
		}
	}
	return nil
}

func (c *fakeConn) Logout() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.loggedOut)
	onLogout := c.onLogout
	c.mu.Unlock()

	if onLogout != nil {
		onLogout()
	}
	return nil
}

func (c *fakeConn) Terminate() error {
	return c.Logout()
}

func (c *fakeConn) LoggedOut() <-chan struct{} {
	return c.loggedOut
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) attemptLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.attempts...)
}

// fakeDialer hands out fakeConns and tracks how many are open
type fakeDialer struct {
	mu      sync.Mutex
	setup   func(*fakeConn)
	conns   []*fakeConn
	dialErr error

	open    atomic.Int32
	maxOpen atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	if d.dialErr != nil {
		return nil, d.dialErr
	}

	conn := newFakeConn()
	if d.setup != nil {
		d.setup(conn)
	}
	conn.onLogout = func() { d.open.Add(-1) }

	n := d.open.Add(1)
	for {
		m := d.maxOpen.Load()
		if n <= m || d.maxOpen.CompareAndSwap(m, n) {
			break
		}
	}

	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) dialed() []*fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*fakeConn(nil), d.conns...)
}

func envelopeMessage(uid uint32, subject string, date time.Time, to string) *imap.Message {
	msg := imap.NewMessage(uid, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid})
	msg.Uid = uid
	env := &imap.Envelope{Subject: subject, Date: date}
	if to != "" {
		env.To = []*imap.Address{imapAddress(to)}
	}
	env.From = []*imap.Address{{MailboxName: "sender", HostName: "example.org", PersonalName: "Sender"}}
	msg.Envelope = env
	return msg
}

func imapAddress(addr string) *imap.Address {
	local, host, _ := strings.Cut(addr, "@")
	return &imap.Address{MailboxName: local, HostName: host}
}

func bodyMessage(uid uint32, raw string) *imap.Message {
	msg := imap.NewMessage(uid, []imap.FetchItem{imap.FetchUid})
	msg.Uid = uid
	msg.Body = map[*imap.BodySectionName]imap.Literal{
		{}: bytes.NewBufferString(raw),
	}
	return msg
}
