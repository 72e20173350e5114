package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"

	"github.com/mixelka/tempinbox/internal/config"
)

// Conn is the subset of an IMAP session the pool relies on.
// *client.Client from go-imap satisfies it.
type Conn interface {
	Login(username, password string) error
	Authenticate(auth sasl.Client) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Logout() error
	Terminate() error
}

// Session is what a caller may do with a checked-out connection
type Session interface {
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
}

// Dialer opens a fresh, unauthenticated connection
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer
type DialerFunc func(ctx context.Context) (Conn, error)

// Dial calls f(ctx)
func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// DialConfig configuration for the IMAP dialer
type DialConfig struct {
	Connection     config.ConnectionConfig
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

// NewDialer returns a Dialer that connects with go-imap
func NewDialer(cfg DialConfig, logger *slog.Logger) Dialer {
	logger = logger.With("component", "imap_dialer", "server", cfg.Connection.Addr())

	return DialerFunc(func(ctx context.Context) (Conn, error) {
		timeout := cfg.DialTimeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}

		dialer := &net.Dialer{Timeout: timeout}
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Connection.Addr())
		if err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}

		if cfg.Connection.UseTLS {
			tlsConn := tls.Client(conn, &tls.Config{ServerName: cfg.Connection.Host})
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, fmt.Errorf("TLS handshake failed: %w", err)
			}
			conn = tlsConn
		}

		imapClient, err := client.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create IMAP client: %w", err)
		}
		imapClient.Timeout = cfg.CommandTimeout

		logger.Debug("connected to IMAP server", "tls", cfg.Connection.UseTLS)
		return imapClient, nil
	})
}

// loggedOut reports whether the server already closed conn
func loggedOut(conn Conn) bool {
	n, ok := conn.(interface{ LoggedOut() <-chan struct{} })
	if !ok {
		return false
	}
	select {
	case <-n.LoggedOut():
		return true
	default:
		return false
	}
}

// closeConn logs out, falling back to Terminate if logout hangs
func closeConn(conn Conn) {
	done := make(chan struct{})
	go func() {
		_ = conn.Logout()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = conn.Terminate()
	}
}
