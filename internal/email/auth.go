package email

import (
	"fmt"
	"log/slog"

	"github.com/emersion/go-sasl"

	"github.com/mixelka/tempinbox/internal/config"
)

// Mechanism is one way of authenticating an IMAP session
type Mechanism int

const (
	MechLogin Mechanism = iota // LOGIN command
	MechPlain                  // AUTHENTICATE PLAIN
	MechSASLLogin              // AUTHENTICATE LOGIN
	MechCRAMMD5                // AUTHENTICATE CRAM-MD5
)

// DefaultMechanisms is the order mechanisms are tried in
var DefaultMechanisms = []Mechanism{MechLogin, MechPlain, MechSASLLogin, MechCRAMMD5}

func (m Mechanism) String() string {
	switch m {
	case MechLogin:
		return "LOGIN"
	case MechPlain:
		return "SASL PLAIN"
	case MechSASLLogin:
		return "SASL LOGIN"
	case MechCRAMMD5:
		return "SASL CRAM-MD5"
	default:
		return fmt.Sprintf("Mechanism(%d)", int(m))
	}
}

func (m Mechanism) attempt(conn Conn, creds config.Credentials) error {
	switch m {
	case MechLogin:
		return conn.Login(creds.Username, creds.Secret)
	case MechPlain:
		return conn.Authenticate(sasl.NewPlainClient("", creds.Username, creds.Secret))
	case MechSASLLogin:
		return conn.Authenticate(sasl.NewLoginClient(creds.Username, creds.Secret))
	case MechCRAMMD5:
		return conn.Authenticate(newCRAMMD5Client(creds.Username, creds.Secret))
	default:
		return fmt.Errorf("unsupported mechanism %s", m)
	}
}

// Authenticator negotiates authentication on fresh connections and
// opens the target folder.
type Authenticator struct {
	creds      config.Credentials
	folder     string
	mechanisms []Mechanism
	logger     *slog.Logger
}

// NewAuthenticator creates an authenticator trying DefaultMechanisms
func NewAuthenticator(creds config.Credentials, folder string, logger *slog.Logger) *Authenticator {
	if folder == "" {
		folder = "INBOX"
	}
	return &Authenticator{
		creds:      creds,
		folder:     folder,
		mechanisms: DefaultMechanisms,
		logger:     logger.With("component", "imap_auth"),
	}
}

// Authenticate tries each mechanism until one succeeds, then selects the
// folder read-only. On error conn is left for the caller to discard.
func (a *Authenticator) Authenticate(conn Conn) (Mechanism, error) {
	var last error
	tried := make([]Mechanism, 0, len(a.mechanisms))

	for _, mech := range a.mechanisms {
		tried = append(tried, mech)

		err := mech.attempt(conn, a.creds)
		if err != nil {
			a.logger.Debug("authentication attempt failed", "mechanism", mech, "error", err)
			last = err
			continue
		}

		if _, err := conn.Select(a.folder, true); err != nil {
			return mech, fmt.Errorf("failed to select %s: %w", a.folder, err)
		}

		a.logger.Debug("authenticated", "mechanism", mech, "user", a.creds.Username)
		return mech, nil
	}

	if last == nil {
		last = fmt.Errorf("no authentication mechanisms configured")
	}
	return 0, &AuthExhaustedError{Attempts: tried, Last: last}
}
