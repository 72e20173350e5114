// Package inbox joins the mailbox query engine, the identifier codec and
// the message decoder into plain data for the views.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mixelka/tempinbox/internal/codec"
	"github.com/mixelka/tempinbox/internal/email"
	"github.com/mixelka/tempinbox/internal/formatter"
	"github.com/mixelka/tempinbox/internal/parser"
	"github.com/mixelka/tempinbox/pkg/models"
)

// Mailbox is the subset of email.Mailbox the service needs
type Mailbox interface {
	List(ctx context.Context, recipient string, limit int) ([]*email.Envelope, error)
	Fetch(ctx context.Context, uid uint32) ([]byte, error)
}

// Config holds listing settings
type Config struct {
	Domain string // appended to mailbox names
	Limit  int    // maximum messages per listing
}

// Service builds inbox listings and message views
type Service struct {
	mailbox Mailbox
	codec   *codec.Codec
	html    *parser.HTMLParser
	codes   *parser.CodeDetector
	cfg     Config
	logger  *slog.Logger
}

// NewService creates a new inbox service
func NewService(mailbox Mailbox, c *codec.Codec, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		mailbox: mailbox,
		codec:   c,
		html:    parser.NewHTMLParser(),
		codes:   parser.NewCodeDetector(),
		cfg:     cfg,
		logger:  logger.With("component", "inbox"),
	}
}

// Address returns the full address for a mailbox name
func (s *Service) Address(name string) string {
	return strings.TrimSpace(name) + "@" + s.cfg.Domain
}

// Inbox lists the newest messages sent to name@domain.
// Invalid names fail with email.ErrInvalidAddress before any backend call.
func (s *Service) Inbox(ctx context.Context, name string) (*models.Inbox, error) {
	address := s.Address(name)
	if !email.ValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", email.ErrInvalidAddress, address)
	}

	envelopes, err := s.mailbox.List(ctx, address, s.cfg.Limit)
	if err != nil {
		return nil, err
	}

	inbox := &models.Inbox{
		Address:  address,
		Messages: make([]models.MessageSummary, 0, len(envelopes)),
	}
	for _, env := range envelopes {
		token := s.codec.Encode(int64(env.UID))
		if token == "" {
			s.logger.Warn("skipping message with unencodable uid", "uid", env.UID)
			continue
		}
		inbox.Messages = append(inbox.Messages, models.MessageSummary{
			ID:      token,
			Subject: formatter.Subject(env.Subject),
			From:    formatter.Addresses(joinAddresses(env.From)),
			To:      formatter.Addresses(joinAddresses(env.To)),
			Date:    env.Date,
		})
	}

	return inbox, nil
}

// Message decodes token, fetches the message and decodes it.
// Unknown tokens fail with codec.ErrInvalidToken.
func (s *Service) Message(ctx context.Context, token string) (*models.MessageDetail, error) {
	uid, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	raw, err := s.mailbox.Fetch(ctx, uid)
	if err != nil {
		return nil, err
	}

	return s.detail(token, parser.ParseMessage(raw)), nil
}

func (s *Service) detail(token string, msg *parser.Message) *models.MessageDetail {
	d := &models.MessageDetail{
		ID:          token,
		Subject:     formatter.Subject(msg.Subject),
		From:        formatter.Addresses(msg.From),
		To:          formatter.Addresses(msg.To),
		Date:        msg.Date,
		Attachments: msg.Attachments,
		Truncated:   msg.Truncated,
	}
	if msg.Truncated {
		s.logger.Warn("message body truncated", "id", token)
	}

	for _, h := range msg.Headers {
		d.Headers = append(d.Headers, models.Header{Key: h.Key, Value: h.Value})
	}

	html := msg.HTML
	if !msg.Multipart && msg.PreviewIsHTML() {
		html = msg.Body
	}

	d.TextBody = msg.Text
	if !msg.Multipart && !msg.PreviewIsHTML() {
		d.TextBody = msg.Body
	}
	if d.TextBody == "" && html != "" {
		if text, err := s.html.Parse(html); err == nil {
			d.TextBody = text
		}
	}

	if html != "" {
		sanitized, err := s.html.Sanitize(html)
		if err != nil {
			s.logger.Warn("failed to sanitize html body", "id", token, "error", err)
		} else {
			d.HTMLBody = sanitized
		}
	}

	if msg.PreviewIsHTML() && d.HTMLBody != "" {
		d.Preview = d.HTMLBody
		d.PreviewHTML = true
	} else {
		d.Preview = msg.Preview()
		if d.Preview == "" {
			d.Preview = d.TextBody
		}
	}

	d.Codes = s.codes.DetectCodes(d.TextBody)
	return d
}

func joinAddresses(list []*email.Address) string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		if a == nil {
			continue
		}
		if s := parser.FormatAddress(a.Name, a.Address); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}
