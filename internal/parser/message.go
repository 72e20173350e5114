package parser

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// maxPartSize caps how much of a single body part is read
const maxPartSize = 5 << 20

// maxDepth bounds multipart nesting
const maxDepth = 16

// Message is a decoded internet message. Fields the input did not
// provide, or that failed to decode, are left empty.
type Message struct {
	Headers     []Header
	Subject     string
	From        string
	To          string
	Date        time.Time
	ContentType string // top-level media type, lower case
	Multipart   bool
	Body        string // decoded body of a non-multipart message
	Text        string // first text/plain part
	HTML        string // first text/html part
	Attachments []string
	Truncated   bool // a body part exceeded maxPartSize and was cut
}

// Header is one header field with encoded words decoded
type Header struct {
	Key   string
	Value string
}

// ParseMessage decodes raw message bytes. It never fails: malformed
// input yields a partially filled or empty Message. Parts with an unknown
// charset or transfer encoding are kept with their bodies undecoded.
func ParseMessage(raw []byte) *Message {
	msg := &Message{}

	// a non-nil entity comes back even for unknown charsets and encodings
	e, _ := message.Read(bytes.NewReader(raw))
	if e == nil {
		return msg
	}

	msg.parseHeader(&mail.Header{Header: e.Header})
	msg.walk(e, 0)

	return msg
}

// Preview picks the single body to show: the whole body of a
// non-multipart message, else HTML, else plain text.
func (m *Message) Preview() string {
	if !m.Multipart {
		return m.Body
	}
	if m.HTML != "" {
		return m.HTML
	}
	return m.Text
}

// PreviewIsHTML reports whether Preview returns markup
func (m *Message) PreviewIsHTML() bool {
	if !m.Multipart {
		return m.ContentType == "text/html"
	}
	return m.HTML != ""
}

func (m *Message) parseHeader(h *mail.Header) {
	fields := h.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		m.Headers = append(m.Headers, Header{Key: fields.Key(), Value: value})
	}

	if subject, err := h.Subject(); err == nil {
		m.Subject = subject
	} else {
		m.Subject = h.Get("Subject")
	}

	m.From = addressHeader(h, "From")
	m.To = addressHeader(h, "To")

	if date, err := h.Date(); err == nil {
		m.Date = date
	}

	mediaType, _, _ := h.ContentType()
	m.ContentType = strings.ToLower(mediaType)
	m.Multipart = strings.HasPrefix(m.ContentType, "multipart/")
}

// walk visits every leaf part in order. A broken multipart boundary
// stops the walk but keeps what was read before it.
func (m *Message) walk(e *message.Entity, depth int) {
	mr := e.MultipartReader()
	if mr == nil {
		m.addPart(e)
		return
	}
	if depth >= maxDepth {
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF || part == nil {
			return
		}
		m.walk(part, depth+1)
	}
}

func (m *Message) addPart(e *message.Entity) {
	ct, _, _ := e.Header.ContentType()
	ct = strings.ToLower(ct)
	disp, _, _ := e.Header.ContentDisposition()
	disp = strings.ToLower(disp)

	inline := disp == "inline" || (disp != "attachment" && strings.HasPrefix(ct, "text/"))
	if !inline {
		h := mail.AttachmentHeader{Header: e.Header}
		filename, err := h.Filename()
		if err != nil || filename == "" {
			filename = "unnamed"
		}
		m.Attachments = append(m.Attachments, filename)
		return
	}

	body, err := io.ReadAll(io.LimitReader(e.Body, maxPartSize+1))
	if err != nil && len(body) == 0 {
		return
	}
	if len(body) > maxPartSize {
		body = body[:maxPartSize]
		m.Truncated = true
	}

	if !m.Multipart && m.Body == "" {
		m.Body = string(body)
	}

	if strings.HasPrefix(ct, "text/html") && m.HTML == "" {
		m.HTML = string(body)
	} else if strings.HasPrefix(ct, "text/plain") && m.Text == "" {
		m.Text = string(body)
	}
}

// addressHeader formats an address list, falling back to the decoded text
func addressHeader(h *mail.Header, key string) string {
	list, err := h.AddressList(key)
	if err == nil && len(list) > 0 {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, FormatAddress(a.Name, a.Address))
		}
		return strings.Join(out, ", ")
	}

	if text, err := h.Text(key); err == nil {
		return text
	}
	return h.Get(key)
}

// FormatAddress renders "Name <addr>" or just addr
func FormatAddress(name, addr string) string {
	switch {
	case name == "":
		return addr
	case addr == "":
		return name
	default:
		return name + " <" + addr + ">"
	}
}
