package web

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/mixelka/tempinbox/internal/codec"
	"github.com/mixelka/tempinbox/internal/email"
	"github.com/mixelka/tempinbox/internal/geo"
	"github.com/mixelka/tempinbox/pkg/models"
)

const (
	msgInvalidAddress = "The server could not process your request. Can you please make sure to enter a valid email address?"
	msgInvalidToken   = "This message link is not valid. Links stop working when the service restarts, so open the inbox again."
	msgNotFound       = "This message no longer exists."
	msgUnavailable    = "The server could not process your request. Please try again in a moment."
)

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("User-agent: *\nDisallow: /"))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", view{Data: s.kinds})
}

// handleSearch turns the search form into a pretty inbox URL
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/inbox/"+url.PathEscape(q), http.StatusFound)
}

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	inbox, err := s.inbox.Inbox(r.Context(), name)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	visit := models.Visit{
		Time:      time.Now().UTC(),
		Mailbox:   inbox.Address,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	}
	if err := s.visits.Append(r.Context(), visit); err != nil {
		s.log(r).Warn("failed to record visit", "mailbox", inbox.Address, "error", err)
	}

	s.render(w, r, http.StatusOK, "inbox", view{Title: inbox.Address, Data: inbox})
}

func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	msg, err := s.inbox.Message(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	s.render(w, r, http.StatusOK, "email", view{Title: msg.Subject, Data: msg})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	msg, err := s.inbox.Message(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	v := previewView{Text: msg.Preview}
	if msg.PreviewHTML {
		// already sanitized by the inbox service
		v = previewView{HTML: template.HTML(msg.Preview)}
	}
	s.renderPreview(w, r, v)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	visits, err := s.visits.Recent(r.Context(), s.logSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	cache := geo.NewCache(s.locator, s.log(r))
	s.render(w, r, http.StatusOK, "log", view{Title: "Recent", Data: cache.Locate(r.Context(), visits)})
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	name := s.names.Name(r.PathValue("kind"))
	http.Redirect(w, r, "/inbox?q="+url.QueryEscape(name), http.StatusFound)
}

func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// fail maps an error to a page. Validation problems get a specific
// message; everything else collapses into one generic page.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusBadGateway, msgUnavailable

	switch {
	case errors.Is(err, email.ErrInvalidAddress):
		status, msg = http.StatusBadRequest, msgInvalidAddress
	case errors.Is(err, codec.ErrInvalidToken):
		status, msg = http.StatusBadRequest, msgInvalidToken
	case errors.Is(err, email.ErrMessageNotFound):
		status, msg = http.StatusNotFound, msgNotFound
	}

	if status == http.StatusBadGateway {
		s.log(r).Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log(r).Info("rejected request", "path", r.URL.Path, "status", status, "error", err)
	}

	s.render(w, r, status, "error", view{Title: "Error", Data: msg})
}
