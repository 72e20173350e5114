// Package web renders inboxes, messages and the visit log over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mixelka/tempinbox/internal/accesslog"
	"github.com/mixelka/tempinbox/internal/geo"
	"github.com/mixelka/tempinbox/pkg/models"
)

const previewPolicy = "default-src 'none'; img-src * data:; style-src 'unsafe-inline' *; font-src * data:; " +
	"sandbox allow-popups allow-popups-to-escape-sandbox"

// InboxService lists inboxes and decodes messages
type InboxService interface {
	Address(name string) string
	Inbox(ctx context.Context, name string) (*models.Inbox, error)
	Message(ctx context.Context, token string) (*models.MessageDetail, error)
}

// NameGenerator suggests random inbox names
type NameGenerator interface {
	Name(kind string) string
}

// Deps dependencies for creating a server
type Deps struct {
	Inbox   InboxService
	Visits  accesslog.Store
	Locator geo.Locator
	Names   NameGenerator
	Kinds   []string // random name kinds offered on the home page
	Domain  string
	LogSize int
	Logger  *slog.Logger
}

// Server is the HTTP front end
type Server struct {
	inbox     InboxService
	visits    accesslog.Store
	locator   geo.Locator
	names     NameGenerator
	kinds     []string
	domain    string
	logSize   int
	templates *templates
	handler   http.Handler
	logger    *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(deps Deps) (*Server, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		inbox:     deps.Inbox,
		visits:    deps.Visits,
		locator:   deps.Locator,
		names:     deps.Names,
		kinds:     deps.Kinds,
		domain:    deps.Domain,
		logSize:   deps.LogSize,
		templates: tmpl,
		logger:    deps.Logger.With("component", "web"),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.handler = s.withRequestLogging(withSecurityHeaders(mux))

	return s, nil
}

// registerRoutes registers page handlers
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /robots.txt", s.handleRobots)
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /inbox", s.handleSearch)
	mux.HandleFunc("GET /inbox/{name}", s.handleInbox)
	mux.HandleFunc("GET /email/{id}", s.handleEmail)
	mux.HandleFunc("GET /preview/{id}", s.handlePreview)
	mux.HandleFunc("GET /log", s.handleLog)
	mux.HandleFunc("GET /random/{kind}", s.handleRandom)
	mux.HandleFunc("/", s.handleFallback)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
