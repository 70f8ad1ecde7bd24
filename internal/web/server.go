// Package web serves a read-only dashboard over the current bridge
// topology and device history, with live state pushed to open pages
// over a websocket.
package web

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/nugget/leapctl/internal/bridgemodel"
	"github.com/nugget/leapctl/internal/events"
	"github.com/nugget/leapctl/internal/history"
	"github.com/nugget/leapctl/internal/lutronleap"
)

// Bridge is the subset of *lutronleap.SmartBridge the dashboard needs.
type Bridge interface {
	GetDevices() []*bridgemodel.Device
	GetScenes() []*bridgemodel.Scene
	AddSubscriber(deviceID string, cb events.DeviceCallback)
}

var _ Bridge = (*lutronleap.SmartBridge)(nil)

// History is the subset of *history.Store the dashboard needs.
type History interface {
	ForDevice(deviceID string, limit int) ([]history.Event, error)
}

// Server is the HTTP handler for the dashboard and its websocket feed.
type Server struct {
	bridge    Bridge
	history   History
	templates map[string]*template.Template
	hub       *hub
	logger    *slog.Logger
}

// New builds a dashboard Server. hist may be nil if no history store is
// configured; device detail pages then omit the recent-events table.
func New(bridge Bridge, hist History, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		bridge:    bridge,
		history:   hist,
		templates: loadTemplates(),
		hub:       newHub(logger),
		logger:    logger,
	}
	for _, d := range bridge.GetDevices() {
		bridge.AddSubscriber(d.ID, s.hub.broadcastDevice)
	}
	return s
}

// Routes returns the dashboard's http.Handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/devices/", s.handleDeviceDetail)
	mux.HandleFunc("/ws", s.hub.serveWS)
	return mux
}

// Run starts the hub's broadcast loop. It blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.hub.run(ctx)
}
