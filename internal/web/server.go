// ===== internal/web/server.go =====

// Package web serves a read-only JSON status API for a running watch agent.
// Mutation over HTTP is deliberately not offered; applying and restoring
// tweaks stays a CLI action.
package web

import (
	"net/http"

	"delaykiller/internal/config"
	"delaykiller/internal/oplog"
	"delaykiller/internal/probe"
	"delaykiller/internal/snapshot"
)

// ConfigSource yields the configuration current at call time. A server
// attached to a watch agent passes the agent's getter so reloaded values
// show up; a standalone server wraps a fixed *config.Config.
type ConfigSource func() *config.Config

// Server represents the HTTP status server
type Server struct {
	cfg   ConfigSource
	probe *probe.Probe
	store *snapshot.Store
	ops   *oplog.Log
	mux   *http.ServeMux
}

// NewServer creates a new status server
func NewServer(cfg ConfigSource, p *probe.Probe, store *snapshot.Store, ops *oplog.Log) *Server {
	server := &Server{
		cfg:   cfg,
		probe: p,
		store: store,
		ops:   ops,
		mux:   http.NewServeMux(),
	}

	server.setupRoutes()
	return server
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return http.ListenAndServe(s.cfg().HTTPListen, s.mux)
}

// Handler returns the route mux, mainly for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/log", s.handleLog)
	s.mux.HandleFunc("/api/snapshot", s.handleSnapshot)
}
