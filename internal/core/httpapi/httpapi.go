// Package httpapi provides the HTTP+JSON service surface.
//
// Thin orchestration layer: handlers decode, delegate to the stores and the
// engine, and map domain errors to status codes. Every route sits behind the
// auth middleware, so the organization id always comes from the request
// context, never from the payload.
package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/solatis/tagkeeper/internal/core/auth"
	"github.com/solatis/tagkeeper/internal/core/store"
	"github.com/solatis/tagkeeper/internal/engine"
)

// Service wires the HTTP handlers to storage and the rule engine.
type Service struct {
	rules        *store.RuleStore
	documents    *store.DocumentStore
	tags         *store.TagStore
	tasks        *store.TaskStore
	trigger      *engine.Trigger
	orchestrator *engine.Orchestrator
	logger       *zap.Logger
}

// NewService creates the API service.
func NewService(
	rules *store.RuleStore,
	documents *store.DocumentStore,
	tags *store.TagStore,
	tasks *store.TaskStore,
	trigger *engine.Trigger,
	orchestrator *engine.Orchestrator,
	logger *zap.Logger,
) *Service {
	return &Service{
		rules:        rules,
		documents:    documents,
		tags:         tags,
		tasks:        tasks,
		trigger:      trigger,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Router builds the full route table. All /api/v1 routes require an API
// key; /healthz stays open for load balancer probes.
func (s *Service) Router(authenticator *auth.Authenticator) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/rules", s.handleCreateRule)
	mux.HandleFunc("GET /api/v1/rules", s.handleListRules)
	mux.HandleFunc("GET /api/v1/rules/{ruleID}", s.handleGetRule)
	mux.HandleFunc("PUT /api/v1/rules/{ruleID}", s.handleUpdateRule)
	mux.HandleFunc("DELETE /api/v1/rules/{ruleID}", s.handleDeleteRule)
	mux.HandleFunc("POST /api/v1/rules/{ruleID}/apply", s.handleApplyRule)

	mux.HandleFunc("GET /api/v1/tasks", s.handleListTasks)
	mux.HandleFunc("GET /api/v1/tasks/{taskID}", s.handleGetTask)
	mux.HandleFunc("POST /api/v1/tasks/{taskID}/cancel", s.handleCancelTask)

	mux.HandleFunc("POST /api/v1/documents", s.handleCreateDocument)
	mux.HandleFunc("PUT /api/v1/documents/{documentID}", s.handleUpdateDocument)
	mux.HandleFunc("GET /api/v1/documents/{documentID}/tags", s.handleListDocumentTags)

	mux.HandleFunc("POST /api/v1/tags", s.handleCreateTag)

	root := http.NewServeMux()
	root.Handle("/api/v1/", authenticator.Middleware(mux))
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return root
}
