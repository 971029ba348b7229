package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/solatis/tagkeeper/internal/core/auth"
	"github.com/solatis/tagkeeper/internal/rules"
	"github.com/solatis/tagkeeper/internal/types"
)

type ruleRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	MatchMode   string            `json:"match_mode"`
	Conditions  []types.Condition `json:"conditions"`
	Actions     []types.TagAction `json:"actions"`
	Enabled     *bool             `json:"enabled"`
}

type ruleResponse struct {
	RuleID      types.RuleID      `json:"rule_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	MatchMode   string            `json:"match_mode"`
	Conditions  []types.Condition `json:"conditions"`
	Actions     []types.TagAction `json:"actions"`
	Enabled     bool              `json:"enabled"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toRuleResponse(rule *types.TaggingRule) ruleResponse {
	return ruleResponse{
		RuleID:      rule.RuleID,
		Name:        rule.Name,
		Description: rule.Description,
		MatchMode:   rule.MatchMode,
		Conditions:  rule.Conditions,
		Actions:     rule.Actions,
		Enabled:     rule.Enabled,
		CreatedAt:   rule.CreatedAt,
		UpdatedAt:   rule.UpdatedAt,
	}
}

// buildRule assembles and validates a rule from a request payload.
// Compile is the single validation gate: anything it rejects never reaches
// the store.
func (s *Service) buildRule(r *http.Request, req ruleRequest, id types.RuleID) (*types.TaggingRule, error) {
	rule := &types.TaggingRule{
		RuleID:         id,
		OrganizationID: auth.OrganizationIDFromContext(r.Context()),
		Name:           req.Name,
		Description:    req.Description,
		MatchMode:      req.MatchMode,
		Conditions:     req.Conditions,
		Actions:        req.Actions,
		Enabled:        true,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if rule.MatchMode == "" {
		rule.MatchMode = "ALL"
	}

	if _, err := rules.Compile(rule); err != nil {
		return nil, err
	}

	// Actions must point at live tags in the same organization.
	for _, action := range rule.Actions {
		exists, err := s.tags.TagExists(r.Context(), rule.OrganizationID, action.TagID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("action tag %s: %w", action.TagID, types.ErrTagNotFound)
		}
	}

	return rule, nil
}

func (s *Service) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}

	org := auth.OrganizationIDFromContext(r.Context())
	count, err := s.rules.Count(r.Context(), org)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if count >= types.MaxRulesPerOrganization {
		s.writeError(w, r, types.ErrRuleLimitExceeded)
		return
	}

	rule, err := s.buildRule(r, req, types.NewRuleID())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.rules.Create(r.Context(), rule); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (s *Service) handleListRules(w http.ResponseWriter, r *http.Request) {
	org := auth.OrganizationIDFromContext(r.Context())
	list, err := s.rules.List(r.Context(), org)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]ruleResponse, 0, len(list))
	for _, rule := range list {
		out = append(out, toRuleResponse(rule))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": out})
}

func (s *Service) handleGetRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := types.ParseRuleID(r.PathValue("ruleID"))
	if err != nil {
		s.badRequest(w, "invalid rule id")
		return
	}

	org := auth.OrganizationIDFromContext(r.Context())
	rule, err := s.rules.Get(r.Context(), org, ruleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (s *Service) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := types.ParseRuleID(r.PathValue("ruleID"))
	if err != nil {
		s.badRequest(w, "invalid rule id")
		return
	}

	var req ruleRequest
	if err := decode(r, &req); err != nil {
		s.badRequest(w, "invalid request body: "+err.Error())
		return
	}

	rule, err := s.buildRule(r, req, ruleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.rules.Update(r.Context(), rule); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Re-read for the persisted created_at.
	updated, err := s.rules.Get(r.Context(), rule.OrganizationID, ruleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toRuleResponse(updated))
}

func (s *Service) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := types.ParseRuleID(r.PathValue("ruleID"))
	if err != nil {
		s.badRequest(w, "invalid rule id")
		return
	}

	org := auth.OrganizationIDFromContext(r.Context())
	if err := s.rules.Delete(r.Context(), org, ruleID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
