package httpapi

import (
	"net/http"
	"time"

	"github.com/solatis/tagkeeper/internal/core/auth"
	"github.com/solatis/tagkeeper/internal/types"
)

type applyRuleRequest struct {
	ConfirmEmptyConditions bool `json:"confirm_empty_conditions"`
}

type taskResponse struct {
	TaskID           types.TaskID     `json:"task_id"`
	RuleID           types.RuleID     `json:"rule_id"`
	Status           types.TaskStatus `json:"status"`
	DocumentsScanned int64            `json:"documents_scanned"`
	DocumentsMatched int64            `json:"documents_matched"`
	TagsApplied      int64            `json:"tags_applied"`
	ErrorCount       int64            `json:"error_count"`
	FailureReason    string           `json:"failure_reason,omitempty"`
	CancelRequested  bool             `json:"cancel_requested,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func toTaskResponse(task *types.RuleApplicationTask) taskResponse {
	return taskResponse{
		TaskID:           task.TaskID,
		RuleID:           task.RuleID,
		Status:           task.Status,
		DocumentsScanned: task.Progress.DocumentsScanned,
		DocumentsMatched: task.Progress.DocumentsMatched,
		TagsApplied:      task.Progress.TagsApplied,
		ErrorCount:       task.Progress.ErrorCount,
		FailureReason:    task.FailureReason,
		CancelRequested:  task.CancelRequested,
		CreatedAt:        task.CreatedAt,
		UpdatedAt:        task.UpdatedAt,
	}
}

// handleApplyRule starts (or re-returns) the bulk application task for a
// rule. The response carries only the task id; progress is polled via the
// task endpoints.
func (s *Service) handleApplyRule(w http.ResponseWriter, r *http.Request) {
	ruleID, err := types.ParseRuleID(r.PathValue("ruleID"))
	if err != nil {
		s.badRequest(w, "invalid rule id")
		return
	}

	// The body is optional; an absent body means no confirmation.
	var req applyRuleRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			s.badRequest(w, "invalid request body: "+err.Error())
			return
		}
	}

	org := auth.OrganizationIDFromContext(r.Context())
	taskID, err := s.orchestrator.Apply(r.Context(), org, ruleID, req.ConfirmEmptyConditions)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]types.TaskID{"task_id": taskID})
}

func (s *Service) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := types.ParseTaskID(r.PathValue("taskID"))
	if err != nil {
		s.badRequest(w, "invalid task id")
		return
	}

	org := auth.OrganizationIDFromContext(r.Context())
	task, err := s.tasks.GetForOrganization(r.Context(), org, taskID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTaskResponse(task))
}

func (s *Service) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := types.ParseTaskID(r.PathValue("taskID"))
	if err != nil {
		s.badRequest(w, "invalid task id")
		return
	}

	org := auth.OrganizationIDFromContext(r.Context())
	if err := s.tasks.RequestCancel(r.Context(), org, taskID); err != nil {
		s.writeError(w, r, err)
		return
	}

	task, err := s.tasks.GetForOrganization(r.Context(), org, taskID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toTaskResponse(task))
}

const maxTaskListLimit = 100

func (s *Service) handleListTasks(w http.ResponseWriter, r *http.Request) {
	org := auth.OrganizationIDFromContext(r.Context())
	tasks, err := s.tasks.ListByOrganization(r.Context(), org, maxTaskListLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toTaskResponse(task))
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": out})
}
