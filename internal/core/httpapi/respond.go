package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/solatis/tagkeeper/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encoding response failed", zap.Error(err))
	}
}

// writeError maps domain errors to status codes. Validation failures are
// the caller's fault (400), missing entities 404, state conflicts 409,
// anything unrecognized a logged 500.
func (s *Service) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, types.ErrRuleNotFound),
		errors.Is(err, types.ErrDocumentNotFound),
		errors.Is(err, types.ErrTagNotFound),
		errors.Is(err, types.ErrTaskNotFound),
		errors.Is(err, types.ErrOrganizationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrEmptyConditionValue),
		errors.Is(err, types.ErrConditionValueTooLong),
		errors.Is(err, types.ErrUnknownField),
		errors.Is(err, types.ErrUnknownOperator),
		errors.Is(err, types.ErrUnknownMatchMode),
		errors.Is(err, types.ErrRuleNameLength),
		errors.Is(err, types.ErrRuleDescriptionTooLong),
		errors.Is(err, types.ErrTooManyConditions),
		errors.Is(err, types.ErrTooManyActions):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrEmptyConditionsUnconfirmed),
		errors.Is(err, types.ErrTaskNotCancellable),
		errors.Is(err, types.ErrRuleLimitExceeded):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		s.writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON request body into dst.
func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (s *Service) badRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
