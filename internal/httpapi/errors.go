package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmehra2102/todo-realtime/internal/domain"
	"github.com/dmehra2102/todo-realtime/internal/interceptors"
	"go.uber.org/zap"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Name      string `json:"name"`
	Message   string `json:"message"`
	Code      int    `json:"code"`
	ClassName string `json:"className"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{
		Name:      "GeneralError",
		Message:   "internal server error",
		Code:      http.StatusInternalServerError,
		ClassName: "general-error",
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		body = errorBody{Name: "BadRequest", Message: err.Error(), Code: http.StatusBadRequest, ClassName: "bad-request"}
	case errors.Is(err, domain.ErrNotFound):
		body = errorBody{Name: "NotFound", Message: err.Error(), Code: http.StatusNotFound, ClassName: "not-found"}
	case errors.Is(err, context.DeadlineExceeded):
		body = errorBody{Name: "Timeout", Message: "request timed out", Code: http.StatusRequestTimeout, ClassName: "timeout"}
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", interceptors.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}

	writeJSON(w, body.Code, body)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
