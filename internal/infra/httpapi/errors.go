package httpapi

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/telemetry"
)

// errorBody is the JSON error envelope of every non-2xx response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func httpStatusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidArgument:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeAlreadyExists:
		return http.StatusConflict
	case domain.CodePermissionDenied:
		return http.StatusForbidden
	case domain.CodeFailedPrecond:
		return http.StatusPreconditionFailed
	case domain.CodeUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	case domain.CodeCanceled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, ok := domain.CodeFrom(err)
	if !ok {
		code = domain.CodeInternal
	}
	status := httpStatusFor(code)
	if status >= http.StatusInternalServerError {
		telemetry.LoggerWithRequest(r.Context(), s.logger).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	s.writeJSON(w, r, status, errorBody{Code: string(code), Message: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		telemetry.LoggerWithRequest(r.Context(), s.logger).Error("encode response", zap.Error(err))
	}
}
