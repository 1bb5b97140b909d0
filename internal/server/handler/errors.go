package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/brizzai/yac-auth/internal/errs"
	"github.com/brizzai/yac-auth/internal/logger"
	"github.com/brizzai/yac-auth/internal/utils"
)

// writeServiceError is the only place errors become status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errs.IsValidation(err):
		utils.WriteError(w, "invalid_request", err.Error(), http.StatusBadRequest)
	case errs.IsForbidden(err):
		utils.WriteError(w, "access_denied", err.Error(), http.StatusForbidden)
	case errs.IsNotFound(err):
		utils.WriteError(w, "not_found", err.Error(), http.StatusNotFound)
	case errs.IsUpstream(err):
		utils.WriteError(w, "upstream_error", "identity provider request failed", http.StatusBadGateway)
	default:
		logger.Error("unhandled error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		utils.WriteError(w, "server_error", "internal server error", http.StatusInternalServerError)
	}
}
