// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeVault Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/safevault/safevault/internal/auth"
	"github.com/safevault/safevault/pkg/errutil"
)

// Response codes that originate in this package.
const (
	CodeRoleNotAllowed = "ROLE_NOT_ALLOWED"
	CodeForbidden      = "FORBIDDEN"
	CodeInternal       = "INTERNAL"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// classify maps an error to its HTTP status and response body. Messages are
// fixed per code so driver and hashing details never reach the client.
func classify(err error) (int, errorResponse) {
	if field, ok := auth.IsInvalidInput(err); ok {
		return http.StatusBadRequest, errorResponse{
			Code:    auth.CodeInvalidInput,
			Message: "invalid " + field,
			Field:   field,
		}
	}

	switch {
	case errors.Is(err, auth.ErrDuplicateUsername):
		return http.StatusConflict, errorResponse{Code: "DUPLICATE_USERNAME", Message: "username already exists"}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	case errors.Is(err, auth.ErrSessionInvalid):
		return http.StatusUnauthorized, errorResponse{Code: auth.CodeSessionInvalid, Message: "missing or invalid session token"}
	case errors.Is(err, auth.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Code: auth.CodeStorageUnavailable, Message: "credential store unavailable"}
	case errors.Is(err, auth.ErrTokenStoreUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Code: auth.CodeTokenStoreUnavailable, Message: "session store unavailable"}
	}

	switch errutil.Code(err) {
	case CodeRoleNotAllowed:
		return http.StatusForbidden, errorResponse{Code: CodeRoleNotAllowed, Message: "role selection is not allowed"}
	case CodeForbidden:
		return http.StatusForbidden, errorResponse{Code: CodeForbidden, Message: "insufficient role"}
	}

	return http.StatusInternalServerError, errorResponse{Code: CodeInternal, Message: "internal error"}
}

// writeError aborts the request with the response classify picks. Server-side
// failures are logged with their full context.
func (h *handler) writeError(c *gin.Context, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(c.Request.Context(), h.logger, "request failed", err)
	}
	c.AbortWithStatusJSON(status, body)
}

func roleNotAllowed(role string) error {
	return oops.Code(CodeRoleNotAllowed).With("role", role).Errorf("role selection is disabled")
}

func forbidden(required string) error {
	return oops.Code(CodeForbidden).With("required_role", required).Errorf("insufficient role")
}
