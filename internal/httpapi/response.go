// internal/httpapi/response.go
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pricelens/internal/common/errors"
)

// nginx's "client closed request"; the caller went away before we answered.
const statusClientClosedRequest = 499

type apiResponse struct {
	Message         string      `json:"message"`
	Error           bool        `json:"error"`
	Code            string      `json:"code,omitempty"`
	Retryable       bool        `json:"retryable,omitempty"`
	Data            interface{} `json:"data,omitempty"`
	RequestedEntity string      `json:"requestedEntity"`
}

func successResponse(c *gin.Context, message string, data interface{}) apiResponse {
	return apiResponse{
		Message:         message,
		Data:            data,
		RequestedEntity: c.Request.Method + " " + c.FullPath(),
	}
}

func errorResponse(c *gin.Context, std *apperrors.StandardError) apiResponse {
	return apiResponse{
		Message:         std.Message,
		Error:           true,
		Code:            string(std.Code),
		Retryable:       std.Retryable,
		RequestedEntity: c.Request.Method + " " + c.FullPath(),
	}
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeInvalidFilter, apperrors.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeSearchTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeRequestAborted:
		return statusClientClosedRequest
	case apperrors.ErrCodeNetworkFailure, apperrors.ErrCodeBackendStatus,
		apperrors.ErrCodeSchemaMismatch, apperrors.ErrCodeMalformedData:
		return http.StatusBadGateway
	case apperrors.ErrCodeCacheFailure, apperrors.ErrCodeStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail classifies err, logs it through the error handler and writes the
// matching status.
func (s *Server) fail(c *gin.Context, op string, err error) {
	std, _ := s.errors.Handle(err, op, true)
	if std == nil {
		std = apperrors.Classify(err)
	}
	c.AbortWithStatusJSON(statusFor(std.Code), errorResponse(c, std))
}

func (s *Server) badRequest(c *gin.Context, details string) {
	s.fail(c, c.FullPath(), apperrors.NewInvalidRequestError(details))
}
