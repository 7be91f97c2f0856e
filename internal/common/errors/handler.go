// internal/common/errors/handler.go
package errors

// ErrorHandler logs classified errors at a level matching their visibility.
type ErrorHandler struct {
	logger Logger
}

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle classifies err, logs it and returns the StandardError together with
// whether the UI should show it. A nil err yields (nil, false).
func (h *ErrorHandler) Handle(err error, op string, firstPage bool) (*StandardError, bool) {
	stdErr := Classify(err)
	if stdErr == nil {
		return nil, false
	}
	visible := IsUserVisible(stdErr.Code, firstPage)

	fields := map[string]interface{}{
		"op":            op,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"firstPage":     firstPage,
		"userVisible":   visible,
	}

	switch {
	case GetErrorCategory(stdErr.Code) == "EXPECTED":
		h.logger.Debug("request outcome ignored", fields)
	case visible:
		h.logger.Error("request failed", fields)
	default:
		h.logger.Warn("request degraded", fields)
	}
	return stdErr, visible
}
