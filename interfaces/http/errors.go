package http

import (
	"errors"
	"net/http"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"
	"github.com/mido200912/Ai-Thor/usecase"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds how much of a webhook delivery is read.
const maxWebhookBody = 1 << 20

// statusFor maps usecase errors to response codes.
func statusFor(err error) int {
	switch {
	case model.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, usecase.ErrVerifyTokenMismatch):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidSignature):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError answers with a plain text body. Internal causes are logged,
// never echoed.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		msg = ve.Reason
	}
	if status == http.StatusInternalServerError {
		logger.GetLogger().WithField("error", err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.Abort()
	c.String(status, msg)
}
