package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kindredlabs/kindred-backend/internal/domain/engine"
)

// StatusForCode maps engine failure codes onto HTTP statuses. Parse failures
// are 422 because the request itself was fine; the model payload was not.
func StatusForCode(code engine.ErrorCode) int {
	switch code {
	case engine.CodeValidation:
		return http.StatusBadRequest
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeState, engine.CodeConflict:
		return http.StatusConflict
	case engine.CodeParse:
		return http.StatusUnprocessableEntity
	case engine.CodeQuota:
		return http.StatusTooManyRequests
	case engine.CodeBackend, engine.CodeRetryable:
		return http.StatusServiceUnavailable
	case engine.CodeDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondEngineError renders an engine error through the standard envelope.
// Errors without an engine code fall back to a bare 500.
func RespondEngineError(c *gin.Context, err error) {
	code := engine.CodeOf(err)
	if code == "" {
		RespondError(c, http.StatusInternalServerError, string(engine.CodeInternal), err)
		return
	}
	RespondError(c, StatusForCode(code), string(code), err)
}
