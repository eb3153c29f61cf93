// Package response defines the JSON envelope every handler replies with and
// the translation from engine failure codes to HTTP statuses.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// RespondError writes the error envelope. A nil err falls back to the code
// itself so the message field is never empty.
func RespondError(c *gin.Context, status int, code string, err error) {
	body := APIError{Code: code}
	switch {
	case err != nil:
		body.Message = err.Error()
	case code != "":
		body.Message = code
	default:
		body.Message = "request failed"
	}
	c.JSON(status, ErrorEnvelope{Error: body})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
