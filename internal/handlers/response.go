package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
)

type APIError struct {
	Message string              `json:"message"`
	Code    string              `json:"code,omitempty"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondAppError maps a taxonomy error to its HTTP status and code,
// attaching field errors when publish validation produced them.
func RespondAppError(c *gin.Context, err error) {
	envelope := ErrorEnvelope{
		Error: APIError{
			Message: "unknown error",
			Code:    apperr.Code(err),
		},
	}
	if err != nil {
		envelope.Error.Message = err.Error()
	}
	var v *apperr.ValidationErrors
	if errors.As(err, &v) {
		envelope.Error.Fields = v.Errors
	}
	c.JSON(apperr.HTTPStatus(err), envelope)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
