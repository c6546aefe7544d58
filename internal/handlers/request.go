package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var errMissingPath = errors.New("query parameter path is required")

// requestUserID reads the caller identity forwarded by the gateway.
// Anonymous callers get uuid.Nil; ownership checks treat that as a
// distinct user.
func requestUserID(c *gin.Context) uuid.UUID {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
