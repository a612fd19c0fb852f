package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"realtime-chat/internal/chat"
)

const (
	codeInternal        = "INTERNAL"
	codeInvalidArgument = "INVALID_ARGUMENT"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrForbidden), errors.Is(err, chat.ErrCommunicationBlocked):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	code := chat.ErrorCode(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", requestIDFromContext(c)).
			Str("route", c.FullPath()).
			Msg("request failed")
		c.JSON(status, gin.H{"error": "internal error", "code": code})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": codeInvalidArgument})
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
