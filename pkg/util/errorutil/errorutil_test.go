package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain passthrough", NewStateConflict("stale", nil), "STATE_CONFLICT", http.StatusConflict},
		{"wrapped domain", fmt.Errorf("ctx: %w", NewForbidden("nope")), "FORBIDDEN", http.StatusForbidden},
		{"pgx no rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"memory miss", ErrNotFound, "NOT_FOUND", http.StatusNotFound},
		{"duplicate", fmt.Errorf("insert asset: %w", ErrDuplicate), "CONFLICT", http.StatusConflict},
		{"stale write", ErrStaleWrite, "STATE_CONFLICT", http.StatusConflict},
		{"malformed uuid", fmt.Errorf("get ticket: %w", &pgconn.PgError{Code: "22P02"}), "VALIDATION_FAILED", http.StatusBadRequest},
		{"other pg error", &pgconn.PgError{Code: "23503"}, "INTERNAL_ERROR", http.StatusInternalServerError},
		{"fiber error", fiber.NewError(http.StatusBadRequest, "bad"), "VALIDATION_FAILED", http.StatusBadRequest},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.status, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestNotFoundOr(t *testing.T) {
	err := NotFoundOr(pgx.ErrNoRows, "ticket", map[string]any{"ticket_id": "t1"})
	de := ToDomainError(err)
	assert.Equal(t, "ticket not found", de.Message)
	assert.Equal(t, "t1", de.Details["ticket_id"])

	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("other")))
	assert.NoError(t, NotFoundOr(nil, "ticket", nil))
}
