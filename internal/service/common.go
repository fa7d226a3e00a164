package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fieldops/maintenance-desk/internal/domain"
	"github.com/fieldops/maintenance-desk/internal/events"
	"github.com/fieldops/maintenance-desk/internal/repository"
	"github.com/fieldops/maintenance-desk/internal/workflow"
	apperrors "github.com/fieldops/maintenance-desk/pkg/util/errorutil"
)

var errNoCipher = errors.New("credential cipher is not configured")

// numberAttempts bounds how often a colliding number is redrawn.
const numberAttempts = 5

// Clock returns the current time; services take one so tests can pin it.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// publisher wraps the dispatcher. Delivery failures never fail the caller;
// the dispatcher already logs them, publish hands the error back for
// callers that surface warnings.
type publisher struct {
	dispatcher events.Dispatcher
}

func (p publisher) publish(ctx context.Context, event events.Event) error {
	if p.dispatcher == nil {
		return nil
	}
	return p.dispatcher.Publish(ctx, event)
}

func requireActor(actor *domain.User) error {
	if actor == nil || !actor.Active {
		return apperrors.NewUnauthorized("authentication required")
	}
	return nil
}

// workflowError converts workflow sentinels into the API taxonomy.
func workflowError(err error, details map[string]any) error {
	var missing *workflow.MissingFieldsError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &missing):
		fields := make([]string, 0, len(missing.Fields))
		for _, f := range missing.Fields {
			fields = append(fields, string(f))
		}
		return apperrors.NewValidationError(missing.Error(), map[string]any{"fields": fields})
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrRMANotApproved):
		return apperrors.NewStateConflict(err.Error(), details)
	case errors.Is(err, workflow.ErrEscalationLimit):
		return apperrors.NewConflict(err.Error(), details)
	case errors.Is(err, workflow.ErrUnknownAction), errors.Is(err, workflow.ErrReplacementNotAllowed):
		return apperrors.NewValidationError(err.Error(), details)
	}
	return apperrors.MapError(err)
}

func newID() string {
	return uuid.NewString()
}

// createNumbered draws a number and hands it to create, drawing again while
// create reports a duplicate.
func createNumbered(ctx context.Context, numbers repository.NumberGenerator, prefix string, at time.Time, create func(number string) error) error {
	var err error
	for attempt := 0; attempt < numberAttempts; attempt++ {
		var number string
		if number, err = numbers.Next(ctx, prefix, at); err != nil {
			return err
		}
		if err = create(number); !errors.Is(err, apperrors.ErrDuplicate) {
			return err
		}
	}
	return err
}

// stringPreview shortens body to at most max runes.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func ptrTo[T any](v T) *T {
	return &v
}
