package errors_test

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/lorrc/ticket-monitor/internal/core/errors"
	"github.com/stretchr/testify/assert"
)

func TestRemoteError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *apperrors.RemoteError
		want string
	}{
		{
			name: "status only",
			err:  apperrors.NewRemoteStatusError("fetch tickets", 503, ""),
			want: "fetch tickets: status 503",
		},
		{
			name: "status and body",
			err:  apperrors.NewRemoteStatusError("update ticket 4", 400, "invalid priority"),
			want: "update ticket 4: status 400: invalid priority",
		},
		{
			name: "transport failure",
			err:  apperrors.NewRemoteError("fetch tickets", errors.New("connection refused")),
			want: "fetch tickets: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestRemoteError_UnwrapsCause(t *testing.T) {
	err := apperrors.NewRemoteError("fetch tickets", context.Canceled)

	assert.ErrorIs(t, err, context.Canceled)

	var remoteErr *apperrors.RemoteError
	assert.ErrorAs(t, err, &remoteErr)
}

func TestEvaluationError(t *testing.T) {
	err := &apperrors.EvaluationError{TicketID: 12, Fields: []string{"status", "priority"}}

	assert.Equal(t, "ticket 12: missing status, priority", err.Error())
	assert.ErrorIs(t, err, apperrors.ErrMissingField)
	assert.NotErrorIs(t, err, apperrors.ErrInvalidTicket)
}

func TestEvaluationError_InvalidData(t *testing.T) {
	cause := errors.New("cannot unmarshal string into priority")
	err := &apperrors.EvaluationError{TicketID: 2, Err: cause}

	assert.Equal(t, "ticket 2: invalid data: cannot unmarshal string into priority", err.Error())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTicket)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, apperrors.ErrMissingField)
}

func TestAppError_FallsBackToCause(t *testing.T) {
	err := &apperrors.AppError{Err: apperrors.ErrUnauthorized}

	assert.Equal(t, "unauthorized", err.Error())
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, 401, apperrors.NewUnauthorizedError("no").StatusCode)
	assert.Equal(t, 429, apperrors.NewRateLimitError().StatusCode)
	assert.Equal(t, "An unexpected error occurred", apperrors.NewInternalError(errors.New("db")).Message)
}
