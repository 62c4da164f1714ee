package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInternal, "internal"},
		{KindNotFound, "not_found"},
		{KindPreconditionFailed, "precondition_failed"},
		{KindInvalidTransition, "invalid_transition"},
		{KindBadInput, "bad_input"},
		{Kind(99), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "task 'abc' not found", NotFound("task", "abc").Error())
	assert.Equal(t,
		"invalid transition for task 'abc': undo window expired",
		InvalidTransition("task", "abc", ErrUndoWindowExpired).Error(),
	)
	assert.Equal(t,
		"precondition failed for user 'u1': no user record",
		PreconditionFailed("user", "u1", ErrUserMissing).Error(),
	)
}

func TestKindOf_ThroughWrapping(t *testing.T) {
	base := InvalidTransition("plan", "p1", ErrPlanTerminal)
	wrapped := fmt.Errorf("confirm plan: %w", base)

	assert.Equal(t, KindInvalidTransition, KindOf(wrapped))
	assert.True(t, Is(wrapped, ErrPlanTerminal))
	assert.True(t, Is(wrapped, InvalidTransition("", "", nil)))
	assert.False(t, Is(wrapped, NotFound("", "")))
	assert.True(t, IsUserFacing(wrapped))
}

func TestKindOf_Internal(t *testing.T) {
	err := fmt.Errorf("open db: %w", New("disk full"))
	assert.Equal(t, KindInternal, KindOf(err))
	assert.False(t, IsUserFacing(err))
}

func TestWithCause(t *testing.T) {
	err := NotFound("goal", "g1").WithCause(New("record not found"))
	assert.Equal(t, "goal 'g1' not found: record not found", err.Error())
	assert.NotNil(t, Unwrap(err))
}
