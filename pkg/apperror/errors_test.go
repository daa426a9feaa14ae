package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindAndCode(t *testing.T) {
	err := ErrTooManyItems.With("%d items exceed the limit of %d", 12, 10)

	assert.True(t, errors.Is(err, ErrTooManyItems))
	assert.True(t, errors.Is(err, ErrPolicyViolation))
	assert.False(t, errors.Is(err, ErrEmptyItemList))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "TOO_MANY_ITEMS: 12 items exceed the limit of 10", err.Error())
}

func TestError_SurvivesWrapping(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("approve: %w", DependencyFailure("label provider", cause))

	assert.True(t, errors.Is(err, ErrDependencyFailure))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindDependencyFailure, KindOf(err))
	assert.Equal(t, "DEPENDENCY_FAILURE", CodeOf(err))
}

func TestKindOf_PlainErrorsAreInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Empty(t, CodeOf(errors.New("boom")))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
		code string
	}{
		{"not found", NotFound("rma", "RMA-1"), KindNotFound, "NOT_FOUND"},
		{"invalid state", InvalidState("cannot %s", "approve"), KindInvalidState, "INVALID_STATE"},
		{"invalid input", InvalidInput("items", "empty"), KindInvalidInput, "INVALID_INPUT"},
		{"conflict", Conflict("stale"), KindConflict, "STALE_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.code, tt.err.Code)
		})
	}
	assert.Equal(t, "rma RMA-1 not found", NotFound("rma", "RMA-1").Message)
	assert.Equal(t, "items: empty", InvalidInput("items", "empty").Message)
}

func TestWrap_KeepsSentinelIdentity(t *testing.T) {
	cause := errors.New("json: bad policy")
	err := ErrInvalidPolicy.Wrap(cause)

	assert.True(t, errors.Is(err, ErrInvalidPolicy))
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, ErrInvalidPolicy.Err, "sentinel untouched")
}
