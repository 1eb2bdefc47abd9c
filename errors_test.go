package safegmx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewError_FillsDefaults(t *testing.T) {
	e := newError(CodeTokenNotFound, "", "check symbol", Context{Service: "resolver"})
	assert.Equal(t, KindNotFound, e.Kind)
	assert.Equal(t, SeverityMedium, e.Severity)
	assert.False(t, e.Retriable)
	assert.True(t, e.Actionable)
}

func TestWrapError_Unwraps(t *testing.T) {
	inner := errors.New("dial tcp: timeout")
	e := wrapError(CodeRPCConnectionFailed, "", "retry the RPC call", Context{}, inner)
	assert.True(t, e.Retriable)
	assert.ErrorIs(t, e, inner)
	assert.Contains(t, e.Error(), "RPC_CONNECTION_FAILED")
}

func TestNewError_UnknownCodeFallsBackToDefaults(t *testing.T) {
	e := newError("NOT_A_REAL_CODE", "", "", Context{})
	assert.Equal(t, codeDefaults[CodeUnknownError].kind, e.Kind)
}
