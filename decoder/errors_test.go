package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecoderErrorRecoverableFlags(t *testing.T) {
	ov := overflowError("queue full, capacity %d", 100)
	assert.True(t, ov.Recoverable, "overflowError should be Recoverable")
	fatal := fatalError("device failure: %s", "alloc")
	assert.False(t, fatal.Recoverable, "fatalError should not be Recoverable")
}

func TestDecoderErrorCapturesCallSite(t *testing.T) {
	err := overflowError("boom")
	assert.NotEmpty(t, err.File, "expected call site to be captured")
	assert.NotZero(t, err.Line, "expected call site to be captured")
	assert.Equal(t, "boom", err.Message)
}

func TestDecoderErrorImplementsError(t *testing.T) {
	var err error = fatalError("something broke")
	assert.NotEmpty(t, err.Error())
}
