package classify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/depositcore/engine/internal/platform/errs"
)

func TestClassify_RetryableTransportErrorIsTransient(t *testing.T) {
	c := Classify(errs.TransportError{Protocol: "ftp", Retryable: true, Err: fmt.Errorf("dial timeout")})
	assert.Equal(t, KindTransient, c.Kind)
	assert.True(t, c.Retryable)
}

func TestClassify_NonRetryableTransportErrorIsTerminal(t *testing.T) {
	c := Classify(errs.TransportError{Protocol: "SWORDv2", Retryable: false, StatusCode: 400})
	assert.Equal(t, KindTerminal, c.Kind)
	assert.False(t, c.Retryable)
}

func TestClassify_ValidationErrorIsTerminal(t *testing.T) {
	c := Classify(errs.ValidationError{EntityType: "submission", Message: "missing submitter"})
	assert.Equal(t, KindTerminal, c.Kind)
	assert.Equal(t, "submission", c.TargetResource)
}

func TestClassify_ConflictErrorIsTransientAndRetryable(t *testing.T) {
	c := Classify(errs.ConflictError{EntityType: "deposit", ID: "d1"})
	assert.Equal(t, KindTransient, c.Kind)
	assert.True(t, c.Retryable)
}

func TestClassify_PreconditionFailureIsInternal(t *testing.T) {
	c := Classify(errs.PreconditionFailedError{EntityType: "deposit", ID: "d1", Reason: "already submitted"})
	assert.Equal(t, KindInternal, c.Kind)
}

func TestClassify_CancelledIsItsOwnKind(t *testing.T) {
	c := Classify(errs.CancelledError{Reason: "shutdown"})
	assert.Equal(t, KindCancelled, c.Kind)
}

func TestClassify_UnrecognizedErrorDefaultsToInternalNonRetryable(t *testing.T) {
	c := Classify(fmt.Errorf("something unexpected"))
	assert.Equal(t, KindInternal, c.Kind)
	assert.False(t, c.Retryable)
}
