package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		err       error
		transient bool
		fatal     bool
		canceled  bool
	}{
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), transient: true},
		{name: "net timeout", err: timeoutErr{}, transient: true},
		{name: "dial", err: &net.OpError{Op: "dial", Err: errors.New("refused")}, transient: true},
		{name: "canceled", err: context.Canceled, canceled: true},
		{name: "unknown", err: errors.New("boom"), fatal: true},
		{name: "already transient", err: &TransientError{Op: "x", Err: errors.New("y")}, transient: true},
		{name: "already fatal", err: &FatalError{Op: "x", Err: errors.New("y")}, fatal: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Classify("op", tc.err)
			assert.Equal(t, tc.transient, IsTransient(got), "transient")
			assert.Equal(t, tc.fatal, IsFatal(got), "fatal")
			assert.Equal(t, tc.canceled, IsCanceled(got), "canceled")
		})
	}

	assert.NoError(t, Classify("op", nil))
}

func TestFromStatus(t *testing.T) {
	t.Parallel()

	for status, transient := range map[int]bool{
		http.StatusTooManyRequests:     true,
		http.StatusRequestTimeout:      true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusUnauthorized:        false,
		http.StatusBadRequest:          false,
		http.StatusUnprocessableEntity: false,
	} {
		err := FromStatus("search", status, "body")
		assert.Equal(t, transient, IsTransient(err), "status %d", status)
		assert.Equal(t, !transient, IsFatal(err), "status %d", status)
		assert.Contains(t, err.Error(), "body")
	}
}

func TestTransientAndFatalKeepClassification(t *testing.T) {
	t.Parallel()

	fatal := &FatalError{Op: "auth", Err: errors.New("bad key")}
	assert.Same(t, fatal, Transient("retry", fatal).(*FatalError))

	transient := &TransientError{Op: "net", Err: errors.New("reset")}
	assert.Same(t, transient, Fatal("wrap", transient).(*TransientError))

	wrapped := fmt.Errorf("analyze: %w", transient)
	assert.True(t, IsTransient(wrapped))
	assert.ErrorIs(t, wrapped, transient.Err)
}

func TestPartialDataErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "analyzer: malformed output", PartialDataError{Stage: "analyzer", Detail: "malformed output"}.Error())
	assert.Equal(t, "plain", PartialDataError{Detail: "plain"}.Error())
}
