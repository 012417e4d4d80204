package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nikolayk812/billingflow/internal/scheduler"
	"github.com/stretchr/testify/require"
)

type recordingPass struct {
	calls chan struct{}
	err   error
}

func (p *recordingPass) RunReminderPass(context.Context) error {
	p.calls <- struct{}{}
	return p.err
}

func TestRunner(t *testing.T) {
	pass := &recordingPass{calls: make(chan struct{}, 16)}

	runner, err := scheduler.NewRunner(pass, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	for i := 0; i < 2; i++ {
		select {
		case <-pass.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("reminder pass was not triggered")
		}
	}

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on context cancel")
	}
}

// a failing pass is logged and retried, the runner keeps ticking
func TestRunner_PassFailure(t *testing.T) {
	pass := &recordingPass{calls: make(chan struct{}, 16), err: errors.New("boom")}

	runner, err := scheduler.NewRunner(pass, 10*time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go runner.Run(ctx)

	for i := 0; i < 2; i++ {
		select {
		case <-pass.calls:
		case <-time.After(2 * time.Second):
			t.Fatal("runner stopped after a failed pass")
		}
	}
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := scheduler.NewRunner(nil, time.Second)
	require.Error(t, err)

	_, err = scheduler.NewRunner(&recordingPass{calls: make(chan struct{}, 1)}, 0)
	require.Error(t, err)
}
