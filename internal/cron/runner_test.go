package cronrunner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_RunsJobsAndSurvivesFailures(t *testing.T) {
	r := New(nil, context.Background())

	var ok, failed, panicked atomic.Int32
	_, err := r.Add("ok", "@every 1s", func(ctx context.Context) error { ok.Add(1); return nil })
	require.NoError(t, err)
	_, err = r.Add("fail", "@every 1s", func(ctx context.Context) error { failed.Add(1); return errors.New("x") })
	require.NoError(t, err)
	_, err = r.Add("panic", "@every 1s", func(ctx context.Context) error { panicked.Add(1); panic("boom") })
	require.NoError(t, err)
	assert.Equal(t, 3, r.Entries())

	r.Start()
	assert.Eventually(t, func() bool {
		return ok.Load() >= 2 && failed.Load() >= 2 && panicked.Load() >= 2
	}, 5*time.Second, 50*time.Millisecond)
	r.Stop()
}

func TestRunner_RejectsBadSpec(t *testing.T) {
	r := New(nil, nil)
	_, err := r.Add("bad", "not a spec", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}
