package settlement

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/settlement-engine/logging"
)

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	f := newFixture(t)
	f.user("u1")
	f.worklog("w1", "u1")
	f.segments("w1", 10)

	var runs atomic.Int32
	done := make(chan GenerationResult, 8)
	s := NewScheduler(newTestGenerator(f.store, f.store), time.Hour, logging.Discard())
	s.OnRun = func(r GenerationResult, err error) {
		assert.NoError(t, err)
		runs.Add(1)
		done <- r
	}

	s.Start()
	s.Start() // no-op

	select {
	case r := <-done:
		assert.Equal(t, 1, r.Generated)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not run on start")
	}

	s.Stop()
	s.Stop() // no-op
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_TicksOnInterval(t *testing.T) {
	f := newFixture(t)
	done := make(chan struct{}, 16)
	s := NewScheduler(newTestGenerator(f.store, f.store), 10*time.Millisecond, logging.Discard())
	s.OnRun = func(GenerationResult, error) {
		select {
		case done <- struct{}{}:
		default:
		}
	}

	s.Start()
	defer s.Stop()

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d runs observed", i)
		}
	}
}

func TestScheduler_ZeroIntervalDisabled(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(newTestGenerator(f.store, f.store), 0, logging.Discard())
	s.OnRun = func(GenerationResult, error) { t.Error("disabled scheduler ran") }

	s.Start()
	s.Stop()

	require.Nil(t, s.cancel)
}
