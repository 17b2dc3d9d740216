// internal/logagg/aggregator_test.go
package logagg

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakySink counts writes and fails on demand
type flakySink struct {
	name   string
	fail   bool
	writes atomic.Int64
}

func (s *flakySink) Name() string { return s.name }

func (s *flakySink) Write(_ context.Context, _ Entry) error {
	s.writes.Add(1)
	if s.fail {
		return errors.New("sink unreachable")
	}
	return nil
}

func TestAggregator_Log(t *testing.T) {
	t.Run("buffer is bounded at cap with FIFO eviction", func(t *testing.T) {
		a := NewAggregator(nil, nil, nil)

		for i := 0; i < BufferCap+1; i++ {
			a.Log(LevelInfo, fmt.Sprintf("entry-%d", i), nil)
		}

		assert.Equal(t, BufferCap, a.Len())

		all := a.Recent(BufferCap)
		require.Len(t, all, BufferCap)
		// entry-0 evicted; order preserved for the remainder
		assert.Equal(t, "entry-1", all[0].Message)
		assert.Equal(t, fmt.Sprintf("entry-%d", BufferCap), all[len(all)-1].Message)
	})

	t.Run("entries are timestamped", func(t *testing.T) {
		a := NewAggregator(nil, nil, nil)
		a.Log(LevelInfo, "hello", map[string]string{"component": "test"})

		entries := a.Recent(1)
		require.Len(t, entries, 1)
		assert.WithinDuration(t, time.Now().UTC(), entries[0].Timestamp, time.Second)
		assert.Equal(t, "test", entries[0].Metadata["component"])
	})
}

func TestAggregator_Query(t *testing.T) {
	a := NewAggregator(nil, nil, nil)
	a.Log(LevelInfo, "started", map[string]string{"component": "scheduler"})
	a.Log(LevelError, "probe failed", map[string]string{"component": "scheduler"})
	a.Log(LevelError, "probe failed", map[string]string{"component": "prober"})

	t.Run("by level", func(t *testing.T) {
		assert.Len(t, a.ByLevel(LevelError), 2)
		assert.Len(t, a.ByLevel(LevelInfo), 1)
		assert.Empty(t, a.ByLevel(LevelDebug))
	})

	t.Run("exact match across fields", func(t *testing.T) {
		got := a.Query(Filter{
			Level:    LevelError,
			Metadata: map[string]string{"component": "scheduler"},
		})
		require.Len(t, got, 1)
		assert.Equal(t, "probe failed", got[0].Message)
	})

	t.Run("by message", func(t *testing.T) {
		assert.Len(t, a.Query(Filter{Message: "probe failed"}), 2)
	})

	t.Run("empty filter matches all", func(t *testing.T) {
		assert.Len(t, a.Query(Filter{}), 3)
	})
}

func TestAggregator_Recent(t *testing.T) {
	a := NewAggregator(nil, nil, nil)
	for i := 0; i < 5; i++ {
		a.Log(LevelInfo, fmt.Sprintf("m-%d", i), nil)
	}

	recent := a.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "m-2", recent[0].Message)
	assert.Equal(t, "m-4", recent[2].Message)

	assert.Len(t, a.Recent(100), 5)
}

func TestAggregator_Export(t *testing.T) {
	a := NewAggregator(nil, nil, nil)
	a.Log(LevelInfo, "one", nil)
	a.Log(LevelWarn, "two", nil)

	t.Run("json array", func(t *testing.T) {
		data, err := a.Export(FormatJSON)
		require.NoError(t, err)

		var entries []Entry
		require.NoError(t, json.Unmarshal(data, &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "one", entries[0].Message)
	})

	t.Run("gzip round-trips to the same json", func(t *testing.T) {
		compressed, err := a.Export(FormatJSONGz)
		require.NoError(t, err)

		gz, err := gzip.NewReader(bytes.NewReader(compressed))
		require.NoError(t, err)
		raw, err := io.ReadAll(gz)
		require.NoError(t, err)

		var entries []Entry
		require.NoError(t, json.Unmarshal(raw, &entries))
		assert.Len(t, entries, 2)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := a.Export("xml")
		assert.Error(t, err)
	})
}

func TestAggregator_Forwarding(t *testing.T) {
	t.Run("entries reach sinks", func(t *testing.T) {
		sink := &flakySink{name: "ok"}
		a := NewAggregator([]Sink{sink}, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		a.Start(ctx)

		a.Log(LevelInfo, "forward me", nil)

		assert.Eventually(t, func() bool { return sink.writes.Load() == 1 },
			time.Second, 10*time.Millisecond)
		a.Stop()
	})

	t.Run("sink failure never affects the caller or the buffer", func(t *testing.T) {
		bad := &flakySink{name: "bad", fail: true}
		good := &flakySink{name: "good"}
		a := NewAggregator([]Sink{bad, good}, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		a.Start(ctx)

		a.Log(LevelError, "still logged", nil)

		assert.Eventually(t, func() bool { return good.writes.Load() == 1 },
			time.Second, 10*time.Millisecond)
		assert.Equal(t, 1, a.Len())
		a.Stop()
	})

	t.Run("log returns without a running worker", func(t *testing.T) {
		sink := &flakySink{name: "idle"}
		a := NewAggregator([]Sink{sink}, nil, nil)

		done := make(chan struct{})
		go func() {
			for i := 0; i < 2000; i++ {
				a.Log(LevelInfo, "burst", nil)
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("Log blocked on saturated forward queue")
		}
		assert.Equal(t, 2000, a.Len())
		assert.Greater(t, a.Dropped(), int64(0))
	})
}
