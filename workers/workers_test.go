package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeAlertStore struct {
	calls   atomic.Int64
	cleared int64
	err     error
}

func (f *fakeAlertStore) ExpireDropAlerts(ctx context.Context, window time.Duration) (int64, error) {
	f.calls.Add(1)
	return f.cleared, f.err
}

type fakeHistoryStore struct {
	calls  atomic.Int64
	pruned int64
}

func (f *fakeHistoryStore) PruneHistory(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	return f.pruned, nil
}

func TestAlertWorkerRunOnce(t *testing.T) {
	store := &fakeAlertStore{cleared: 4}
	w := NewAlertWorker(store, 24*time.Hour, zerolog.Nop())

	w.runOnce(context.Background())
	assert.Equal(t, int64(1), store.calls.Load())
}

func TestAlertWorkerSurvivesStoreError(t *testing.T) {
	store := &fakeAlertStore{err: errors.New("db down")}
	w := NewAlertWorker(store, 24*time.Hour, zerolog.Nop())

	w.runOnce(context.Background())
	assert.Equal(t, int64(1), store.calls.Load())
}

func TestRetentionWorkerTrigger(t *testing.T) {
	store := &fakeHistoryStore{pruned: 7}
	w := NewRetentionWorker(store, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Hour)
		close(done)
	}()

	w.Trigger()
	assert.Eventually(t, func() bool {
		return store.calls.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestTriggerDoesNotBlock(t *testing.T) {
	w := NewAlertWorker(&fakeAlertStore{}, time.Hour, zerolog.Nop())

	// No Run loop draining the channel; repeated triggers must not block.
	w.Trigger()
	w.Trigger()
	w.Trigger()
}
