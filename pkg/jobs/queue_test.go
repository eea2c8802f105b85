package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/3leaps/navconv/pkg/blobstore"
	"github.com/3leaps/navconv/pkg/convert"
	"github.com/3leaps/navconv/pkg/extract"
	"github.com/3leaps/navconv/pkg/schemaconv"
)

func fastQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:        1,
		PollInterval:   10 * time.Millisecond,
		RetryBaseDelay: time.Millisecond,
	}
}

// offlineOrchestrator builds an orchestrator with no code-generation
// backend. Jobs that reach the fallback or schema stage fail, which is what
// the failure-path tests want.
func offlineOrchestrator(t *testing.T, store *Store) *Orchestrator {
	t.Helper()
	blobs, err := blobstore.NewLocal(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)
	return NewOrchestrator(
		convert.New(nil, nil, nil),
		extract.New(),
		schemaconv.New(nil, nil, nil),
		blobs,
		store,
		nil,
	)
}

func waitForFinalState(t *testing.T, s *Store, jobID string) *Record {
	t.Helper()
	var rec *Record
	require.Eventually(t, func() bool {
		r, err := s.Get(jobID)
		if err != nil {
			return false
		}
		rec = r
		return r.State == StateCompleted || r.State == StateFailed
	}, 10*time.Second, 10*time.Millisecond)
	return rec
}

func shutdownQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Shutdown(ctx))
}

func TestQueueRunsJobToCompletion(t *testing.T) {
	p := newTestPipeline(t)
	q := NewQueue(p.store, p.orch, fastQueueConfig(), nil)

	rec, err := q.Submit("queued run", Inputs{
		GNSSFile: p.writeInput(t, "track.nmea", ggaSentence+"\n"),
	})
	require.NoError(t, err)

	q.Start(context.Background())
	final := waitForFinalState(t, p.store, rec.JobID)
	shutdownQueue(t, q)

	assert.Equal(t, StateCompleted, final.State)
	assert.Equal(t, 1, final.Attempts)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "completed", final.Message)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.EndedAt)
	require.NotNil(t, final.Result)
	assert.NotEmpty(t, final.Result.GNSSKey)
}

func TestQueueRetriesThenFails(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newTestStore(t)
	q := NewQueue(store, offlineOrchestrator(t, store), fastQueueConfig(), nil)

	rec, err := q.Submit("doomed", Inputs{
		GNSSFile: &InputFile{Path: filepath.Join(t.TempDir(), "missing.nmea"), OriginalName: "missing.nmea"},
	})
	require.NoError(t, err)

	q.Start(context.Background())
	final := waitForFinalState(t, store, rec.JobID)
	shutdownQueue(t, q)

	assert.Equal(t, StateFailed, final.State)
	assert.Equal(t, MaxAttempts, final.Attempts)
	assert.Contains(t, final.FailReason, "all legs failed")
	assert.Equal(t, "failed", final.Message)
	require.NotNil(t, final.EndedAt)
}

func TestQueuePicksUpPreexistingJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	// A job submitted before the queue started is dispatched on the first
	// scan, so waiting jobs survive process restarts.
	store := newTestStore(t)
	rec, err := store.Submit("pre-restart", Inputs{
		GNSSFile: &InputFile{Path: filepath.Join(t.TempDir(), "missing.nmea"), OriginalName: "missing.nmea"},
	})
	require.NoError(t, err)

	q := NewQueue(store, offlineOrchestrator(t, store), fastQueueConfig(), nil)
	q.Start(context.Background())
	final := waitForFinalState(t, store, rec.JobID)
	shutdownQueue(t, q)

	assert.Equal(t, StateFailed, final.State)
}

func TestQueueShutdownStopsWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newTestStore(t)
	q := NewQueue(store, offlineOrchestrator(t, store), fastQueueConfig(), nil)
	q.Start(context.Background())

	time.Sleep(50 * time.Millisecond)
	shutdownQueue(t, q)
}

func TestQueueClaimDedupe(t *testing.T) {
	store := newTestStore(t)
	q := NewQueue(store, offlineOrchestrator(t, store), fastQueueConfig(), nil)

	assert.True(t, q.claim("j1"))
	assert.False(t, q.claim("j1"))
	q.release("j1")
	assert.True(t, q.claim("j1"))
}
