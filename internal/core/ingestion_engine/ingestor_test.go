package ingestion_engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/vectordb/internal/models"
)

func waitDone(t *testing.T, q *JobQueue, id string) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		var ok bool
		job, ok = q.Status(id)
		return ok && job.Status == JobDone
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func TestJobQueue_FileAndDirectory(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	file := writeFile(t, dir, "a.txt", "alpha")
	writeFile(t, dir, "b.txt", "beta")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewJobQueue(f.ingestor, 4, nil)
	q.Start(ctx, 2)

	id, err := q.Enqueue(file)
	require.NoError(t, err)
	job := waitDone(t, q, id)
	require.Len(t, job.Results, 1)
	assert.Equal(t, models.OutcomeStored, job.Results[0].Outcome)
	assert.NotNil(t, job.FinishedAt)

	id, err = q.Enqueue(dir)
	require.NoError(t, err)
	job = waitDone(t, q, id)
	require.Len(t, job.Results, 2)
	assert.Equal(t, models.OutcomeAlreadyExists, job.Results[0].Outcome)
	assert.Equal(t, models.OutcomeStored, job.Results[1].Outcome)
}

func TestJobQueue_MissingPath(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewJobQueue(f.ingestor, 1, nil)
	q.Start(ctx, 1)

	id, err := q.Enqueue(filepath.Join(t.TempDir(), "gone"))
	require.NoError(t, err)
	job := waitDone(t, q, id)
	assert.NotEmpty(t, job.Error)
	assert.Empty(t, job.Results)
}

func TestJobQueue_Full(t *testing.T) {
	f := newFixture(t)
	q := NewJobQueue(f.ingestor, 1, nil) // no workers started

	_, err := q.Enqueue("a.txt")
	require.NoError(t, err)
	_, err = q.Enqueue("b.txt")
	assert.ErrorIs(t, err, ErrQueueFull)

	_, ok := q.Status("unknown")
	assert.False(t, ok)
}

func TestJobQueue_EvictsOnlyFinishedJobs(t *testing.T) {
	f := newFixture(t)
	q := NewJobQueue(f.ingestor, 8, nil) // no workers started
	q.retain = 2

	first, err := q.Enqueue("a.txt")
	require.NoError(t, err)
	second, err := q.Enqueue("b.txt")
	require.NoError(t, err)
	third, err := q.Enqueue("c.txt")
	require.NoError(t, err)

	for _, id := range []string{first, second, third} {
		_, ok := q.Status(id)
		assert.True(t, ok, "pending job %s must stay visible", id)
	}

	q.mu.Lock()
	q.byID[first].Status = JobDone
	q.mu.Unlock()

	fourth, err := q.Enqueue("d.txt")
	require.NoError(t, err)

	_, ok := q.Status(first)
	assert.False(t, ok, "oldest finished job is dropped")
	for _, id := range []string{second, third, fourth} {
		_, ok := q.Status(id)
		assert.True(t, ok)
	}
}
