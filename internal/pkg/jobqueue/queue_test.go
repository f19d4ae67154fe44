package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueue(nil, tt.workers)

			assert.NotNil(t, queue)
			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.stopCh)
			assert.False(t, queue.running)
			assert.Empty(t, queue.handlers)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_stats", JobStatsKey)

	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestRunHandlerDispatchesByType(t *testing.T) {
	q := NewQueue(nil, 1)
	var seen []JobType
	q.Handle(JobTypeRecountProducts, func(_ context.Context, job *Job) error {
		seen = append(seen, job.Type)
		return nil
	})
	q.Handle(JobTypeReportUsage, func(_ context.Context, job *Job) error {
		return errors.New("provider down")
	})

	require.NoError(t, q.runHandler(context.Background(), &Job{Type: JobTypeRecountProducts}))
	assert.EqualError(t, q.runHandler(context.Background(), &Job{Type: JobTypeReportUsage}), "provider down")
	assert.ErrorIs(t, q.runHandler(context.Background(), &Job{Type: JobTypeSendMail}), ErrNoHandler)
	assert.Equal(t, []JobType{JobTypeRecountProducts}, seen)
}

type recordedJob struct {
	jobType string
	status  string
}

type fakeJobMetrics struct {
	jobs []recordedJob
}

func (m *fakeJobMetrics) RecordJob(jobType, status string, _ time.Duration) {
	m.jobs = append(m.jobs, recordedJob{jobType: jobType, status: status})
}

func TestQueueProcessesJobsWithRedis(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	ctx := context.Background()

	q := NewQueue(client, 2)
	metrics := &fakeJobMetrics{}
	q.SetMetrics(metrics)

	done := make(chan string, 1)
	q.Handle(JobTypeRecountProducts, func(_ context.Context, job *Job) error {
		p, err := RecountProductsJobPayloadFromMap(job.Payload)
		if err != nil {
			return err
		}
		done <- p.RestaurantID
		return nil
	})

	job, err := q.EnqueueJob(ctx, JobTypeRecountProducts, RecountProductsJobPayload{RestaurantID: "r-42"}.ToMap())
	require.NoError(t, err)

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	q.Start()
	defer q.Stop()

	select {
	case id := <-done:
		assert.Equal(t, "r-42", id)
	case <-time.After(5 * time.Second):
		t.Fatal("job was not processed")
	}

	assert.Eventually(t, func() bool {
		_, err := q.GetJob(ctx, job.ID)
		return err != nil
	}, 3*time.Second, 20*time.Millisecond, "completed job should be removed")

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusCompleted])
}

func TestRecoverStuckRequeuesOldProcessingJobs(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	ctx := context.Background()
	q := NewQueue(client, 1)

	job, err := q.EnqueueJob(ctx, JobTypeSendMail, SendMailJobPayload{To: "x@y.z"}.ToMap())
	require.NoError(t, err)

	stuck, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	require.Equal(t, job.ID, stuck.ID)
	stuck.MarkAsProcessing()
	q.updateJob(ctx, stuck)

	assert.Equal(t, 0, q.recoverStuck(ctx, time.Hour, time.Now()))
	assert.Equal(t, 1, q.recoverStuck(ctx, time.Hour, time.Now().Add(2*time.Hour)))

	pending, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), processing)

	reloaded, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, reloaded.Status)
}

func TestFailedUsageReportIsNotRequeued(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	ctx := context.Background()
	q := NewQueue(client, 1)
	q.retryDelay = 10 * time.Millisecond

	attempts := 0
	q.Handle(JobTypeReportUsage, func(context.Context, *Job) error {
		attempts++
		return errors.New("provider down")
	})

	job, err := q.EnqueueJob(ctx, JobTypeReportUsage, ReportUsageJobPayload{SubscriptionItemID: "456", Quantity: 5}.ToMap())
	require.NoError(t, err)
	assert.Equal(t, 0, job.MaxRetries)

	dequeued, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	q.processJob(ctx, dequeued)
	assert.Equal(t, 1, attempts)

	time.Sleep(100 * time.Millisecond)
	pending, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)

	stored, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusFailed])
}

func TestFailedRecountIsRequeued(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	ctx := context.Background()
	q := NewQueue(client, 1)
	q.retryDelay = 10 * time.Millisecond

	q.Handle(JobTypeRecountProducts, func(context.Context, *Job) error {
		return errors.New("db busy")
	})

	_, err := q.EnqueueJob(ctx, JobTypeRecountProducts, RecountProductsJobPayload{RestaurantID: "r1"}.ToMap())
	require.NoError(t, err)

	dequeued, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	q.processJob(ctx, dequeued)

	assert.Eventually(t, func() bool {
		n, err := q.GetQueueSize(ctx)
		return err == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestRecoverStuckDropsSingleAttemptJobs(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	ctx := context.Background()
	q := NewQueue(client, 1)

	job, err := q.EnqueueJob(ctx, JobTypeReportUsage, ReportUsageJobPayload{SubscriptionItemID: "456", Quantity: 2}.ToMap())
	require.NoError(t, err)

	stuck, err := q.dequeueJob(ctx)
	require.NoError(t, err)
	stuck.MarkAsProcessing()
	q.updateJob(ctx, stuck)

	assert.Equal(t, 0, q.recoverStuck(ctx, time.Hour, time.Now().Add(2*time.Hour)))

	pending, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending)
	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), processing)

	reloaded, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, reloaded.Status)
}
