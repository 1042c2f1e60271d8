package ingestor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagestreamhq/pagestream/protocol"
)

// fakeDoer records every run so tests can assert on fire behavior.
type fakeDoer struct {
	m    sync.Mutex
	runs [][]string
}

func (d *fakeDoer) Do(ctx context.Context, targets []string) error {
	d.m.Lock()
	defer d.m.Unlock()
	d.runs = append(d.runs, targets)
	return nil
}

func (d *fakeDoer) runCount() int {
	d.m.Lock()
	defer d.m.Unlock()
	return len(d.runs)
}

func newTestScheduler(t *testing.T) (*Scheduler, *fakeDoer) {
	doer := &fakeDoer{}
	s := NewScheduler(context.Background(), map[protocol.Kind]Doer{
		protocol.KindPosts:    doer,
		protocol.KindComments: doer,
	}, 0)
	t.Cleanup(s.Shutdown)
	return s, doer
}

func intervalTrigger(t *testing.T, seconds int) *Trigger {
	tr, err := NewIntervalTrigger(seconds)
	require.Nil(t, err)
	return tr
}

func TestSchedulerStartAndStatus(t *testing.T) {
	s, _ := newTestScheduler(t)

	info, err := s.Start(protocol.KindPosts, []string{"page_1"}, intervalTrigger(t, 3600))
	require.Nil(t, err)
	assert.NotEmpty(t, info.JobId)
	assert.Equal(t, JobStateRunning, info.State)
	assert.Equal(t, "1h0m0s", info.Schedule)
	assert.Equal(t, []string{"page_1"}, info.Target)

	status := s.Status(protocol.KindPosts)
	assert.Equal(t, info.JobId, status.JobId)
	assert.Equal(t, JobStateRunning, status.State)
	assert.NotNil(t, status.NextRun)
}

func TestSchedulerStartTwiceFails(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Start(protocol.KindPosts, []string{"page_1"}, intervalTrigger(t, 3600))
	require.Nil(t, err)

	_, err = s.Start(protocol.KindPosts, []string{"page_2"}, intervalTrigger(t, 3600))
	assert.Equal(t, ErrAlreadyRunning, err)
}

func TestSchedulerStopIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Start(protocol.KindPosts, []string{"page_1"}, intervalTrigger(t, 3600))
	require.Nil(t, err)

	s.Stop(protocol.KindPosts)
	// Stopping twice, or stopping a kind that never started, is a no-op.
	s.Stop(protocol.KindPosts)
	s.Stop(protocol.KindComments)

	status := s.Status(protocol.KindPosts)
	assert.Equal(t, JobStateStopped, status.State)
	assert.Nil(t, status.NextRun)
}

func TestSchedulerRestartPreservesJobId(t *testing.T) {
	s, _ := newTestScheduler(t)

	started, err := s.Start(protocol.KindPosts, []string{"page_1"}, intervalTrigger(t, 3600))
	require.Nil(t, err)

	restarted, err := s.Restart(protocol.KindPosts, []string{"page_2"}, intervalTrigger(t, 60))
	require.Nil(t, err)
	assert.Equal(t, started.JobId, restarted.JobId)
	assert.Equal(t, []string{"page_2"}, restarted.Target)
	assert.Equal(t, "1m0s", restarted.Schedule)
}

func TestSchedulerRestartAbsentJobStartsFresh(t *testing.T) {
	s, _ := newTestScheduler(t)

	info, err := s.Restart(protocol.KindPosts, []string{"page_1"}, intervalTrigger(t, 3600))
	require.Nil(t, err)
	assert.NotEmpty(t, info.JobId)
	assert.Equal(t, JobStateRunning, info.State)
}

func TestSchedulerUpdate(t *testing.T) {
	s, _ := newTestScheduler(t)

	started, err := s.Start(protocol.KindComments, []string{"post_1"}, intervalTrigger(t, 3600))
	require.Nil(t, err)

	updated, err := s.Update(protocol.KindComments, []string{"post_2", "post_3"}, intervalTrigger(t, 120))
	require.Nil(t, err)
	// Update preserves the job id, swapping only trigger and targets.
	assert.Equal(t, started.JobId, updated.JobId)
	assert.Equal(t, []string{"post_2", "post_3"}, updated.Target)
	assert.Equal(t, "2m0s", updated.Schedule)
}

func TestSchedulerUpdateAbsentJobFails(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Update(protocol.KindComments, []string{"post_1"}, intervalTrigger(t, 60))
	assert.Equal(t, ErrNotRunning, err)
}

func TestSchedulerAddRemoveTargets(t *testing.T) {
	s, _ := newTestScheduler(t)

	_, err := s.Start(protocol.KindComments, []string{"post_1"}, intervalTrigger(t, 3600))
	require.Nil(t, err)

	info, err := s.AddTargets(protocol.KindComments, []string{"post_2", "post_1"})
	require.Nil(t, err)
	assert.ElementsMatch(t, []string{"post_1", "post_2"}, info.Target)

	info, err = s.RemoveTargets(protocol.KindComments, []string{"post_1", "post_404"})
	require.Nil(t, err)
	assert.Equal(t, []string{"post_2"}, info.Target)
}

func TestSchedulerMutateTargetsOnAbsentJob(t *testing.T) {
	s, _ := newTestScheduler(t)

	// Empty input against an absent job is a no-op, not an error.
	info, err := s.AddTargets(protocol.KindComments, nil)
	require.Nil(t, err)
	assert.Equal(t, JobStateStopped, info.State)

	info, err = s.RemoveTargets(protocol.KindComments, []string{})
	require.Nil(t, err)
	assert.Equal(t, JobStateStopped, info.State)

	_, err = s.AddTargets(protocol.KindComments, []string{"post_1"})
	assert.Equal(t, ErrNotRunning, err)

	_, err = s.RemoveTargets(protocol.KindComments, []string{"post_1"})
	assert.Equal(t, ErrNotRunning, err)
}

func TestJobFiresOnInterval(t *testing.T) {
	doer := &fakeDoer{}
	pool := make(chan struct{}, 1)

	tr := &Trigger{Kind: TriggerInterval, Interval: 20 * time.Millisecond}
	job := NewJob(context.Background(), protocol.KindPosts, []string{"page_1"}, tr, DefaultJobOptions())
	defer job.cancel()
	go job.runLoop(pool, doer)

	assert.Eventually(t, func() bool {
		return doer.runCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJobReplaceTakesEffectWithoutWaitingOutOldTimer(t *testing.T) {
	doer := &fakeDoer{}
	pool := make(chan struct{}, 1)

	// One hour out, would never fire within the test.
	slow := &Trigger{Kind: TriggerInterval, Interval: time.Hour}
	job := NewJob(context.Background(), protocol.KindPosts, []string{"page_1"}, slow, DefaultJobOptions())
	defer job.cancel()
	go job.runLoop(pool, doer)

	job.Replace([]string{"page_2"}, &Trigger{Kind: TriggerInterval, Interval: 20 * time.Millisecond})

	assert.Eventually(t, func() bool {
		return doer.runCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"page_2"}, job.Targets())
}

func TestJobMisfireAdmission(t *testing.T) {
	opts := DefaultJobOptions()
	opts.MisfireGrace = 50 * time.Millisecond

	tr := &Trigger{Kind: TriggerInterval, Interval: time.Hour}
	job := NewJob(context.Background(), protocol.KindPosts, nil, tr, opts)
	defer job.cancel()

	now := time.Now()
	// Within the grace window fires always execute.
	assert.True(t, job.admitFire(now.Add(-20*time.Millisecond), now))
	assert.True(t, job.admitFire(now, now))
	// Beyond it, stale fires are discarded.
	assert.False(t, job.admitFire(now.Add(-time.Minute), now))
}

func TestJobMisfireAdmissionCoalesces(t *testing.T) {
	opts := DefaultJobOptions()
	opts.MisfireGrace = 50 * time.Millisecond
	opts.CoalesceMissedRuns = true

	tr := &Trigger{Kind: TriggerInterval, Interval: time.Hour}
	job := NewJob(context.Background(), protocol.KindPosts, nil, tr, opts)
	defer job.cancel()

	// A coalescing job executes the stale fire as its single makeup run.
	now := time.Now()
	assert.True(t, job.admitFire(now.Add(-time.Minute), now))
}

func TestJobRunPanicDoesNotKillLoop(t *testing.T) {
	doer := &panicOnceDoer{}
	pool := make(chan struct{}, 1)

	tr := &Trigger{Kind: TriggerInterval, Interval: 20 * time.Millisecond}
	job := NewJob(context.Background(), protocol.KindPosts, []string{"page_1"}, tr, DefaultJobOptions())
	defer job.cancel()
	go job.runLoop(pool, doer)

	assert.Eventually(t, func() bool {
		return doer.runCount() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

type panicOnceDoer struct {
	m    sync.Mutex
	runs int
}

func (d *panicOnceDoer) Do(ctx context.Context, targets []string) error {
	d.m.Lock()
	d.runs++
	first := d.runs == 1
	d.m.Unlock()
	if first {
		panic("fetch blew up")
	}
	return nil
}

func (d *panicOnceDoer) runCount() int {
	d.m.Lock()
	defer d.m.Unlock()
	return d.runs
}
