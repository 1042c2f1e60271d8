package ingestor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pagestreamhq/pagestream/protocol"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

// Per-job defaults, overridable through JobOptions.
const (
	DefaultMaxConcurrentRuns  = 3
	DefaultMisfireGraceSecond = 300
)

type JobState string

const (
	JobStateStopped JobState = "stopped"
	JobStateRunning JobState = "running"
	JobStatePaused  JobState = "paused"
)

// JobOptions carries the recognized scheduling options of a job.
type JobOptions struct {
	MaxConcurrentRuns  int
	CoalesceMissedRuns bool
	MisfireGrace       time.Duration
}

func DefaultJobOptions() JobOptions {
	return JobOptions{
		MaxConcurrentRuns:  DefaultMaxConcurrentRuns,
		CoalesceMissedRuns: false,
		MisfireGrace:       DefaultMisfireGraceSecond * time.Second,
	}
}

// JobInfo is the control-plane projection of a job.
type JobInfo struct {
	JobId    string     `json:"job_id"`
	Kind     string     `json:"kind"`
	State    JobState   `json:"state"`
	Schedule string     `json:"schedule"`
	LastRun  *time.Time `json:"last_run"`
	NextRun  *time.Time `json:"next_run"`
	Target   []string   `json:"target"`
}

// Job is one scheduled fetch family (posts for a page, or comments for a set
// of post ids). This struct is thread-safe: the run loop and the control
// plane both mutate it under its lock.
type Job struct {
	m sync.RWMutex

	// Stable across restart and update.
	id   string
	kind protocol.Kind

	trigger *Trigger
	targets []string

	opts JobOptions

	// The last time this job was fired.
	lastRun time.Time
	// The next time this job should fire.
	nextRun time.Time

	// Caps concurrent fires of this job.
	running chan struct{}

	// Poked by Update so the run loop re-reads the trigger immediately
	// instead of waiting out the old timer.
	refresh chan struct{}

	// The context of this job, which manages the lifecycle of this job.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewJob(ctx context.Context, kind protocol.Kind, targets []string, trigger *Trigger, opts JobOptions) *Job {
	if opts.MaxConcurrentRuns <= 0 {
		opts.MaxConcurrentRuns = DefaultMaxConcurrentRuns
	}
	if opts.MisfireGrace <= 0 {
		opts.MisfireGrace = DefaultMisfireGraceSecond * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Job{
		id:      uuid.New().String(),
		kind:    kind,
		trigger: trigger,
		targets: append([]string{}, targets...),
		opts:    opts,
		running: make(chan struct{}, opts.MaxConcurrentRuns),
		refresh: make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (j *Job) Id() string {
	return j.id
}

// Replace atomically swaps the trigger and target of the job. In-flight runs
// are unaffected; the run loop picks up the new trigger on its next
// iteration, which Replace forces immediately.
func (j *Job) Replace(targets []string, trigger *Trigger) {
	j.m.Lock()
	j.trigger = trigger
	j.targets = append([]string{}, targets...)
	j.m.Unlock()

	select {
	case j.refresh <- struct{}{}:
	default:
	}
}

func (j *Job) Targets() []string {
	j.m.RLock()
	defer j.m.RUnlock()
	return append([]string{}, j.targets...)
}

func (j *Job) SetTargets(targets []string) {
	j.m.Lock()
	defer j.m.Unlock()
	j.targets = targets
}

func (j *Job) Info(state JobState) JobInfo {
	j.m.RLock()
	defer j.m.RUnlock()

	info := JobInfo{
		JobId:    j.id,
		Kind:     j.kind.String(),
		State:    state,
		Schedule: j.trigger.Describe(),
		Target:   append([]string{}, j.targets...),
	}
	if !j.lastRun.IsZero() {
		last := j.lastRun
		info.LastRun = &last
	}
	if state == JobStateRunning && !j.nextRun.IsZero() {
		next := j.nextRun
		info.NextRun = &next
	}
	return info
}

func (j *Job) nextFire() time.Time {
	j.m.Lock()
	defer j.m.Unlock()
	j.nextRun = j.trigger.Next(time.Now())
	return j.nextRun
}

func (j *Job) markFired() {
	j.m.Lock()
	defer j.m.Unlock()
	j.lastRun = time.Now()
}

// admitFire decides whether a fire delivered at now, scheduled for fireAt,
// should still execute. Fires within the grace window always run. Older
// fires run only for coalescing jobs, as the single makeup run; the loop
// keeps at most one pending fire, so there is never more than one miss to
// collapse.
func (j *Job) admitFire(fireAt time.Time, now time.Time) bool {
	if now.Sub(fireAt) <= j.opts.MisfireGrace {
		return true
	}
	return j.opts.CoalesceMissedRuns
}

// runLoop drives the job until its context is canceled. pool is the
// scheduler-wide worker pool bounding run goroutines across all jobs.
func (j *Job) runLoop(pool chan struct{}, doer Doer) {
	for {
		fireAt := j.nextFire()
		timer := time.NewTimer(time.Until(fireAt))

		select {
		case <-j.ctx.Done():
			timer.Stop()
			return
		case <-j.refresh:
			timer.Stop()
			continue
		case <-timer.C:
		}

		// Misfire admission: a fire delivered long after its scheduled time
		// (suspend, clock jump, overloaded pool) is discarded rather than
		// executed against a stale window, unless the job coalesces misses.
		if !j.admitFire(fireAt, time.Now()) {
			Logger.Log.Warnf("job %s (%s) missed fire at %v by %v, skipping", j.id, j.kind, fireAt, time.Since(fireAt))
			continue
		}

		select {
		case j.running <- struct{}{}:
		default:
			// Concurrent fires capped, drop this one.
			Logger.Log.Warnf("job %s (%s) already has %d runs in flight, skipping fire", j.id, j.kind, j.opts.MaxConcurrentRuns)
			continue
		}

		j.markFired()
		targets := j.Targets()

		go func() {
			defer func() { <-j.running }()
			// Every failure inside a run is trapped here. The scheduler never
			// drops a job because of its run.
			defer func() {
				if r := recover(); r != nil {
					Logger.Log.Errorf("job %s (%s) run panicked: %v", j.id, j.kind, r)
				}
			}()

			pool <- struct{}{}
			defer func() { <-pool }()

			if err := doer.Do(j.ctx, targets); err != nil {
				Logger.Log.Errorf("job %s (%s) run failed: %v", j.id, j.kind, err)
			}
		}()
	}
}
