// Package ingestor drives the periodic Facebook pulls. A Scheduler owns a
// registry of per-kind jobs; each job fires on a cron or interval trigger
// and hands its targets to a Doer, which fetches a bounded window from the
// Graph API and publishes one broker message per upstream item.
package ingestor

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/pagestreamhq/pagestream/protocol"
	"github.com/pagestreamhq/pagestream/utils"
	Logger "github.com/pagestreamhq/pagestream/utils/log"
)

// DefaultPoolSize bounds run goroutines across all jobs of one scheduler.
const DefaultPoolSize = 20

var (
	ErrAlreadyRunning = errors.New("job is already running")
	ErrNotRunning     = errors.New("job is not running")
)

// Doer performs one run of a job against the given targets. We create this
// abstraction so that we can inject different Doer implementations into the
// scheduler for the ease of testing and debugging.
type Doer interface {
	Do(ctx context.Context, targets []string) error
}

// Scheduler keeps the job registry. The registry is mutated by the control
// plane and read by status calls; all access is serialized on one mutex.
type Scheduler struct {
	m sync.Mutex

	jobs  map[protocol.Kind]*Job
	doers map[protocol.Kind]Doer

	// Shared worker pool across all jobs.
	pool chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(ctx context.Context, doers map[protocol.Kind]Doer, poolSize int) *Scheduler {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Scheduler{
		jobs:   make(map[protocol.Kind]*Job),
		doers:  doers,
		pool:   make(chan struct{}, poolSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start schedules a new job of the given kind. Fails with ErrAlreadyRunning
// if one exists.
func (s *Scheduler) Start(kind protocol.Kind, targets []string, trigger *Trigger) (JobInfo, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if _, ok := s.jobs[kind]; ok {
		return JobInfo{}, ErrAlreadyRunning
	}
	return s.startLocked(kind, targets, trigger, nil)
}

// startLocked registers and launches a job. Caller must hold s.m. When
// keepId is non-nil the new job inherits that id (restart semantics).
func (s *Scheduler) startLocked(kind protocol.Kind, targets []string, trigger *Trigger, keepId *string) (JobInfo, error) {
	doer, ok := s.doers[kind]
	if !ok {
		return JobInfo{}, errors.Errorf("no doer registered for kind %s", kind)
	}

	job := NewJob(s.ctx, kind, targets, trigger, DefaultJobOptions())
	if keepId != nil {
		job.id = *keepId
	}
	s.jobs[kind] = job

	go job.runLoop(s.pool, doer)

	Logger.Log.Infof("scheduled %s job %s with trigger %s", kind, job.id, trigger.Describe())
	return job.Info(JobStateRunning), nil
}

// Stop cancels the job of the given kind. Idempotent; never fails on
// absence. In-flight runs are not waited for.
func (s *Scheduler) Stop(kind protocol.Kind) {
	s.m.Lock()
	defer s.m.Unlock()

	job, ok := s.jobs[kind]
	if !ok {
		return
	}
	job.cancel()
	delete(s.jobs, kind)
	Logger.Log.Infof("stopped %s job %s", kind, job.id)
}

// Restart is stop+start preserving the job id. If no job exists it behaves
// like Start.
func (s *Scheduler) Restart(kind protocol.Kind, targets []string, trigger *Trigger) (JobInfo, error) {
	s.m.Lock()
	defer s.m.Unlock()

	var keepId *string
	if job, ok := s.jobs[kind]; ok {
		id := job.id
		keepId = &id
		job.cancel()
		delete(s.jobs, kind)
	}
	return s.startLocked(kind, targets, trigger, keepId)
}

// Update atomically replaces the trigger and target of a running job,
// preserving its id and in-flight runs. Fails with ErrNotRunning on absence.
func (s *Scheduler) Update(kind protocol.Kind, targets []string, trigger *Trigger) (JobInfo, error) {
	s.m.Lock()
	defer s.m.Unlock()

	job, ok := s.jobs[kind]
	if !ok {
		return JobInfo{}, ErrNotRunning
	}
	job.Replace(targets, trigger)
	return job.Info(JobStateRunning), nil
}

// Status reports the job state of a kind. Absent jobs report as stopped with
// no next fire time.
func (s *Scheduler) Status(kind protocol.Kind) JobInfo {
	s.m.Lock()
	defer s.m.Unlock()

	job, ok := s.jobs[kind]
	if !ok {
		return JobInfo{Kind: kind.String(), State: JobStateStopped, Target: []string{}}
	}
	return job.Info(JobStateRunning)
}

// AddTargets unions ids into the job's target set. No-op when the job is
// absent and ids is empty; otherwise absence is an error.
func (s *Scheduler) AddTargets(kind protocol.Kind, ids []string) (JobInfo, error) {
	s.m.Lock()
	defer s.m.Unlock()

	job, ok := s.jobs[kind]
	if !ok {
		if len(ids) == 0 {
			return JobInfo{Kind: kind.String(), State: JobStateStopped, Target: []string{}}, nil
		}
		return JobInfo{}, ErrNotRunning
	}
	job.SetTargets(utils.UnionStrings(job.Targets(), ids))
	return job.Info(JobStateRunning), nil
}

// RemoveTargets removes ids from the job's target set, set-difference.
func (s *Scheduler) RemoveTargets(kind protocol.Kind, ids []string) (JobInfo, error) {
	s.m.Lock()
	defer s.m.Unlock()

	job, ok := s.jobs[kind]
	if !ok {
		if len(ids) == 0 {
			return JobInfo{Kind: kind.String(), State: JobStateStopped, Target: []string{}}, nil
		}
		return JobInfo{}, ErrNotRunning
	}
	job.SetTargets(utils.DifferenceStrings(job.Targets(), ids))
	return job.Info(JobStateRunning), nil
}

// Shutdown cancels every job without waiting for in-flight runs.
func (s *Scheduler) Shutdown() {
	s.m.Lock()
	defer s.m.Unlock()

	s.cancel()
	s.jobs = make(map[protocol.Kind]*Job)
	Logger.Log.Infoln("scheduler shut down")
}
