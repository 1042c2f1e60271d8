package ingestor

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

type TriggerKind string

const (
	TriggerCron     TriggerKind = "cron"
	TriggerInterval TriggerKind = "interval"
)

var (
	ErrInvalidCron    = errors.New("Invalid cron format. Expected five whitespace-separated fields")
	ErrInvalidTrigger = errors.New("invalid trigger kind, expected 'cron' or 'interval'")
)

// cronParser accepts the classic five-field expression (minute to day of
// week), the only format the control plane admits.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Trigger decides when a job fires. Exactly one of the cron schedule or the
// fixed interval is set, according to Kind.
type Trigger struct {
	Kind TriggerKind

	// CronSchedule keeps the raw expression for status reporting.
	CronSchedule string
	schedule     cron.Schedule

	Interval time.Duration
}

// NewCronTrigger validates expr as a five-field cron expression and returns
// the trigger. Field-count validation happens before parsing so that the
// caller gets the documented error message.
func NewCronTrigger(expr string) (*Trigger, error) {
	if len(strings.Fields(expr)) != 5 {
		return nil, ErrInvalidCron
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, ErrInvalidCron
	}
	return &Trigger{
		Kind:         TriggerCron,
		CronSchedule: expr,
		schedule:     schedule,
	}, nil
}

// NewIntervalTrigger returns a trigger firing every given number of seconds.
func NewIntervalTrigger(seconds int) (*Trigger, error) {
	if seconds <= 0 {
		return nil, errors.New("interval must be a positive number of seconds")
	}
	return &Trigger{
		Kind:     TriggerInterval,
		Interval: time.Duration(seconds) * time.Second,
	}, nil
}

// Next returns the first fire time strictly after t.
func (tr *Trigger) Next(t time.Time) time.Time {
	if tr.Kind == TriggerCron {
		return tr.schedule.Next(t)
	}
	return t.Add(tr.Interval)
}

// Describe returns the operator-facing rendering of the trigger.
func (tr *Trigger) Describe() string {
	if tr.Kind == TriggerCron {
		return tr.CronSchedule
	}
	return tr.Interval.String()
}
