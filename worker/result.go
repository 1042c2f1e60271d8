package worker

// Result classifies the outcome of processing one broker message. The
// consume loop acks every terminal outcome and nacks only transient
// failures, so the broker redelivers work that may still succeed and drops
// work that never will.
type Result int

const (
	// Persisted: a new row was written and a notification was attempted.
	Persisted Result = iota
	// Duplicate: the external id already exists, idempotent no-op.
	Duplicate
	// PoisonMessage: unparseable payload or missing required fields, dropped.
	PoisonMessage
	// MissingDependency: the message references a row that does not exist
	// (comment for an unknown post), dropped.
	MissingDependency
	// TransientFailure: store unavailable or similar, worth redelivering.
	TransientFailure
)

func (r Result) String() string {
	switch r {
	case Persisted:
		return "persisted"
	case Duplicate:
		return "duplicate"
	case PoisonMessage:
		return "poison_message"
	case MissingDependency:
		return "missing_dependency"
	default:
		return "transient_failure"
	}
}
