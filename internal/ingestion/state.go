package ingestion

// State is the phase of one ingestion run.
type State string

const (
	StateIdle        State = "IDLE"
	StateFetching    State = "FETCHING"
	StateNormalizing State = "NORMALIZING"
	StateDeduping    State = "DEDUPING"
	StatePersisting  State = "PERSISTING"
	StateFanningOut  State = "FANNING_OUT"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// TransitionFunc observes state changes of a run for source.
type TransitionFunc func(source string, state State)
