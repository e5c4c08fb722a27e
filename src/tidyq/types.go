package tidyq

// JobState is a point-in-time view of where a job sits. A job moves
// pending -> working -> completed; tidy moves abandoned jobs back to
// pending.
type JobState string

const (
	StatePending   JobState = "pending"
	StateWorking   JobState = "working"
	StateCompleted JobState = "completed"
	StateUnknown   JobState = "unknown"
)

type Stats struct {
	Pending   int64
	Working   int64
	Completed int64
	Values    int64
}
