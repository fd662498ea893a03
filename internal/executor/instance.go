package executor

// InstanceState is the lifecycle state of one execution attempt.
type InstanceState uint8

const (
	InstancePending InstanceState = iota
	InstanceRunning
	InstanceCompleted
	InstanceFailed
)

func (s InstanceState) String() string {
	switch s {
	case InstancePending:
		return "PENDING"
	case InstanceRunning:
		return "RUNNING"
	case InstanceCompleted:
		return "COMPLETED"
	case InstanceFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// TaskInstance is an ephemeral value representing one in-flight execution
// attempt. It is a plain stack-allocatable value, created per attempt and
// never persisted or shared.
type TaskInstance struct {
	TaskIdx uint32
	State   InstanceState
	StartNS uint64
}

// NewInstance creates a pending instance for the given task index.
func NewInstance(taskIdx uint32) TaskInstance {
	return TaskInstance{TaskIdx: taskIdx, State: InstancePending}
}

// Start marks the instance running as of nowNS (monotonic nanoseconds).
func (i *TaskInstance) Start(nowNS uint64) {
	i.State = InstanceRunning
	i.StartNS = nowNS
}

// ElapsedUS returns microseconds elapsed since Start.
func (i TaskInstance) ElapsedUS(nowNS uint64) uint64 {
	if nowNS < i.StartNS {
		return 0
	}
	return (nowNS - i.StartNS) / 1000
}
