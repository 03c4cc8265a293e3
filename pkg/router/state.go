package router

// State is the lifecycle state of the router.
type State int

const (
	// StateIdle means no navigation is in flight and nothing was committed
	// since the last aborted one.
	StateIdle State = iota

	// StateResolving means guards are running for the latest navigation.
	StateResolving

	// StateMounting means the target component is being built and attached.
	StateMounting

	// StateMounted means the latest navigation committed. It is the idle
	// baseline for the next navigation.
	StateMounted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateMounting:
		return "mounting"
	case StateMounted:
		return "mounted"
	default:
		return "unknown"
	}
}
