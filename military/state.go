package military

import "errors"

// State is where an attack plan is in its campaign.
type State int

const (
	Unexecuted State = iota
	Preparing
	Walking
	Transporting
	Arrived
	Engaging
	Aborted
	// Completed is reached from Engaging when the roster empties or nothing
	// is left to attack.
	Completed
)

func (s State) String() string {
	switch s {
	case Unexecuted:
		return "unexecuted"
	case Preparing:
		return "preparing"
	case Walking:
		return "walking"
	case Transporting:
		return "transporting"
	case Arrived:
		return "arrived"
	case Engaging:
		return "engaging"
	case Aborted:
		return "aborted"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further update can change the plan.
func (s State) Terminal() bool { return s == Aborted || s == Completed }

// Started reports whether the plan has left preparation.
func (s State) Started() bool {
	return s == Walking || s == Transporting || s == Arrived || s == Engaging
}

// transitions lists the legal edges. Aborted is reachable from every
// non-terminal state and is added in CanTransition.
var transitions = map[State][]State{
	Unexecuted:   {Preparing},
	Preparing:    {Walking},
	Walking:      {Transporting, Arrived},
	Transporting: {Walking},
	Arrived:      {Engaging},
	Engaging:     {Completed},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == Aborted {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PrepSignal is what one preparation step asks the owner to do.
type PrepSignal int

const (
	PrepContinue PrepSignal = iota
	PrepAbortUnviable
	PrepStart
	// PrepAbortUnreachable is kept apart so the owner can stop launching
	// campaigns the terrain cannot support.
	PrepAbortUnreachable
)

func (s PrepSignal) String() string {
	switch s {
	case PrepContinue:
		return "continue"
	case PrepAbortUnviable:
		return "abort_unviable"
	case PrepStart:
		return "start"
	case PrepAbortUnreachable:
		return "abort_unreachable"
	default:
		return "unknown"
	}
}

// Outcome is the result of one update of a started plan.
type Outcome int

const (
	Running Outcome = iota
	Finished
	Failed
)

// FailureReason explains why a plan ended early.
type FailureReason int

const (
	ReasonNone FailureReason = iota
	ReasonNoTarget
	ReasonNoPath
	ReasonUnviable
	ReasonRosterLost
	ReasonTransport
)

func (r FailureReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoTarget:
		return "no_target"
	case ReasonNoPath:
		return "no_path"
	case ReasonUnviable:
		return "unviable"
	case ReasonRosterLost:
		return "roster_lost"
	case ReasonTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// TerrainDriven reports whether the failure comes from the map itself.
func (r FailureReason) TerrainDriven() bool { return r == ReasonNoPath }

var (
	ErrNoPath    = errors.New("no path to target")
	ErrNoTarget  = errors.New("no valid target")
	// ErrTransport is wrapped by transporters that cannot take a request.
	ErrTransport = errors.New("transport unavailable")
)
