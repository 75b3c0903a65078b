package backup

import "fmt"

// Phase is the position of one metacard's backup artifact in its work unit.
type Phase int

const (
	PhasePending Phase = iota
	PhaseStaged
	PhaseWritten
	PhaseDeleted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "PENDING"
	case PhaseStaged:
		return "STAGED"
	case PhaseWritten:
		return "WRITTEN"
	case PhaseDeleted:
		return "DELETED"
	case PhaseFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Step names the filesystem action a work unit was performing.
type Step string

const (
	StepResolve  Step = "resolve"
	StepStage    Step = "stage"
	StepWrite    Step = "write"
	StepFinalize Step = "finalize"
)

// Category returns the failure category a failed step is reported under.
func (s Step) Category() FailureCategory {
	if s == StepWrite {
		return CategoryBackup
	}
	return CategoryDelete
}

var transitions = map[Phase][]Phase{
	PhasePending: {PhaseStaged, PhaseWritten},
	PhaseStaged:  {PhaseWritten, PhaseDeleted},
	PhaseWritten: {PhaseDeleted},
}

// ItemState is threaded through a work unit and records how far it got.
// The zero value is not meaningful; use NewItemState.
type ItemState struct {
	ID         string
	Phase      Phase
	StagedPath string
	FailedStep Step
	Err        error

	// staged survives a later failure so callers can tell that a staged
	// artifact was left behind.
	staged bool
}

// NewItemState starts a unit for id in PhasePending.
func NewItemState(id string) ItemState {
	return ItemState{ID: id, Phase: PhasePending}
}

// Advance moves to phase, rejecting transitions the protocols never make.
func (s ItemState) Advance(phase Phase) (ItemState, error) {
	for _, allowed := range transitions[s.Phase] {
		if allowed == phase {
			s.Phase = phase
			if phase == PhaseStaged {
				s.staged = true
			}
			if phase == PhaseDeleted {
				s.staged = false
			}
			return s, nil
		}
	}
	return s, fmt.Errorf("illegal transition for %s: %s -> %s", s.ID, s.Phase, phase)
}

// Staged records the staged artifact path and moves to PhaseStaged.
func (s ItemState) Staged(path string) (ItemState, error) {
	next, err := s.Advance(PhaseStaged)
	if err != nil {
		return s, err
	}
	next.StagedPath = path
	return next, nil
}

// Fail moves to PhaseFailed, recording the step and cause.
func (s ItemState) Fail(step Step, err error) ItemState {
	s.Phase = PhaseFailed
	s.FailedStep = step
	s.Err = err
	return s
}

// Failed reports whether the unit ended in PhaseFailed.
func (s ItemState) Failed() bool {
	return s.Phase == PhaseFailed
}

// LeftStaged reports whether a staged artifact remains on disk.
func (s ItemState) LeftStaged() bool {
	return s.staged
}

func (s ItemState) String() string {
	if s.Failed() {
		return fmt.Sprintf("%s: %s at %s: %v", s.ID, s.Phase, s.FailedStep, s.Err)
	}
	return fmt.Sprintf("%s: %s", s.ID, s.Phase)
}
