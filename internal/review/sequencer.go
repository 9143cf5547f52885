package review

import "errors"

// ErrLocked is returned for motion or release events that arrive while a
// commit is in flight. The event is dropped; one action per card.
var ErrLocked = errors.New("review: card is locked by an in-flight commit")

// DefaultCommitThreshold is the fraction of the card extent a swipe must
// cross for release to commit rather than snap back.
const DefaultCommitThreshold = 0.33

// Phase is the sequencer's explicit state. Illegal combinations (a second
// dispatch per commit, motion applied mid-settle) are unrepresentable: the
// committed direction is only surrendered once, on the settling to idle
// transition.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSwiping    Phase = "swiping"
	PhaseCommitting Phase = "committing"
	PhaseSettling   Phase = "settling"
)

// Sequencer arbitrates between classifier output and dispatcher execution
// for a single card. It is not safe for concurrent use; the Session
// serializes access.
type Sequencer struct {
	classifier Classifier
	threshold  float64

	phase   Phase
	reading Reading
}

// NewSequencer creates a sequencer over the given card extent. A threshold
// of zero or less selects DefaultCommitThreshold.
func NewSequencer(classifier Classifier, threshold float64) *Sequencer {
	if threshold <= 0 {
		threshold = DefaultCommitThreshold
	}
	return &Sequencer{
		classifier: classifier,
		threshold:  threshold,
		phase:      PhaseIdle,
	}
}

// Phase returns the current phase.
func (s *Sequencer) Phase() Phase { return s.phase }

// Reading returns the latest classified reading.
func (s *Sequencer) Reading() Reading { return s.reading }

// Locked reports whether a commit is in flight. Gesture-triggered
// operations are only permitted while unlocked.
func (s *Sequencer) Locked() bool {
	return s.phase == PhaseCommitting || s.phase == PhaseSettling
}

// Motion applies a cumulative motion delta. The first sample moves idle to
// swiping; while locked the sample is dropped with ErrLocked.
func (s *Sequencer) Motion(dx, dy float64) (Reading, error) {
	if s.Locked() {
		return Reading{}, ErrLocked
	}
	s.phase = PhaseSwiping
	s.reading = s.classifier.Classify(dx, dy)
	return s.reading, nil
}

// Release ends the swipe. Past the threshold it locks the card and enters
// committing, reporting commit = true; at or under the threshold the card
// snaps back to idle with no dispatch. Release while locked is dropped with
// ErrLocked; release while idle is a no-op.
func (s *Sequencer) Release() (Reading, bool, error) {
	if s.Locked() {
		return Reading{}, false, ErrLocked
	}
	if s.phase == PhaseIdle {
		return Reading{}, false, nil
	}

	r := s.reading
	if r.Progress > s.threshold && r.Direction != DirectionNone {
		s.phase = PhaseCommitting
		return r, true, nil
	}

	s.phase = PhaseIdle
	s.reading = Reading{}
	return r, false, nil
}

// Settle moves committing to settling once the exit transition has played.
// Any other phase is left untouched.
func (s *Sequencer) Settle() {
	if s.phase == PhaseCommitting {
		s.phase = PhaseSettling
	}
}

// Finish completes the settling phase: it surrenders the committed
// direction exactly once, clears direction and progress, and releases the
// lock. Outside settling it reports no dispatch.
func (s *Sequencer) Finish() (Direction, bool) {
	if s.phase != PhaseSettling {
		return DirectionNone, false
	}
	dir := s.reading.Direction
	s.phase = PhaseIdle
	s.reading = Reading{}
	return dir, true
}

// Reset forces the sequencer to idle, abandoning any commit that has not
// yet dispatched. A dispatch that already fired stays fired; Reset cannot
// undo it.
func (s *Sequencer) Reset() {
	s.phase = PhaseIdle
	s.reading = Reading{}
}
