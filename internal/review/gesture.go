package review

// Direction is the committed swipe direction for a card.
type Direction string

const (
	DirectionNone  Direction = "none"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// Reading is one classified gesture sample: where the swipe is heading and
// how far along the dominant axis it has travelled, as a fraction of the
// card extent. Progress is clamped at zero and unbounded above; a swipe can
// overshoot the card edge.
type Reading struct {
	Direction Direction
	Progress  float64
}

// Classifier turns relative pointer motion into directional readings
// against a known card extent.
type Classifier struct {
	Width  float64
	Height float64
}

// Classify maps a cumulative motion delta to a Reading. The dominant axis
// is horizontal when |dx| > |dy|, vertical otherwise; an exact tie goes to
// vertical. Progress is |delta on the dominant axis| divided by the extent
// on that axis.
func (c Classifier) Classify(dx, dy float64) Reading {
	if dx == 0 && dy == 0 {
		return Reading{Direction: DirectionNone}
	}

	if abs(dx) > abs(dy) {
		dir := DirectionLeft
		if dx > 0 {
			dir = DirectionRight
		}
		return Reading{Direction: dir, Progress: ratio(abs(dx), c.Width)}
	}

	dir := DirectionUp
	if dy > 0 {
		dir = DirectionDown
	}
	return Reading{Direction: dir, Progress: ratio(abs(dy), c.Height)}
}

func ratio(delta, extent float64) float64 {
	if extent <= 0 {
		return 0
	}
	return delta / extent
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
