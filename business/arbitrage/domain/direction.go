package domain

// Direction identifies which of the two template loops a candidate follows.
type Direction string

const (
	// DirectionForward starts on Venue0.
	DirectionForward Direction = "FORWARD"

	// DirectionReverse starts on Venue1.
	DirectionReverse Direction = "REVERSE"
)

// DirectionOf maps a template route index to its direction.
func DirectionOf(index int) Direction {
	if index == 0 {
		return DirectionForward
	}
	return DirectionReverse
}

// Describe returns a human-readable description of the direction.
func (d Direction) Describe(p PureArbParams) string {
	switch d {
	case DirectionForward:
		return "start on " + p.Venue0 + ", close on " + p.Venue1
	case DirectionReverse:
		return "start on " + p.Venue1 + ", close on " + p.Venue0
	default:
		return "unknown"
	}
}
