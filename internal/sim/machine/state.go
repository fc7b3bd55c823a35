package machine

import "strings"

type State uint8

const (
	// Off is user-disabled: no progress, no recipe search.
	Off State = iota
	// Sleeping is enabled with nothing to craft; ticks are throttled.
	Sleeping
	// On is heating toward or progressing an active recipe.
	On
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return "sleeping"
	}
}

func ParseState(s string) (State, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return Off, true
	case "sleeping":
		return Sleeping, true
	case "on":
		return On, true
	}
	return Sleeping, false
}
