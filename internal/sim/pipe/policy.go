package pipe

import "strings"

// Policy chooses among a node's destinations.
type Policy uint8

const (
	Nearest Policy = iota
	Farthest
	RoundRobin
	Random
)

func (p Policy) String() string {
	switch p {
	case Farthest:
		return "farthest"
	case RoundRobin:
		return "roundrobin"
	case Random:
		return "random"
	default:
		return "nearest"
	}
}

func ParsePolicy(s string) (Policy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nearest", "":
		return Nearest, true
	case "farthest":
		return Farthest, true
	case "roundrobin", "round_robin":
		return RoundRobin, true
	case "random":
		return Random, true
	}
	return Nearest, false
}
