package events

import "fmt"

// Policy selects how records are removed when nobody consumes them.
//
// The policy is fixed for a queue's lifetime. Queue operations behave the
// same under both policies; only the host's round-boundary hook looks at it.
type Policy int

const (
	// AutoClear empties the queue once per host round, before any consumer
	// of that round runs. Events not consumed within their round are lost.
	AutoClear Policy = iota + 1

	// Persistent never clears automatically. Unconsumed records stay
	// visible across rounds until consumed or explicitly cleared.
	Persistent
)

// String returns the snake_case policy name used in scenario files.
func (p Policy) String() string {
	switch p {
	case AutoClear:
		return "auto_clear"
	case Persistent:
		return "persistent"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Valid reports whether p is one of the defined policies.
func (p Policy) Valid() bool {
	return p == AutoClear || p == Persistent
}

// ParsePolicy parses a policy name as produced by String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "auto_clear", "auto":
		return AutoClear, nil
	case "persistent":
		return Persistent, nil
	default:
		return 0, fmt.Errorf("unknown policy %q: must be auto_clear or persistent", s)
	}
}
