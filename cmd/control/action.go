package control

import "fmt"

// Action is an operator input delivered to the loop between ticks.
type Action int

const (
	ForceOpen Action = iota + 1
	ForceClose
	SetMax
	SetMin
	FetchNow
)

var actionNames = map[Action]string{
	ForceOpen:  "open",
	ForceClose: "close",
	SetMax:     "set-max",
	SetMin:     "set-min",
	FetchNow:   "fetch",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// ParseAction accepts the names produced by String.
func ParseAction(s string) (Action, error) {
	for a, n := range actionNames {
		if n == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// Halts reports whether the action ends closed-loop control.
func (a Action) Halts() bool {
	return a == ForceOpen || a == ForceClose
}
