package hazard

import (
	"errors"
	"fmt"
)

// ErrNoSignal is returned for a sequence that never writes the result
// register, so a run cannot report pass or fail.
var ErrNoSignal = errors.New("no pass or fail signal before the terminal")

// PatternError reports a sequence that does not exercise the hazard
// category it declares.
type PatternError struct {
	Sequence string
	Category Category
	Detail   string
}

func (e *PatternError) Error() string {
	msg := fmt.Sprintf("sequence %q does not exercise %s", e.Sequence, e.Category)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
