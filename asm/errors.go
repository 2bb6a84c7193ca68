package asm

import "fmt"

// SequenceErrorKind classifies a SequenceError.
type SequenceErrorKind uint8

// Sequence error kinds.
const (
	// UnreachableTerminal means some control path never reaches the
	// terminal instruction: it falls off the end, escapes through an
	// indirect jump, loops elsewhere forever, or no terminal exists.
	UnreachableTerminal SequenceErrorKind = iota + 1
	// DuplicateLabel means a label is defined more than once.
	DuplicateLabel
	// MultipleTerminals means more than one terminal instruction exists.
	MultipleTerminals
	// UninitializedRead means an instruction reads a register that is not
	// written on every path from the entry.
	UninitializedRead
)

func (k SequenceErrorKind) String() string {
	switch k {
	case UnreachableTerminal:
		return "unreachable terminal"
	case DuplicateLabel:
		return "duplicate label"
	case MultipleTerminals:
		return "multiple terminals"
	case UninitializedRead:
		return "uninitialized read"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *SequenceError of the same kind matches.
var (
	ErrUnreachableTerminal = &SequenceError{Kind: UnreachableTerminal, Index: -1}
	ErrDuplicateLabel      = &SequenceError{Kind: DuplicateLabel, Index: -1}
	ErrMultipleTerminals   = &SequenceError{Kind: MultipleTerminals, Index: -1}
	ErrUninitializedRead   = &SequenceError{Kind: UninitializedRead, Index: -1}
)

// SequenceError reports a structural problem with an instruction sequence.
type SequenceError struct {
	Kind SequenceErrorKind

	// Index is the item index the problem was found at, or -1.
	Index int

	Label  string
	Detail string
}

func (e *SequenceError) Error() string {
	msg := e.Kind.String()
	if e.Index >= 0 {
		msg = fmt.Sprintf("item %d: %s", e.Index, msg)
	}
	if e.Label != "" {
		msg += fmt.Sprintf(" %q", e.Label)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches any SequenceError with the same kind.
func (e *SequenceError) Is(target error) bool {
	t, ok := target.(*SequenceError)
	return ok && t.Kind == e.Kind
}
