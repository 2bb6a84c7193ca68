package insts

import "fmt"

// ErrorKind classifies an EncodingError.
type ErrorKind uint8

// Encoding error kinds.
const (
	// FieldOverflow means a field value does not fit its declared bit width.
	FieldOverflow ErrorKind = iota + 1
	// InvalidRegister means a register id is outside [0, 31].
	InvalidRegister
	// UnresolvedLabel means a branch or jump target was never defined.
	UnresolvedLabel
)

func (k ErrorKind) String() string {
	switch k {
	case FieldOverflow:
		return "field overflow"
	case InvalidRegister:
		return "invalid register"
	case UnresolvedLabel:
		return "unresolved label"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Any *EncodingError of the same kind matches.
var (
	ErrFieldOverflow   = &EncodingError{Kind: FieldOverflow, Index: -1}
	ErrInvalidRegister = &EncodingError{Kind: InvalidRegister, Index: -1}
	ErrUnresolvedLabel = &EncodingError{Kind: UnresolvedLabel, Index: -1}
)

// EncodingError reports an instruction that cannot be turned into a machine
// word. It carries enough context to locate and fix the offending item.
type EncodingError struct {
	Kind ErrorKind

	// Index is the position of the instruction in the sequence being
	// assembled, or -1 if the instruction was encoded on its own.
	Index int

	Op    Op
	Field string
	Value int64
	Label string
}

func (e *EncodingError) Error() string {
	where := ""
	if e.Index >= 0 {
		where = fmt.Sprintf("instruction %d: ", e.Index)
	}

	switch e.Kind {
	case FieldOverflow:
		return fmt.Sprintf("%s%s: %s %s=%d (0x%X) out of range",
			where, e.Kind, e.Op, e.Field, e.Value, uint64(e.Value))
	case InvalidRegister:
		return fmt.Sprintf("%s%s: %s %s=%d", where, e.Kind, e.Op, e.Field, e.Value)
	case UnresolvedLabel:
		return fmt.Sprintf("%s%s: %s target %q", where, e.Kind, e.Op, e.Label)
	default:
		return where + e.Kind.String()
	}
}

// Is matches any EncodingError with the same kind.
func (e *EncodingError) Is(target error) bool {
	t, ok := target.(*EncodingError)
	return ok && t.Kind == e.Kind
}

// AtIndex returns a copy of the error located at the given sequence index.
func (e *EncodingError) AtIndex(index int) *EncodingError {
	c := *e
	c.Index = index
	return &c
}

func overflow(op Op, field string, value int64) *EncodingError {
	return &EncodingError{Kind: FieldOverflow, Index: -1, Op: op, Field: field, Value: value}
}

func badReg(op Op, field string, r Reg) *EncodingError {
	return &EncodingError{Kind: InvalidRegister, Index: -1, Op: op, Field: field, Value: int64(r)}
}
