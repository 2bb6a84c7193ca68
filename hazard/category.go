// Package hazard models hazard test sequences: ordered instructions crafted
// to trigger one class of pipeline hazard, together with the register values
// a correct core holds when the sequence reaches its terminal instruction.
//
// Sequences are authored with a Builder or one of the pattern helpers
// (LoadUse, ControlFlush, ForwardingPriority, ExtensionOp). Build validates
// that the sequence encodes, always terminates, and actually exercises the
// hazard category it declares.
package hazard

import (
	"fmt"
	"strings"
)

// Category is the hazard class a sequence or expectation targets. A failed
// expectation localizes the fault to its category.
type Category int

// Hazard categories.
const (
	// General covers plain functional checks.
	General Category = iota
	// LoadUse is a load followed immediately by a consumer of its value.
	LoadUse
	// ControlFlush is a taken branch or jump whose shadow instructions
	// must be squashed.
	ControlFlush
	// Forwarding is back-to-back producers and consumers of one register.
	Forwarding
	// Extension is a non-base instruction encoding.
	Extension
)

var categoryNames = map[Category]string{
	General:      "general",
	LoadUse:      "load-use",
	ControlFlush: "control-flush",
	Forwarding:   "forwarding",
	Extension:    "extension",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// ParseCategory parses a category name as printed by String.
func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return General, nil
	}
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return General, fmt.Errorf("unknown hazard category %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ExpectKind distinguishes what an expectation asserts about the core.
type ExpectKind int

const (
	// ExpectCorrect asserts the architecturally correct value.
	ExpectCorrect ExpectKind = iota
	// ExpectLeak asserts that a value which should have been squashed is
	// visible. Such expectations document a known faulty behavior and do
	// not hold on a correct core.
	ExpectLeak
)

func (k ExpectKind) String() string {
	switch k {
	case ExpectCorrect:
		return "correct"
	case ExpectLeak:
		return "leak"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseExpectKind parses "correct" or "leak". The empty string is correct.
func ParseExpectKind(name string) (ExpectKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "correct":
		return ExpectCorrect, nil
	case "leak":
		return ExpectLeak, nil
	}
	return ExpectCorrect, fmt.Errorf("unknown expectation kind %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (k ExpectKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
