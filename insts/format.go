package insts

import "fmt"

// String renders the instruction as assembler text. Branches and jumps show
// their label when one is set, otherwise the byte offset. Raw-form
// instructions use the GNU assembler .insn directive.
func (i Instruction) String() string {
	name := i.Op.String()

	switch i.Format() {
	case FormatRaw:
		return fmt.Sprintf(".insn r 0x%X, 0x%X, 0x%X, %s, %s, %s",
			i.Opcode, i.Funct3, i.Funct7, i.Rd, i.Rs1, i.Rs2)

	case FormatR:
		return fmt.Sprintf("%s %s, %s, %s", name, i.Rd, i.Rs1, i.Rs2)

	case FormatI:
		if i.IsNOP() {
			return "nop"
		}
		if i.IsLoad() || i.Op == OpJALR {
			return fmt.Sprintf("%s %s, %d(%s)", name, i.Rd, i.Imm, i.Rs1)
		}
		return fmt.Sprintf("%s %s, %s, %d", name, i.Rd, i.Rs1, i.Imm)

	case FormatShift:
		return fmt.Sprintf("%s %s, %s, %d", name, i.Rd, i.Rs1, i.Imm)

	case FormatS:
		return fmt.Sprintf("%s %s, %d(%s)", name, i.Rs2, i.Imm, i.Rs1)

	case FormatB:
		return fmt.Sprintf("%s %s, %s, %s", name, i.Rs1, i.Rs2, i.target())

	case FormatU:
		return fmt.Sprintf("%s %s, 0x%X", name, i.Rd, uint32(i.Imm)&0xFFFFF)

	case FormatJ:
		return fmt.Sprintf("%s %s, %s", name, i.Rd, i.target())
	}

	return fmt.Sprintf("unknown(%d)", i.Op)
}

func (i Instruction) target() string {
	if i.Target != "" {
		return i.Target
	}
	return fmt.Sprintf("%d", i.Imm)
}
