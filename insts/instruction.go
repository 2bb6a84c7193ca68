package insts

// Op represents a RISC-V operation.
type Op uint16

// RISC-V operations.
const (
	OpUnknown Op = iota

	// RV64I register-register
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW

	// Zba
	OpSH1ADD
	OpSH2ADD
	OpSH3ADD
	OpADDUW
	OpSH1ADDUW
	OpSH2ADDUW
	OpSH3ADDUW

	// RV64I register-immediate
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpADDIW
	OpSLLI
	OpSRLI
	OpSRAI
	OpSLLIW
	OpSRLIW
	OpSRAIW

	// Loads and stores
	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU
	OpSB
	OpSH
	OpSW
	OpSD

	// Control transfer
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpJAL
	OpJALR

	// Upper immediates
	OpLUI
	OpAUIPC

	// OpRaw is an instruction given by explicit bit fields.
	OpRaw
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // rd, rs1, rs2
	FormatI              // rd, rs1, imm[11:0]
	FormatShift          // rd, rs1, shamt (I-type with funct bits in imm[11:6])
	FormatS              // rs1, rs2, imm[11:0] split
	FormatB              // rs1, rs2, 13-bit even offset
	FormatU              // rd, imm[31:12]
	FormatJ              // rd, 21-bit even offset
	FormatRaw            // explicit opcode/funct3/funct7 in R layout
)

// Major opcodes.
const (
	opcodeLoad   = 0x03
	opcodeOpImm  = 0x13
	opcodeAUIPC  = 0x17
	opcodeOpImmW = 0x1B
	opcodeStore  = 0x23
	opcodeOp     = 0x33
	opcodeLUI    = 0x37
	opcodeOpW    = 0x3B
	opcodeBranch = 0x63
	opcodeJALR   = 0x67
	opcodeJAL    = 0x6F
)

type opInfo struct {
	name      string
	format    Format
	opcode    uint32
	funct3    uint32
	funct7    uint32
	shamtBits uint
}

var opTable = map[Op]opInfo{
	OpADD:  {"add", FormatR, opcodeOp, 0, 0x00, 0},
	OpSUB:  {"sub", FormatR, opcodeOp, 0, 0x20, 0},
	OpSLL:  {"sll", FormatR, opcodeOp, 1, 0x00, 0},
	OpSLT:  {"slt", FormatR, opcodeOp, 2, 0x00, 0},
	OpSLTU: {"sltu", FormatR, opcodeOp, 3, 0x00, 0},
	OpXOR:  {"xor", FormatR, opcodeOp, 4, 0x00, 0},
	OpSRL:  {"srl", FormatR, opcodeOp, 5, 0x00, 0},
	OpSRA:  {"sra", FormatR, opcodeOp, 5, 0x20, 0},
	OpOR:   {"or", FormatR, opcodeOp, 6, 0x00, 0},
	OpAND:  {"and", FormatR, opcodeOp, 7, 0x00, 0},
	OpADDW: {"addw", FormatR, opcodeOpW, 0, 0x00, 0},
	OpSUBW: {"subw", FormatR, opcodeOpW, 0, 0x20, 0},
	OpSLLW: {"sllw", FormatR, opcodeOpW, 1, 0x00, 0},
	OpSRLW: {"srlw", FormatR, opcodeOpW, 5, 0x00, 0},
	OpSRAW: {"sraw", FormatR, opcodeOpW, 5, 0x20, 0},

	OpSH1ADD:   {"sh1add", FormatR, opcodeOp, 2, 0x10, 0},
	OpSH2ADD:   {"sh2add", FormatR, opcodeOp, 4, 0x10, 0},
	OpSH3ADD:   {"sh3add", FormatR, opcodeOp, 6, 0x10, 0},
	OpADDUW:    {"add.uw", FormatR, opcodeOpW, 0, 0x04, 0},
	OpSH1ADDUW: {"sh1add.uw", FormatR, opcodeOpW, 2, 0x10, 0},
	OpSH2ADDUW: {"sh2add.uw", FormatR, opcodeOpW, 4, 0x10, 0},
	OpSH3ADDUW: {"sh3add.uw", FormatR, opcodeOpW, 6, 0x10, 0},

	OpADDI:  {"addi", FormatI, opcodeOpImm, 0, 0, 0},
	OpSLTI:  {"slti", FormatI, opcodeOpImm, 2, 0, 0},
	OpSLTIU: {"sltiu", FormatI, opcodeOpImm, 3, 0, 0},
	OpXORI:  {"xori", FormatI, opcodeOpImm, 4, 0, 0},
	OpORI:   {"ori", FormatI, opcodeOpImm, 6, 0, 0},
	OpANDI:  {"andi", FormatI, opcodeOpImm, 7, 0, 0},
	OpADDIW: {"addiw", FormatI, opcodeOpImmW, 0, 0, 0},
	OpSLLI:  {"slli", FormatShift, opcodeOpImm, 1, 0x00, 6},
	OpSRLI:  {"srli", FormatShift, opcodeOpImm, 5, 0x00, 6},
	OpSRAI:  {"srai", FormatShift, opcodeOpImm, 5, 0x20, 6},
	OpSLLIW: {"slliw", FormatShift, opcodeOpImmW, 1, 0x00, 5},
	OpSRLIW: {"srliw", FormatShift, opcodeOpImmW, 5, 0x00, 5},
	OpSRAIW: {"sraiw", FormatShift, opcodeOpImmW, 5, 0x20, 5},

	OpLB:  {"lb", FormatI, opcodeLoad, 0, 0, 0},
	OpLH:  {"lh", FormatI, opcodeLoad, 1, 0, 0},
	OpLW:  {"lw", FormatI, opcodeLoad, 2, 0, 0},
	OpLD:  {"ld", FormatI, opcodeLoad, 3, 0, 0},
	OpLBU: {"lbu", FormatI, opcodeLoad, 4, 0, 0},
	OpLHU: {"lhu", FormatI, opcodeLoad, 5, 0, 0},
	OpLWU: {"lwu", FormatI, opcodeLoad, 6, 0, 0},
	OpSB:  {"sb", FormatS, opcodeStore, 0, 0, 0},
	OpSH:  {"sh", FormatS, opcodeStore, 1, 0, 0},
	OpSW:  {"sw", FormatS, opcodeStore, 2, 0, 0},
	OpSD:  {"sd", FormatS, opcodeStore, 3, 0, 0},

	OpBEQ:  {"beq", FormatB, opcodeBranch, 0, 0, 0},
	OpBNE:  {"bne", FormatB, opcodeBranch, 1, 0, 0},
	OpBLT:  {"blt", FormatB, opcodeBranch, 4, 0, 0},
	OpBGE:  {"bge", FormatB, opcodeBranch, 5, 0, 0},
	OpBLTU: {"bltu", FormatB, opcodeBranch, 6, 0, 0},
	OpBGEU: {"bgeu", FormatB, opcodeBranch, 7, 0, 0},
	OpJAL:  {"jal", FormatJ, opcodeJAL, 0, 0, 0},
	OpJALR: {"jalr", FormatI, opcodeJALR, 0, 0, 0},

	OpLUI:   {"lui", FormatU, opcodeLUI, 0, 0, 0},
	OpAUIPC: {"auipc", FormatU, opcodeAUIPC, 0, 0, 0},

	OpRaw: {".insn", FormatRaw, 0, 0, 0, 0},
}

var opsByName = func() map[string]Op {
	m := make(map[string]Op, len(opTable))
	for op, info := range opTable {
		m[info.name] = op
	}
	return m
}()

// String returns the assembler mnemonic of the operation.
func (op Op) String() string {
	if info, ok := opTable[op]; ok {
		return info.name
	}
	return "unknown"
}

// Format returns the encoding format of the operation.
func (op Op) Format() Format {
	return opTable[op].format
}

// LookupOp finds an operation by its mnemonic.
func LookupOp(name string) (Op, bool) {
	op, ok := opsByName[name]
	return op, ok
}

// Instruction is a single machine instruction described by its semantic
// fields. It is a value; all constructors return copies.
type Instruction struct {
	Op Op

	Rd  Reg // Destination register
	Rs1 Reg // First source register (base register for loads/stores)
	Rs2 Reg // Second source register (data register for stores)

	// Imm is the sign-extended immediate. For branches and jumps it is the
	// byte offset from the instruction's own address; for U-type it is the
	// 20-bit upper immediate; for shifts it is the shift amount.
	Imm int64

	// Target names the label a branch or jump transfers to. It is resolved
	// into Imm by the assembler.
	Target string

	// Raw-form fields, used only when Op == OpRaw.
	Opcode uint8
	Funct3 uint8
	Funct7 uint8
}

// Format returns the encoding format of the instruction.
func (i Instruction) Format() Format {
	return i.Op.Format()
}

// R builds a register-register instruction.
func R(op Op, rd, rs1, rs2 Reg) Instruction {
	return Instruction{Op: op, Rd: rd, Rs1: rs1, Rs2: rs2}
}

// I builds a register-immediate instruction (including shifts and jalr).
func I(op Op, rd, rs1 Reg, imm int64) Instruction {
	return Instruction{Op: op, Rd: rd, Rs1: rs1, Imm: imm}
}

// Load builds a load: rd = mem[base + offset].
func Load(op Op, rd, base Reg, offset int64) Instruction {
	return Instruction{Op: op, Rd: rd, Rs1: base, Imm: offset}
}

// Store builds a store: mem[base + offset] = src.
func Store(op Op, src, base Reg, offset int64) Instruction {
	return Instruction{Op: op, Rs1: base, Rs2: src, Imm: offset}
}

// Branch builds a conditional branch to a label.
func Branch(op Op, rs1, rs2 Reg, target string) Instruction {
	return Instruction{Op: op, Rs1: rs1, Rs2: rs2, Target: target}
}

// BranchOffset builds a conditional branch with an explicit byte offset.
func BranchOffset(op Op, rs1, rs2 Reg, offset int64) Instruction {
	return Instruction{Op: op, Rs1: rs1, Rs2: rs2, Imm: offset}
}

// JAL builds a jump-and-link to a label.
func JAL(rd Reg, target string) Instruction {
	return Instruction{Op: OpJAL, Rd: rd, Target: target}
}

// JALOffset builds a jump-and-link with an explicit byte offset.
func JALOffset(rd Reg, offset int64) Instruction {
	return Instruction{Op: OpJAL, Rd: rd, Imm: offset}
}

// JALR builds an indirect jump: rd = pc+4; pc = (rs1 + imm) &^ 1.
func JALR(rd, rs1 Reg, imm int64) Instruction {
	return Instruction{Op: OpJALR, Rd: rd, Rs1: rs1, Imm: imm}
}

// LUI builds a load-upper-immediate.
func LUI(rd Reg, imm20 int64) Instruction {
	return Instruction{Op: OpLUI, Rd: rd, Imm: imm20}
}

// AUIPC builds an add-upper-immediate-to-pc.
func AUIPC(rd Reg, imm20 int64) Instruction {
	return Instruction{Op: OpAUIPC, Rd: rd, Imm: imm20}
}

// Raw builds a raw-form instruction from explicit R-layout bit fields.
// The fields are range-checked when the instruction is encoded.
func Raw(opcode, funct3, funct7 uint8, rd, rs1, rs2 Reg) Instruction {
	return Instruction{
		Op:     OpRaw,
		Opcode: opcode,
		Funct3: funct3,
		Funct7: funct7,
		Rd:     rd,
		Rs1:    rs1,
		Rs2:    rs2,
	}
}

// NOP returns the canonical no-op, addi x0, x0, 0.
func NOP() Instruction {
	return I(OpADDI, X0, X0, 0)
}

// IsNOP reports whether the instruction is the canonical no-op.
func (i Instruction) IsNOP() bool {
	return i.Op == OpADDI && i.Rd == X0 && i.Rs1 == X0 && i.Imm == 0
}

// IsLoad reports whether the instruction reads memory.
func (i Instruction) IsLoad() bool {
	return i.Op >= OpLB && i.Op <= OpLWU
}

// IsStore reports whether the instruction writes memory.
func (i Instruction) IsStore() bool {
	return i.Op >= OpSB && i.Op <= OpSD
}

// IsBranch reports whether the instruction is a conditional branch.
func (i Instruction) IsBranch() bool {
	return i.Op >= OpBEQ && i.Op <= OpBGEU
}

// IsJump reports whether the instruction is an unconditional jump.
func (i Instruction) IsJump() bool {
	return i.Op == OpJAL || i.Op == OpJALR
}

// IsControl reports whether the instruction may redirect the PC.
func (i Instruction) IsControl() bool {
	return i.IsBranch() || i.IsJump()
}

// IsExtension reports whether the instruction is outside RV64I: a raw-form
// instruction or a Zba operation.
func (i Instruction) IsExtension() bool {
	return i.Op == OpRaw || (i.Op >= OpSH1ADD && i.Op <= OpSH3ADDUW)
}

// Dest returns the register written by the instruction. Writes to x0 are
// reported as no destination.
func (i Instruction) Dest() (Reg, bool) {
	switch i.Format() {
	case FormatB, FormatS, FormatUnknown:
		return 0, false
	}
	if i.Rd == X0 {
		return 0, false
	}
	return i.Rd, true
}

// Sources returns the registers read by the instruction, excluding x0.
// Raw-form instructions are assumed to read rs1 and rs2.
func (i Instruction) Sources() []Reg {
	var regs []Reg
	switch i.Format() {
	case FormatR, FormatS, FormatB, FormatRaw:
		regs = []Reg{i.Rs1, i.Rs2}
	case FormatI, FormatShift:
		regs = []Reg{i.Rs1}
	}

	out := regs[:0]
	for _, r := range regs {
		if r != X0 {
			out = append(out, r)
		}
	}
	return out
}
