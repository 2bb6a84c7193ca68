package insts

// decodeKey identifies an operation by its fixed encoding bits.
type decodeKey struct {
	opcode uint32
	funct3 uint32
	funct7 uint32
}

var decodeIndex = func() map[decodeKey]Op {
	m := make(map[decodeKey]Op, len(opTable))
	for op, info := range opTable {
		switch info.format {
		case FormatR, FormatShift:
			m[decodeKey{info.opcode, info.funct3, info.funct7}] = op
		case FormatI, FormatS, FormatB:
			m[decodeKey{info.opcode, info.funct3, 0}] = op
		case FormatU, FormatJ:
			m[decodeKey{info.opcode, 0, 0}] = op
		}
	}
	return m
}()

// Decoder decodes RISC-V machine words into instructions.
type Decoder struct {
	encoder *Encoder
}

// NewDecoder creates a new RISC-V instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{encoder: NewEncoder()}
}

// Decode decodes a 32-bit instruction word.
//
// A word is decoded to a named operation only if re-encoding that operation
// reproduces the word exactly; everything else decodes as a raw-form
// instruction. Decoding therefore never fails, and decode followed by
// encode always returns the original word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := d.decodeKnown(word)
	if inst == nil {
		raw := DecodeRaw(word)
		return &raw
	}

	if again, err := d.encoder.Encode(*inst); err != nil || again != word {
		raw := DecodeRaw(word)
		return &raw
	}

	return inst
}

// DecodeRaw returns the raw-form view of a word: its fields split along
// the R-type layout. Every 32-bit word has exactly one raw form.
func DecodeRaw(word uint32) Instruction {
	return Raw(
		uint8(parseOpcode(word)),
		uint8(parseFunct3(word)),
		uint8(parseFunct7(word)),
		Reg(parseRd(word)),
		Reg(parseRs1(word)),
		Reg(parseRs2(word)),
	)
}

func (d *Decoder) decodeKnown(word uint32) *Instruction {
	opcode := parseOpcode(word)
	funct3 := parseFunct3(word)
	rd := Reg(parseRd(word))
	rs1 := Reg(parseRs1(word))
	rs2 := Reg(parseRs2(word))

	switch opcode {
	case opcodeOp, opcodeOpW:
		op, ok := decodeIndex[decodeKey{opcode, funct3, parseFunct7(word)}]
		if !ok {
			return nil
		}
		inst := R(op, rd, rs1, rs2)
		return &inst

	case opcodeOpImm, opcodeOpImmW:
		if funct3 == 1 || funct3 == 5 {
			return d.decodeShift(word)
		}
		op, ok := decodeIndex[decodeKey{opcode, funct3, 0}]
		if !ok {
			return nil
		}
		inst := I(op, rd, rs1, int64(parseImmI(word)))
		return &inst

	case opcodeLoad, opcodeJALR:
		op, ok := decodeIndex[decodeKey{opcode, funct3, 0}]
		if !ok {
			return nil
		}
		inst := I(op, rd, rs1, int64(parseImmI(word)))
		return &inst

	case opcodeStore:
		op, ok := decodeIndex[decodeKey{opcode, funct3, 0}]
		if !ok {
			return nil
		}
		inst := Store(op, rs2, rs1, int64(parseImmS(word)))
		return &inst

	case opcodeBranch:
		op, ok := decodeIndex[decodeKey{opcode, funct3, 0}]
		if !ok {
			return nil
		}
		inst := BranchOffset(op, rs1, rs2, int64(parseImmB(word)))
		return &inst

	case opcodeJAL:
		inst := JALOffset(rd, int64(parseImmJ(word)))
		return &inst

	case opcodeLUI:
		inst := LUI(rd, int64(parseImmU(word)))
		return &inst

	case opcodeAUIPC:
		inst := AUIPC(rd, int64(parseImmU(word)))
		return &inst
	}

	return nil
}

// decodeShift decodes shift-immediate instructions. RV64 shifts use a 6-bit
// shift amount with funct6 in bits [31:26]; word shifts use 5 bits with
// funct7 in bits [31:25].
func (d *Decoder) decodeShift(word uint32) *Instruction {
	opcode := parseOpcode(word)
	funct3 := parseFunct3(word)

	var funct7, shamt uint32
	if opcode == opcodeOpImm {
		funct7 = (word >> 25) & 0x7E
		shamt = (word >> 20) & 0x3F
	} else {
		funct7 = parseFunct7(word)
		shamt = (word >> 20) & 0x1F
	}

	op, ok := decodeIndex[decodeKey{opcode, funct3, funct7}]
	if !ok {
		return nil
	}

	inst := I(op, Reg(parseRd(word)), Reg(parseRs1(word)), int64(shamt))
	return &inst
}

func parseOpcode(word uint32) uint32 { return word & 0x7F }
func parseRd(word uint32) uint32     { return (word >> 7) & 0x1F }
func parseFunct3(word uint32) uint32 { return (word >> 12) & 0x7 }
func parseRs1(word uint32) uint32    { return (word >> 15) & 0x1F }
func parseRs2(word uint32) uint32    { return (word >> 20) & 0x1F }
func parseFunct7(word uint32) uint32 { return word >> 25 }

// parseImmI extracts the sign-extended 12-bit I-type immediate.
func parseImmI(word uint32) int32 {
	return int32(word) >> 20
}

// parseImmS extracts the sign-extended 12-bit S-type immediate.
func parseImmS(word uint32) int32 {
	raw := ((word >> 7) & 0x1F) | (((word >> 25) & 0x7F) << 5)
	return signExtend(raw, 12)
}

// parseImmB extracts the sign-extended 13-bit branch offset.
// imm[12|10:5|4:1|11]
func parseImmB(word uint32) int32 {
	raw := (((word >> 31) & 0x1) << 12) |
		(((word >> 7) & 0x1) << 11) |
		(((word >> 25) & 0x3F) << 5) |
		(((word >> 8) & 0xF) << 1)
	return signExtend(raw, 13)
}

// parseImmU extracts the sign-extended 20-bit upper immediate.
func parseImmU(word uint32) int32 {
	return int32(word) >> 12
}

// parseImmJ extracts the sign-extended 21-bit jump offset.
// imm[20|10:1|11|19:12]
func parseImmJ(word uint32) int32 {
	raw := ((word >> 31) << 20) |
		(((word >> 12) & 0xFF) << 12) |
		(((word >> 20) & 0x1) << 11) |
		(((word >> 21) & 0x3FF) << 1)
	return signExtend(raw, 21)
}

func signExtend(value uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(value<<shift) >> shift
}
