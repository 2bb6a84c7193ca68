package insts

import "fmt"

// Immediate ranges.
const (
	imm12Min = -(1 << 11)
	imm12Max = 1<<11 - 1
	bOffMin  = -(1 << 12)
	bOffMax  = 1<<12 - 2
	jOffMin  = -(1 << 20)
	jOffMax  = 1<<20 - 2
	uImmMin  = -(1 << 19)
	uImmMax  = 1<<20 - 1
)

// Encoder turns instructions into 32-bit machine words.
type Encoder struct{}

// NewEncoder creates a new RISC-V instruction encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode returns the machine word for inst. The instruction must not carry
// an unresolved Target; every field must fit its bit width.
func (e *Encoder) Encode(inst Instruction) (uint32, error) {
	info, ok := opTable[inst.Op]
	if !ok {
		return 0, fmt.Errorf("cannot encode operation %d", inst.Op)
	}

	if err := e.checkRegs(inst, info.format); err != nil {
		return 0, err
	}

	if inst.Target != "" {
		return 0, &EncodingError{
			Kind:  UnresolvedLabel,
			Index: -1,
			Op:    inst.Op,
			Label: inst.Target,
		}
	}

	rd := uint32(inst.Rd)
	rs1 := uint32(inst.Rs1)
	rs2 := uint32(inst.Rs2)

	switch info.format {
	case FormatRaw:
		return e.encodeRaw(inst)

	case FormatR:
		return EncodeRType(info.opcode, rd, info.funct3, rs1, rs2, info.funct7), nil

	case FormatI:
		if inst.Imm < imm12Min || inst.Imm > imm12Max {
			return 0, overflow(inst.Op, "imm", inst.Imm)
		}
		return EncodeIType(info.opcode, rd, info.funct3, rs1, int32(inst.Imm)), nil

	case FormatShift:
		if inst.Imm < 0 || inst.Imm >= 1<<info.shamtBits {
			return 0, overflow(inst.Op, "shamt", inst.Imm)
		}
		imm := int32(info.funct7<<5) | int32(inst.Imm)
		return EncodeIType(info.opcode, rd, info.funct3, rs1, imm), nil

	case FormatS:
		if inst.Imm < imm12Min || inst.Imm > imm12Max {
			return 0, overflow(inst.Op, "imm", inst.Imm)
		}
		return EncodeSType(info.opcode, info.funct3, rs1, rs2, int32(inst.Imm)), nil

	case FormatB:
		if inst.Imm < bOffMin || inst.Imm > bOffMax || inst.Imm&1 != 0 {
			return 0, overflow(inst.Op, "offset", inst.Imm)
		}
		return EncodeBType(info.opcode, info.funct3, rs1, rs2, int32(inst.Imm)), nil

	case FormatU:
		if inst.Imm < uImmMin || inst.Imm > uImmMax {
			return 0, overflow(inst.Op, "imm", inst.Imm)
		}
		return EncodeUType(info.opcode, rd, uint32(inst.Imm)<<12), nil

	case FormatJ:
		if inst.Imm < jOffMin || inst.Imm > jOffMax || inst.Imm&1 != 0 {
			return 0, overflow(inst.Op, "offset", inst.Imm)
		}
		return EncodeJType(info.opcode, rd, int32(inst.Imm)), nil
	}

	return 0, fmt.Errorf("cannot encode operation %s", inst.Op)
}

// encodeRaw places explicit bit fields without checking that the
// combination names a defined instruction.
func (e *Encoder) encodeRaw(inst Instruction) (uint32, error) {
	if inst.Opcode > 0x7F {
		return 0, overflow(OpRaw, "opcode", int64(inst.Opcode))
	}
	if inst.Funct3 > 0x7 {
		return 0, overflow(OpRaw, "funct3", int64(inst.Funct3))
	}
	if inst.Funct7 > 0x7F {
		return 0, overflow(OpRaw, "funct7", int64(inst.Funct7))
	}

	return EncodeRType(
		uint32(inst.Opcode),
		uint32(inst.Rd),
		uint32(inst.Funct3),
		uint32(inst.Rs1),
		uint32(inst.Rs2),
		uint32(inst.Funct7),
	), nil
}

func (e *Encoder) checkRegs(inst Instruction, format Format) error {
	usesRd, usesRs1, usesRs2 := false, false, false
	switch format {
	case FormatR, FormatRaw:
		usesRd, usesRs1, usesRs2 = true, true, true
	case FormatI, FormatShift:
		usesRd, usesRs1 = true, true
	case FormatS, FormatB:
		usesRs1, usesRs2 = true, true
	case FormatU, FormatJ:
		usesRd = true
	}

	if usesRd && !inst.Rd.Valid() {
		return badReg(inst.Op, "rd", inst.Rd)
	}
	if usesRs1 && !inst.Rs1.Valid() {
		return badReg(inst.Op, "rs1", inst.Rs1)
	}
	if usesRs2 && !inst.Rs2.Valid() {
		return badReg(inst.Op, "rs2", inst.Rs2)
	}
	return nil
}

// EncodeRType encodes an R-type instruction.
// Format: funct7 | rs2 | rs1 | funct3 | rd | opcode
func EncodeRType(opcode, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// EncodeIType encodes an I-type instruction.
// Format: imm[11:0] | rs1 | funct3 | rd | opcode
func EncodeIType(opcode, rd, funct3, rs1 uint32, imm int32) uint32 {
	return (uint32(imm&0xFFF) << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

// EncodeSType encodes an S-type instruction.
// Format: imm[11:5] | rs2 | rs1 | funct3 | imm[4:0] | opcode
func EncodeSType(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	immU := uint32(imm & 0xFFF)
	return ((immU >> 5) << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) |
		((immU & 0x1F) << 7) | opcode
}

// EncodeBType encodes a B-type instruction.
// Format: imm[12|10:5] | rs2 | rs1 | funct3 | imm[4:1|11] | opcode
func EncodeBType(opcode, funct3, rs1, rs2 uint32, imm int32) uint32 {
	immU := uint32(imm)
	return (((immU >> 12) & 0x1) << 31) | (((immU >> 5) & 0x3F) << 25) |
		(rs2 << 20) | (rs1 << 15) | (funct3 << 12) |
		(((immU >> 1) & 0xF) << 8) | (((immU >> 11) & 0x1) << 7) | opcode
}

// EncodeUType encodes a U-type instruction. imm holds bits [31:12].
func EncodeUType(opcode, rd uint32, imm uint32) uint32 {
	return (imm & 0xFFFFF000) | (rd << 7) | opcode
}

// EncodeJType encodes a J-type instruction.
// Format: imm[20|10:1|11|19:12] | rd | opcode
func EncodeJType(opcode, rd uint32, imm int32) uint32 {
	immU := uint32(imm)
	return (((immU >> 20) & 0x1) << 31) | (((immU >> 1) & 0x3FF) << 21) |
		(((immU >> 11) & 0x1) << 20) | (((immU >> 12) & 0xFF) << 12) |
		(rd << 7) | opcode
}
