// Package insts provides RISC-V instruction definitions, encoding and decoding.
//
// This package turns the semantic fields of an instruction into its exact
// 32-bit machine word and back. It supports:
//   - RV64I integer register/immediate arithmetic, loads, stores
//   - Branches and jumps (B/J-type, PC-relative offsets)
//   - The Zba address-generation extension (shNadd, add.uw)
//   - Raw-form instructions built from explicit opcode/funct3/funct7 fields,
//     for opcodes that have no mnemonic in the table
//
// Usage:
//
//	encoder := insts.NewEncoder()
//	word, err := encoder.Encode(insts.Raw(0x33, 0x2, 0x10, 9, 5, 6))
//	// word == 0x2062A4B3, the Zba sh1add x9, x5, x6
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(word)
//	fmt.Println(inst) // sh1add x9, x5, x6
package insts
