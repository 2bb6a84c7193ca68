package emu_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/emu"
	"github.com/sarchlab/rvhazard/insts"
)

// run assembles items at address 0, appends a self-loop and runs them.
func run(items ...asm.Item) *emu.Emulator {
	items = append(items, asm.L("halt"), asm.In(asm.J("halt")))
	img, err := asm.Assemble(0, items)
	Expect(err).NotTo(HaveOccurred())

	e := emu.NewEmulator(emu.WithMaxSteps(10000))
	Expect(e.LoadProgram(0, img.Bytes())).To(Succeed())
	Expect(e.Run(context.Background())).To(Succeed())
	return e
}

func li(rd insts.Reg, v int64) []asm.Item {
	return asm.LIItems(rd, v)
}

func in(list ...insts.Instruction) []asm.Item {
	out := make([]asm.Item, len(list))
	for i, inst := range list {
		out[i] = asm.In(inst)
	}
	return out
}

func seq(parts ...[]asm.Item) []asm.Item {
	var out []asm.Item
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var _ = Describe("Emulator", func() {
	Describe("NewEmulator", func() {
		It("should create an emulator with initialized components", func() {
			e := emu.NewEmulator()

			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Memory().Size()).To(Equal(uint64(emu.DefaultMemorySize)))
		})
	})

	Describe("LoadProgram", func() {
		It("should set the PC to the entry point", func() {
			e := emu.NewEmulator()

			Expect(e.LoadProgram(0x100, []byte{0x13, 0, 0, 0})).To(Succeed())
			Expect(e.RegFile().PC).To(Equal(uint64(0x100)))
		})

		It("should reject images that do not fit", func() {
			e := emu.NewEmulator(emu.WithMemory(emu.NewMemory(0, 16)))

			err := e.LoadProgram(8, make([]byte, 12))

			var memErr *emu.MemoryError
			Expect(errors.As(err, &memErr)).To(BeTrue())
		})
	})

	Describe("ALU instructions", func() {
		It("should add 10 and 20", func() {
			e := run(seq(li(5, 10), li(6, 20), in(insts.R(insts.OpADD, 7, 5, 6)))...)

			Expect(e.RegFile().X[7]).To(Equal(uint64(30)))
		})

		It("should execute raw-form sh1add as Zba", func() {
			e := run(seq(li(5, 10), li(6, 20), in(insts.Raw(0x33, 0x2, 0x10, 9, 5, 6)))...)

			Expect(e.RegFile().X[9]).To(Equal(uint64(40)))
		})

		DescribeTable("register-register operations",
			func(op insts.Op, a, b int, want uint64) {
				e := run(seq(li(5, int64(a)), li(6, int64(b)), in(insts.R(op, 7, 5, 6)))...)
				Expect(e.RegFile().X[7]).To(Equal(want))
			},
			Entry("sub", insts.OpSUB, 5, 7, uint64(0xFFFFFFFFFFFFFFFE)),
			Entry("sll", insts.OpSLL, 1, 65, uint64(2)),
			Entry("slt", insts.OpSLT, -1, 0, uint64(1)),
			Entry("sltu", insts.OpSLTU, -1, 0, uint64(0)),
			Entry("xor", insts.OpXOR, 0xF0, 0xFF, uint64(0x0F)),
			Entry("srl", insts.OpSRL, -1, 60, uint64(0xF)),
			Entry("sra", insts.OpSRA, -16, 2, uint64(0xFFFFFFFFFFFFFFFC)),
			Entry("or", insts.OpOR, 0xF0, 0x0F, uint64(0xFF)),
			Entry("and", insts.OpAND, 0xF0, 0x3C, uint64(0x30)),
			Entry("addw wraps and sign-extends", insts.OpADDW, 0x7FFFFFFF, 1, uint64(0xFFFFFFFF80000000)),
			Entry("subw", insts.OpSUBW, 0, 1, uint64(0xFFFFFFFFFFFFFFFF)),
			Entry("sllw", insts.OpSLLW, 1, 31, uint64(0xFFFFFFFF80000000)),
			Entry("srlw", insts.OpSRLW, -1, 4, uint64(0x0FFFFFFF)),
			Entry("sraw", insts.OpSRAW, 0x80000000, 4, uint64(0xFFFFFFFFF8000000)),
			Entry("sh2add", insts.OpSH2ADD, 3, 100, uint64(112)),
			Entry("sh3add", insts.OpSH3ADD, 3, 100, uint64(124)),
			Entry("add.uw", insts.OpADDUW, -1, 1, uint64(0x100000000)),
			Entry("sh1add.uw", insts.OpSH1ADDUW, -1, 0, uint64(0x1FFFFFFFE)),
			Entry("sh2add.uw", insts.OpSH2ADDUW, 1<<32|1, 0, uint64(4)),
			Entry("sh3add.uw", insts.OpSH3ADDUW, 2, 1, uint64(17)),
		)

		DescribeTable("register-immediate operations",
			func(op insts.Op, a, imm int, want uint64) {
				e := run(seq(li(5, int64(a)), in(insts.I(op, 7, 5, int64(imm))))...)
				Expect(e.RegFile().X[7]).To(Equal(want))
			},
			Entry("addi", insts.OpADDI, 1, -2, uint64(0xFFFFFFFFFFFFFFFF)),
			Entry("slti", insts.OpSLTI, -5, -4, uint64(1)),
			Entry("sltiu compares the sign-extended immediate unsigned", insts.OpSLTIU, 5, -1, uint64(1)),
			Entry("xori", insts.OpXORI, 0xFF, -1, uint64(0xFFFFFFFFFFFFFF00)),
			Entry("ori", insts.OpORI, 0xF0, 0xF, uint64(0xFF)),
			Entry("andi", insts.OpANDI, 0xFF, 0xF0, uint64(0xF0)),
			Entry("slli", insts.OpSLLI, 1, 63, uint64(1)<<63),
			Entry("srli", insts.OpSRLI, -1, 63, uint64(1)),
			Entry("srai", insts.OpSRAI, -1<<63, 63, uint64(0xFFFFFFFFFFFFFFFF)),
			Entry("addiw", insts.OpADDIW, 0x7FFFFFFF, 1, uint64(0xFFFFFFFF80000000)),
			Entry("slliw", insts.OpSLLIW, 3, 30, uint64(0xFFFFFFFFC0000000)),
			Entry("srliw", insts.OpSRLIW, -1, 28, uint64(0xF)),
			Entry("sraiw", insts.OpSRAIW, 0x80000000, 31, uint64(0xFFFFFFFFFFFFFFFF)),
		)

		It("should keep x0 at zero", func() {
			e := run(in(insts.I(insts.OpADDI, 0, 0, 5), insts.R(insts.OpADD, 7, 0, 0))...)

			Expect(e.RegFile().X[0]).To(BeZero())
			Expect(e.RegFile().ReadReg(0)).To(BeZero())
			Expect(e.RegFile().X[7]).To(BeZero())
		})
	})

	Describe("upper immediates", func() {
		It("should sign-extend lui", func() {
			e := run(in(insts.LUI(5, 0x80000), insts.LUI(6, 0x12345))...)

			Expect(e.RegFile().X[5]).To(Equal(uint64(0xFFFFFFFF80000000)))
			Expect(e.RegFile().X[6]).To(Equal(uint64(0x12345000)))
		})

		It("should add the upper immediate to the PC for auipc", func() {
			e := run(in(insts.NOP(), insts.AUIPC(5, 1))...)

			Expect(e.RegFile().X[5]).To(Equal(uint64(0x1004)))
		})
	})

	Describe("loads and stores", func() {
		It("should store and load a doubleword", func() {
			e := run(seq(
				li(1, 0x1000),
				li(4, 0x123456789ABC),
				in(
					insts.Store(insts.OpSD, 4, 1, 0),
					insts.Load(insts.OpLD, 2, 1, 0),
					insts.R(insts.OpADD, 3, 2, 1),
				),
			)...)

			Expect(e.RegFile().X[2]).To(Equal(uint64(0x123456789ABC)))
			Expect(e.RegFile().X[3]).To(Equal(uint64(0x12345678AABC)))

			v, err := e.Memory().Read64(0x1000)
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal(uint64(0x123456789ABC)))
		})

		It("should sign- and zero-extend narrow loads", func() {
			e := run(seq(
				li(1, 0x800),
				li(4, -2),
				in(
					insts.Store(insts.OpSW, 4, 1, 8),
					insts.Load(insts.OpLB, 10, 1, 8),
					insts.Load(insts.OpLBU, 11, 1, 8),
					insts.Load(insts.OpLH, 12, 1, 8),
					insts.Load(insts.OpLHU, 13, 1, 8),
					insts.Load(insts.OpLW, 14, 1, 8),
					insts.Load(insts.OpLWU, 15, 1, 8),
				),
			)...)

			x := e.RegFile().X
			Expect(x[10]).To(Equal(uint64(0xFFFFFFFFFFFFFFFE)))
			Expect(x[11]).To(Equal(uint64(0xFE)))
			Expect(x[12]).To(Equal(uint64(0xFFFFFFFFFFFFFFFE)))
			Expect(x[13]).To(Equal(uint64(0xFFFE)))
			Expect(x[14]).To(Equal(uint64(0xFFFFFFFFFFFFFFFE)))
			Expect(x[15]).To(Equal(uint64(0xFFFFFFFE)))
		})

		It("should truncate narrow stores", func() {
			e := run(seq(
				li(1, 0x800),
				li(4, 0x1122334455667788),
				in(
					insts.Store(insts.OpSB, 4, 1, 0),
					insts.Store(insts.OpSH, 4, 1, 8),
				),
			)...)

			b, err := e.Memory().ReadUint(0x800, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(Equal(uint64(0x88)))
			h, err := e.Memory().ReadUint(0x808, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(h).To(Equal(uint64(0x7788)))
		})

		It("should report accesses outside memory", func() {
			img, err := asm.Assemble(0, seq(
				li(1, 0x4000),
				in(insts.Load(insts.OpLD, 2, 1, 0)),
				[]asm.Item{asm.L("h"), asm.In(asm.J("h"))},
			))
			Expect(err).NotTo(HaveOccurred())

			e := emu.NewEmulator()
			Expect(e.LoadProgram(0, img.Bytes())).To(Succeed())

			err = e.Run(context.Background())

			var memErr *emu.MemoryError
			Expect(errors.As(err, &memErr)).To(BeTrue())
			Expect(memErr.Addr).To(Equal(uint64(0x4000)))
		})
	})

	Describe("control flow", func() {
		It("should skip the shadow of a taken branch", func() {
			e := run(seq(
				li(10, 1),
				in(insts.Branch(insts.OpBEQ, 0, 0, "target")),
				li(10, 0x55),
				[]asm.Item{asm.L("target")},
			)...)

			Expect(e.RegFile().X[10]).To(Equal(uint64(1)))
		})

		DescribeTable("branch conditions",
			func(op insts.Op, a, b int, taken bool) {
				e := run(seq(
					li(5, int64(a)),
					li(6, int64(b)),
					in(insts.Branch(op, 5, 6, "taken")),
					li(7, 1),
					in(asm.J("done")),
					[]asm.Item{asm.L("taken")},
					li(7, 2),
					[]asm.Item{asm.L("done")},
				)...)

				want := uint64(1)
				if taken {
					want = 2
				}
				Expect(e.RegFile().X[7]).To(Equal(want))
			},
			Entry("beq equal", insts.OpBEQ, 3, 3, true),
			Entry("beq unequal", insts.OpBEQ, 3, 4, false),
			Entry("bne", insts.OpBNE, 3, 4, true),
			Entry("blt signed", insts.OpBLT, -1, 0, true),
			Entry("bge signed", insts.OpBGE, -1, 0, false),
			Entry("bltu unsigned", insts.OpBLTU, -1, 0, false),
			Entry("bgeu unsigned", insts.OpBGEU, -1, 0, true),
		)

		It("should run a counted loop", func() {
			e := run(seq(
				li(5, 5),
				[]asm.Item{asm.L("loop")},
				in(
					insts.I(insts.OpADDI, 6, 6, 3),
					insts.I(insts.OpADDI, 5, 5, -1),
					insts.Branch(insts.OpBNE, 5, 0, "loop"),
				),
			)...)

			Expect(e.RegFile().X[6]).To(Equal(uint64(15)))
		})

		It("should call and return", func() {
			e := run(seq(
				in(insts.JAL(insts.RA, "fn"), asm.J("out")),
				[]asm.Item{asm.L("fn")},
				in(insts.I(insts.OpADDI, 5, 0, 9), insts.JALR(0, insts.RA, 0)),
				[]asm.Item{asm.L("out")},
			)...)

			Expect(e.RegFile().X[5]).To(Equal(uint64(9)))
			Expect(e.RegFile().X[insts.RA]).To(Equal(uint64(4)))
		})
	})

	Describe("halting", func() {
		It("should stop at a self-loop without executing it", func() {
			e := run(in(insts.NOP(), insts.NOP())...)

			Expect(e.RegFile().PC).To(Equal(uint64(8)))
			Expect(e.Steps()).To(Equal(uint64(2)))
		})

		It("should stop at a nop loop", func() {
			img, err := asm.Assemble(0, []asm.Item{
				asm.In(insts.I(insts.OpADDI, 5, 0, 1)),
				asm.L("halt"),
				asm.In(insts.NOP()),
				asm.In(asm.J("halt")),
			})
			Expect(err).NotTo(HaveOccurred())

			e := emu.NewEmulator(emu.WithMaxSteps(100))
			Expect(e.LoadProgram(0, img.Bytes())).To(Succeed())
			Expect(e.Run(context.Background())).To(Succeed())

			Expect(e.RegFile().PC).To(Equal(uint64(8)))
		})

		It("should stop at a given terminal address", func() {
			img, err := asm.Assemble(0, seq(li(5, 1), li(6, 2), []asm.Item{asm.L("h"), asm.In(asm.J("h"))}))
			Expect(err).NotTo(HaveOccurred())

			e := emu.NewEmulator(emu.WithTerminal(4))
			Expect(e.LoadProgram(0, img.Bytes())).To(Succeed())
			Expect(e.Run(context.Background())).To(Succeed())

			Expect(e.RegFile().X[5]).To(Equal(uint64(1)))
			Expect(e.RegFile().X[6]).To(BeZero())
		})

		It("should give up after the step limit", func() {
			img, err := asm.Assemble(0, []asm.Item{
				asm.L("spin"),
				asm.In(insts.I(insts.OpADDI, 5, 5, 1)),
				asm.In(asm.J("spin")),
			})
			Expect(err).NotTo(HaveOccurred())

			e := emu.NewEmulator(emu.WithMaxSteps(50))
			Expect(e.LoadProgram(0, img.Bytes())).To(Succeed())

			Expect(e.Run(context.Background())).To(MatchError(emu.ErrStepLimit))
			Expect(e.Steps()).To(Equal(uint64(50)))
		})

		It("should honor context cancellation", func() {
			img, err := asm.Assemble(0, []asm.Item{
				asm.L("spin"),
				asm.In(insts.I(insts.OpADDI, 5, 5, 1)),
				asm.In(asm.J("spin")),
			})
			Expect(err).NotTo(HaveOccurred())

			e := emu.NewEmulator()
			Expect(e.LoadProgram(0, img.Bytes())).To(Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			Expect(e.Run(ctx)).To(MatchError(context.Canceled))
		})

		It("should reject words it cannot execute", func() {
			e := emu.NewEmulator()
			Expect(e.LoadProgram(0, []byte{0x8B, 0xA4, 0x62, 0x00})).To(Succeed())

			err := e.Run(context.Background())

			var illegal *emu.IllegalInstructionError
			Expect(errors.As(err, &illegal)).To(BeTrue())
			Expect(illegal.Word).To(Equal(uint32(0x0062A48B)))
		})
	})
})
