package asm_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/insts"
)

var _ = Describe("CheckInitialized", func() {
	li := func(rd insts.Reg, imm int64) asm.Item {
		return asm.In(insts.I(insts.OpADDI, rd, insts.X0, imm))
	}
	add := func(rd, rs1, rs2 insts.Reg) asm.Item {
		return asm.In(insts.R(insts.OpADD, rd, rs1, rs2))
	}
	halt := []asm.Item{asm.L("halt"), asm.In(asm.J("halt"))}

	expectIndex := func(err error, index int) {
		Expect(errors.Is(err, asm.ErrUninitializedRead)).To(BeTrue(), "got %v", err)
		var seqErr *asm.SequenceError
		Expect(errors.As(err, &seqErr)).To(BeTrue())
		Expect(seqErr.Index).To(Equal(index))
	}

	It("should accept reads after writes", func() {
		items := append([]asm.Item{li(5, 1), li(6, 2), add(7, 5, 6)}, halt...)

		Expect(asm.CheckInitialized(items)).To(Succeed())
	})

	It("should reject a read of a register that was never written", func() {
		items := append([]asm.Item{add(7, 5, 6), add(8, 7, 0)}, halt...)

		expectIndex(asm.CheckInitialized(items), 0)
	})

	It("should treat x0 and the initial registers as written", func() {
		items := append([]asm.Item{
			asm.In(insts.Store(insts.OpSD, insts.SP, insts.X0, -8)),
		}, halt...)

		Expect(asm.CheckInitialized(items)).NotTo(Succeed())
		Expect(asm.CheckInitialized(items, insts.SP)).To(Succeed())
	})

	It("should reject a register written on only one branch path", func() {
		items := append([]asm.Item{
			li(5, 1),
			asm.In(insts.Branch(insts.OpBEQ, 5, 0, "skip")),
			li(6, 2),
			asm.L("skip"),
			add(7, 6, 5),
		}, halt...)

		expectIndex(asm.CheckInitialized(items), 4)
	})

	It("should accept a register written on both branch paths", func() {
		items := append([]asm.Item{
			li(5, 1),
			asm.In(insts.Branch(insts.OpBEQ, 5, 0, "other")),
			li(6, 2),
			asm.In(asm.J("join")),
			asm.L("other"),
			li(6, 3),
			asm.L("join"),
			add(7, 6, 5),
		}, halt...)

		Expect(asm.CheckInitialized(items)).To(Succeed())
	})

	It("should carry writes made inside a loop body", func() {
		items := append([]asm.Item{
			li(5, 3),
			asm.L("loop"),
			asm.In(insts.I(insts.OpADDI, 5, 5, -1)),
			asm.In(insts.Branch(insts.OpBNE, 5, 0, "loop")),
		}, halt...)

		Expect(asm.CheckInitialized(items)).To(Succeed())
	})
})
