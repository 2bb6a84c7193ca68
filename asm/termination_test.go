package asm_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhazard/asm"
	"github.com/sarchlab/rvhazard/insts"
)

var _ = Describe("CheckTermination", func() {
	nop := insts.NOP
	addi := func(rd insts.Reg, imm int64) insts.Instruction {
		return insts.I(insts.OpADDI, rd, insts.X0, imm)
	}

	expectKind := func(err error, sentinel error, index int) {
		Expect(errors.Is(err, sentinel)).To(BeTrue(), "got %v", err)
		var seqErr *asm.SequenceError
		Expect(errors.As(err, &seqErr)).To(BeTrue())
		Expect(seqErr.Index).To(Equal(index))
	}

	It("should accept a straight line ending in a self-loop", func() {
		terminal, err := asm.CheckTermination([]asm.Item{
			asm.In(addi(5, 1)),
			asm.L("halt"),
			asm.In(asm.J("halt")),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(terminal).To(Equal(2))
	})

	It("should accept a nop loop", func() {
		terminal, err := asm.CheckTermination([]asm.Item{
			asm.In(addi(5, 1)),
			asm.L("halt"),
			asm.In(nop()),
			asm.In(nop()),
			asm.In(asm.J("halt")),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(terminal).To(Equal(4))
	})

	It("should accept a self-loop written as an offset", func() {
		terminal, err := asm.CheckTermination([]asm.Item{
			asm.In(insts.JALOffset(0, 0)),
		})

		Expect(err).NotTo(HaveOccurred())
		Expect(terminal).To(Equal(0))
	})

	It("should accept branches whose paths both reach the terminal", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(insts.Branch(insts.OpBEQ, 5, 6, "taken")),
			asm.In(addi(7, 1)),
			asm.In(asm.J("halt")),
			asm.L("taken"),
			asm.In(addi(7, 2)),
			asm.L("halt"),
			asm.In(asm.J("halt")),
		})

		Expect(err).NotTo(HaveOccurred())
	})

	It("should accept a bounded loop", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(addi(5, 3)),
			asm.L("loop"),
			asm.In(insts.I(insts.OpADDI, 5, 5, -1)),
			asm.In(insts.Branch(insts.OpBNE, 5, 0, "loop")),
			asm.L("halt"),
			asm.In(asm.J("halt")),
		})

		Expect(err).NotTo(HaveOccurred())
	})

	It("should accept a call that returns", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(insts.JAL(insts.RA, "fn")),
			asm.L("halt"),
			asm.In(asm.J("halt")),
			asm.L("fn"),
			asm.In(addi(5, 1)),
			asm.In(insts.JALR(0, insts.RA, 0)),
		})

		Expect(err).NotTo(HaveOccurred())
	})

	It("should reject a sequence without a terminal", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(addi(5, 1)),
		})

		expectKind(err, asm.ErrUnreachableTerminal, -1)
	})

	It("should reject an empty sequence", func() {
		_, err := asm.CheckTermination(nil)

		expectKind(err, asm.ErrUnreachableTerminal, -1)
	})

	It("should reject a path that falls off the end", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(insts.Branch(insts.OpBEQ, 5, 6, "tail")),
			asm.L("halt"),
			asm.In(asm.J("halt")),
			asm.L("tail"),
			asm.In(addi(7, 1)),
		})

		expectKind(err, asm.ErrUnreachableTerminal, 4)
	})

	It("should reject a terminal that is never reached", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.L("spin"),
			asm.In(addi(5, 1)),
			asm.In(asm.J("spin")),
			asm.L("halt"),
			asm.In(asm.J("halt")),
		})

		Expect(errors.Is(err, asm.ErrUnreachableTerminal)).To(BeTrue())
	})

	It("should reject a reachable loop that never exits", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(insts.Branch(insts.OpBEQ, 5, 6, "halt")),
			asm.L("spin"),
			asm.In(addi(5, 1)),
			asm.In(asm.J("spin")),
			asm.L("halt"),
			asm.In(asm.J("halt")),
		})

		Expect(errors.Is(err, asm.ErrUnreachableTerminal)).To(BeTrue())
	})

	It("should reject indirect jumps other than returns", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(insts.JALR(0, 5, 0)),
			asm.L("halt"),
			asm.In(asm.J("halt")),
		})

		expectKind(err, asm.ErrUnreachableTerminal, 0)
	})

	It("should reject multiple terminals", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(insts.Branch(insts.OpBEQ, 5, 6, "b")),
			asm.L("a"),
			asm.In(asm.J("a")),
			asm.L("b"),
			asm.In(asm.J("b")),
		})

		expectKind(err, asm.ErrMultipleTerminals, 4)
	})

	It("should reject duplicate labels", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.L("halt"),
			asm.L("halt"),
			asm.In(asm.J("halt")),
		})

		expectKind(err, asm.ErrDuplicateLabel, 1)
	})

	It("should report unresolved labels", func() {
		_, err := asm.CheckTermination([]asm.Item{
			asm.In(insts.Branch(insts.OpBEQ, 5, 6, "missing")),
			asm.L("halt"),
			asm.In(asm.J("halt")),
		})

		Expect(errors.Is(err, insts.ErrUnresolvedLabel)).To(BeTrue())
	})
})
