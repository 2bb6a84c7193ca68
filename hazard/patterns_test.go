package hazard_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/hazard"
	"github.com/sarchlab/rvhazard/insts"
)

var _ = Describe("Patterns", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	Describe("LoadUse", func() {
		It("should expect the loaded value plus the base", func() {
			seq, err := hazard.NewLoadUse(cfg, hazard.LoadUseSpec{
				Name:  "lu",
				Addr:  0x1000,
				Value: 0x1234,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Category).To(Equal(hazard.LoadUse))
			Expect(seq.Expect[3].Value).To(Equal(uint64(0x2234)))
			Expect(seq.Expect[3].Category).To(Equal(hazard.LoadUse))
			Expect(seq.Expect[2].Value).To(Equal(uint64(0x1234)))
			Expect(seq.Scratch).To(ConsistOf(uint64(0x1000)))
		})

		It("should place the consumer right after the load", func() {
			seq, err := hazard.NewLoadUse(cfg, hazard.LoadUseSpec{Name: "lu", Addr: 0x1000, Value: 5})
			Expect(err).NotTo(HaveOccurred())

			list := seq.Instructions()
			for i, inst := range list {
				if inst.Op == insts.OpLD {
					Expect(list[i+1]).To(Equal(insts.R(insts.OpADD, 3, 2, 1)))
					return
				}
			}
			Fail("no load in sequence")
		})

		It("should honor custom registers", func() {
			seq, err := hazard.NewLoadUse(cfg, hazard.LoadUseSpec{
				Name: "lu", Addr: 0x1008, Value: -1,
				Base: 20, Seed: 21, Loaded: 22, Result: 23,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Expect[23].Value).To(Equal(uint64(0x1007)))
		})

		It("should reject misaligned addresses", func() {
			_, err := hazard.NewLoadUse(cfg, hazard.LoadUseSpec{Name: "lu", Addr: 0x1004})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ControlFlush", func() {
		writes := func(leak bool) []hazard.ShadowWrite {
			return []hazard.ShadowWrite{
				{Reg: 10, Before: 1, Shadow: 0x55},
				{Reg: 11, Before: 2, Shadow: 0x66, Leak: leak},
			}
		}

		It("should expect pre-branch values for a correct flush", func() {
			seq, err := hazard.NewControlFlush(cfg, hazard.ControlFlushSpec{Name: "cf", Writes: writes(false)})

			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Expect[10]).To(MatchFields(10, 1, hazard.ExpectCorrect))
			Expect(seq.Expect[11]).To(MatchFields(11, 2, hazard.ExpectCorrect))
			Expect(seq.ExpectationsOf(hazard.ExpectLeak)).To(BeEmpty())
		})

		It("should distinguish a leak expectation from a correct one", func() {
			correct, err := hazard.NewControlFlush(cfg, hazard.ControlFlushSpec{Name: "cf", Writes: writes(false)})
			Expect(err).NotTo(HaveOccurred())
			leak, err := hazard.NewControlFlush(cfg, hazard.ControlFlushSpec{Name: "cf-leak", Writes: writes(true)})
			Expect(err).NotTo(HaveOccurred())

			Expect(leak.Expect[11]).To(MatchFields(11, 0x66, hazard.ExpectLeak))
			Expect(leak.Expect[11]).NotTo(Equal(correct.Expect[11]))
			Expect(leak.Expect[10]).To(Equal(correct.Expect[10]))
			Expect(leak.ExpectationsOf(hazard.ExpectLeak)).To(HaveLen(1))
		})

		It("should use a jump when asked", func() {
			seq, err := hazard.NewControlFlush(cfg, hazard.ControlFlushSpec{
				Name: "cf", Jump: true, Writes: writes(false),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Instructions()).To(ContainElement(insts.JAL(0, "flush_target")))
		})

		It("should reject shadow writes that change nothing", func() {
			_, err := hazard.NewControlFlush(cfg, hazard.ControlFlushSpec{
				Name:   "cf",
				Writes: []hazard.ShadowWrite{{Reg: 10, Before: 5, Shadow: 5}},
			})

			Expect(err).To(HaveOccurred())
		})

		It("should reject a flush without shadow writes", func() {
			_, err := hazard.NewControlFlush(cfg, hazard.ControlFlushSpec{Name: "cf"})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ForwardingPriority", func() {
		It("should expect the youngest write", func() {
			seq, err := hazard.NewForwardingPriority(cfg, hazard.ForwardingSpec{
				Name: "fwd", Reg: 5, Reader: 6, Values: []int64{1, 2, 3},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Expect[6].Value).To(Equal(uint64(3)))
			Expect(seq.Expect[6].Category).To(Equal(hazard.Forwarding))
		})

		It("should reject values that need more than one instruction", func() {
			_, err := hazard.NewForwardingPriority(cfg, hazard.ForwardingSpec{
				Name: "fwd", Reg: 5, Reader: 6, Values: []int64{1, 5000},
			})

			Expect(err).To(HaveOccurred())
		})

		It("should reject a single write", func() {
			_, err := hazard.NewForwardingPriority(cfg, hazard.ForwardingSpec{
				Name: "fwd", Reg: 5, Reader: 6, Values: []int64{1},
			})

			Expect(err).To(HaveOccurred())
		})

		It("should accept a reader that is the written register", func() {
			seq, err := hazard.NewForwardingPriority(cfg, hazard.ForwardingSpec{
				Name: "fwd-self", Reg: 5, Reader: 5, Values: []int64{1, 2},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Expect[5].Value).To(Equal(uint64(2)))
			Expect(seq.Expect[5].Category).To(Equal(hazard.Forwarding))
		})

		It("should reject equal final writes", func() {
			_, err := hazard.NewForwardingPriority(cfg, hazard.ForwardingSpec{
				Name: "fwd", Reg: 5, Reader: 6, Values: []int64{4, 4},
			})

			Expect(err).To(MatchError(ContainSubstring("last two writes")))
		})

		It("should reject gaps beyond the forwarding window", func() {
			_, err := hazard.NewForwardingPriority(cfg, hazard.ForwardingSpec{
				Name: "fwd", Reg: 5, Reader: 6, Values: []int64{1, 2}, Gap: 2,
			})

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ExtensionOp", func() {
		It("should check raw-form sh1add by its destination", func() {
			seq, err := hazard.NewExtensionOp(cfg, hazard.ExtensionSpec{
				Name:   "sh1add",
				Inputs: []hazard.RegValue{{Reg: 5, Value: 10}, {Reg: 6, Value: 20}},
				Insts: []hazard.ExtensionInst{{
					Opcode: 0x33, Funct3: 0x2, Funct7: 0x10,
					Rd: 9, Rs1: 5, Rs2: 6, Want: 40,
				}},
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(seq.Category).To(Equal(hazard.Extension))
			Expect(seq.Expect[9].Value).To(Equal(uint64(40)))
			Expect(seq.Instructions()).To(ContainElement(insts.Raw(0x33, 0x2, 0x10, 9, 5, 6)))
		})

		It("should reject raw fields that overflow", func() {
			_, err := hazard.NewExtensionOp(cfg, hazard.ExtensionSpec{
				Name:  "bad",
				Insts: []hazard.ExtensionInst{{Opcode: 0x80, Rd: 9}},
			})

			Expect(err).To(MatchError(insts.ErrFieldOverflow))
		})
	})
})

// MatchFields matches an expectation's register, value and kind.
func MatchFields(reg insts.Reg, value uint64, kind hazard.ExpectKind) OmegaMatcher {
	return And(
		WithTransform(func(e hazard.Expectation) insts.Reg { return e.Reg }, Equal(reg)),
		WithTransform(func(e hazard.Expectation) uint64 { return e.Value }, Equal(value)),
		WithTransform(func(e hazard.Expectation) hazard.ExpectKind { return e.Kind }, Equal(kind)),
	)
}
