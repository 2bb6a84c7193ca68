package loader_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhazard/config"
	"github.com/sarchlab/rvhazard/emu"
	"github.com/sarchlab/rvhazard/hazard"
	"github.com/sarchlab/rvhazard/loader"
	"github.com/sarchlab/rvhazard/program"
)

var _ = Describe("Running a linked image", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.DefaultConfig()
	})

	It("should execute an assembled program packaged as an RV64 ELF", func() {
		seq, err := hazard.Lookup(cfg, "load-use")
		Expect(err).NotTo(HaveOccurred())
		p, err := program.Build(cfg, seq)
		Expect(err).NotTo(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), p.Name()+".elf")
		writeELF(path, machineRISCV, p.Entry, []segmentSpec{
			{addr: cfg.LoadAddress, flags: 0x5, data: p.Image.Bytes()},
		})

		img, err := loader.Load(path, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Entry).To(Equal(p.Entry))

		mem := emu.NewMemory(cfg.LoadAddress, cfg.MemorySize)
		Expect(img.LoadInto(mem)).To(Succeed())
		e := emu.NewEmulator(emu.WithMemory(mem), emu.WithMaxSteps(cfg.MaxSteps))
		e.RegFile().PC = img.Entry

		Expect(e.Run(context.Background())).To(Succeed())

		Expect(e.RegFile().PC).To(Equal(p.Terminal))
		for reg, want := range seq.Values() {
			Expect(e.RegFile().X[reg]).To(Equal(want), "%s", reg)
		}
		Expect(p.Protocol.Interpret(e.RegFile().X[p.Protocol.Result]).Passed).To(BeTrue())
	})
})
