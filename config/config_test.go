package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvhazard/config"
)

var _ = Describe("Config", func() {
	Describe("DefaultConfig", func() {
		It("should describe 8 KiB of memory with the stack at its top", func() {
			c := config.DefaultConfig()

			Expect(c.LoadAddress).To(Equal(uint64(0)))
			Expect(c.MemorySize).To(Equal(uint64(0x2000)))
			Expect(c.StackTop).To(Equal(uint64(0x2000)))
			Expect(c.ResultRegister).To(Equal(uint8(31)))
			Expect(c.PassCode).To(Equal(uint64(0x7FF)))
			Expect(c.HaltIdiom).To(Equal(config.HaltSelfLoop))
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Validate", func() {
		var c *config.Config

		BeforeEach(func() {
			c = config.DefaultConfig()
		})

		DescribeTable("should reject invalid values",
			func(mutate func(*config.Config), msg string) {
				mutate(c)
				Expect(c.Validate()).To(MatchError(ContainSubstring(msg)))
			},
			Entry("zero memory", func(c *config.Config) { c.MemorySize = 0 }, "memory_size"),
			Entry("stack above memory", func(c *config.Config) { c.StackTop = 0x3000 }, "stack_top"),
			Entry("stack at load address", func(c *config.Config) { c.StackTop = 0 }, "stack_top"),
			Entry("misaligned stack", func(c *config.Config) { c.StackTop = 0x1FF8 }, "aligned"),
			Entry("result in x0", func(c *config.Config) { c.ResultRegister = 0 }, "result_register"),
			Entry("result in sp", func(c *config.Config) { c.ResultRegister = 2 }, "stack pointer"),
			Entry("unknown halt", func(c *config.Config) { c.HaltIdiom = "wfi" }, "halt_idiom"),
			Entry("empty entry", func(c *config.Config) { c.EntryLabel = "" }, "entry_label"),
		)
	})

	Describe("LoadConfig and SaveConfig", func() {
		var dir string

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
		})

		It("should round-trip through a file", func() {
			path := filepath.Join(dir, "cfg.json")
			c := config.DefaultConfig()
			c.ResultRegister = 10
			c.HaltIdiom = config.HaltNopLoop

			Expect(c.SaveConfig(path)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(c))
		})

		It("should keep defaults for missing fields", func() {
			path := filepath.Join(dir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"stack_top": 4096}`), 0644)).To(Succeed())

			loaded, err := config.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.StackTop).To(Equal(uint64(4096)))
			Expect(loaded.ResultRegister).To(Equal(uint8(31)))
		})

		It("should wrap read errors", func() {
			_, err := config.LoadConfig(filepath.Join(dir, "missing.json"))
			Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
		})
	})

	Describe("ApplyEnv", func() {
		It("should override fields from the environment", func() {
			GinkgoT().Setenv(config.EnvStackTop, "0x1000")
			GinkgoT().Setenv(config.EnvResultRegister, "10")
			GinkgoT().Setenv(config.EnvHaltIdiom, "nop-loop")

			c := config.DefaultConfig()
			Expect(c.ApplyEnv()).To(Succeed())

			Expect(c.StackTop).To(Equal(uint64(0x1000)))
			Expect(c.ResultRegister).To(Equal(uint8(10)))
			Expect(c.HaltIdiom).To(Equal(config.HaltNopLoop))
		})

		It("should see variables changed after an earlier call", func() {
			GinkgoT().Setenv(config.EnvStackTop, "0x1000")
			first := config.DefaultConfig()
			Expect(first.ApplyEnv()).To(Succeed())
			Expect(first.StackTop).To(Equal(uint64(0x1000)))

			GinkgoT().Setenv(config.EnvStackTop, "0x1800")
			second := config.DefaultConfig()
			Expect(second.ApplyEnv()).To(Succeed())

			Expect(second.StackTop).To(Equal(uint64(0x1800)))
		})

		It("should reject malformed numbers", func() {
			GinkgoT().Setenv(config.EnvMemorySize, "lots")

			Expect(config.DefaultConfig().ApplyEnv()).To(MatchError(ContainSubstring(config.EnvMemorySize)))
		})
	})

	Describe("Clone", func() {
		It("should not share state with the original", func() {
			c := config.DefaultConfig()
			clone := c.Clone()
			clone.StackTop = 0x1000

			Expect(c.StackTop).To(Equal(uint64(0x2000)))
		})
	})
})
