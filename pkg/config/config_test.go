package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/papercomputeco/engram/pkg/config"
)

var _ = Describe("Load", func() {
	It("applies defaults when nothing else is set", func() {
		cfg, err := config.Load("", nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.LogLevel).To(Equal("info"))
		Expect(cfg.Storage.Driver).To(Equal("memory"))
		Expect(cfg.Vector.Driver).To(Equal("memory"))
		Expect(cfg.Events.Driver).To(Equal("nop"))
		Expect(cfg.Search.Alpha).To(Equal(0.5))
		Expect(cfg.Search.RRFK).To(Equal(60))
		Expect(cfg.Scheduler.SweepEvery).To(Equal(5 * time.Minute))
		Expect(cfg.Sync.Strategy).To(Equal("last_write_wins"))
		Expect(cfg.NodeID).NotTo(BeEmpty())
	})

	It("reads a config file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "engram.yaml")
		Expect(os.WriteFile(path, []byte(`
log_level: debug
storage:
  driver: sqlite
  path: /tmp/test.db
search:
  alpha: 0.6
  beta: 0.2
  gamma: 0.2
`), 0o600)).To(Succeed())

		cfg, err := config.Load(path, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LogLevel).To(Equal("debug"))
		Expect(cfg.Storage.Driver).To(Equal("sqlite"))
		Expect(cfg.Storage.Path).To(Equal("/tmp/test.db"))
		Expect(cfg.Search.Alpha).To(Equal(0.6))
	})

	It("lets environment variables override defaults", func() {
		GinkgoT().Setenv("ENGRAM_STORAGE_DRIVER", "sqlite")
		GinkgoT().Setenv("ENGRAM_LOG_LEVEL", "warn")

		cfg, err := config.Load("", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Storage.Driver).To(Equal("sqlite"))
		Expect(cfg.LogLevel).To(Equal("warn"))
	})

	It("gives flags the highest precedence", func() {
		GinkgoT().Setenv("ENGRAM_LOG_LEVEL", "warn")

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		config.RegisterFlags(fs)
		Expect(fs.Parse([]string{"--log-level=error"})).To(Succeed())

		cfg, err := config.Load("", fs)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LogLevel).To(Equal("error"))
	})

	It("fails on an explicit config file that does not exist", func() {
		_, err := config.Load("/nonexistent/engram.yaml", nil)
		Expect(err).To(HaveOccurred())
	})
})
