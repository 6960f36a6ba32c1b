package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
)

var _ = Describe("Logger", func() {
	It("should honor the level", func() {
		var buf bytes.Buffer
		cfg := DefaultConfig()
		cfg.Level = "warn"

		logger, err := New(cfg, &buf)
		Expect(err).NotTo(HaveOccurred())

		logger.Info("hidden")
		logger.Warn("shown")

		Expect(buf.String()).NotTo(ContainSubstring("hidden"))
		Expect(buf.String()).To(ContainSubstring("shown"))
		Expect(logger.GetLevel()).To(Equal(logrus.WarnLevel))
	})

	It("should write json", func() {
		var buf bytes.Buffer
		cfg := DefaultConfig()
		cfg.Format = "json"

		logger, err := New(cfg, &buf)
		Expect(err).NotTo(HaveOccurred())

		logger.WithField("cycle", 7).Info("tick")

		entry := map[string]interface{}{}
		Expect(json.Unmarshal(buf.Bytes(), &entry)).To(Succeed())
		Expect(entry["msg"]).To(Equal("tick"))
		Expect(entry["cycle"]).To(BeNumerically("==", 7))
	})

	It("should also write to a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "usbsniff.log")
		cfg := DefaultConfig()
		cfg.File.Path = path

		logger, err := New(cfg, &bytes.Buffer{})
		Expect(err).NotTo(HaveOccurred())

		logger.Info("to file")

		content, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("to file"))
	})

	DescribeTable("invalid configs",
		func(mutate func(c *Config)) {
			cfg := DefaultConfig()
			mutate(&cfg)

			Expect(cfg.Validate()).NotTo(Succeed())

			_, err := New(cfg, nil)
			Expect(err).To(HaveOccurred())
		},
		Entry("level", func(c *Config) { c.Level = "loud" }),
		Entry("format", func(c *Config) { c.Format = "xml" }),
	)
})
