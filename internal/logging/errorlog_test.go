package logging_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fieldnotes/relay/internal/logging"
)

var _ = Describe("logging.NewFileLogger", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "relay-logging-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("creates logs/error.log under the given root and appends to it", func() {
		l, closer, err := logging.NewFileLogger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		defer closer.Close()

		l.Infow("backend request failed", "url", "https://example.com")

		path := filepath.Join(tmpDir, "logs", "error.log")
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("backend request failed"))
		Expect(string(data)).To(ContainSubstring("url"))
	})

	It("redacts secrets before they reach the file", func() {
		l, closer, err := logging.NewFileLogger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		defer closer.Close()

		l.Infow("authenticating", "api_key", "sk-super-secret")

		data, err := os.ReadFile(filepath.Join(tmpDir, "logs", "error.log"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).NotTo(ContainSubstring("sk-super-secret"))
		Expect(string(data)).To(ContainSubstring("[REDACTED]"))
	})

	It("appends across repeated opens instead of truncating", func() {
		l1, closer1, err := logging.NewFileLogger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		l1.Infow("first line")
		closer1.Close()

		l2, closer2, err := logging.NewFileLogger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		defer closer2.Close()
		l2.Infow("second line")

		data, err := os.ReadFile(filepath.Join(tmpDir, "logs", "error.log"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("first line"))
		Expect(string(data)).To(ContainSubstring("second line"))
	})
})
