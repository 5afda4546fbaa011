package driver_test

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fieldnotes/relay/internal/driver"
)

func TestDriver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Driver Suite")
}

var _ = Describe("ComposePrompt", func() {
	It("composes system, files, and user prompt in order", func() {
		files := []driver.FileInclusion{{Path: "a.txt", Content: "contents of a"}}
		got := driver.ComposePrompt("be terse", files, "what is this?")

		Expect(got).To(Equal("System: be terse\n\nFile: a.txt\n```\ncontents of a\n```\n\nwhat is this?"))
	})

	It("omits the System line when system is empty", func() {
		got := driver.ComposePrompt("", nil, "hello")
		Expect(got).To(Equal("hello"))
	})

	It("preserves the order of multiple file inclusions", func() {
		files := []driver.FileInclusion{
			{Path: "first.txt", Content: "1"},
			{Path: "second.txt", Content: "2"},
		}
		got := driver.ComposePrompt("", files, "go")
		Expect(strings.Index(got, "first.txt")).To(BeNumerically("<", strings.Index(got, "second.txt")))
	})
})

var _ = Describe("LoadFileInclusion", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "relay-driver-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("loads a small UTF-8 text file with no warnings", func() {
		path := filepath.Join(tmpDir, "note.txt")
		Expect(os.WriteFile(path, []byte("hello\tworld\n"), 0o644)).To(Succeed())

		inc, warnings, err := driver.LoadFileInclusion(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(inc.Content).To(Equal("hello\tworld\n"))
		Expect(warnings).To(BeEmpty())
	})

	It("errors for a missing path", func() {
		_, _, err := driver.LoadFileInclusion(filepath.Join(tmpDir, "missing.txt"))
		Expect(err).To(HaveOccurred())
	})

	It("errors on a disallowed control character", func() {
		path := filepath.Join(tmpDir, "bad.txt")
		Expect(os.WriteFile(path, []byte("hello\x01world"), 0o644)).To(Succeed())

		_, _, err := driver.LoadFileInclusion(path)
		Expect(err).To(HaveOccurred())
	})

	It("errors on invalid UTF-8", func() {
		path := filepath.Join(tmpDir, "invalid-utf8.txt")
		Expect(os.WriteFile(path, []byte{0xff, 0xfe, 0xfd}, 0o644)).To(Succeed())

		_, _, err := driver.LoadFileInclusion(path)
		Expect(err).To(HaveOccurred())
	})

	It("warns above 1 MiB and hard-errors above 10 MiB", func() {
		warnPath := filepath.Join(tmpDir, "warn.txt")
		Expect(os.WriteFile(warnPath, bytes.Repeat([]byte("a"), (1<<20)+1), 0o644)).To(Succeed())

		_, warnings, err := driver.LoadFileInclusion(warnPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(warnings).NotTo(BeEmpty())

		errPath := filepath.Join(tmpDir, "toobig.txt")
		Expect(os.WriteFile(errPath, bytes.Repeat([]byte("a"), (10<<20)+1), 0o644)).To(Succeed())

		_, _, err = driver.LoadFileInclusion(errPath)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ValidateParams", func() {
	It("accepts valid parameters", func() {
		_, err := driver.ValidateParams(driver.Params{Prompt: "hello", Temperature: 0.7, MaxTokens: 512})
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects temperature out of range", func() {
		_, err := driver.ValidateParams(driver.Params{Prompt: "hi", Temperature: 2.1, MaxTokens: 10})
		Expect(err).To(HaveOccurred())
	})

	It("rejects non-finite temperature", func() {
		_, err := driver.ValidateParams(driver.Params{Prompt: "hi", Temperature: math.Inf(1), MaxTokens: 10})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a zero or negative max_tokens", func() {
		_, err := driver.ValidateParams(driver.Params{Prompt: "hi", Temperature: 0.5, MaxTokens: 0})
		Expect(err).To(HaveOccurred())
	})

	It("rejects an empty prompt after trim", func() {
		_, err := driver.ValidateParams(driver.Params{Prompt: "   ", Temperature: 0.5, MaxTokens: 10})
		Expect(err).To(HaveOccurred())
	})

	It("warns above the advisory prompt-length and max_tokens thresholds", func() {
		warnings, err := driver.ValidateParams(driver.Params{
			Prompt:      strings.Repeat("a", 100_001),
			Temperature: 0.5,
			MaxTokens:   100_001,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(len(warnings)).To(Equal(2))
	})
})

var _ = Describe("SignalExitCode", func() {
	It("maps SIGINT to 130", func() {
		Expect(driver.SignalExitCode(2)).To(Equal(driver.ExitSignalSIGINT))
	})

	It("maps SIGTERM to 143", func() {
		Expect(driver.SignalExitCode(15)).To(Equal(driver.ExitSignalSIGTERM))
	})
})

var _ = Describe("output formatters", func() {
	It("PlainFormatter writes the content with a trailing newline", func() {
		var buf bytes.Buffer
		Expect(driver.PlainFormatter{}.Format(&buf, driver.TurnResult{Content: "hi"})).To(Succeed())
		Expect(buf.String()).To(Equal("hi\n"))
	})

	It("QuietFormatter writes nothing on success", func() {
		var buf bytes.Buffer
		Expect(driver.QuietFormatter{}.Format(&buf, driver.TurnResult{Content: "hi"})).To(Succeed())
		Expect(buf.String()).To(BeEmpty())
	})

	It("QuietFormatter writes the error message on failure", func() {
		var buf bytes.Buffer
		Expect(driver.QuietFormatter{}.Format(&buf, driver.TurnResult{ErrMessage: "boom"})).To(Succeed())
		Expect(buf.String()).To(Equal("boom\n"))
	})

	It("JSONFormatter writes a single JSON object", func() {
		var buf bytes.Buffer
		Expect(driver.JSONFormatter{}.Format(&buf, driver.TurnResult{Content: "hi", Model: "llama2"})).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(`"content":"hi"`))
		Expect(buf.String()).To(ContainSubstring(`"model":"llama2"`))
	})
})
