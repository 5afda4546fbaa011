package backend_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fieldnotes/relay/internal/backend"
	"github.com/fieldnotes/relay/internal/cancel"
	"github.com/fieldnotes/relay/internal/logging"
)

func TestBackend(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Backend Suite")
}

var _ = Describe("Client.FetchModels", func() {
	var client *backend.Client

	BeforeEach(func() {
		client = backend.NewClient(5*time.Second, logging.Nop())
	})

	It("parses a flat array of strings", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `["llama2","mistral"]`)
		}))
		defer srv.Close()

		models, err := client.FetchModels(context.Background(), srv.URL, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(models).To(Equal([]string{"llama2", "mistral"}))
	})

	It("parses the {models: [{name}]} wrapper shape", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"models":[{"name":"llama2"},{"name":"mistral"}]}`)
		}))
		defer srv.Close()

		models, err := client.FetchModels(context.Background(), srv.URL, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(models).To(Equal([]string{"llama2", "mistral"}))
	})

	It("parses the {data: [{id}]} wrapper shape", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[{"id":"llama2"},{"id":"mistral"}]}`)
		}))
		defer srv.Close()

		models, err := client.FetchModels(context.Background(), srv.URL, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(models).To(Equal([]string{"llama2", "mistral"}))
	})

	It("fails on an empty model list", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[]`)
		}))
		defer srv.Close()

		_, err := client.FetchModels(context.Background(), srv.URL, "")
		Expect(err).To(HaveOccurred())
	})

	It("fails on an unrecognized shape", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"unexpected":true}`)
		}))
		defer srv.Close()

		_, err := client.FetchModels(context.Background(), srv.URL, "")
		Expect(err).To(HaveOccurred())
	})

	It("fails on a non-2xx status", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := client.FetchModels(context.Background(), srv.URL, "")
		Expect(err).To(HaveOccurred())
	})

	It("sends the bearer token when an API key is set", func() {
		var gotAuth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			fmt.Fprint(w, `["llama2"]`)
		}))
		defer srv.Close()

		_, err := client.FetchModels(context.Background(), srv.URL, "secret-token")
		Expect(err).NotTo(HaveOccurred())
		Expect(gotAuth).To(Equal("Bearer secret-token"))
	})
})

var _ = Describe("Client.SendPromptStreaming", func() {
	var client *backend.Client

	BeforeEach(func() {
		client = backend.NewClient(5*time.Second, logging.Nop())
	})

	It("concatenates response fragments in delivery order and stops at done", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"response":"He","done":false}`)
			fmt.Fprintln(w, `{"response":"llo","done":false}`)
			fmt.Fprintln(w, `{"response":" world","done":true}`)
		}))
		defer srv.Close()

		var chunks []string
		full, err := client.SendPromptStreaming(context.Background(), srv.URL, "", "llama2", "", "hi", nil, func(text string) bool {
			chunks = append(chunks, text)
			return true
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(full).To(Equal("Hello world"))
		Expect(chunks).To(Equal([]string{"He", "llo", " world"}))
	})

	It("skips blank lines and malformed JSON lines without aborting", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, ``)
			fmt.Fprintln(w, `not json`)
			fmt.Fprintln(w, `{"response":"ok","done":true}`)
		}))
		defer srv.Close()

		full, err := client.SendPromptStreaming(context.Background(), srv.URL, "", "llama2", "", "hi", nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(full).To(Equal("ok"))
	})

	It("stops consuming when the shared cancellation flag is set", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			flusher, _ := w.(http.Flusher)
			fmt.Fprintln(w, `{"response":"He","done":false}`)
			if flusher != nil {
				flusher.Flush()
			}
			fmt.Fprintln(w, `{"response":"llo","done":false}`)
			fmt.Fprintln(w, `{"response":" world","done":true}`)
		}))
		defer srv.Close()

		flag := cancel.New()
		full, err := client.SendPromptStreaming(context.Background(), srv.URL, "", "llama2", "", "hi", flag, func(text string) bool {
			flag.Cancel()
			return true
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(full).To(Equal("He"))
	})

	It("stops consuming when onChunk returns false", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"response":"He","done":false}`)
			fmt.Fprintln(w, `{"response":"llo","done":false}`)
			fmt.Fprintln(w, `{"response":" world","done":true}`)
		}))
		defer srv.Close()

		full, err := client.SendPromptStreaming(context.Background(), srv.URL, "", "llama2", "", "hi", nil, func(text string) bool {
			return false
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(full).To(Equal("He"))
	})

	It("prepends the system prompt to the user prompt", func() {
		var gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var buf strings.Builder
			buf.ReadFrom(r.Body)
			gotBody = buf.String()
			fmt.Fprintln(w, `{"response":"ok","done":true}`)
		}))
		defer srv.Close()

		_, err := client.SendPromptStreaming(context.Background(), srv.URL, "", "llama2", "be terse", "hi", nil, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(gotBody).To(ContainSubstring(`be terse\n\nhi`))
	})

	It("fails on a non-2xx status", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := client.SendPromptStreaming(context.Background(), srv.URL, "", "llama2", "", "hi", nil, nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Client.TestConnection", func() {
	It("reports success for a 2xx parseable response", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"models":[]}`)
		}))
		defer srv.Close()

		client := backend.NewClient(5*time.Second, logging.Nop())
		result := client.TestConnection(context.Background(), srv.URL, "")
		Expect(result.Success).To(BeTrue())
		Expect(result.ErrorMessage).To(BeEmpty())
	})

	It("reports failure for a non-2xx status", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := backend.NewClient(5*time.Second, logging.Nop())
		result := client.TestConnection(context.Background(), srv.URL, "")
		Expect(result.Success).To(BeFalse())
		Expect(result.ErrorMessage).NotTo(BeEmpty())
	})

	It("reports failure when the connection cannot be established", func() {
		client := backend.NewClient(1*time.Second, logging.Nop())
		result := client.TestConnection(context.Background(), "http://127.0.0.1:1", "")
		Expect(result.Success).To(BeFalse())
	})
})
