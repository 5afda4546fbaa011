package engine_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fieldnotes/relay/internal/backend"
	"github.com/fieldnotes/relay/internal/config"
	"github.com/fieldnotes/relay/internal/connection"
	"github.com/fieldnotes/relay/internal/engine"
	"github.com/fieldnotes/relay/internal/logging"
	"github.com/fieldnotes/relay/internal/model"
	"github.com/fieldnotes/relay/internal/search"
	"github.com/fieldnotes/relay/internal/shell"
	"github.com/fieldnotes/relay/internal/store"
)

func TestEngine(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Engine Suite")
}

func newTestEngine(tmpDir, baseURL string, maxHistory int) *engine.Engine {
	configer, err := config.NewConfiger(tmpDir)
	Expect(err).NotTo(HaveOccurred())
	u, err := url.Parse(baseURL)
	Expect(err).NotTo(HaveOccurred())
	port, err := strconv.Atoi(u.Port())
	Expect(err).NotTo(HaveOccurred())

	// Local mode always targets the fixed localhost URL, so the test server
	// is reached through an active remote endpoint.
	cfg := config.NewDefaultConfig()
	ep := model.NewRemoteEndpoint("test", u.Hostname(), port, false)
	cfg.Backend.ConnectionMode = config.ModeRemote
	cfg.Backend.RemoteEndpoints = []model.RemoteEndpoint{ep}
	cfg.Backend.ActiveRemoteEndpointID = ep.ID
	Expect(configer.SaveConfig(cfg)).To(Succeed())

	connMgr, err := connection.New(configer, backend.NewClient(5*time.Second, logging.Nop()))
	Expect(err).NotTo(HaveOccurred())

	st, err := store.New(tmpDir)
	Expect(err).NotTo(HaveOccurred())

	idx := search.New()
	conv := model.NewConversation("test", "llama2")

	return engine.New(conv, backend.NewClient(5*time.Second, logging.Nop()), connMgr, st, idx, maxHistory, true)
}

var _ = Describe("Engine.Submit", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "relay-engine-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("rejects an empty prompt", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		e := newTestEngine(tmpDir, srv.URL, 0)
		Expect(e.Submit(context.Background(), "   ", "", nil, nil)).To(HaveOccurred())
		Expect(e.State()).To(Equal(engine.Idle))
	})

	It("streams and commits the assistant message, then persists and indexes", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"response":"He","done":false}`)
			fmt.Fprintln(w, `{"response":"llo","done":false}`)
			fmt.Fprintln(w, `{"response":" world","done":true}`)
		}))
		defer srv.Close()

		e := newTestEngine(tmpDir, srv.URL, 0)

		var chunks []string
		err := e.Submit(context.Background(), "hi", "", nil, func(text string) bool {
			chunks = append(chunks, text)
			return true
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.State()).To(Equal(engine.Idle))

		conv := e.Conversation()
		Expect(conv.Messages).To(HaveLen(2))
		Expect(conv.Messages[1].Role).To(Equal(model.RoleAssistant))
		Expect(conv.Messages[1].Content).To(Equal("Hello world"))
		Expect(chunks).To(Equal([]string{"He", "llo", " world"}))
	})

	It("rejects a concurrent submit while a turn is in flight", func() {
		started := make(chan struct{})
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-release
			fmt.Fprintln(w, `{"response":"done","done":true}`)
		}))
		defer srv.Close()

		e := newTestEngine(tmpDir, srv.URL, 0)

		errCh := make(chan error, 1)
		go func() {
			errCh <- e.Submit(context.Background(), "first", "", nil, nil)
		}()

		<-started
		err := e.Submit(context.Background(), "second", "", nil, nil)
		Expect(err).To(MatchError(engine.ErrNotIdle))

		close(release)
		Expect(<-errCh).NotTo(HaveOccurred())
	})

	It("caps in-memory history at max_chat_history without truncating the store", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintln(w, `{"response":"ok","done":true}`)
		}))
		defer srv.Close()

		e := newTestEngine(tmpDir, srv.URL, 2)
		Expect(e.Submit(context.Background(), "one", "", nil, nil)).To(Succeed())
		Expect(e.Submit(context.Background(), "two", "", nil, nil)).To(Succeed())

		Expect(e.Conversation().Messages).To(HaveLen(2))
	})
})

var _ = Describe("Engine.EditMessage and DeleteMessage", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "relay-engine-edit-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("edits a message and truncates what followed it", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer srv.Close()

		e := newTestEngine(tmpDir, srv.URL, 0)
		e.Conversation().Append(model.ChatMessage{Role: model.RoleUser, Content: "a"})
		e.Conversation().Append(model.ChatMessage{Role: model.RoleAssistant, Content: "b"})

		Expect(e.EditMessage(0, "edited")).To(Succeed())
		Expect(e.Conversation().Messages).To(HaveLen(1))
		Expect(e.Conversation().Messages[0].Content).To(Equal("edited"))
	})

	It("rejects edits while not idle", func() {
		started := make(chan struct{})
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-release
			fmt.Fprintln(w, `{"response":"ok","done":true}`)
		}))
		defer srv.Close()

		e := newTestEngine(tmpDir, srv.URL, 0)

		errCh := make(chan error, 1)
		go func() { errCh <- e.Submit(context.Background(), "hi", "", nil, nil) }()
		<-started

		Expect(e.EditMessage(0, "x")).To(MatchError(engine.ErrNotIdle))

		close(release)
		Expect(<-errCh).NotTo(HaveOccurred())
	})
})

var _ = Describe("Engine.Cancel", func() {
	It("stops the stream and commits whatever transcript was received", func() {
		tmpDir, err := os.MkdirTemp("", "relay-engine-cancel-test-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(tmpDir)

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

		e := newTestEngine(tmpDir, srv.URL, 0)

		var progressSeen []shell.ProgressStage
		reporter := progressRecorder{seen: &progressSeen}

		first := true
		err = e.Submit(context.Background(), "hi", "", reporter, func(text string) bool {
			if first {
				e.Cancel()
				first = false
			}
			return true
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Conversation().Messages[len(e.Conversation().Messages)-1].Content).To(Equal("He"))
	})
})

type progressRecorder struct {
	seen *[]shell.ProgressStage
}

func (p progressRecorder) Progress(stage shell.ProgressStage, detail string) {
	*p.seen = append(*p.seen, stage)
}
