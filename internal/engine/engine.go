// Package engine implements the conversation turn coordinator: the single
// state machine that owns the active conversation, drives a turn through
// the backend client, and writes through to the conversation store and
// search index on every commit.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/fieldnotes/relay/internal/backend"
	"github.com/fieldnotes/relay/internal/cancel"
	"github.com/fieldnotes/relay/internal/connection"
	"github.com/fieldnotes/relay/internal/model"
	"github.com/fieldnotes/relay/internal/search"
	"github.com/fieldnotes/relay/internal/shell"
	"github.com/fieldnotes/relay/internal/store"
)

// State names a point in a turn's lifecycle.
type State int

const (
	Idle State = iota
	Streaming
	Cancelling
	Finalizing
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Streaming:
		return "Streaming"
	case Cancelling:
		return "Cancelling"
	case Finalizing:
		return "Finalizing"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ErrNotIdle is returned by any operation that requires the coordinator to
// be Idle (submit, edit, delete) when it is not.
var ErrNotIdle = fmt.Errorf("coordinator is not idle")

// Engine coordinates one conversation's turns. Exactly one turn may be in
// flight at a time, enforced by the state field below.
type Engine struct {
	backendClient *backend.Client
	connMgr       *connection.Manager
	store         *store.Store
	index         *search.Index
	cancelFlag    *cancel.Flag

	maxChatHistory int
	indexingOn     bool

	mu    sync.Mutex
	state State
	conv  *model.Conversation
}

// New returns an Engine bound to conv and its supporting collaborators.
func New(conv *model.Conversation, backendClient *backend.Client, connMgr *connection.Manager, st *store.Store, idx *search.Index, maxChatHistory int, indexingOn bool) *Engine {
	return &Engine{
		backendClient:  backendClient,
		connMgr:        connMgr,
		store:          st,
		index:          idx,
		cancelFlag:     cancel.New(),
		maxChatHistory: maxChatHistory,
		indexingOn:     indexingOn,
		state:          Idle,
		conv:           conv,
	}
}

// State returns the coordinator's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Conversation returns the engine's active conversation.
func (e *Engine) Conversation() *model.Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv
}

// CancelFlag returns the shared cancellation primitive for the current turn.
func (e *Engine) CancelFlag() *cancel.Flag {
	return e.cancelFlag
}

// Submit starts a turn: validates prompt, appends the user message, and
// streams a response through the backend client, invoking progress and
// chunk callbacks along the way. Concurrent submits while non-Idle are
// rejected.
func (e *Engine) Submit(ctx context.Context, prompt string, system string, progress shell.ProgressReporter, onChunk shell.ChunkFunc) error {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return fmt.Errorf("prompt must not be empty")
	}

	e.mu.Lock()
	if e.state != Idle {
		e.mu.Unlock()
		return ErrNotIdle
	}
	e.state = Streaming
	e.conv.Append(model.ChatMessage{Role: model.RoleUser, Content: trimmed})
	e.mu.Unlock()

	if progress == nil {
		progress = shell.NopProgressReporter{}
	}

	url, apiKey, err := e.connMgr.ActiveEndpoint()
	if err != nil {
		return e.failTurn(err)
	}

	progress.Progress(shell.StageSending, url)

	fullResponse, err := e.backendClient.SendPromptStreaming(ctx, url, apiKey, e.conv.Model, system, trimmed, e.cancelFlag, onChunk)

	if e.cancelFlag.Cancelled() {
		return e.commitTurn(fullResponse, progress)
	}
	if err != nil {
		if fullResponse == "" {
			return e.failTurn(err)
		}
		if cerr := e.commitTurn(fullResponse, progress); cerr != nil {
			return fmt.Errorf("%v (and %w)", err, cerr)
		}
		return err
	}
	return e.commitTurn(fullResponse, progress)
}

// Cancel instructs the backend client to stop consuming the current
// stream. Whatever transcript was received before the stop is committed
// by the Submit call that is still in flight.
func (e *Engine) Cancel() {
	e.mu.Lock()
	if e.state == Streaming {
		e.state = Cancelling
	}
	e.mu.Unlock()
	e.cancelFlag.Cancel()
}

func (e *Engine) commitTurn(content string, progress shell.ProgressReporter) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = Finalizing
	if content != "" {
		e.conv.Append(model.ChatMessage{Role: model.RoleAssistant, Content: content})
	}

	progress.Progress(shell.StagePersisting, e.conv.ID)
	if err := e.store.Save(e.conv); err != nil {
		e.state = Error
		return fmt.Errorf("persisting conversation: %w", err)
	}

	if e.indexingOn {
		progress.Progress(shell.StageIndexing, e.conv.ID)
		e.index.IndexConversation(e.conv)
	}

	e.trimHistoryLocked()
	e.cancelFlag.Reset()
	e.state = Idle
	return nil
}

func (e *Engine) failTurn(cause error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = Error
	if err := e.store.Save(e.conv); err != nil {
		e.state = Idle
		return fmt.Errorf("%v (and persisting after failure: %w)", cause, err)
	}
	e.state = Idle
	return cause
}

// trimHistoryLocked drops the oldest in-memory messages once they exceed
// maxChatHistory. The on-disk conversation already written is unaffected
// by this cap; it only bounds what the shell keeps resident.
func (e *Engine) trimHistoryLocked() {
	if e.maxChatHistory <= 0 || len(e.conv.Messages) <= e.maxChatHistory {
		return
	}
	overflow := len(e.conv.Messages) - e.maxChatHistory
	e.conv.Messages = e.conv.Messages[overflow:]
}

// EditMessage updates message i's content, truncates everything after it,
// persists, and reindexes. Rejected while the coordinator is not Idle.
func (e *Engine) EditMessage(i int, newContent string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Idle {
		return ErrNotIdle
	}
	if err := e.conv.EditAt(i, newContent); err != nil {
		return err
	}
	if err := e.store.Save(e.conv); err != nil {
		return err
	}
	if e.indexingOn {
		e.index.IndexConversation(e.conv)
	}
	return nil
}

// DeleteMessage removes message i, persists, and reindexes. Rejected while
// the coordinator is not Idle.
func (e *Engine) DeleteMessage(i int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != Idle {
		return ErrNotIdle
	}
	if err := e.conv.DeleteAt(i); err != nil {
		return err
	}
	if err := e.store.Save(e.conv); err != nil {
		return err
	}
	if e.indexingOn {
		e.index.IndexConversation(e.conv)
	}
	return nil
}
