// Package shell defines the contracts a presentation layer (GUI, desktop
// shell, terminal client) implements to drive a conversation engine without
// reaching into its private state. Every mutation the shell wants is a
// request with a result callback; the engine owns all transitions.
package shell

// ChunkFunc is called with each incremental token of a streaming response.
// Returning false signals the backend client to stop consuming further
// chunks; returning true continues the stream.
type ChunkFunc func(text string) bool

// ProgressStage names a step of a multi-step flow the shell can report on.
type ProgressStage string

const (
	StageConnectionTest ProgressStage = "connection_test"
	StageModelFetch     ProgressStage = "model_fetch"
	StageSending        ProgressStage = "sending"
	StagePersisting     ProgressStage = "persisting"
	StageIndexing       ProgressStage = "indexing"
)

// ProgressReporter is notified as a multi-step flow advances. Implementations
// must not block the caller for long; slow rendering should be buffered.
type ProgressReporter interface {
	Progress(stage ProgressStage, detail string)
}

// Presenter formats outcomes for display. It never mutates engine state.
type Presenter interface {
	PresentMessage(role, content string)
	PresentError(err error)
	PresentSystem(notice string)
}

// NopProgressReporter discards all progress notifications.
type NopProgressReporter struct{}

func (NopProgressReporter) Progress(ProgressStage, string) {}
