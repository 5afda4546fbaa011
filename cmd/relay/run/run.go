// Package runcmder implements the non-interactive `relay run` driver: one
// turn in, one result out, suitable for scripts and pipelines.
package runcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fieldnotes/relay/internal/appdir"
	"github.com/fieldnotes/relay/internal/backend"
	"github.com/fieldnotes/relay/internal/cancel"
	"github.com/fieldnotes/relay/internal/config"
	"github.com/fieldnotes/relay/internal/connection"
	"github.com/fieldnotes/relay/internal/driver"
	"github.com/fieldnotes/relay/internal/logging"
)

type runCommander struct {
	files            []string
	system           string
	model            string
	url              string
	temperature      float64
	maxTokens        int
	quiet            bool
	jsonOutput       bool
	noStream         bool
	verbose          bool
	saveOnInterrupt  bool
}

const runLongDesc string = `Run a single turn against the configured backend and exit.

The prompt is taken from the first positional argument, or from stdin when
none is given and stdin is not a terminal. Files named with --file are
folded into the prompt in the order given.

Examples:
  relay run "summarize this" --file notes.txt
  git diff | relay run --quiet
  relay run "explain" --json --no-stream`

const runShortDesc string = "Run a single turn without an interactive shell"

func NewRunCmd() *cobra.Command {
	c := &runCommander{}

	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: runShortDesc,
		Long:  runLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return c.run(cmd, args, configDir)
		},
	}

	cmd.Flags().StringArrayVar(&c.files, "file", nil, "Include a file's contents in the prompt (repeatable, order preserved)")
	cmd.Flags().StringVar(&c.system, "system", "", "System prompt prepended to the composed prompt")
	cmd.Flags().StringVarP(&c.model, "model", "m", "llama3.2", "Model name")
	cmd.Flags().StringVar(&c.url, "url", "", "Override the configured backend URL for this turn")
	cmd.Flags().Float64Var(&c.temperature, "temperature", 0.7, "Sampling temperature in [0.0, 2.0] (validated only; not sent to the backend)")
	cmd.Flags().IntVar(&c.maxTokens, "max-tokens", 2048, "Maximum tokens to generate (validated only; not sent to the backend)")
	cmd.Flags().BoolVarP(&c.quiet, "quiet", "q", false, "Suppress output on success")
	cmd.Flags().BoolVar(&c.jsonOutput, "json", false, "Write a single JSON result object instead of plain text")
	cmd.Flags().BoolVar(&c.noStream, "no-stream", false, "Buffer the full response instead of echoing it as it arrives")
	cmd.Flags().BoolVarP(&c.verbose, "verbose", "v", false, "Write diagnostics to stderr")
	cmd.Flags().BoolVar(&c.saveOnInterrupt, "save-on-interrupt", false, "Format and print the partial response on SIGINT/SIGTERM instead of discarding it")

	return cmd
}

func (c *runCommander) formatter() driver.OutputFormatter {
	switch {
	case c.jsonOutput:
		return driver.JSONFormatter{}
	case c.quiet:
		return driver.QuietFormatter{}
	default:
		return driver.PlainFormatter{}
	}
}

func (c *runCommander) readPrompt(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no prompt given: pass it as an argument or pipe it over stdin")
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading prompt from stdin: %w", err)
	}
	return string(data), nil
}

func (c *runCommander) run(cmd *cobra.Command, args []string, configDir string) error {
	promptText, err := c.readPrompt(args)
	if err != nil {
		return &driver.ExitError{Code: driver.ExitUsageError, Err: err}
	}

	var inclusions []driver.FileInclusion
	for _, path := range c.files {
		inc, warnings, err := driver.LoadFileInclusion(path)
		if err != nil {
			return &driver.ExitError{Code: driver.ExitFileError, Err: err}
		}
		if c.verbose {
			for _, w := range warnings {
				fmt.Fprintln(os.Stderr, string(w))
			}
		}
		inclusions = append(inclusions, inc)
	}

	composed := driver.ComposePrompt(c.system, inclusions, strings.TrimSpace(promptText))
	warnings, err := driver.ValidateParams(driver.Params{Prompt: composed, Temperature: c.temperature, MaxTokens: c.maxTokens})
	if err != nil {
		return &driver.ExitError{Code: driver.ExitValidationErr, Err: err}
	}
	if c.verbose {
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, string(w))
		}
	}

	configer, err := config.NewConfiger(configDir)
	if err != nil {
		return &driver.ExitError{Code: driver.ExitValidationErr, Err: err}
	}
	cfg, err := configer.LoadConfig()
	if err != nil {
		return &driver.ExitError{Code: driver.ExitValidationErr, Err: err}
	}

	targetURL, apiKey := c.url, ""
	if targetURL == "" {
		connMgr, err := connection.New(configer, backend.NewClient(5*time.Second, logging.Nop()))
		if err != nil {
			return &driver.ExitError{Code: driver.ExitValidationErr, Err: err}
		}
		targetURL, apiKey, err = connMgr.ActiveEndpoint()
		if err != nil {
			return &driver.ExitError{Code: driver.ExitValidationErr, Err: err}
		}
	}

	root, err := appdir.NewManager().Target(configDir)
	if err != nil {
		return &driver.ExitError{Code: driver.ExitValidationErr, Err: fmt.Errorf("resolving .relay directory: %w", err)}
	}

	consoleLogger := logging.Nop()
	if c.verbose {
		consoleLogger = logging.New(logging.WithDebug(true), logging.WithWriter(os.Stderr))
	}
	fileLogger, closeErrorLog, err := logging.NewFileLogger(root)
	if err != nil {
		return &driver.ExitError{Code: driver.ExitValidationErr, Err: err}
	}
	defer closeErrorLog.Close()
	logger := logging.Multi(consoleLogger, fileLogger)

	timeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	client := backend.NewClient(timeout, logger)

	cancelFlag := cancel.New()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		cancelFlag.RecordSignal(signalNumber(sig))
		cancelFlag.Cancel()
		stop()
	}()

	liveEcho := !c.noStream && !c.jsonOutput && !c.quiet

	content, err := client.SendPromptStreaming(ctx, targetURL, apiKey, c.model, "", composed, cancelFlag, func(text string) bool {
		if liveEcho {
			fmt.Print(text)
		}
		return true
	})

	formatter := c.formatter()
	result := driver.TurnResult{Content: content, Model: c.model}

	if cancelFlag.Cancelled() {
		if liveEcho {
			fmt.Println()
		}
		if c.saveOnInterrupt {
			result.Partial = true
			if !liveEcho {
				_ = formatter.Format(os.Stdout, result)
			}
		}
		return &driver.ExitError{Code: driver.SignalExitCode(cancelFlag.LastSignal())}
	}

	if err != nil {
		if liveEcho {
			fmt.Println()
			fmt.Fprintln(os.Stderr, err)
		} else {
			result.ErrMessage = err.Error()
			_ = formatter.Format(os.Stdout, result)
		}
		return &driver.ExitError{Code: driver.ExitBackendError}
	}

	if liveEcho {
		fmt.Println()
	} else {
		_ = formatter.Format(os.Stdout, result)
	}
	return nil
}

func signalNumber(sig os.Signal) int {
	switch sig {
	case syscall.SIGTERM:
		return 15
	default:
		return 2
	}
}
