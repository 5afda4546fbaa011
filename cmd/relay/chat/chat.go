// Package chatcmder provides the chat command for interactive conversation
// against the configured backend, driven by the conversation engine.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fieldnotes/relay/internal/appdir"
	"github.com/fieldnotes/relay/internal/backend"
	"github.com/fieldnotes/relay/internal/cliui"
	"github.com/fieldnotes/relay/internal/config"
	"github.com/fieldnotes/relay/internal/connection"
	"github.com/fieldnotes/relay/internal/engine"
	"github.com/fieldnotes/relay/internal/logging"
	"github.com/fieldnotes/relay/internal/model"
	"github.com/fieldnotes/relay/internal/search"
	"github.com/fieldnotes/relay/internal/shell"
	"github.com/fieldnotes/relay/internal/store"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

type chatCommander struct {
	model       string
	debug       bool
	watchConfig bool
	noMarkdown  bool
}

const chatLongDesc string = `Start an interactive chat session against the configured backend.

Each turn is sent to the active endpoint (local or the remote endpoint
selected with "relay endpoint use") and streamed back token by token, then
rendered as Markdown once the turn completes (--no-markdown for raw text).
The conversation is saved after every turn and indexed for "relay search".

Slash commands:
  /help           list available commands
  /clear          clear the screen
  /new            start a new conversation, discarding the in-memory one
  /models         list models available from the active endpoint
  /update         check for and install an update (not supported)
  /update-check   check for an available update (not supported)
  /exit, /quit    end the session

Examples:
  relay chat
  relay chat --model llama3.2`

const chatShortDesc string = "Start an interactive chat session"

func NewChatCmd() *cobra.Command {
	c := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			debug, _ := cmd.Flags().GetBool("debug")
			c.debug = debug
			return c.run(configDir)
		},
	}

	cmd.Flags().StringVarP(&c.model, "model", "m", "llama3.2", "Model name for this conversation")
	cmd.Flags().BoolVar(&c.watchConfig, "watch-config", false, "Reload the active endpoint when config.toml changes on disk")
	cmd.Flags().BoolVar(&c.noMarkdown, "no-markdown", false, "Print the raw token stream instead of rendering assistant turns as Markdown")

	return cmd
}

func presentError(err error) {
	fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
}

func presentSystem(notice string) {
	fmt.Printf("  %s %s\n", cliui.DimStyle.Render("•"), notice)
}

// quietProgress suppresses per-stage narration; the live token stream is
// already the session's feedback.
type quietProgress struct{}

func (quietProgress) Progress(shell.ProgressStage, string) {}

const slashHelp = `Available commands:
  /help           show this message
  /clear          clear the screen
  /new            start a new conversation
  /models         list models available from the active endpoint
  /update         self-update (not supported by this build)
  /update-check   update check (not supported by this build)
  /exit, /quit    end the session`

func (c *chatCommander) run(configDir string) error {
	root, err := appdir.NewManager().Target(configDir)
	if err != nil {
		return fmt.Errorf("resolving .relay directory: %w", err)
	}

	configer, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := configer.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	consoleLogger := logging.Nop()
	if c.debug {
		consoleLogger = logging.New(logging.WithPretty(true), logging.WithDebug(true), logging.WithWriter(os.Stderr))
	}
	fileLogger, closeErrorLog, err := logging.NewFileLogger(root)
	if err != nil {
		return fmt.Errorf("opening error log: %w", err)
	}
	defer closeErrorLog.Close()
	logger := logging.Multi(consoleLogger, fileLogger)

	timeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	backendClient := backend.NewClient(timeout, logger)

	connMgr, err := connection.New(configer, backendClient)
	if err != nil {
		return fmt.Errorf("setting up connection manager: %w", err)
	}

	st, err := store.New(root)
	if err != nil {
		return fmt.Errorf("opening conversation store: %w", err)
	}

	if c.watchConfig {
		stopWatch, werr := configer.Watch(func(*config.Config) {
			if rerr := connMgr.Reload(); rerr == nil {
				presentSystem("Reloaded config.toml")
			}
		})
		if werr != nil {
			presentError(fmt.Errorf("watch-config: %w", werr))
		} else {
			defer func() { _ = stopWatch() }()
		}
	}

	idx := search.New()
	const indexingOn = true

	conv := model.NewConversation("", c.model)
	eng := engine.New(conv, backendClient, connMgr, st, idx, cfg.UI.MaxChatHistory, indexingOn)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			if eng.State() == engine.Streaming {
				eng.Cancel()
				continue
			}
			stop()
			return
		}
	}()

	fmt.Println()
	fmt.Printf("  %s New conversation\n", cliui.DimStyle.Render("●"))
	fmt.Printf("  %s %s\n\n", cliui.KeyStyle.Render("Model:"), cliui.NameStyle.Render(c.model))
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /help for commands, /exit to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			switch input {
			case "/exit", "/quit":
				fmt.Println()
				return nil
			case "/help":
				fmt.Println(slashHelp)
			case "/clear":
				fmt.Print("\033[H\033[2J")
			case "/new":
				conv = model.NewConversation("", c.model)
				eng = engine.New(conv, backendClient, connMgr, st, idx, cfg.UI.MaxChatHistory, indexingOn)
				presentSystem("Started a new conversation")
			case "/models":
				url, apiKey, mErr := connMgr.ActiveEndpoint()
				if mErr != nil {
					presentError(mErr)
					continue
				}
				names, mErr := backendClient.FetchModels(ctx, url, apiKey)
				if mErr != nil {
					presentError(mErr)
					continue
				}
				fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Models:"), strings.Join(names, ", "))
			case "/update", "/update-check":
				presentSystem("Self-update is not supported by this build; install a new release manually")
			default:
				presentError(fmt.Errorf("unknown command: %s", input))
			}
			continue
		}

		fmt.Print(assistantPrompt)
		var raw strings.Builder
		err := eng.Submit(ctx, input, "", quietProgress{}, func(text string) bool {
			if c.noMarkdown {
				fmt.Print(text)
			} else {
				raw.WriteString(text)
			}
			return true
		})
		if !c.noMarkdown && raw.Len() > 0 {
			rendered, rerr := cliui.RenderMarkdown(raw.String())
			if rerr != nil {
				fmt.Print(raw.String())
			} else {
				fmt.Print(rendered)
			}
		}
		fmt.Println()
		if err != nil {
			presentError(err)
		}
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}
