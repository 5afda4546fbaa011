// Package relaycmder assembles the relay root command and its subcommands.
package relaycmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/fieldnotes/relay/cmd/relay/chat"
	configcmder "github.com/fieldnotes/relay/cmd/relay/config"
	endpointcmder "github.com/fieldnotes/relay/cmd/relay/endpoint"
	runcmder "github.com/fieldnotes/relay/cmd/relay/run"
	searchcmder "github.com/fieldnotes/relay/cmd/relay/search"
	versioncmder "github.com/fieldnotes/relay/cmd/version"
)

const relayLongDesc string = `relay talks to a locally or remotely hosted Ollama-compatible model.

Start a conversation:
  relay chat                  Start an interactive chat session
  relay chat --model llama3.2 Start with a specific model

Run one turn without a shell, for scripting and piping:
  relay run "explain this diff" --file diff.patch
  git diff | relay run --quiet

Search saved conversations:
  relay search "how do I configure logging"

Manage the backend and remote endpoints:
  relay config set backend.url https://model.example.com:443
  relay config get backend.connection_mode
  relay config list
  relay config migrate
  relay endpoint add work model.example.com 443 --https
  relay endpoint use <id>`

const relayShortDesc string = "relay - a terminal client for Ollama-compatible models"

func NewRelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: relayShortDesc,
		Long:  relayLongDesc,
	}

	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .relay/ config directory")

	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(runcmder.NewRunCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(endpointcmder.NewEndpointCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
