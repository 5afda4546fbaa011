// Package configcmder provides the config command for managing persistent
// relay configuration stored in the .relay/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent relay configuration.

Configuration is stored as config.toml in the .relay/ directory and provides
default values used by relay chat and relay run. CLI flags on those commands
always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  app.window_title, app.width, app.height,
  backend.url, backend.ollama_url, backend.timeout_seconds,
  backend.connection_mode, backend.active_remote_endpoint_id,
  ui.font_size, ui.max_chat_history, ui.theme

Saved URLs and remote endpoints are managed through "relay endpoint", not
through get/set/list.

Examples:
  relay config set backend.url https://model.example.com:443
  relay config get backend.connection_mode
  relay config list
  relay config migrate`

const configShortDesc string = "Manage persistent relay configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}
