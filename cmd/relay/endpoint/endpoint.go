// Package endpointcmder provides the endpoint command for managing named
// remote RemoteEndpoint entries and which one (if any) is active.
package endpointcmder

import (
	"github.com/spf13/cobra"
)

const endpointLongDesc string = `Manage remote endpoints.

A remote endpoint is a named, typed address of an Ollama-compatible server:
host, port, whether to use HTTPS, and an optional bearer API key. Exactly
one remote endpoint (or none) is active at a time. "relay endpoint use"
makes an endpoint active and switches the connection mode to remote; to
return to local mode, use "relay config set backend.connection_mode".

Examples:
  relay endpoint add work model.example.com 443 --https
  relay endpoint list
  relay endpoint use <id>
  relay endpoint test <id>
  relay endpoint remove <id>`

const endpointShortDesc string = "Manage remote endpoints"

func NewEndpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: endpointShortDesc,
		Long:  endpointLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newRemoveCmd())
	cmd.AddCommand(newUseCmd())
	cmd.AddCommand(newTestCmd())

	return cmd
}
