package endpointcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldnotes/relay/internal/cliui"
	"github.com/fieldnotes/relay/internal/config"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a remote endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runRemove(configDir, args[0])
		},
	}
}

func runRemove(configDir, id string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	kept := cfg.Backend.RemoteEndpoints[:0]
	found := false
	for _, ep := range cfg.Backend.RemoteEndpoints {
		if ep.ID == id {
			found = true
			continue
		}
		kept = append(kept, ep)
	}
	if !found {
		return fmt.Errorf("no remote endpoint with id %q", id)
	}
	cfg.Backend.RemoteEndpoints = kept

	if cfg.Backend.ActiveRemoteEndpointID == id {
		cfg.Backend.ActiveRemoteEndpointID = ""
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("  %s Removed endpoint %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(id))
	return nil
}
