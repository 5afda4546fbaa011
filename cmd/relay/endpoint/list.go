package endpointcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldnotes/relay/internal/cliui"
	"github.com/fieldnotes/relay/internal/config"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured remote endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(configDir)
		},
	}
}

func runList(configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Printf("\n  %s %s\n\n", cliui.KeyStyle.Render("Connection mode:"), cliui.ValueStyle.Render(string(cfg.Backend.ConnectionMode)))

	if len(cfg.Backend.RemoteEndpoints) == 0 {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No remote endpoints configured."))
		return nil
	}

	for _, ep := range cfg.Backend.RemoteEndpoints {
		marker := " "
		if ep.ID == cfg.Backend.ActiveRemoteEndpointID {
			marker = cliui.SuccessMark
		}
		fmt.Printf("  %s %s  %s  %s\n",
			marker,
			cliui.NameStyle.Render(ep.Name),
			cliui.ValueStyle.Render(ep.URL()),
			cliui.DimStyle.Render(ep.ID),
		)
	}
	fmt.Println()

	return nil
}
