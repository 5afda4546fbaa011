package endpointcmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldnotes/relay/internal/backend"
	"github.com/fieldnotes/relay/internal/cliui"
	"github.com/fieldnotes/relay/internal/config"
	"github.com/fieldnotes/relay/internal/connection"
	"github.com/fieldnotes/relay/internal/logging"
)

func newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Switch to remote mode and activate the given endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runUse(configDir, args[0])
		},
	}
}

func runUse(configDir, id string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	connMgr, err := connection.New(cfger, backend.NewClient(5*time.Second, logging.Nop()))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := connMgr.SetActiveRemoteEndpoint(id); err != nil {
		return err
	}
	if err := connMgr.SwitchMode(config.ModeRemote); err != nil {
		return err
	}

	fmt.Printf("  %s Now using remote endpoint %s\n\n", cliui.SuccessMark, cliui.DimStyle.Render(id))
	return nil
}
