package endpointcmder

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldnotes/relay/internal/backend"
	"github.com/fieldnotes/relay/internal/cliui"
	"github.com/fieldnotes/relay/internal/config"
	"github.com/fieldnotes/relay/internal/logging"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Probe a remote endpoint's connectivity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runTest(configDir, args[0])
		},
	}
}

func runTest(configDir, id string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var target *string
	var apiKey string
	for _, ep := range cfg.Backend.RemoteEndpoints {
		if ep.ID == id {
			url := ep.URL()
			target = &url
			apiKey = ep.APIKey
			break
		}
	}
	if target == nil {
		return fmt.Errorf("no remote endpoint with id %q", id)
	}

	timeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second
	client := backend.NewClient(timeout, logging.Nop())

	var result *backend.ConnectionTestResult
	_ = cliui.Step(os.Stdout, fmt.Sprintf("Testing %s", *target), func() error {
		result = client.TestConnection(context.Background(), *target, apiKey)
		if !result.Success {
			return fmt.Errorf("%s", result.ErrorMessage)
		}
		return nil
	})

	fmt.Printf("  %s %dms\n\n", cliui.KeyStyle.Render("Response time:"), result.ResponseTimeMS)
	return nil
}
