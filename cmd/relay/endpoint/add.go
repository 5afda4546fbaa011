package endpointcmder

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fieldnotes/relay/internal/cliui"
	"github.com/fieldnotes/relay/internal/config"
	"github.com/fieldnotes/relay/internal/model"
	"github.com/fieldnotes/relay/internal/validate"
)

func newAddCmd() *cobra.Command {
	var useHTTPS bool
	var apiKey string

	cmd := &cobra.Command{
		Use:   "add <name> <host> <port>",
		Short: "Add a remote endpoint",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			port, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid port %q: %w", args[2], err)
			}
			return runAdd(configDir, args[0], args[1], port, useHTTPS, apiKey)
		},
	}

	cmd.Flags().BoolVar(&useHTTPS, "https", true, "Use HTTPS (remote hosts require it)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Bearer API key sent with every request to this endpoint")

	return cmd
}

func runAdd(configDir, name, host string, port int, useHTTPS bool, apiKey string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	endpoint := model.NewRemoteEndpoint(name, host, port, useHTTPS)
	endpoint.APIKey = apiKey

	if _, verr := validate.ValidateBackendURL(endpoint.URL()); verr != nil {
		return verr
	}

	for _, existing := range cfg.Backend.RemoteEndpoints {
		if existing.Key() == endpoint.Key() {
			return fmt.Errorf("an endpoint for %s already exists (%q)", endpoint.Key(), existing.Name)
		}
	}

	cfg.Backend.RemoteEndpoints = append(cfg.Backend.RemoteEndpoints, endpoint)
	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("  %s Added endpoint %s (%s) %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(endpoint.Name),
		cliui.ValueStyle.Render(endpoint.URL()),
		cliui.DimStyle.Render(endpoint.ID),
	)
	return nil
}
