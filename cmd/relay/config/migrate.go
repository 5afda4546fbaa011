package configcmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldnotes/relay/internal/cliui"
	"github.com/fieldnotes/relay/internal/config"
)

const migrateLongDesc string = `Force a configuration migration pass.

Rewrites insecure http:// remote backend URLs to https://, drops saved URLs
that no longer validate, and synthesizes a remote endpoint from a
pre-existing ollama_url when no remote endpoints are configured yet. A
timestamped backup of config.toml is written before anything changes.

Examples:
  relay config migrate`

const migrateShortDesc string = "Force a configuration migration pass"

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: migrateShortDesc,
		Long:  migrateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runMigrate(configDir)
		},
	}

	return cmd
}

func runMigrate(configDir string) error {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	report, err := cfger.MigrateConfig(time.Now())
	if err != nil {
		return fmt.Errorf("migrating config: %w", err)
	}

	if report.BackupPath == "" {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Nothing to migrate."))
		return nil
	}

	fmt.Printf("\n  %s %s\n", cliui.SuccessMark, "Migration complete")
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Backup:"), cliui.DimStyle.Render(report.BackupPath))
	if report.RewrittenURL {
		fmt.Printf("  %s backend.url rewritten to https\n", cliui.SuccessMark)
	}
	if report.RewrittenOllama {
		fmt.Printf("  %s backend.ollama_url rewritten to https\n", cliui.SuccessMark)
	}
	for _, dropped := range report.DroppedSavedURLs {
		fmt.Printf("  %s dropped saved URL %s\n", cliui.FailMark, dropped)
	}
	if report.SynthesizedEndpoint != nil {
		fmt.Printf("  %s synthesized remote endpoint %q (%s)\n",
			cliui.SuccessMark, report.SynthesizedEndpoint.Name, report.SynthesizedEndpoint.URL())
	}
	fmt.Println()

	return nil
}
