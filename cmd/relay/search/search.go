// Package searchcmder provides the search command for querying saved
// conversations through the in-memory inverted-index search engine.
package searchcmder

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fieldnotes/relay/internal/appdir"
	"github.com/fieldnotes/relay/internal/cliui"
	"github.com/fieldnotes/relay/internal/search"
	"github.com/fieldnotes/relay/internal/store"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	roleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

type searchCommander struct {
	query         string
	topK          int
	quiet         bool
	wholeWord     bool
	caseSensitive bool
}

const searchLongDesc string = `Search saved conversations.

Builds the in-memory inverted index from every saved conversation and
queries it for the given text. Matching is case-insensitive and substring
by default.

Use --quiet to print only the matching conversation ids, one per line.

Examples:
  relay search "how to configure logging"
  relay search "panic" --whole-word
  relay search "Ollama" --case-sensitive --top 20`

const searchShortDesc string = "Search saved conversations"

func NewSearchCmd() *cobra.Command {
	c := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c.query = args[0]
			configDir, _ := cmd.Flags().GetString("config-dir")
			return c.run(configDir)
		},
	}

	cmd.Flags().IntVarP(&c.topK, "top", "k", 20, "Maximum number of results to print")
	cmd.Flags().BoolVarP(&c.quiet, "quiet", "q", false, "Print only matching conversation ids")
	cmd.Flags().BoolVar(&c.wholeWord, "whole-word", false, "Match the query as a whole word")
	cmd.Flags().BoolVar(&c.caseSensitive, "case-sensitive", false, "Match case exactly")

	return cmd
}

func (c *searchCommander) run(configDir string) error {
	root, err := appdir.NewManager().Target(configDir)
	if err != nil {
		return fmt.Errorf("resolving .relay directory: %w", err)
	}

	st, err := store.New(root)
	if err != nil {
		return fmt.Errorf("opening conversation store: %w", err)
	}

	metas, err := st.List()
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}

	idx := search.New()
	for _, meta := range metas {
		conv, err := st.Load(meta.ID)
		if err != nil {
			continue
		}
		idx.IndexConversation(conv)
	}

	results := idx.Query(search.Query{Text: c.query, CaseSensitive: c.caseSensitive, WholeWord: c.wholeWord})
	if len(results) > c.topK {
		results = results[:c.topK]
	}

	if len(results) == 0 {
		if !c.quiet {
			fmt.Println("No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, r := range results {
			fmt.Println(r.ConversationID)
		}
		return nil
	}

	fmt.Printf("\n%s %q\n\n", cliui.KeyStyle.Render("Search results for:"), c.query)

	for i, r := range results {
		preview := strings.ReplaceAll(r.Context, "\n", " ")
		fmt.Printf("  %s %s %s\n",
			rankStyle.Render(fmt.Sprintf("#%d", i+1)),
			roleStyle.Render("["+string(r.Role)+"]"),
			cliui.DimStyle.Render(r.ConversationID),
		)
		fmt.Printf("    %s\n\n", previewStyle.Render(preview))
	}

	return nil
}
