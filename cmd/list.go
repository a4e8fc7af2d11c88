package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/config"
	"github.com/Quidge/streamtck/internal/tag"
	"github.com/Quidge/streamtck/internal/verification"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List checks",
	Long: `List the checks of the publisher suite with their rule and tags.

The selection from .streamtck.yaml and the selection flags apply, so this
shows exactly the checks "streamtck run" would consider.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("json", false, "output as JSON")
	addSelectionFlags(listCmd)
}

type listedCheck struct {
	ID          string     `json:"id"`
	Rule        string     `json:"rule,omitempty"`
	Description string     `json:"description"`
	Tags        []tag.Kind `json:"tags"`
}

func runList(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	var overrides config.FlagOverrides
	selectionOverrides(cmd, &overrides)

	merged, err := config.Load(configPath, overrides)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	sel, err := merged.Selector()
	if err != nil {
		return err
	}
	suite := verification.PublisherSuite().Filter(sel)

	out := cmd.OutOrStdout()
	if asJSON {
		checks := make([]listedCheck, len(suite.Checks))
		for i, c := range suite.Checks {
			checks[i] = listedCheck{ID: c.ID, Rule: c.Rule, Description: c.Description, Tags: c.Tags.Kinds()}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(checks)
	}

	if len(suite.Checks) == 0 {
		fmt.Fprintln(out, "No checks match the selection.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tRULE\tTAGS")
	for _, c := range suite.Checks {
		rule := c.Rule
		if rule == "" {
			rule = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, rule, formatTags(c.Tags))
	}
	w.Flush()

	return nil
}

func formatTags(tags tag.Set) string {
	if tags.Len() == 0 {
		return "-"
	}
	parts := make([]string, 0, tags.Len())
	for _, t := range tags.Tags() {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ", ")
}
