package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Quidge/streamtck/internal/config"
	"github.com/Quidge/streamtck/internal/impl"
)

var implsCmd = &cobra.Command{
	Use:   "impls",
	Short: "List configured implementations",
	Long: `List the implementations configured in the global config, with their
registered type and declared subscriber capacity.

The default implementation is marked with an asterisk.`,
	Args: cobra.NoArgs,
	RunE: runImpls,
}

func init() {
	rootCmd.AddCommand(implsCmd)
}

func runImpls(cmd *cobra.Command, _ []string) error {
	global, err := config.LoadGlobalConfig(configPath)
	if err != nil {
		return err
	}

	registered := impl.RegisteredTypes()
	names := make([]string, 0, len(global.Implementations))
	for name := range global.Implementations {
		names = append(names, name)
	}
	slices.Sort(names)

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tMAX SUBSCRIBERS\tAVAILABLE")
	for _, name := range names {
		im := global.Implementations[name]
		if name == global.DefaultImplementation {
			name += " *"
		}
		capacity := "-"
		if im.MaxSubscribers > 0 {
			capacity = strconv.FormatInt(im.MaxSubscribers, 10)
		}
		available := "yes"
		if !slices.Contains(registered, im.Type) {
			available = "no (unknown type)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, im.Type, capacity, available)
	}
	w.Flush()

	fmt.Fprintf(out, "\nRegistered types: %v\n", registered)
	return nil
}
