package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [documents...]",
		Short: "Render marked blocks and warm the cache",
		Long: "Render scans the given documents (or the whole vault) for marked " +
			"source blocks, renders every block that is not already cached, and " +
			"reconciles the cache index.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions(cmd)
			opts.Jobs, _ = cmd.Flags().GetInt("jobs")
			return c.app.Render(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().IntP("jobs", "j", 0, "Maximum concurrent document renders (default: number of CPUs)")
	return cmd
}
