package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dyike/QuantLens/internal/markdown"
)

func newCleanCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "clean [FILE]",
		Short: "Normalize model output into clean Markdown",
		Long:  "Run the Markdown cleanup rules over FILE, or standard input when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for i, rule := range markdown.Rules() {
					fmt.Fprintf(out, "%2d. %s\n", i+1, rule.Name)
				}
				return nil
			}

			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			a.logger.Debug().Int("bytes", len(data)).Msg("cleaning markdown")
			fmt.Fprintln(out, markdown.Clean(string(data)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "rules", false, "List the cleanup rules in order and exit")
	return cmd
}
