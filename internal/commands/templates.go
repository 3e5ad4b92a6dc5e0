package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/escapebudget/escape/internal/mapper"
)

func newTemplatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List known bank export formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, tpl := range mapper.All() {
				fmt.Fprintln(cmd.OutOrStdout(), tpl.Name)
			}
			return nil
		},
	}
}
