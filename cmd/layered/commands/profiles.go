package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmolner/layered/settings"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the profiles declared across the document chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := settings.Profiles(fileFlag)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
