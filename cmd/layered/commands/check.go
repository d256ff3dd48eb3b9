package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmolner/layered/settings"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load every declared profile and report failures",
	Long: `Load every profile the document chain declares with the current context
and report what fails: syntax errors, broken extends references, unknown
profiles, unresolved placeholders. Exits non-zero on any failure, so it can
gate CI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions()
		if err != nil {
			return err
		}
		if err := settings.Check(fileFlag, opts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: all profiles load cleanly\n", fileFlag)
		return nil
	},
}
