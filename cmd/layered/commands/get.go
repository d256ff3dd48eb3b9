package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Print a single setting by dotted path",
	Long: `Print a single setting. The key is a dotted path; list elements are
addressed by integer segment:

  layered get DATABASES.default.HOST
  layered get INSTALLED_APPS.0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := load()
		if err != nil {
			return err
		}
		value, err := s.Get(args[0])
		if err != nil {
			return err
		}
		if str, ok := value.(string); ok {
			fmt.Fprintln(cmd.OutOrStdout(), str)
			return nil
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding %q: %w", args[0], err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	},
}
