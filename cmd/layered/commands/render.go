package commands

import (
	"encoding/json"
	"fmt"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/spf13/cobra"

	"github.com/jmolner/layered/settings"
)

var renderFormat string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the merged, interpolated settings for a profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := load()
		if err != nil {
			return err
		}
		out, err := renderSettings(s, renderFormat)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderFormat, "format", "o", "json",
		"Output format: json, yaml, or settings")
}

func renderSettings(s *settings.Settings, format string) ([]byte, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(s.Raw(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("rendering settings: %w", err)
		}
		return append(out, '\n'), nil
	case "yaml":
		out, err := kyaml.Parser().Marshal(s.Raw())
		if err != nil {
			return nil, fmt.Errorf("rendering settings: %w", err)
		}
		return out, nil
	case "settings":
		// A rendered profile is a flat document with a single section.
		out, err := settings.NewParser().Marshal(map[string]interface{}{
			s.Profile(): s.Raw(),
		})
		if err != nil {
			return nil, fmt.Errorf("rendering settings: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown format %q (must be json, yaml, or settings)", format)
	}
}
