package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmolner/layered/internal/logging"
	"github.com/jmolner/layered/settings"
)

const Version = "0.1.0"

var (
	fileFlag      string
	envFlag       string
	packageFlag   string
	rootDirFlag   string
	setFlags      []string
	envPrefixFlag string
	noEnvFlag     bool
	logLevelFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "layered",
	Short: "layered - profile-based settings for web services",
	Long: `layered loads layered settings documents: cascading environment profiles
(dev, test, stage, prod) merged over DEFAULT, with {NAME} placeholder
substitution and extends-based document chains.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevelFlag)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&fileFlag, "file", "f", "app.settings",
		"Settings document to load")
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev",
		"Environment profile to overlay onto DEFAULT")
	rootCmd.PersistentFlags().StringVar(&packageFlag, "package", "",
		"Project package name, backs the {PACKAGE} placeholder (default: root dir base name)")
	rootCmd.PersistentFlags().StringVar(&rootDirFlag, "root-dir", "",
		"Project root directory, backs the {ROOT_DIR} placeholder (default: document directory)")
	rootCmd.PersistentFlags().StringArrayVar(&setFlags, "set", nil,
		"Override a setting, KEY=VALUE with a dotted key and a JSON value (repeatable)")
	rootCmd.PersistentFlags().StringVar(&envPrefixFlag, "env-prefix", settings.DefaultEnvPrefix,
		"Prefix selecting environment variable overrides")
	rootCmd.PersistentFlags().BoolVar(&noEnvFlag, "no-env", false,
		"Skip the environment variable override layer")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info",
		"Log level: trace, debug, info, warn, error, fatal")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadOptions assembles settings.Options from the global flags.
func loadOptions() (settings.Options, error) {
	overrides := make(map[string]interface{}, len(setFlags))
	for _, assignment := range setFlags {
		eq := strings.Index(assignment, "=")
		if eq <= 0 {
			return settings.Options{}, fmt.Errorf("--set %q: expected KEY=VALUE", assignment)
		}
		key := strings.TrimSpace(assignment[:eq])
		raw := strings.TrimSpace(assignment[eq+1:])
		var value interface{}
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		overrides[key] = value
	}
	return settings.Options{
		Context: settings.Context{
			Package: packageFlag,
			Profile: envFlag,
			RootDir: rootDirFlag,
		},
		Overrides:  overrides,
		EnvPrefix:  envPrefixFlag,
		DisableEnv: noEnvFlag,
	}, nil
}

func load() (*settings.Settings, error) {
	opts, err := loadOptions()
	if err != nil {
		return nil, err
	}
	return settings.Load(fileFlag, opts)
}
