package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classam/redis-tance/internal/platform"
)

type RootOptions struct {
	ConfigPath    string
	StorePath     string
	InMemory      bool
	SchemaType    string
	Namespace     string
	ExpirySeconds int
	JSONOutput    bool
	LogLevel      string
	LogFormat     string
}

func newRootCmd() *cobra.Command {
	opts := &RootOptions{
		StorePath: envDefault("TANCE_STORE", "tance.db"),
		LogLevel:  envDefault("TANCE_LOG_LEVEL", "info"),
		LogFormat: envDefault("TANCE_LOG_FORMAT", "text"),
	}
	cmd := &cobra.Command{
		Use:           "tance",
		Short:         "Schema-namespaced set collections over a key-value store",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyConfigFile(cmd, opts); err != nil {
				return err
			}
			_, err := platform.NewLogger(platform.LogOptions{
				Level:  opts.LogLevel,
				Format: opts.LogFormat,
			}, cmd.ErrOrStderr())
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "path to a tance.yaml config file")
	flags.StringVar(&opts.StorePath, "store", opts.StorePath, "path to the sqlite store")
	flags.BoolVar(&opts.InMemory, "memory", false, "use a process-local in-memory store")
	flags.StringVar(&opts.SchemaType, "type", "string", "schema type segment of generated keys")
	flags.StringVar(&opts.Namespace, "namespace", "", "collection namespace (defaults to \"default\")")
	flags.IntVar(&opts.ExpirySeconds, "expiry", 0, "TTL in seconds, refreshed on every write (0 disables)")
	flags.BoolVar(&opts.JSONOutput, "json", false, "emit machine-readable JSON")
	flags.StringVar(&opts.LogLevel, "log-level", opts.LogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&opts.LogFormat, "log-format", opts.LogFormat, "log format (text, json)")

	cmd.AddCommand(
		newCreateCmd(opts),
		newAddCmd(opts),
		newMembersCmd(opts),
		newRandCmd(opts),
		newRemCmd(opts),
		newContainsCmd(opts),
		newCardCmd(opts),
		newUnionCmd(opts),
		newInterCmd(opts),
		newDiffCmd(opts),
		newDelCmd(opts),
		newOnionCmd(opts),
	)
	return cmd
}

// applyConfigFile folds file values into opts for every flag the user
// left untouched on the command line.
func applyConfigFile(cmd *cobra.Command, opts *RootOptions) error {
	path := opts.ConfigPath
	required := path != ""
	if path == "" {
		path = platform.DefaultConfigPath
	}
	cfg, err := platform.LoadConfig(path, required)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if cfg.StorePath != "" && !flags.Changed("store") {
		opts.StorePath = cfg.StorePath
	}
	if cfg.Namespace != "" && !flags.Changed("namespace") {
		opts.Namespace = cfg.Namespace
	}
	if cfg.ExpirySeconds > 0 && !flags.Changed("expiry") {
		opts.ExpirySeconds = cfg.ExpirySeconds
	}
	if cfg.LogLevel != "" && !flags.Changed("log-level") {
		opts.LogLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !flags.Changed("log-format") {
		opts.LogFormat = cfg.LogFormat
	}
	return nil
}

func envDefault(name, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}
