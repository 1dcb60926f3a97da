package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/alnah/go-videochunk/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and create the configuration file",
		Long: `Inspect and create the configuration file.

Configuration is YAML, read from $XDG_CONFIG_HOME/videochunk/config.yaml
or ~/.config/videochunk/config.yaml, or from --config. It holds every
pipeline threshold and backend setting; missing keys keep their defaults.

Environment fallbacks:
  VIDEOCHUNK_OUTPUT_DIR    output root when output_dir is unset
  VIDEOCHUNK_LOG_MODE      log mode (dev or prod), overrides log_mode`,
		Example: `  videochunk config path
  videochunk config show
  videochunk config init`,
	}

	cmd.AddCommand(configShowCmd(env))
	cmd.AddCommand(configPathCmd(env))
	cmd.AddCommand(configInitCmd(env))

	return cmd
}

// configShowCmd creates the "config show" subcommand.
func configShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, env)
		},
	}
}

// configPathCmd creates the "config path" subcommand.
func configPathCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigPath(cmd, env)
		},
	}
}

// configInitCmd creates the "config init" subcommand.
func configInitCmd(env *Env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd, env, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func runConfigShow(cmd *cobra.Command, env *Env) error {
	cfg, err := loadConfig(cmd, env)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, _ = env.Stdout.Write(data)
	return nil
}

func runConfigPath(cmd *cobra.Command, env *Env) error {
	path, err := configPath(cmd, env)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(env.Stdout, path)
	return nil
}

func runConfigInit(cmd *cobra.Command, env *Env, force bool) error {
	path, err := configPath(cmd, env)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s: %w", path, ErrConfigExists)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	// #nosec G301 -- user config directory
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	// #nosec G306 -- config file with standard permissions
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	_, _ = fmt.Fprintf(env.Stderr, "Wrote %s\n", path)
	return nil
}

// configPath is --config when set, otherwise the default location.
func configPath(cmd *cobra.Command, env *Env) (string, error) {
	if f := cmd.Flag(ConfigFlag); f != nil && f.Value.String() != "" {
		return config.ExpandPath(f.Value.String()), nil
	}
	return config.Path(env.Getenv)
}
