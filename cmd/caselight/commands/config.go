package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/caselight/caselight/config"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage caselight configuration",
	Long: `Display and manage caselight configuration settings.

Configuration sources (in order of precedence):
1. Environment variables (CASELIGHT_* prefix)
2. Project config (./caselight.toml, searched up the directory tree)
3. User config (~/.caselight/config.toml)
4. System config (/etc/caselight/config.toml)
5. Default values

Examples:
  caselight config show                      # Show current configuration
  caselight config show --format json       # Show configuration as JSON
  caselight config get database.path         # Get a specific value
  caselight config set database.path new.db  # Persist a value to user config
  caselight config validate                  # Validate current configuration`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current caselight configuration merged from all sources",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a configuration value using dot notation (e.g., database.path, extractor.url)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a configuration value to the user config",
	Long: `Write a configuration value to ~/.caselight/config.toml.

Settable keys:
  database.path     - SQLite database file
  extractor.url     - NER sidecar endpoint
  ingest.watch_dir  - Default directory for 'ingest --watch'`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runConfigValidate,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long:  "List all configuration sources in precedence order, marking which files exist.",
	RunE:  runConfigWhere,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configWhereCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# caselight configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json)", configFormat)
	}

	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v := config.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}

	fmt.Println(config.Get(key))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	var err error
	switch key {
	case "database.path":
		err = config.UpdateDatabasePath(value)
	case "extractor.url":
		err = config.UpdateExtractorURL(value)
	case "ingest.watch_dir":
		err = config.UpdateIngestWatchDir(value)
	default:
		return fmt.Errorf("key %q is not settable (see 'caselight config set --help')", key)
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ Set %s = %s in %s\n", key, value, config.UserConfigPath())
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Println("✓ Configuration is valid")
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	fmt.Println("Configuration cascade (later overrides earlier):")

	sources := []struct {
		label string
		path  string
		desc  string
	}{
		{"DEFAULT", "", "Built-in defaults"},
		{"SYSTEM", "/etc/caselight/config.toml", ""},
		{"USER", filepath.Join(config.UserConfigDir(), "config.toml"), ""},
		{"PROJECT", "", "./caselight.toml (searches up directories)"},
		{"ENV", "", "CASELIGHT_* environment variables"},
	}

	for i, s := range sources {
		desc := s.desc
		if s.path != "" {
			desc = s.path + " (missing)"
			if _, err := os.Stat(s.path); err == nil {
				desc = s.path + " ✓"
			}
		}
		fmt.Printf("  %d. [%-7s] %s\n", i+1, s.label, desc)
	}

	return nil
}
