package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"psharvest/pkg/config"
	"psharvest/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage psharvest configuration files.

Configuration is merged from, highest priority first:
  - Command line flags
  - Environment variables (PSHARVEST_*, also read from .env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with every option at its default",
	Long: `Write a configuration file holding the default value of every option.

The file is created as '.psharvest.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the effective configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = ".psharvest.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	}

	cfg := config.DefaultConfig()
	cfg.Harvest.Subreddits = []string{"golang"}
	if err := cfg.Save(path); err != nil {
		return err
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit harvest.subreddits and harvest.target")
	fmt.Println("2. Run 'psharvest config validate'")
	fmt.Println("3. Start with 'psharvest harvest <snapshot.csv>'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	display := *cfg
	if display.Auth.AccessToken != "" {
		display.Auth.AccessToken = "********"
	}
	data, err := yaml.Marshal(&display)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	if len(cfg.Harvest.Subreddits) == 0 {
		ui.PrintWarning("No subreddits configured; they must be given on the command line")
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		ui.PrintWarning("Rate limit disabled; requests are only spaced by harvest.delay")
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Endpoint", cfg.Source.BaseURL+"/"+cfg.Source.Endpoint+"/search")
	ui.PrintInfo("Target", fmt.Sprintf("%d", cfg.Harvest.Target))
	ui.PrintInfo("Snapshot", cfg.Harvest.Snapshot)
	ui.PrintInfo("Rate limit", fmt.Sprintf("%d requests/minute", cfg.RateLimit.RequestsPerMinute))
	return nil
}
