package cmd

import (
	"fmt"

	"github.com/theirongolddev/feaso/internal/config"
	"github.com/theirongolddev/feaso/internal/store"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Project:     %s\n", cfg.General.ProjectID)
	if cfg.General.StartMonth != "" || cfg.General.EndMonth != "" {
		fmt.Printf("    Months:      %s to %s\n", orUnset(cfg.General.StartMonth), orUnset(cfg.General.EndMonth))
	} else {
		fmt.Println("    Months:      from schedule")
	}
	fmt.Println()

	fmt.Println("  [Store]")
	fmt.Printf("    Driver:      %s\n", cfg.Store.Driver)
	if cfg.Store.Driver == store.DriverPostgres {
		fmt.Printf("    URL:         %s\n", maskToken(cfg.Store.URL))
	} else {
		fmt.Printf("    Path:        %s\n", cfg.Store.Path)
	}
	fmt.Printf("    Debounce:    %s\n", cfg.Debounce())
	fmt.Println()

	fmt.Println("  [Schedule]")
	switch {
	case cfg.Schedule.URL != "":
		fmt.Printf("    URL:         %s\n", cfg.Schedule.URL)
		if cfg.Schedule.Token != "" {
			fmt.Printf("    Token:       %s\n", maskToken(cfg.Schedule.Token))
		} else {
			fmt.Println("    Token:       not configured")
		}
	case cfg.Schedule.Path != "":
		fmt.Printf("    Path:        %s\n", cfg.Schedule.Path)
		fmt.Printf("    Watch:       %v\n", cfg.Schedule.Watch)
	default:
		fmt.Println("    Source:      none")
	}
	fmt.Println()

	fmt.Println("  [Daemon]")
	fmt.Printf("    Address:     %s\n", cfg.Daemon.Addr)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:       %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `feaso setup` to reconfigure.")
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
