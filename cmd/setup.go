package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/theirongolddev/feaso/internal/config"
	"github.com/theirongolddev/feaso/internal/tui"
	"github.com/theirongolddev/feaso/internal/tui/theme"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, _ := config.Load()
	vals := tui.SetupValuesFrom(cfg)

	fmt.Println()
	fmt.Println("  Welcome to feaso!")
	fmt.Println()

	if isTerminal() {
		if err := tui.NewSetupForm(&vals).Run(); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
	} else {
		promptSetup(bufio.NewReader(os.Stdin), &vals)
	}
	vals.Apply(&cfg)

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `feaso init` to create the ledger, or `feaso setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

// promptSetup reads the same answers line by line when stdin is not a
// terminal. A blank line keeps the current value.
func promptSetup(reader *bufio.Reader, vals *tui.SetupValues) {
	ask := func(label string, cur *string) {
		fmt.Printf("  %s [%s]\n     > ", label, *cur)
		line, _ := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			*cur = line
		}
	}

	ask("Project id", &vals.ProjectID)
	ask("First month (e.g. Jan 2025)", &vals.StartMonth)
	ask("Last month", &vals.EndMonth)
	ask("Ledger store (sqlite or postgres)", &vals.Driver)
	ask("Schedule file or directory", &vals.SchedulePath)
	ask("Theme ("+strings.Join(theme.Names(), ", ")+")", &vals.Theme)
	fmt.Println()
}

func maskToken(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
