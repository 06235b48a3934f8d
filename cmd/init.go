package cmd

import (
	"fmt"

	"github.com/theirongolddev/feaso/internal/config"
	"github.com/theirongolddev/feaso/internal/store"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the project ledger from the default template",
	Long:  "Seeds the ledger with the standard groups, computes it against the schedule, and stores every row.",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) (err error) {
	s, err := openSession(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	if err := s.persister.Flush(s.ctx); err != nil {
		return fmt.Errorf("saving ledger: %w", err)
	}
	n, err := s.store.CountRows(s.ctx, s.project)
	if err != nil {
		return err
	}

	where := s.cfg.Store.Path
	if s.cfg.Store.Driver == store.DriverPostgres {
		where = "postgres"
	}
	fmt.Printf("  Project %s: %d rows stored in %s\n", s.project, n, where)

	if !config.Exists() {
		if err := config.Save(s.cfg); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Printf("  Wrote %s\n", config.ConfigPath())
	}
	return nil
}
