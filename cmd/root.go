// Package cmd implements the feaso CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/theirongolddev/feaso/internal/config"
	"github.com/theirongolddev/feaso/internal/model"
	"github.com/theirongolddev/feaso/internal/pipeline"
	"github.com/theirongolddev/feaso/internal/source"
	"github.com/theirongolddev/feaso/internal/store"
	"github.com/theirongolddev/feaso/internal/telemetry"
	"github.com/theirongolddev/feaso/internal/tui/theme"

	"github.com/spf13/cobra"
)

var (
	flagProject   string
	flagDB        string
	flagSchedule  string
	flagNow       string
	flagQuiet     bool
	flagTelemetry bool
)

var rootCmd = &cobra.Command{
	Use:           "feaso",
	Short:         "Property development feasibility and cashflow ledger",
	Long:          "Budget a development project, spread it across the schedule, and track forecast against actuals.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runShow,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "Project id (default from config)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite ledger path, or a postgres:// URL")
	rootCmd.PersistentFlags().StringVarP(&flagSchedule, "schedule", "s", "", "Schedule file, directory or http(s) URL")
	rootCmd.PersistentFlags().StringVar(&flagNow, "now", "", "Treat this date (YYYY-MM-DD) as today")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&flagTelemetry, "telemetry", false, "Report recompute timings to stderr")
}

// loadConfig reads .env, the config file and the environment, then applies
// command-line overrides.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if flagProject != "" {
		cfg.General.ProjectID = flagProject
	}
	if flagDB != "" {
		if isPostgresURL(flagDB) {
			cfg.Store.Driver = store.DriverPostgres
			cfg.Store.URL = flagDB
		} else {
			cfg.Store.Driver = store.DriverSQLite
			cfg.Store.Path = flagDB
		}
	}
	if flagSchedule != "" {
		if strings.HasPrefix(flagSchedule, "http://") || strings.HasPrefix(flagSchedule, "https://") {
			cfg.Schedule.URL = flagSchedule
			cfg.Schedule.Path = ""
		} else {
			cfg.Schedule.Path = flagSchedule
			cfg.Schedule.URL = ""
		}
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = config.DefaultDBPath()
	}
	theme.SetActive(cfg.Appearance.Theme)
	return cfg, nil
}

func isPostgresURL(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// session is one opened project: its store, persister and loaded engine.
type session struct {
	cfg       config.Config
	project   string
	store     store.Store
	persister *pipeline.Persister
	engine    *pipeline.Engine
	schedule  source.ScheduleSource
	collector *telemetry.TimingCollector
	ctx       context.Context
}

// openSession is the shared load path used by every ledger command. It
// opens the store, fetches the schedule, and bulk-loads the engine.
// onChange is passed through to the engine and may be nil.
func openSession(ctx context.Context, onChange func(ids []string)) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	s := &session{cfg: cfg, project: cfg.General.ProjectID}
	if flagTelemetry {
		s.collector = telemetry.NewTimingCollector()
		ctx = telemetry.WithCollector(ctx, s.collector)
	}
	s.ctx = ctx

	rng, err := projectRange(cfg)
	if err != nil {
		return nil, err
	}
	now, err := nowFunc()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, store.Config{
		Driver: cfg.Store.Driver,
		Path:   cfg.Store.Path,
		URL:    cfg.Store.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("opening ledger store: %w", err)
	}
	s.store = st

	s.schedule = scheduleSource(cfg, st)
	tasks, err := s.schedule.LoadSchedule(ctx, s.project)
	if err != nil {
		// The ledger still loads; dated items just stay undistributed.
		progressf("  Schedule unavailable: %v\n", err)
		tasks = nil
	}

	persisted, err := st.LoadRows(ctx, s.project)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("loading ledger: %w", err)
	}

	s.persister = pipeline.NewPersister(st, s.project, cfg.Debounce())
	s.engine = pipeline.New(pipeline.Config{
		Range:     rng,
		Now:       now,
		Persister: s.persister,
		OnChange:  onChange,
	})
	if _, err := s.engine.OnBulkLoad(ctx, persisted, tasks); err != nil {
		_ = st.Close()
		return nil, err
	}

	progressf("  Loaded %s: %d rows, %d schedule tasks, %d periods\n",
		s.project, len(s.engine.Rows()), len(tasks), len(s.engine.Periods()))
	return s, nil
}

// close flushes pending writes and releases the store.
func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	flushErr := s.persister.Flush(ctx)
	closeErr := s.store.Close()
	if s.collector != nil {
		s.collector.Report(os.Stderr)
	}
	if flushErr != nil {
		return fmt.Errorf("saving ledger: %w", flushErr)
	}
	return closeErr
}

// scheduleSource picks the schedule backend: URL first, then a file or
// directory. Either is wrapped with the store as a last-known-good cache.
func scheduleSource(cfg config.Config, st store.Store) source.ScheduleSource {
	var src source.ScheduleSource = source.None{}
	if h := source.NewHTTPSource(cfg.Schedule.URL, cfg.Schedule.Token); h != nil {
		src = h
	} else if cfg.Schedule.Path != "" {
		src = source.FileSource{Path: cfg.Schedule.Path}
	}
	return source.Cached{Source: src, Cache: st}
}

func projectRange(cfg config.Config) (pipeline.Range, error) {
	var r pipeline.Range
	if cfg.General.StartMonth == "" && cfg.General.EndMonth == "" {
		return r, nil
	}
	start, err := parseMonth(cfg.General.StartMonth)
	if err != nil {
		return r, fmt.Errorf("start_month: %w", err)
	}
	end, err := parseMonth(cfg.General.EndMonth)
	if err != nil {
		return r, fmt.Errorf("end_month: %w", err)
	}
	if end.Before(start) {
		return r, errors.New("end_month is before start_month")
	}
	return pipeline.Range{Start: start, End: end}, nil
}

func parseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, ok := model.Period(s).Time(); ok {
		return t, nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid month %q (want Jan 2025 or 2025-01)", s)
}

func nowFunc() (func() time.Time, error) {
	if flagNow == "" {
		return time.Now, nil
	}
	t, ok := model.ParseDate(flagNow)
	if !ok {
		return nil, fmt.Errorf("invalid --now %q", flagNow)
	}
	return func() time.Time { return t }, nil
}

func progressf(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Fprintf(os.Stderr, format, args...)
}
