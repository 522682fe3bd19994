package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aulacal/internal/config"
	"aulacal/internal/ics"
	appLog "aulacal/internal/log"
	"aulacal/internal/model"
	"aulacal/internal/refresh"
	"aulacal/internal/store"
	"aulacal/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	migrate    bool

	importSrc string
	group     string
	from      string
	to        string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("aulacal starting", "version", version)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"db_driver", conf.Database.Driver,
		"default_view", conf.Calendar.DefaultView,
		"basic_auth", conf.BasicAuth != nil,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(conf.Database.Driver, conf.Database.DSN)
	if err != nil {
		appLog.Error("failed to open database", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		appLog.Error("failed to migrate database", err)
		os.Exit(1)
	}
	if flags.migrate {
		appLog.Info("schema is up to date")
		return
	}

	if flags.importSrc != "" {
		if err := runImport(ctx, conf, st, flags); err != nil {
			appLog.Error("import failed", err, "source", flags.importSrc)
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, st); err != nil {
		appLog.Error("server failed", err)
		os.Exit(1)
	}
	appLog.Info("aulacal exiting")
}

func serve(ctx context.Context, conf *config.Config, st store.Backend) error {
	refresher := refresh.New(st)
	if _, err := refresher.Refresh(ctx); err != nil {
		// Keep serving; the cron run retries.
		appLog.Warn("initial refresh failed", "err", err)
	}
	if err := refresher.Start(conf.RefreshCron); err != nil {
		return err
	}
	defer refresher.Stop()

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, st, refresher).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runImport loads an ICS schedule into one class group.
func runImport(ctx context.Context, conf *config.Config, st store.Backend, flags flagConfig) error {
	if flags.group == "" {
		return errors.New("-import needs -group")
	}

	groups, err := st.FetchClassGroups(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, g := range groups {
		if g.ID == flags.group {
			found = true
			break
		}
	}
	if !found {
		return errors.New("unknown class group " + flags.group)
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return err
	}
	cfg := ics.ImportConfig{ClassGroupID: flags.group, Location: loc}
	if cfg.RangeStart, err = parseDateFlag(flags.from, loc); err != nil {
		return errors.New("-from must be YYYY-MM-DD")
	}
	if cfg.RangeEnd, err = parseDateFlag(flags.to, loc); err != nil {
		return errors.New("-to must be YYYY-MM-DD")
	}

	body, err := ics.Fetch(ctx, flags.importSrc)
	if err != nil {
		return err
	}
	res, err := ics.ParseLessons(body, cfg)
	if err != nil {
		return err
	}
	if len(res.Truncated) > 0 {
		appLog.Warn("recurrence expansion capped", "uids", len(res.Truncated))
	}

	saved, err := st.InsertLessons(ctx, res.Lessons)
	if err != nil {
		return err
	}
	appLog.Info("import completed", "group", flags.group, "lessons", len(saved), "skipped", res.Skipped)
	return nil
}

func parseDateFlag(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(model.DateLayout, v, loc)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/aulacal/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.migrate, "migrate", false, "Create the database schema and exit")
	flag.StringVar(&cfg.importSrc, "import", "", "Import lessons from an ICS file path or http(s) URL and exit")
	flag.StringVar(&cfg.group, "group", "", "Class group id the imported lessons belong to")
	flag.StringVar(&cfg.from, "from", "", "First day (YYYY-MM-DD) of recurrence expansion on import")
	flag.StringVar(&cfg.to, "to", "", "Last day (YYYY-MM-DD) of recurrence expansion on import")

	flag.Parse()

	return cfg
}
