package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cotpanel/cotpanel/internal/api"
	"github.com/cotpanel/cotpanel/internal/auth"
	"github.com/cotpanel/cotpanel/internal/config"
	"github.com/cotpanel/cotpanel/internal/editor"
	"github.com/cotpanel/cotpanel/internal/envfile"
	"github.com/cotpanel/cotpanel/internal/journal"
	"github.com/cotpanel/cotpanel/internal/logging"
	"github.com/cotpanel/cotpanel/internal/metric"
	"github.com/cotpanel/cotpanel/internal/monitor"
	"github.com/cotpanel/cotpanel/internal/pkginfo"
	"github.com/cotpanel/cotpanel/internal/storage"
	"github.com/cotpanel/cotpanel/internal/unit"
	"github.com/cotpanel/cotpanel/internal/updater"
	"github.com/cotpanel/cotpanel/web"
)

// sweepInterval is how often stored audit entries and revisions are
// trimmed to their configured caps.
const sweepInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the panel web server",
	Long: `Run the panel web server. Controlling the unit and writing
/etc/default/adsbcot need root; set COTPANEL_NO_ROOT=1 to skip the
check during development.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logging.NewFromEnv()

	if err := auth.RequireRoot(); err != nil {
		return err
	}
	if !auth.IsRunningAsRoot() {
		log.Warn().Msg("running without root; unit control and config writes will fail")
	}

	cfg, err := config.NewManager(resolveConfigPath())
	if err != nil {
		return err
	}
	appConfig := cfg.Get()

	log = logging.New(logging.Config{
		Level:      appConfig.Logging.Level,
		Format:     appConfig.Logging.Format,
		TimeFormat: time.RFC3339,
	})
	log.Info().Str("config", resolveConfigPath()).Msg("starting cotpanel")

	store, err := storage.New(appConfig.Storage.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	manager, err := unit.NewSystemdManager(appConfig.Service.Unit)
	if err != nil {
		return err
	}

	ed := editor.New(envfile.NewStore(appConfig.Service.EnvFile))

	reader, err := journal.NewReader(appConfig.Service.Unit)
	if err != nil {
		return err
	}
	sessions := journal.NewSessions(reader, appConfig.Journal.MaxFollow)

	poller := monitor.NewPoller(
		manager,
		store,
		log.With().Str("component", "monitor").Logger(),
		appConfig.Monitor.Interval,
		appConfig.Monitor.HistorySize,
	)

	resolver := pkginfo.NewResolver()

	upd := updater.NewUpdater(
		appConfig.Updater.Repo,
		appConfig.Updater.Enabled,
		appConfig.Updater.CheckInterval,
	)

	metrics := metric.New()

	router := api.NewRouter(
		cfg,
		store,
		manager,
		poller,
		ed,
		reader,
		sessions,
		resolver,
		upd,
		metrics,
		log.With().Str("component", "api").Logger(),
	)

	web.RegisterStaticRoutes(router.Engine())
	router.StartWebSocketHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go poller.Start(ctx)
	go upd.Run(ctx, log.With().Str("component", "updater").Logger())

	// Push every status snapshot to connected WebSocket clients and keep
	// the unit status gauge current.
	go func() {
		sub := poller.Subscribe()
		defer poller.Unsubscribe(sub)
		for snapshot := range sub {
			router.BroadcastStatus(snapshot)
			metrics.RecordUnitStatus(snapshot.Unit.Status)
		}
	}()

	// Trim audit entries and revisions in the background.
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c := cfg.Get()
				if err := store.Sweep(c.Storage.AuditRetention, c.Storage.MaxRevisions); err != nil {
					log.Warn().Err(err).Msg("storage sweep failed")
				}
			}
		}
	}()

	cfg.OnReload(func(c *config.Config) {
		log.Info().Msg("configuration reloaded")
		if c.Address() != appConfig.Address() {
			log.Warn().Str("address", c.Address()).Msg("listen address changes need a restart")
		}
	})

	server := &http.Server{
		Addr:         appConfig.Address(),
		Handler:      router.Engine(),
		ReadTimeout:  appConfig.Server.ReadTimeout,
		WriteTimeout: appConfig.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("address", appConfig.Address()).Msg("server listening")
		log.Info().Msgf("swagger ui: http://%s/swagger/index.html", appConfig.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-quit
		if sig == syscall.SIGHUP {
			log.Info().Msg("reloading configuration")
			if err := cfg.Reload(); err != nil {
				log.Error().Err(err).Msg("failed to reload configuration")
			}
			continue
		}
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		break
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
	defer shutdownCancel()

	sessions.CloseAll()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	cancel()
	log.Info().Msg("server stopped")
	return nil
}
