// Command server runs the identity and governance gateway: OTP login flows,
// staff session management, maker-checker rate governance, and the role
// inboxes, behind one HTTP listener.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	govservice "taxgate/internal/governance/service"
	govstore "taxgate/internal/governance/store"
	idservice "taxgate/internal/identity/service"
	idstore "taxgate/internal/identity/store"
	"taxgate/internal/identity/store/revocation"
	"taxgate/internal/identity/token"
	notifservice "taxgate/internal/notification/service"
	notifstore "taxgate/internal/notification/store"
	"taxgate/internal/notifier"
	"taxgate/internal/platform/config"
	"taxgate/internal/platform/httpserver"
	"taxgate/internal/platform/logger"
	"taxgate/internal/platform/metrics"
	platformredis "taxgate/internal/platform/redis"
	httptransport "taxgate/internal/transport/http"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	m := metrics.New()

	principals, params, inboxes, closeStores, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStores()

	denylist, closeDenylist, err := buildDenylist(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDenylist()

	var sender notifier.Notifier = notifier.NewLog(log)
	if cfg.SMTPAddr != "" {
		log.Info("using SMTP notifier", "addr", cfg.SMTPAddr, "from", cfg.SMTPFrom)
		sender = notifier.NewSMTP(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	dispatcher := notifier.NewDispatcher(sender, log, m, cfg.NotifierTimeout)

	identity, err := idservice.New(principals, denylist, token.NewService(cfg.JWTSigningKey, "taxgate"), dispatcher,
		idservice.WithLogger(log),
		idservice.WithMetrics(m),
		idservice.WithOTPTTL(cfg.OTPTTL),
		idservice.WithTokenTTL(cfg.TokenTTL),
	)
	if err != nil {
		return err
	}

	inbox, err := notifservice.New(inboxes,
		notifservice.WithLogger(log),
		notifservice.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	rates, err := govservice.New(params, identity, inbox,
		govservice.WithLogger(log),
		govservice.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	router := httptransport.NewRouter(
		httptransport.NewAuthHandler(identity),
		httptransport.NewRateHandler(rates),
		httptransport.NewNotificationHandler(inbox),
		identity,
		log,
	)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if n, err := identity.SweepExpired(ctx); err != nil {
					log.Warn("credential sweep failed", "error", err)
				} else if n > 0 {
					log.Info("swept expired credentials", "count", n)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	dispatcher.Wait()
	return err
}

// buildStores selects postgres-backed stores when a database URL is set and
// in-memory stores otherwise.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (idstore.PrincipalStore, govstore.RateParameterStore, notifstore.NotificationStore, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured; using in-memory stores")
		return idstore.NewInMemory(), govstore.NewInMemory(), notifstore.NewInMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, nil, nil, err
	}

	log.Info("connected to postgres")
	return idstore.NewPostgres(db), govstore.NewPostgres(db), notifstore.NewPostgres(db), func() { db.Close() }, nil
}

// buildDenylist selects the Redis denylist when configured. The in-process
// fallback is correct only for a single instance: revocations are lost on
// restart and invisible to other replicas.
func buildDenylist(ctx context.Context, cfg config.Config, log *slog.Logger) (revocation.Denylist, func(), error) {
	client, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		log.Warn("no redis configured; using in-process token denylist")
		return revocation.NewInMemory(), func() {}, nil
	}
	log.Info("connected to redis")
	return revocation.NewRedis(client.Client), func() { client.Close() }, nil
}
