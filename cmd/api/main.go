package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive"
	archiverepo "github.com/ovaphlow/pitchfork/service-order-go/internal/archive/repo"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/order"
	orderrepo "github.com/ovaphlow/pitchfork/service-order-go/internal/order/repo"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/scheduler"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-order-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/utilities"
)

func main() {
	// best-effort: without a .env the real environment is used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg, err := config.FromEnv()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	zone := cfg.Zone()
	sugar.Infow("starting service-order-go", "addr", cfg.HTTPAddr, "zone", zone.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db.DB); err != nil {
		sugar.Fatalf("db migrate: %v", err)
	}

	clock := clockwork.NewRealClock()
	m := metrics.New()

	tokens, err := auth.NewIssuer(cfg.TokenSecret, cfg.TokenTTL, clock)
	if err != nil {
		sugar.Fatalf("token issuer: %v", err)
	}
	if cfg.TokenSecret == "" {
		sugar.Warn("TOKEN_SECRET not set; login tokens will not survive a restart")
	}

	users := user.NewUserService(userrepo.NewUserRepo(db), user.BcryptHasher{Cost: cfg.BcryptCost})
	orders := order.NewService(orderrepo.NewOrderRepo(db), zone, clock)
	archiveRepo := archiverepo.NewArchiveRepo(db)
	node := utilities.NodeIDFromEnv()
	archiver := archive.NewService(archiveRepo, zone, clock, sugar,
		archive.WithObserver(m),
		archive.WithRunIDs(func() string { return utilities.NewSnowflakeIDWithNode(node) }),
	)
	queries := archive.NewQueryService(archiveRepo, zone)

	sched, err := scheduler.New(cfg.ArchiveSchedule, zone, archiver, cfg.ArchiveTimeout, sugar)
	if err != nil {
		sugar.Fatalf("scheduler: %v", err)
	}
	if cfg.ArchiveOnStartup {
		// catch up on days that rolled over while the service was down
		if err := sched.RunOnce(ctx); err != nil {
			sugar.Warnw("startup archive run failed", "err", err)
		}
	}
	sched.Start()

	handler := router.RegisterRoutes(sugar, router.Deps{
		Users:              user.NewHandler(users, tokens, sugar),
		Orders:             order.NewHandler(orders, sugar),
		Archive:            archive.NewHandler(archiver, queries, sugar),
		Metrics:            m,
		Tokens:             tokens,
		RequireAdmin:       cfg.AdminTokenRequired,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		Ping:               db.PingContext,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sched.Stop(doneCtx)

	sugar.Info("goodbye")
}
