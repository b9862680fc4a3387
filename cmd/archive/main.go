// Command archive performs one archival run and exits. It is meant for an
// external scheduler (cron, a Kubernetes CronJob) when the API's built-in
// schedule is not used.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-order-go/internal/archive"
	archiverepo "github.com/ovaphlow/pitchfork/service-order-go/internal/archive/repo"
	"github.com/ovaphlow/pitchfork/service-order-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-order-go/pkg/utilities"
)

func main() {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.ArchiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ArchiveTimeout)
		defer cancel()
	}

	db, err := database.Connect(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db.DB); err != nil {
		sugar.Fatalf("db migrate: %v", err)
	}

	svc := archive.NewService(archiverepo.NewArchiveRepo(db), cfg.Zone(), clockwork.NewRealClock(), sugar)
	res, err := svc.ArchiveDueOrders(ctx)
	if err != nil {
		sugar.Errorw("archive run failed", "err", err)
		lg.Sync()
		os.Exit(1)
	}
	sugar.Infow("archive run complete", "run_id", res.RunID, "moved", res.MovedCount, "today", res.Today.String())
}
