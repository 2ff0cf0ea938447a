package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/peerproof/backend/internal/config"
	"github.com/peerproof/backend/internal/db"
	"github.com/peerproof/backend/internal/events"
	"github.com/peerproof/backend/internal/repositories"
	"github.com/peerproof/backend/internal/services"
	"github.com/peerproof/backend/internal/solana"
	"go.uber.org/zap"
)

// The poller is the safety net behind on-demand verification: buyers who
// pay and close the tab still get their escrow flipped to paid.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	escrowRepo := repositories.NewEscrowRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)
	ledger := solana.NewClient(cfg.SolanaRPCURL, cfg.LedgerTimeout, log)
	paymentService := services.NewPaymentService(escrowRepo, ledger, publisher, cfg.PaymentScanLimit, log)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	log.Info("payment poller started",
		zap.Duration("interval", cfg.PollInterval),
		zap.Int("batch_size", cfg.PollBatchSize),
	)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("payment poller stopped")
			return
		case <-ticker.C:
			paymentService.VerifyPending(ctx, cfg.PollBatchSize)
		}
	}
}
