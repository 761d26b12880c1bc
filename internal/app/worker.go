package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/microshop/internal/event/rabbitmq"
	"github.com/xenking/microshop/internal/notify"
	"github.com/xenking/microshop/pkg/health"
)

// RunWorker starts the notification worker: a durable subscription on the
// notifications queue plus a small health server. It blocks until the context
// is cancelled or the subscription fails permanently.
func RunWorker(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	if cfg.BrokerURL == "" {
		return errors.New("broker URL is required: set SHOP_BROKER_URL")
	}

	bus := rabbitmq.New(cfg.BrokerURL)
	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host: cfg.SMTP.Host,
		Port: cfg.SMTP.Port,
		User: cfg.SMTP.User,
		Pass: cfg.SMTP.Pass,
		From: cfg.SMTP.From,
	})
	dispatcher := notify.NewDispatcher(mailer, notify.NewSeen(0))

	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)
	defer healthSvc.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		Addr:              cfg.WorkerAddr,
		Handler:           mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Consuming notifications",
			zap.String("queue", notify.Queue),
			zap.Strings("bindings", notify.Bindings),
		)
		if err := bus.Subscribe(gctx, notify.Queue, notify.Bindings, dispatcher.Handle); err != nil {
			return errors.Wrap(err, "subscribe")
		}
		return nil
	})
	g.Go(func() error {
		lg.Info("Health server listening", zap.String("addr", cfg.WorkerAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "health server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Health server shutdown error", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
