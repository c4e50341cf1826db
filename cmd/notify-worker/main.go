package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mandirseva/mandir-platform/cmd/mainconfig"
	"github.com/mandirseva/mandir-platform/internal/app/bootstrap"
	appconfig "github.com/mandirseva/mandir-platform/internal/config"
	"github.com/mandirseva/mandir-platform/internal/events"
	"github.com/mandirseva/mandir-platform/internal/observability/metrics"
	"github.com/mandirseva/mandir-platform/internal/worker/notifyworker"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.BookingEventsQueueURL == "" {
		logger.Error("BOOKING_EVENTS_QUEUE_URL is required")
		os.Exit(1)
	}

	awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue := events.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.BookingEventsQueueURL)
	bookingMetrics := metrics.NewBookingMetrics(prometheus.NewRegistry())
	notifier := bootstrap.BuildNotifyService(cfg, awsCfg, bookingMetrics, logger)
	worker := notifyworker.New(queue, notifier, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutting down notify worker...")
		cancel()
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("notify worker exited", "error", err)
		os.Exit(1)
	}
	logger.Info("notify worker stopped")
}
