package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mandirseva/mandir-platform/cmd/mainconfig"
	"github.com/mandirseva/mandir-platform/internal/api/router"
	"github.com/mandirseva/mandir-platform/internal/booking"
	"github.com/mandirseva/mandir-platform/internal/catalog"
	appconfig "github.com/mandirseva/mandir-platform/internal/config"
	"github.com/mandirseva/mandir-platform/internal/content"
	"github.com/mandirseva/mandir-platform/internal/donations"
	"github.com/mandirseva/mandir-platform/internal/events"
	"github.com/mandirseva/mandir-platform/internal/members"
	"github.com/mandirseva/mandir-platform/internal/notify"
	"github.com/mandirseva/mandir-platform/internal/observability/metrics"
	"github.com/mandirseva/mandir-platform/internal/payments"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// API wires every store, service and handler behind the HTTP surface.
// Both the long-running server and the Lambda entrypoint build one of these.
type API struct {
	Handler http.Handler
	Logger  *logging.Logger
}

// BuildAPI constructs the full request-serving stack from configuration.
func BuildAPI(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*API, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: failed to load AWS config: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	contentMetrics := metrics.NewContentMetrics(registry)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	// Content: DynamoDB store, optional Redis read-through cache, bundled
	// fallback snapshot refreshed from S3 when configured.
	contentStore := content.NewStore(dynamoClient, cfg.ContentTable, logger)
	var contentReader content.Reader = contentStore
	var invalidator content.Invalidator
	if cfg.RedisAddr != "" {
		redisClient := BuildRedisClient(cfg)
		cached := content.NewCachedStore(contentStore, redisClient, cfg.ContentCacheTTL, contentMetrics, logger)
		contentReader = cached
		invalidator = cached
	}
	var snapshot *content.Snapshot
	if cfg.FallbackBucket != "" {
		snapshot = content.LoadSnapshot(ctx, s3.NewFromConfig(awsCfg), cfg.FallbackBucket, cfg.FallbackKey, logger)
	} else {
		snapshot = content.DefaultSnapshot()
	}
	resolver := content.NewResolver(contentReader, snapshot, contentMetrics, logger)
	contentHandler := content.NewHandler(resolver, contentStore, invalidator, logger)

	catalogStore := catalog.NewStore(dynamoClient, cfg.ServicesTable, logger)
	catalogHandler := catalog.NewHandler(catalogStore, logger)

	memberStore := members.NewStore(dynamoClient, cfg.MembersTable, logger)
	var updater members.Updater
	if cfg.CognitoUserPoolID != "" {
		updater = members.NewAttributeUpdater(cognitoidentityprovider.NewFromConfig(awsCfg), cfg.CognitoUserPoolID, logger)
	}
	membersHandler := members.NewHandler(memberStore, memberStore, updater, cfg.AdminGroup, logger)

	stripeSvc := payments.NewStripeService(cfg.StripeSecretKey, logger).WithDryRun(cfg.StripeDryRun)
	donationsHandler := donations.NewHandler(stripeSvc, logger)

	var publisher booking.EventPublisher
	if cfg.BookingEventsQueueURL != "" {
		queue := events.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.BookingEventsQueueURL)
		publisher = events.NewPublisher(queue, logger)
	}

	loc, err := time.LoadLocation(cfg.TempleTimezone)
	if err != nil {
		logger.Warn("invalid temple timezone, using local time", "timezone", cfg.TempleTimezone, "error", err)
		loc = time.Local
	}

	bookingStore := booking.NewStore(dynamoClient, cfg.BookingsTable, logger)
	bookingSvc := booking.NewService(bookingStore, catalogStore, memberStore, stripeSvc, publisher, booking.Settings{
		OpenHour:           cfg.TempleOpenHour,
		CloseHour:          cfg.TempleCloseHour,
		CleaningFeeMinimum: cfg.CleaningFeeMinimum,
		CancelNoticeHours:  cfg.CancelNoticeHours,
		LifeMemberGroup:    cfg.LifeMemberGroup,
		AdminGroup:         cfg.AdminGroup,
		Location:           loc,
	}, bookingMetrics, logger)
	bookingHandler := booking.NewHandler(bookingSvc, logger)

	handler := router.New(&router.Config{
		Logger:             logger,
		ContentHandler:     contentHandler,
		CatalogHandler:     catalogHandler,
		BookingHandler:     bookingHandler,
		MembersHandler:     membersHandler,
		DonationsHandler:   donationsHandler,
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CognitoRegion:      cfg.CognitoRegion,
		CognitoUserPoolID:  cfg.CognitoUserPoolID,
		CognitoClientID:    cfg.CognitoClientID,
		AdminGroup:         cfg.AdminGroup,
	})

	return &API{Handler: handler, Logger: logger}, nil
}

// BuildRedisClient constructs the shared Redis client.
func BuildRedisClient(cfg *appconfig.Config) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return redis.NewClient(opts)
}

// BuildNotifyService assembles the notification fan-out used by the worker.
func BuildNotifyService(cfg *appconfig.Config, awsCfg aws.Config, m *metrics.BookingMetrics, logger *logging.Logger) *notify.Service {
	var email notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			email = s
		}
	case "stub", "none":
		// handled by the fallback below
	default:
		if cfg.SESFromEmail != "" {
			if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.SESFromEmail,
				FromName:  cfg.SESFromName,
			}, logger); s != nil {
				email = s
			}
		}
	}
	if email == nil {
		email = notify.NewStubEmailSender(logger)
	}

	var sms notify.SMSSender = notify.NewStubSMSSender(logger)
	if cfg.Env != "development" {
		sms = notify.NewSNSSender(sns.NewFromConfig(awsCfg), cfg.SNSSenderID, logger)
	}

	return notify.NewService(email, sms, m, logger)
}
