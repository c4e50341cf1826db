package main

import (
	"context"
	"flag"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"

	"github.com/mandirseva/mandir-platform/cmd/mainconfig"
	"github.com/mandirseva/mandir-platform/internal/catalog"
	appconfig "github.com/mandirseva/mandir-platform/internal/config"
	"github.com/mandirseva/mandir-platform/internal/content"
	"github.com/mandirseva/mandir-platform/pkg/logging"
)

func boolPtr(b bool) *bool { return &b }

// defaultCatalog is the launch anusthan list. Prices are in cents; the office
// edits them in DynamoDB afterwards, this is only the starting point.
var defaultCatalog = []catalog.Service{
	{ID: "satyanarayan-katha", Category: catalog.CategoryMedium, AnusthanName: "Satyanarayan Katha", AmountCents: 30100, DurationHours: 3},
	{ID: "griha-pravesh", Category: catalog.CategoryMedium, AnusthanName: "Griha Pravesh", AmountCents: 25100, DurationHours: 2},
	{ID: "havan", Category: catalog.CategorySmall, AnusthanName: "Havan", AmountCents: 10100, DurationHours: 2},
	{ID: "sundar-kand-paath", Category: catalog.CategoryMedium, AnusthanName: "Sundar Kand Paath", AmountCents: 20100, DurationHours: 3},
	{ID: "ramayan-paath", Category: catalog.CategoryLarge, AnusthanName: "Ramayan Paath", AmountCents: 50100, DurationHours: 8},
	{ID: "mundan-sanskar", Category: catalog.CategorySmall, AnusthanName: "Mundan Sanskar", AmountCents: 15100, DurationHours: 1},
	{ID: "annaprashan", Category: catalog.CategorySmall, AnusthanName: "Annaprashan", AmountCents: 15100, DurationHours: 1},
	{ID: "vivah-sanskar", Category: catalog.CategorySpecial, AnusthanName: "Vivah Sanskar", AmountCents: 101000, DurationHours: 4},
	{ID: "priest-consultation", Category: catalog.CategoryService, AnusthanName: "Priest Consultation", AmountCents: 5100, DurationHours: 1,
		RequiresSlotBooking: boolPtr(false), Notes: "Phone or in person; the priest follows up to arrange a time."},
	{ID: catalog.CleaningFeeID, Category: catalog.CategoryService, AnusthanName: "Hall Cleaning Fee", AmountCents: 16000, DurationHours: 0,
		RequiresSlotBooking: boolPtr(false), Notes: "Applied automatically to bookings above the attendee threshold."},
}

func main() {
	_ = godotenv.Load()

	seedCatalog := flag.Bool("catalog", true, "seed the anusthan catalog")
	seedContent := flag.Bool("content", true, "seed site content from the embedded fallback snapshot")
	flag.Parse()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg)

	if *seedCatalog {
		store := catalog.NewStore(dynamoClient, cfg.ServicesTable, logger)
		for i := range defaultCatalog {
			svc := defaultCatalog[i]
			if err := store.Put(ctx, &svc); err != nil {
				logger.Error("failed to seed service", "error", err, "id", svc.ID)
				os.Exit(1)
			}
			logger.Info("seeded service", "id", svc.ID, "amount_cents", svc.AmountCents)
		}
	}

	if *seedContent {
		store := content.NewStore(dynamoClient, cfg.ContentTable, logger)
		snap := content.DefaultSnapshot()
		for _, item := range snapshotItems(snap) {
			if err := store.Put(ctx, &item); err != nil {
				logger.Error("failed to seed content", "error", err, "id", item.ID)
				os.Exit(1)
			}
			logger.Info("seeded content", "id", item.ID, "type", item.Type)
		}
	}

	logger.Info("seed complete")
}

func snapshotItems(snap *content.Snapshot) []content.Item {
	var items []content.Item
	for _, t := range []string{content.TypeHomepage, content.TypeAboutUs, content.TypeContact} {
		items = append(items, snap.Single(t))
	}
	for _, t := range content.ListTypes {
		items = append(items, snap.List(t)...)
	}
	return items
}
