package content

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mandirseva/mandir-platform/pkg/logging"
)

// The embedded snapshot is the "last known good" copy of the content store,
// regenerated offline by cmd/seed. It is intentionally allowed to go stale:
// serving old content beats serving an empty page.
//
//go:embed fallback.json
var embeddedSnapshot []byte

// Snapshot is the static fallback copy of every content category.
type Snapshot struct {
	GeneratedAt string `json:"generated_at"`
	Homepage    *Item  `json:"homepage"`
	AboutUs     *Item  `json:"about_us"`
	Contact     *Item  `json:"contact"`
	News        []Item `json:"news"`
	Events      []Item `json:"events"`
	Projects    []Item `json:"projects"`
	FAQs        []Item `json:"faqs"`
}

// ParseSnapshot decodes a snapshot document.
func ParseSnapshot(raw []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("content: failed to parse fallback snapshot: %w", err)
	}
	return &snap, nil
}

// DefaultSnapshot returns the compiled-in snapshot.
func DefaultSnapshot() *Snapshot {
	snap, err := ParseSnapshot(embeddedSnapshot)
	if err != nil {
		// The embedded document is checked by tests; a parse failure here is
		// a build defect, not a runtime condition.
		panic(err)
	}
	return snap
}

type s3API interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// LoadSnapshot returns the freshest snapshot available: the S3 copy when
// bucket/key are configured and readable, otherwise the embedded copy. It
// never fails.
func LoadSnapshot(ctx context.Context, client s3API, bucket, key string, logger *logging.Logger) *Snapshot {
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil || bucket == "" || key == "" {
		return DefaultSnapshot()
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logger.Warn("fallback snapshot fetch failed, using embedded copy", "error", err, "bucket", bucket, "key", key)
		return DefaultSnapshot()
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		logger.Warn("fallback snapshot read failed, using embedded copy", "error", err)
		return DefaultSnapshot()
	}
	snap, err := ParseSnapshot(raw)
	if err != nil {
		logger.Warn("fallback snapshot parse failed, using embedded copy", "error", err)
		return DefaultSnapshot()
	}
	logger.Info("fallback snapshot refreshed from S3", "generated_at", snap.GeneratedAt)
	return snap
}

// Single returns the fallback document for a single-item category. The shape
// is always usable even when the snapshot lacks the category.
func (s *Snapshot) Single(contentType string) Item {
	var item *Item
	switch contentType {
	case TypeHomepage:
		item = s.Homepage
	case TypeAboutUs:
		item = s.AboutUs
	case TypeContact:
		item = s.Contact
	}
	if item == nil {
		return Item{ID: contentType, Type: contentType, Data: map[string]interface{}{}}
	}
	return *item
}

// List returns the fallback collection for a list category, never nil.
func (s *Snapshot) List(contentType string) []Item {
	var items []Item
	switch contentType {
	case TypeNews:
		items = s.News
	case TypeEvents:
		items = s.Events
	case TypeProjects:
		items = s.Projects
	case TypeFAQs:
		items = s.FAQs
	}
	if items == nil {
		return []Item{}
	}
	return items
}
