package syndication

import (
	"context"
	"time"

	"github.com/pixelpress/pixelpress/app/pixelfed"
)

// Publisher is the slice of the Pixelfed API the orchestrator needs.
type Publisher interface {
	UploadMedia(ctx context.Context, host, bearerToken string, media pixelfed.Media) (string, error)
	CreateStatus(ctx context.Context, host, bearerToken, text, mediaID string) (*pixelfed.Status, error)
}

var _ Publisher = (*pixelfed.Client)(nil)

// DeferFunc hands a post off to an external one-shot scheduler instead of
// sharing it inline.
type DeferFunc func(postID int64, delay time.Duration)
