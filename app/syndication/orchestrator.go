package syndication

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pixelpress/pixelpress/app/config"
	"github.com/pixelpress/pixelpress/app/database"
	"github.com/pixelpress/pixelpress/app/pixelfed"
)

const (
	// Posts older than this are not shared via the "always share" or
	// override paths; only an explicit per-post enable gets through. Guards
	// against bulk imports of old content mass-triggering shares.
	maxPostAge = 12 * time.Hour

	// Delayed shares fire at most this much later.
	maxShareDelay = time.Hour
)

// Error kinds recorded on a post when a share fails.
const (
	ErrorKindUpload = "upload"
	ErrorKindStatus = "status"
)

// Orchestrator decides, per post-transition event, whether to syndicate a
// post, optionally defers the share, and runs the image-upload plus
// status-create sequence. Failures never propagate; they are either recorded
// on the post or only logged.
type Orchestrator struct {
	settings  database.SettingsRepository
	posts     database.PostRepository
	media     database.AttachmentRepository
	publisher Publisher
	resolver  *ImageResolver
	composer  *Composer

	// Defer schedules a delayed share. When nil, delayed sharing is
	// unavailable and shares run inline.
	Defer DeferFunc

	// EnableOverride, when set, gets the last word on whether a post is
	// shared (before the age gate).
	EnableOverride func(enabled bool, post *database.Post) bool

	// StatusOverride, when set, may replace the final status text.
	StatusOverride func(status string, post *database.Post) string

	now func() time.Time
}

// NewOrchestrator creates a new syndication orchestrator
func NewOrchestrator(settings database.SettingsRepository, posts database.PostRepository,
	media database.AttachmentRepository, publisher Publisher,
	resolver *ImageResolver, composer *Composer) *Orchestrator {
	return &Orchestrator{
		settings:  settings,
		posts:     posts,
		media:     media,
		publisher: publisher,
		resolver:  resolver,
		composer:  composer,
		now:       time.Now,
	}
}

// HandleTransition runs for every post status transition the blog reports.
// It applies the eligibility and setup gates and then either shares inline or
// schedules a delayed share. Ineligible posts are skipped silently; that is
// the common case, not an error.
func (o *Orchestrator) HandleTransition(ctx context.Context, oldStatus, newStatus string, post *database.Post) error {
	settings, err := o.settings.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if !o.isEligible(settings, newStatus, post) {
		return nil
	}

	if settings.Host == "" || settings.AccessToken == "" {
		// Setup incomplete. Not a failure of the post.
		slog.Debug("Syndication setup incomplete, skipping", "post_id", post.ID)
		return nil
	}

	if settings.DelaySharing > 0 && o.Defer != nil {
		delay := time.Duration(settings.DelaySharing) * time.Second
		if delay > maxShareDelay {
			delay = maxShareDelay
		}

		slog.Debug("Deferring share", "post_id", post.ID, "delay", delay.String())
		o.Defer(post.ID, delay)
		return nil
	}

	return o.SharePost(ctx, post.ID)
}

// isEligible applies the per-post gates: published, not password-protected,
// allowed post type, not already shared, and sharing enabled for this post.
func (o *Orchestrator) isEligible(settings *config.Settings, newStatus string, post *database.Post) bool {
	if newStatus != "publish" {
		return false
	}
	if post.Password != "" {
		return false
	}
	if !slices.Contains(settings.PostTypes, post.Type) {
		return false
	}
	if post.SyndicationURL != "" {
		// Already shared; only an explicit unlink makes it eligible again.
		return false
	}

	explicit := post.ShareEnabled == "1"
	enabled := explicit || settings.ShareAlways

	if o.EnableOverride != nil {
		enabled = o.EnableOverride(enabled, post)
	}

	if !enabled {
		return false
	}

	if !explicit && post.PublishedAt != nil && o.now().Sub(*post.PublishedAt) > maxPostAge {
		slog.Debug("Post too old for non-explicit sharing", "post_id", post.ID)
		return false
	}

	return true
}

// SharePost performs the actual share: claim the post, resolve and upload its
// image, compose the status, and create it remotely. Runs inline or from a
// deferred task; the claim keeps concurrent triggers from double-posting.
func (o *Orchestrator) SharePost(ctx context.Context, postID int64) error {
	settings, err := o.settings.Load()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	post, err := o.posts.GetPost(postID)
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	if post == nil {
		slog.Warn("Post vanished before sharing", "post_id", postID)
		return nil
	}

	if post.SyndicationURL != "" {
		return nil
	}
	if settings.Host == "" || settings.AccessToken == "" {
		return nil
	}

	claimed, err := o.posts.ClaimSyndication(postID)
	if err != nil {
		return fmt.Errorf("failed to claim post: %w", err)
	}
	if !claimed {
		slog.Debug("Post already claimed or shared", "post_id", postID)
		return nil
	}

	mediaID, ok := o.uploadImage(ctx, settings, post)
	if !ok {
		return nil
	}

	customStatus := ""
	if settings.CustomStatusField {
		customStatus = post.CustomStatus
	}

	status := o.composer.Run(customStatus, settings.StatusTemplate, post)
	if o.StatusOverride != nil {
		status = o.StatusOverride(status, post)
	}

	created, err := o.publisher.CreateStatus(ctx, settings.Host, settings.AccessToken, status, mediaID)
	if err != nil {
		if apiErr, ok := pixelfed.AsAPIError(err); ok {
			slog.Info("Status rejected by instance", "post_id", postID, "error", apiErr.Message)
			return o.posts.SetSyndicationError(postID, ErrorKindStatus, apiErr.Message)
		}

		slog.Debug("Status creation failed", "post_id", postID, "error", err)
		return o.posts.ReleaseSyndicationClaim(postID)
	}

	slog.Info("Post shared", "post_id", postID, "url", created.URL)

	return o.posts.SetSyndicationURL(postID, created.URL)
}

// uploadImage resolves the post's image and uploads it, returning the remote
// media ID. A false result means the share must stop; the claim has been
// released or an error recorded as appropriate.
func (o *Orchestrator) uploadImage(ctx context.Context, settings *config.Settings, post *database.Post) (string, bool) {
	attachmentID, alt := o.resolver.Resolve(post, settings.UseFirstImage)
	if attachmentID == 0 {
		// No image, no share.
		slog.Debug("No image resolved, skipping share", "post_id", post.ID)
		o.releaseClaim(post.ID)
		return "", false
	}

	attachment, err := o.media.GetAttachment(attachmentID)
	if err != nil || attachment == nil {
		slog.Warn("Resolved attachment not found", "post_id", post.ID, "attachment_id", attachmentID, "error", err)
		o.releaseClaim(post.ID)
		return "", false
	}

	data, err := os.ReadFile(attachment.FilePath)
	if err != nil {
		slog.Warn("Failed to read attachment file", "post_id", post.ID, "path", attachment.FilePath, "error", err)
		o.releaseClaim(post.ID)
		return "", false
	}

	media := pixelfed.Media{
		FileName: filepath.Base(attachment.FilePath),
		MimeType: attachment.MimeType,
		Data:     data,
		AltText:  alt,
	}

	mediaID, err := o.publisher.UploadMedia(ctx, settings.Host, settings.AccessToken, media)
	if err != nil {
		if apiErr, ok := pixelfed.AsAPIError(err); ok {
			slog.Info("Media rejected by instance", "post_id", post.ID, "error", apiErr.Message)
			if storeErr := o.posts.SetSyndicationError(post.ID, ErrorKindUpload, apiErr.Message); storeErr != nil {
				slog.Error("Failed to record syndication error", "post_id", post.ID, "error", storeErr)
			}
		} else {
			slog.Debug("Media upload failed", "post_id", post.ID, "error", err)
			o.releaseClaim(post.ID)
		}
		return "", false
	}

	return mediaID, true
}

// Unlink forgets a post's syndication URL, making it eligible for resharing.
// The remote status is left alone; there is no remote un-post.
func (o *Orchestrator) Unlink(postID int64) error {
	return o.posts.Unlink(postID)
}

func (o *Orchestrator) releaseClaim(postID int64) {
	if err := o.posts.ReleaseSyndicationClaim(postID); err != nil {
		slog.Error("Failed to release syndication claim", "post_id", postID, "error", err)
	}
}
