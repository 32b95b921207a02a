package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostRepo handles database operations for posts and their syndication state
type PostRepo struct {
	db *DB
}

// NewPostRepo creates a new post repository
func NewPostRepo(db *DB) *PostRepo {
	return &PostRepo{db: db}
}

// GetPost retrieves a post by its ID
func (r *PostRepo) GetPost(postID int64) (*Post, error) {
	var post Post
	var tags string
	err := r.db.QueryRow(`
		SELECT id, post_type, status, password, title, content, excerpt, permalink,
		       tags, featured_image_id, published_at,
		       share_enabled, custom_status, syndication_url, syndication_error,
		       syndication_error_kind, syndication_claimed, created_at, updated_at
		FROM posts
		WHERE id = ?
	`, postID).Scan(
		&post.ID, &post.Type, &post.Status, &post.Password, &post.Title,
		&post.Content, &post.Excerpt, &post.Permalink, &tags,
		&post.FeaturedImageID, &post.PublishedAt,
		&post.ShareEnabled, &post.CustomStatus, &post.SyndicationURL,
		&post.SyndicationError, &post.SyndicationErrorKind, &post.SyndicationClaimed,
		&post.CreatedAt, &post.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	if err := json.Unmarshal([]byte(tags), &post.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode post tags: %w", err)
	}

	return &post, nil
}

// UpsertPost inserts or updates the blog-side fields of a post. The
// syndication state columns are left alone on update; they belong to this
// service, not the blog.
func (r *PostRepo) UpsertPost(post Post) error {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to encode post tags: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO posts (id, post_type, status, password, title, content, excerpt,
		                   permalink, tags, featured_image_id, published_at,
		                   share_enabled, custom_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			post_type = excluded.post_type,
			status = excluded.status,
			password = excluded.password,
			title = excluded.title,
			content = excluded.content,
			excerpt = excluded.excerpt,
			permalink = excluded.permalink,
			tags = excluded.tags,
			featured_image_id = excluded.featured_image_id,
			published_at = excluded.published_at,
			share_enabled = excluded.share_enabled,
			custom_status = excluded.custom_status,
			updated_at = CURRENT_TIMESTAMP
	`, post.ID, post.Type, post.Status, post.Password, post.Title, post.Content,
		post.Excerpt, post.Permalink, string(encoded), post.FeaturedImageID,
		post.PublishedAt, post.ShareEnabled, post.CustomStatus)

	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}

	return nil
}

// SetShareEnabled updates the tri-state per-post sharing flag.
func (r *PostRepo) SetShareEnabled(postID int64, enabled string) error {
	_, err := r.db.Exec(`
		UPDATE posts SET share_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, enabled, postID)

	if err != nil {
		return fmt.Errorf("failed to set share enabled flag: %w", err)
	}

	return nil
}

// SetCustomStatus updates the per-post custom status text.
func (r *PostRepo) SetCustomStatus(postID int64, customStatus string) error {
	_, err := r.db.Exec(`
		UPDATE posts SET custom_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, customStatus, postID)

	if err != nil {
		return fmt.Errorf("failed to set custom status: %w", err)
	}

	return nil
}

// ClaimSyndication atomically marks a post as being processed. Returns false
// when the post is already shared, already claimed by another trigger, or
// unknown. The single UPDATE serves as the compare-and-set that keeps two
// near-simultaneous triggers from producing two remote statuses.
func (r *PostRepo) ClaimSyndication(postID int64) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE posts
		SET syndication_claimed = 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND syndication_url = '' AND syndication_claimed = 0
	`, postID)

	if err != nil {
		return false, fmt.Errorf("failed to claim syndication: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claim result: %w", err)
	}

	return affected == 1, nil
}

// ReleaseSyndicationClaim drops the processing claim without recording a
// result, keeping the post eligible for a future attempt.
func (r *PostRepo) ReleaseSyndicationClaim(postID int64) error {
	_, err := r.db.Exec(`
		UPDATE posts SET syndication_claimed = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, postID)

	if err != nil {
		return fmt.Errorf("failed to release syndication claim: %w", err)
	}

	return nil
}

// SetSyndicationURL records a successful share: stores the URL, clears any
// previous error, and drops the claim.
func (r *PostRepo) SetSyndicationURL(postID int64, url string) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET syndication_url = ?, syndication_error = '', syndication_error_kind = '',
		    syndication_claimed = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, url, postID)

	if err != nil {
		return fmt.Errorf("failed to set syndication URL: %w", err)
	}

	return nil
}

// SetSyndicationError records a failed share, leaving the URL empty so the
// post stays reshareable, and drops the claim.
func (r *PostRepo) SetSyndicationError(postID int64, kind, message string) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET syndication_error = ?, syndication_error_kind = ?,
		    syndication_claimed = 0, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, message, kind, postID)

	if err != nil {
		return fmt.Errorf("failed to set syndication error: %w", err)
	}

	return nil
}

// Unlink forgets a post's syndication URL and flips the enabled flag to an
// explicit off, so the next editor save doesn't immediately re-share it.
func (r *PostRepo) Unlink(postID int64) error {
	_, err := r.db.Exec(`
		UPDATE posts
		SET syndication_url = '', share_enabled = '0', updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, postID)

	if err != nil {
		return fmt.Errorf("failed to unlink post: %w", err)
	}

	return nil
}
