package syndication

import (
	"html"
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pixelpress/pixelpress/app/database"
)

// Resized image filenames carry a dimensions, "-scaled", or "-rotated"
// suffix; stripping it recovers the original attachment URL.
var resizeSuffixRe = regexp.MustCompile(`-(?:\d+x\d+|scaled|rotated)$`)

// ImageResolver picks the image to upload for a post: either its featured
// image or the first in-content image that maps back to a known media-library
// attachment.
type ImageResolver struct {
	attachments database.AttachmentRepository

	// ImageOverride, when set, may replace the resolved attachment ID.
	// Returning zero suppresses the share.
	ImageOverride func(attachmentID int64, post *database.Post) int64
}

// NewImageResolver creates a new image resolver
func NewImageResolver(attachments database.AttachmentRepository) *ImageResolver {
	return &ImageResolver{attachments: attachments}
}

// Resolve returns the attachment ID and alt text for the post's image, or
// (0, "") when no image resolves. Posts without a resolvable image are not
// shared at all; the platform requires media.
func (r *ImageResolver) Resolve(post *database.Post, useFirstImage bool) (int64, string) {
	var attachmentID int64
	var alt string

	if useFirstImage {
		attachmentID, alt = r.firstContentImage(post)
	} else if post.FeaturedImageID != 0 {
		attachmentID = post.FeaturedImageID
	}

	if r.ImageOverride != nil {
		overridden := r.ImageOverride(attachmentID, post)
		if overridden != attachmentID {
			attachmentID = overridden
			alt = ""
		}
	}

	if attachmentID == 0 {
		return 0, ""
	}

	if alt == "" {
		alt = r.storedAltText(attachmentID)
	}

	return attachmentID, html.UnescapeString(alt)
}

// firstContentImage scans the post content for <img> tags in document order
// and returns the first one that resolves to a known attachment, along with
// that tag's alt attribute.
func (r *ImageResolver) firstContentImage(post *database.Post) (int64, string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(post.Content))
	if err != nil {
		slog.Debug("Failed to parse post content", "post_id", post.ID, "error", err)
		return 0, ""
	}

	var attachmentID int64
	var alt string

	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			return true
		}

		attachment, err := r.attachments.GetAttachmentByURL(originalImageURL(src))
		if err != nil {
			slog.Error("Attachment lookup failed", "url", src, "error", err)
			return true
		}
		if attachment == nil {
			// Unknown to the media library; probably an external image.
			return true
		}

		attachmentID = attachment.ID
		alt, _ = img.Attr("alt")
		return false
	})

	return attachmentID, alt
}

// originalImageURL strips the resize suffix off a resized image URL, so
// "photo-1024x768.jpg" resolves to the attachment of "photo.jpg".
func originalImageURL(src string) string {
	ext := path.Ext(src)
	filename := strings.TrimSuffix(path.Base(src), ext)

	original := resizeSuffixRe.ReplaceAllString(filename, "")
	if original == filename {
		return src
	}

	return strings.Replace(src, filename+ext, original+ext, 1)
}

// storedAltText falls back on the attachment's stored alt text, then its
// caption.
func (r *ImageResolver) storedAltText(attachmentID int64) string {
	attachment, err := r.attachments.GetAttachment(attachmentID)
	if err != nil {
		slog.Error("Attachment lookup failed", "attachment_id", attachmentID, "error", err)
		return ""
	}
	if attachment == nil {
		return ""
	}

	if attachment.AltText != "" {
		return attachment.AltText
	}

	return attachment.Caption
}
