package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelpress/pixelpress/app/config"
	"github.com/pixelpress/pixelpress/app/database"
)

func NewHandler(settingsRepo database.SettingsRepository, postRepo database.PostRepository,
	attachmentRepo database.AttachmentRepository, orchestrator OrchestratorInterface,
	authManager AuthManagerInterface, postTypes []string) *Handler {
	return &Handler{
		settingsRepo:   settingsRepo,
		postRepo:       postRepo,
		attachmentRepo: attachmentRepo,
		orchestrator:   orchestrator,
		authManager:    authManager,
		postTypes:      postTypes,
	}
}

type postPayload struct {
	ID              int64      `json:"id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Password        string     `json:"password"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Excerpt         string     `json:"excerpt"`
	Permalink       string     `json:"permalink"`
	Tags            []string   `json:"tags"`
	FeaturedImageID int64      `json:"featured_image_id"`
	PublishedAt     *time.Time `json:"published_at"`
	ShareEnabled    string     `json:"share_enabled"`
	CustomStatus    string     `json:"custom_status"`
}

type transitionPayload struct {
	OldStatus string      `json:"old_status"`
	NewStatus string      `json:"new_status"`
	Post      postPayload `json:"post"`
}

type mediaPayload struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	FilePath string `json:"file_path"`
	MimeType string `json:"mime_type"`
	AltText  string `json:"alt_text"`
	Caption  string `json:"caption"`
}

// PostStatusWebhook receives a post status transition from the blog. The post
// record is synced first so the share pipeline always sees the latest content.
func (h *Handler) PostStatusWebhook(c *gin.Context) {
	var payload transitionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if payload.Post.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing post id"})
		return
	}

	post := database.Post{
		ID:              payload.Post.ID,
		Type:            payload.Post.Type,
		Status:          payload.Post.Status,
		Password:        payload.Post.Password,
		Title:           payload.Post.Title,
		Content:         payload.Post.Content,
		Excerpt:         payload.Post.Excerpt,
		Permalink:       payload.Post.Permalink,
		Tags:            payload.Post.Tags,
		FeaturedImageID: payload.Post.FeaturedImageID,
		PublishedAt:     payload.Post.PublishedAt,
		ShareEnabled:    payload.Post.ShareEnabled,
		CustomStatus:    payload.Post.CustomStatus,
	}

	if err := h.postRepo.UpsertPost(post); err != nil {
		slog.Error("Database error", "operation", "upsert_post", "post_id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stored, err := h.postRepo.GetPost(post.ID)
	if err != nil || stored == nil {
		slog.Error("Database error", "operation", "get_post", "post_id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if err := h.orchestrator.HandleTransition(c.Request.Context(), payload.OldStatus, payload.NewStatus, stored); err != nil {
		slog.Error("Transition handling failed", "post_id", post.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process transition"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MediaWebhook syncs a media-library entry from the blog.
func (h *Handler) MediaWebhook(c *gin.Context) {
	var payload mediaPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if payload.ID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing attachment id"})
		return
	}

	attachment := database.Attachment{
		ID:       payload.ID,
		URL:      payload.URL,
		FilePath: payload.FilePath,
		MimeType: payload.MimeType,
		AltText:  payload.AltText,
		Caption:  payload.Caption,
	}

	if err := h.attachmentRepo.UpsertAttachment(attachment); err != nil {
		slog.Error("Database error", "operation", "upsert_attachment", "attachment_id", payload.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetSyndication exposes a post's syndication state for blog-side display.
func (h *Handler) GetSyndication(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	post, err := h.postRepo.GetPost(postID)
	if err != nil {
		slog.Error("Database error", "operation", "get_post", "post_id", postID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	response := gin.H{
		"post_id": post.ID,
		"url":     post.SyndicationURL,
		"error":   post.SyndicationError,
	}

	if post.SyndicationErrorKind != "" {
		response["error_kind"] = post.SyndicationErrorKind
	}

	c.JSON(http.StatusOK, response)
}

// APIUnlinkPost forgets a post's syndication URL so it can be shared again.
func (h *Handler) APIUnlinkPost(c *gin.Context) {
	postID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	post, err := h.postRepo.GetPost(postID)
	if err != nil {
		slog.Error("Database error", "operation", "get_post", "post_id", postID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if post == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	if err := h.orchestrator.Unlink(postID); err != nil {
		slog.Error("Database error", "operation", "unlink_post", "post_id", postID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Post unlinked", "post_id", postID)

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// OAuthCallback is the redirect target of the authorization code flow.
func (h *Handler) OAuthCallback(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	if !h.authManager.ExchangeCode(c.Request.Context(), code) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Token exchange failed"})
		return
	}

	settings, err := h.settingsRepo.Load()
	if err != nil {
		slog.Error("Database error", "operation", "load_settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connected": true,
		"username":  settings.Username,
	})
}

func (h *Handler) APIVerifyAuth(c *gin.Context) {
	valid := h.authManager.VerifyToken(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}

func (h *Handler) APIRefreshAuth(c *gin.Context) {
	refreshed := h.authManager.RefreshToken(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"refreshed": refreshed})
}

func (h *Handler) APIRevokeAuth(c *gin.Context) {
	h.authManager.Revoke(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type settingsUpdatePayload struct {
	Section   string                   `json:"section"`
	Setup     *config.SetupSection     `json:"setup"`
	PostTypes *config.PostTypesSection `json:"post_types"`
	Advanced  *config.AdvancedSection  `json:"advanced"`
}

func (h *Handler) APIGetSettings(c *gin.Context) {
	settings, err := h.settingsRepo.Load()
	if err != nil {
		slog.Error("Database error", "operation", "load_settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, h.settingsView(settings))
}

// APIUpdateSettings applies one settings section per request. Each section is
// validated in isolation; a host change clears the credentials obtained for
// the previous host, and setting a new host registers a client with it.
func (h *Handler) APIUpdateSettings(c *gin.Context) {
	var payload settingsUpdatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	settings, err := h.settingsRepo.Load()
	if err != nil {
		slog.Error("Database error", "operation", "load_settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	var updated *config.Settings
	var applyErr error

	switch payload.Section {
	case "setup":
		if payload.Setup == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing setup section"})
			return
		}
		updated, applyErr = config.ApplySetup(settings, *payload.Setup)
	case "post_types":
		if payload.PostTypes == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing post_types section"})
			return
		}
		updated, applyErr = config.ApplyPostTypes(settings, *payload.PostTypes, h.postTypes)
	case "advanced":
		if payload.Advanced == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing advanced section"})
			return
		}
		updated, applyErr = config.ApplyAdvanced(settings, *payload.Advanced)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown settings section", "section": payload.Section})
		return
	}

	if applyErr != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": applyErr.Error()})
		return
	}

	if err := h.settingsRepo.Save(updated); err != nil {
		slog.Error("Database error", "operation", "save_settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if payload.Section == "setup" && updated.Host != "" && updated.ClientID == "" {
		if !h.authManager.EnsureApp(c.Request.Context()) {
			slog.Warn("Client registration failed", "host", updated.Host)
		}

		// Re-read to pick up the registration just stored.
		if refreshed, err := h.settingsRepo.Load(); err == nil {
			updated = refreshed
		}
	}

	c.JSON(http.StatusOK, h.settingsView(updated))
}

func (h *Handler) APIResetSettings(c *gin.Context) {
	if err := h.settingsRepo.Reset(); err != nil {
		slog.Error("Database error", "operation", "reset_settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Settings reset to defaults")

	c.JSON(http.StatusOK, h.settingsView(config.Defaults()))
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if settings, err := h.settingsRepo.Load(); err == nil {
		health["configured"] = settings.Host != ""
		health["connected"] = settings.AccessToken != ""
	}

	c.JSON(http.StatusOK, health)
}

// settingsView is the client-facing projection of the settings. Secrets stay
// out; connection state and the authorize URL are derived in.
func (h *Handler) settingsView(settings *config.Settings) gin.H {
	view := gin.H{
		"host":                settings.Host,
		"username":            settings.Username,
		"connected":           settings.AccessToken != "",
		"registered":          settings.ClientID != "",
		"post_types":          settings.PostTypes,
		"use_first_image":     settings.UseFirstImage,
		"optin":               settings.OptIn,
		"share_always":        settings.ShareAlways,
		"delay_sharing":       settings.DelaySharing,
		"status_template":     settings.StatusTemplate,
		"custom_status_field": settings.CustomStatusField,
		"debug_logging":       settings.DebugLogging,
	}

	if settings.Host != "" && settings.ClientID != "" && settings.AccessToken == "" {
		view["authorize_url"] = h.authManager.AuthorizeURL()
	}

	return view
}
