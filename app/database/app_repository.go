package database

import (
	"fmt"
)

// AppRepo handles database operations for client registrations
type AppRepo struct {
	db *DB
}

// NewAppRepo creates a new app repository
func NewAppRepo(db *DB) *AppRepo {
	return &AppRepo{db: db}
}

// GetAppsByHost returns all known client registrations for a host, oldest
// first, so the longest-lived registration is tried first for reuse.
func (r *AppRepo) GetAppsByHost(host string) ([]App, error) {
	rows, err := r.db.Query(`
		SELECT id, host, client_id, client_secret, client_token, vapid_key,
		       client_name, scopes, redirect_uris, website, created_at
		FROM apps
		WHERE host = ?
		ORDER BY created_at, id
	`, host)
	if err != nil {
		return nil, fmt.Errorf("failed to get apps by host: %w", err)
	}
	defer rows.Close()

	var apps []App
	for rows.Next() {
		var app App
		err := rows.Scan(
			&app.ID, &app.Host, &app.ClientID, &app.ClientSecret, &app.ClientToken,
			&app.VapidKey, &app.ClientName, &app.Scopes, &app.RedirectURIs,
			&app.Website, &app.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan app row: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating app rows: %w", err)
	}

	return apps, nil
}

// InsertApp stores a new client registration and returns its ID.
func (r *AppRepo) InsertApp(app App) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO apps (host, client_id, client_secret, client_token, vapid_key,
		                  client_name, scopes, redirect_uris, website)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, app.Host, app.ClientID, app.ClientSecret, app.ClientToken, app.VapidKey,
		app.ClientName, app.Scopes, app.RedirectURIs, app.Website)

	if err != nil {
		return 0, fmt.Errorf("failed to insert app: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get app ID: %w", err)
	}

	return id, nil
}

// UpdateClientToken stores the app-level bearer token for a registration.
func (r *AppRepo) UpdateClientToken(appID int64, clientToken string) error {
	_, err := r.db.Exec(`
		UPDATE apps SET client_token = ? WHERE id = ?
	`, clientToken, appID)

	if err != nil {
		return fmt.Errorf("failed to update client token: %w", err)
	}

	return nil
}
