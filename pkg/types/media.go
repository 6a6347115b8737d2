package types

import "time"

type MediaObject struct {
	ID         string    `db:"id"`
	Bucket     string    `db:"bucket"`
	Path       string    `db:"path"`
	EntityType string    `db:"entity_type"`
	EntityID   string    `db:"entity_id"`
	OwnerID    string    `db:"owner_id"`
	MimeType   *string   `db:"mime_type"`
	CreatedAt  time.Time `db:"created_at"`
}

// SignedURL is a time-limited download link for a private media object.
type SignedURL struct {
	MediaID   string    `json:"media_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
