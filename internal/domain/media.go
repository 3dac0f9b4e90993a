package domain

import "time"

// MediaAsset is a stored binary deduplicated by its source URL.
type MediaAsset struct {
	ID          int64     `json:"id"`
	SourceURL   string    `json:"sourceUrl"`
	Location    string    `json:"location"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}
