package models

import "time"

const PlatformNaver = "naver"

// WorkKey is the id used for a work in comments/ and favorites/.
func WorkKey(platform, id string) string {
	return platform + "_" + id
}

// Work is a ranking item or a works/{platform}_{id} document. Produced by
// the ingestion pipeline and never written here.
type Work struct {
	Platform  string   `json:"platform"`
	ID        string   `json:"id"`
	Title     *string  `json:"title"`
	Author    *string  `json:"author"`
	Thumbnail *string  `json:"thumbnail"`
	Rating    *float64 `json:"rating"`
	Rank      *float64 `json:"rank,omitempty"`
	Weekday   *string  `json:"weekday"`
	Link      *string  `json:"link"`
	Tags      []string `json:"tags,omitempty"`
}

// SnapshotMeta represents externalRankings/{platform}/snapshots/{date}
type SnapshotMeta struct {
	Date  string `json:"date"`
	Count *int   `json:"count"`
}

// Favorite represents favorites/{uid}/items/{workKey}
type Favorite struct {
	Platform  string     `json:"platform"`
	ID        string     `json:"id"`
	Title     *string    `json:"title"`
	Author    *string    `json:"author"`
	Thumbnail *string    `json:"thumbnail"`
	Rating    *float64   `json:"rating"`
	Weekday   *string    `json:"weekday"`
	Link      *string    `json:"link"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}
