package model

import (
	"database/sql"
	"time"
)

// AudioFeatureStatus tracks where a track sits in the audio-feature
// enrichment lifecycle. The set is closed by the ENUM column in the store.
type AudioFeatureStatus string

const (
	StatusUnprocessed AudioFeatureStatus = "unprocessed"
	StatusProcessing  AudioFeatureStatus = "processing"
	StatusProcessed   AudioFeatureStatus = "processed"
	StatusFailed      AudioFeatureStatus = "failed"
	StatusImported    AudioFeatureStatus = "imported"
)

// Valid reports whether s is one of the five known statuses.
func (s AudioFeatureStatus) Valid() bool {
	switch s {
	case StatusUnprocessed, StatusProcessing, StatusProcessed, StatusFailed, StatusImported:
		return true
	}
	return false
}

// AudioFeatures holds the optional acoustic descriptors populated by the
// enrichment pipeline. A nil pointer means the column is NULL.
type AudioFeatures struct {
	AlbumName        *string  `json:"albumName,omitempty"`
	TrackName        *string  `json:"trackName,omitempty"`
	Popularity       *int     `json:"popularity,omitempty"`
	DurationMs       *int     `json:"durationMs,omitempty"`
	Explicit         *bool    `json:"explicit,omitempty"`
	Danceability     *float64 `json:"danceability,omitempty"`
	Energy           *float64 `json:"energy,omitempty"`
	Key              *int     `json:"key,omitempty"`
	Loudness         *float64 `json:"loudness,omitempty"`
	Mode             *int     `json:"mode,omitempty"`
	Speechiness      *float64 `json:"speechiness,omitempty"`
	Acousticness     *float64 `json:"acousticness,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty"`
	Valence          *float64 `json:"valence,omitempty"`
	Tempo            *float64 `json:"tempo,omitempty"`
	TimeSignature    *int     `json:"timeSignature,omitempty"`
	TrackGenre       *string  `json:"trackGenre,omitempty"`
}

// Empty reports whether no descriptor is set.
func (f *AudioFeatures) Empty() bool {
	if f == nil {
		return true
	}
	return f.AlbumName == nil && f.TrackName == nil && f.Popularity == nil &&
		f.DurationMs == nil && f.Explicit == nil && f.Danceability == nil &&
		f.Energy == nil && f.Key == nil && f.Loudness == nil && f.Mode == nil &&
		f.Speechiness == nil && f.Acousticness == nil && f.Instrumentalness == nil &&
		f.Liveness == nil && f.Valence == nil && f.Tempo == nil &&
		f.TimeSignature == nil && f.TrackGenre == nil
}

// Track represents one ingested track row.
type Track struct {
	ID            int64              `json:"id"`
	SpotifyID     string             `json:"spotifyId"`
	Title         string             `json:"title"`
	Artists       string             `json:"artists"`
	Album         string             `json:"album"`      // denormalized album name
	AlbumCover    string             `json:"albumCover"` // denormalized cover reference
	SongURL       string             `json:"songUrl"`
	PreviewURL    string             `json:"previewUrl,omitempty"`
	ColourPalette Palette            `json:"colourPalette"`
	AlbumID       sql.NullInt64      `json:"albumId"` // NULL until resolved; bulk inserts leave it NULL
	Features      AudioFeatures      `json:"audioFeatures"`
	Status        AudioFeatureStatus `json:"audioFeaturesStatus"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}
