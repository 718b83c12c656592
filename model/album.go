package model

import "time"

// Album represents an album row. Albums are created on first reference by a
// track naming an unseen spotify album id, or explicitly via the album
// endpoint, and are never deleted.
type Album struct {
	ID            int64     `json:"id"`
	SpotifyID     string    `json:"spotifyId"`
	Album         string    `json:"album"` // display name
	Artists       string    `json:"artists"`
	AlbumCover    string    `json:"albumCover"`
	ColourPalette Palette   `json:"colourPalette"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
