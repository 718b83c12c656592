// Package ingest implements the track/album ingestion engine: idempotent
// single-track creation, find-or-create album resolution, transactional bulk
// creation with existence partitioning, and the audio-feature enrichment
// status operations.
//
// The bulk path deliberately does not resolve albums; bulk-inserted tracks
// carry a NULL album key until something re-submits them individually.
package ingest

import (
	"context"
	"encoding/json"

	"chromafm/errs"
	"chromafm/logger"
	"chromafm/model"
	"chromafm/repository"
)

// TrackCache is the optional read cache for track records. A nil cache
// disables caching.
type TrackCache interface {
	Get(ctx context.Context, spotifyID string) (*model.Track, bool)
	Set(ctx context.Context, track *model.Track)
	Invalidate(ctx context.Context, spotifyID string)
}

// Service is the ingestion engine. All store access goes through the
// injected repositories so tests can substitute isolated fakes.
type Service struct {
	tracks repository.TrackRepository
	albums repository.AlbumRepository
	cache  TrackCache
}

// NewService creates the engine. cache may be nil.
func NewService(tracks repository.TrackRepository, albums repository.AlbumRepository, cache TrackCache) *Service {
	return &Service{tracks: tracks, albums: albums, cache: cache}
}

// TrackInput is a single-track creation payload. Audio-feature descriptors
// may accompany the creation; when they do and no explicit status is given,
// the track is created with status "imported".
type TrackInput struct {
	SpotifyID          string          `json:"spotifyId"`
	Title              string          `json:"title"`
	Artists            string          `json:"artists"`
	Album              string          `json:"album"`
	AlbumCover         string          `json:"albumCover"`
	SongURL            string          `json:"songUrl"`
	PreviewURL         string          `json:"previewUrl"`
	ColourPalette      json.RawMessage `json:"colourPalette"`
	SpotifyAlbumID     string          `json:"spotifyAlbumId"`
	AlbumColourPalette json.RawMessage `json:"albumColourPalette"`

	model.AudioFeatures
	Status model.AudioFeatureStatus `json:"audioFeaturesStatus"`
}

// AlbumInput is an explicit album creation payload.
type AlbumInput struct {
	SpotifyID     string          `json:"spotifyId"`
	Album         string          `json:"album"`
	Artists       string          `json:"artists"`
	AlbumCover    string          `json:"albumCover"`
	ColourPalette json.RawMessage `json:"colourPalette"`
}

// GetTrackBySpotifyID returns the track with the given external id, or a
// NotFound error.
func (s *Service) GetTrackBySpotifyID(ctx context.Context, spotifyID string) (*model.Track, error) {
	if spotifyID == "" {
		return nil, errs.Validationf("spotify id is required")
	}
	if s.cache != nil {
		if track, ok := s.cache.Get(ctx, spotifyID); ok {
			return track, nil
		}
	}
	track, err := s.tracks.GetTrackBySpotifyID(ctx, spotifyID)
	if err != nil {
		return nil, errs.Persistence("error retrieving track", err)
	}
	if track == nil {
		return nil, errs.NotFoundf("track %s not found", spotifyID)
	}
	if s.cache != nil {
		s.cache.Set(ctx, track)
	}
	return track, nil
}

// GetTracksBySpotifyIDs returns the tracks matching any of the given ids.
func (s *Service) GetTracksBySpotifyIDs(ctx context.Context, spotifyIDs []string) ([]*model.Track, error) {
	if len(spotifyIDs) == 0 {
		return nil, errs.Validationf("invalid or empty spotifyIds array")
	}
	tracks, err := s.tracks.GetTracksBySpotifyIDs(ctx, spotifyIDs)
	if err != nil {
		return nil, errs.Persistence("error retrieving tracks", err)
	}
	return tracks, nil
}

// GetTracksByAlbumSpotifyID returns all tracks linked to the album with the
// given external id. An unknown album yields an empty slice, not an error.
func (s *Service) GetTracksByAlbumSpotifyID(ctx context.Context, albumSpotifyID string) ([]*model.Track, error) {
	if albumSpotifyID == "" {
		return nil, errs.Validationf("album spotify id is required")
	}
	album, err := s.albums.GetAlbumBySpotifyID(ctx, albumSpotifyID)
	if err != nil {
		return nil, errs.Persistence("error retrieving album", err)
	}
	if album == nil {
		return []*model.Track{}, nil
	}
	tracks, err := s.tracks.GetTracksByAlbumID(ctx, album.ID)
	if err != nil {
		return nil, errs.Persistence("error retrieving album tracks", err)
	}
	return tracks, nil
}

func (s *Service) invalidate(ctx context.Context, spotifyID string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, spotifyID)
	}
}

func logCreated(kind, spotifyID string, id int64) {
	logger.Info("record created",
		logger.String("kind", kind),
		logger.String("spotifyId", spotifyID),
		logger.Int64("id", id),
	)
}
