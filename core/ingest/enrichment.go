package ingest

import (
	"context"

	"chromafm/errs"
	"chromafm/model"
)

const defaultQueueLimit = 20

// UpdateAudioFeatures writes back a full descriptor set together with a new
// status, as reported by an enrichment collaborator. Unknown external ids
// fail NotFound. Status values outside the closed set are rejected by the
// store's ENUM column, not here.
func (s *Service) UpdateAudioFeatures(ctx context.Context, spotifyID string, features model.AudioFeatures, status model.AudioFeatureStatus) (*model.Track, error) {
	if spotifyID == "" {
		return nil, errs.Validationf("spotify id is required")
	}
	if status == "" {
		return nil, errs.Validationf("audioFeaturesStatus is required")
	}

	matched, err := s.tracks.UpdateAudioFeatures(ctx, spotifyID, &features, status)
	if err != nil {
		return nil, errs.Persistence("error updating audio features", err)
	}
	if matched == 0 {
		return nil, errs.NotFoundf("track %s not found", spotifyID)
	}
	s.invalidate(ctx, spotifyID)

	track, err := s.tracks.GetTrackBySpotifyID(ctx, spotifyID)
	if err != nil {
		return nil, errs.Persistence("error reading back updated track", err)
	}
	return track, nil
}

// UpdateProcessingStatus sets the enrichment status alone, without touching
// descriptor attributes.
func (s *Service) UpdateProcessingStatus(ctx context.Context, spotifyID string, status model.AudioFeatureStatus) (*model.Track, error) {
	if spotifyID == "" {
		return nil, errs.Validationf("spotify id is required")
	}
	if status == "" {
		return nil, errs.Validationf("audioFeaturesStatus is required")
	}

	matched, err := s.tracks.UpdateStatus(ctx, spotifyID, status)
	if err != nil {
		return nil, errs.Persistence("error updating status", err)
	}
	if matched == 0 {
		return nil, errs.NotFoundf("track %s not found", spotifyID)
	}
	s.invalidate(ctx, spotifyID)

	track, err := s.tracks.GetTrackBySpotifyID(ctx, spotifyID)
	if err != nil {
		return nil, errs.Persistence("error reading back updated track", err)
	}
	return track, nil
}

// ListUnprocessedTracks returns up to limit unprocessed tracks, oldest
// first, without claiming them.
func (s *Service) ListUnprocessedTracks(ctx context.Context, limit int) ([]*model.Track, error) {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	tracks, err := s.tracks.ListByStatus(ctx, model.StatusUnprocessed, limit)
	if err != nil {
		return nil, errs.Persistence("error listing unprocessed tracks", err)
	}
	return tracks, nil
}

// ClaimUnprocessedTracks atomically transitions up to limit unprocessed
// tracks to processing and returns them, so concurrent workers never claim
// the same track twice.
func (s *Service) ClaimUnprocessedTracks(ctx context.Context, limit int) ([]*model.Track, error) {
	if limit <= 0 {
		limit = defaultQueueLimit
	}
	tracks, err := s.tracks.ClaimUnprocessed(ctx, limit)
	if err != nil {
		return nil, errs.Persistence("error claiming unprocessed tracks", err)
	}
	for _, t := range tracks {
		s.invalidate(ctx, t.SpotifyID)
	}
	return tracks, nil
}
