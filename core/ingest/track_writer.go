package ingest

import (
	"context"
	"database/sql"

	"chromafm/errs"
	"chromafm/model"
	"chromafm/repository"
)

// CreateTrackResult reports the outcome of a single-track creation. A
// duplicate submission is not an error: Created is false and Track holds the
// existing record.
type CreateTrackResult struct {
	Created bool         `json:"created"`
	Track   *model.Track `json:"track"`
	Message string       `json:"message,omitempty"`
}

// CreateAlbumResult reports the outcome of an explicit album creation.
type CreateAlbumResult struct {
	Created bool         `json:"created"`
	Album   *model.Album `json:"album"`
	Message string       `json:"message,omitempty"`
}

const alreadyExistsMsg = "record with this spotifyId already exists - no changes made"

// CreateTrack creates a single track, resolving (and if necessary creating)
// its owning album first. Submitting an id that already exists is an
// idempotent no-op reported through the result, not an error.
func (s *Service) CreateTrack(ctx context.Context, in TrackInput) (*CreateTrackResult, error) {
	var missing []string
	if in.SpotifyID == "" {
		missing = append(missing, "spotifyId")
	}
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.Artists == "" {
		missing = append(missing, "artists")
	}
	if in.SpotifyAlbumID == "" {
		missing = append(missing, "spotifyAlbumId")
	}
	if in.AlbumCover == "" {
		missing = append(missing, "albumCover")
	}
	if len(in.AlbumColourPalette) == 0 {
		missing = append(missing, "albumColourPalette")
	}
	if len(missing) > 0 {
		return nil, errs.MissingFields(missing...)
	}

	existing, err := s.tracks.GetTrackBySpotifyID(ctx, in.SpotifyID)
	if err != nil {
		return nil, errs.Persistence("error checking for existing track", err)
	}
	if existing != nil {
		return &CreateTrackResult{Created: false, Track: existing, Message: alreadyExistsMsg}, nil
	}

	album, err := s.resolveAlbum(ctx, in)
	if err != nil {
		return nil, err
	}

	palette, err := model.NormalizePalette("colourPalette", in.ColourPalette)
	if err != nil {
		return nil, err
	}

	track := &model.Track{
		SpotifyID:     in.SpotifyID,
		Title:         in.Title,
		Artists:       in.Artists,
		Album:         in.Album,
		AlbumCover:    in.AlbumCover,
		SongURL:       in.SongURL,
		PreviewURL:    in.PreviewURL,
		ColourPalette: palette,
		AlbumID:       sql.NullInt64{Int64: album.ID, Valid: true},
		Features:      in.AudioFeatures,
		Status:        inferStatus(&in.AudioFeatures, in.Status),
	}

	id, err := s.tracks.CreateTrack(ctx, track)
	if err != nil {
		if repository.IsDuplicateEntry(err) {
			// A concurrent writer inserted the same id between the lookup
			// and the insert; surface its row as a soft conflict.
			winner, ferr := s.tracks.GetTrackBySpotifyID(ctx, in.SpotifyID)
			if ferr != nil || winner == nil {
				return nil, errs.Persistence("error re-fetching track after duplicate insert", err)
			}
			return &CreateTrackResult{Created: false, Track: winner, Message: alreadyExistsMsg}, nil
		}
		return nil, errs.Persistence("error inserting track", err)
	}

	inserted, err := s.tracks.GetTrackBySpotifyID(ctx, in.SpotifyID)
	if err != nil {
		return nil, errs.Persistence("error reading back inserted track", err)
	}
	if inserted == nil {
		track.ID = id
		inserted = track
	}
	logCreated("track", in.SpotifyID, id)
	return &CreateTrackResult{Created: true, Track: inserted}, nil
}

// inferStatus applies the imported-status rule: descriptors supplied at
// creation time without an explicit status mean the data arrived from an
// import, not from the enrichment pipeline.
func inferStatus(features *model.AudioFeatures, explicit model.AudioFeatureStatus) model.AudioFeatureStatus {
	if explicit != "" {
		return explicit
	}
	if !features.Empty() {
		return model.StatusImported
	}
	// Left empty so the store default (unprocessed) applies.
	return ""
}

// resolveAlbum finds the track's owning album by external id, creating it
// when absent. The first writer wins: album fields on later track
// submissions are discarded.
func (s *Service) resolveAlbum(ctx context.Context, in TrackInput) (*model.Album, error) {
	album, err := s.albums.GetAlbumBySpotifyID(ctx, in.SpotifyAlbumID)
	if err != nil {
		return nil, errs.Persistence("error looking up album", err)
	}
	if album != nil {
		return album, nil
	}

	var missing []string
	if in.Album == "" {
		missing = append(missing, "album")
	}
	if in.Artists == "" {
		missing = append(missing, "artists")
	}
	if len(missing) > 0 {
		return nil, errs.MissingFields(missing...)
	}

	palette, err := model.NormalizePalette("albumColourPalette", in.AlbumColourPalette)
	if err != nil {
		return nil, err
	}

	newAlbum := &model.Album{
		SpotifyID:     in.SpotifyAlbumID,
		Album:         in.Album,
		Artists:       in.Artists,
		AlbumCover:    in.AlbumCover,
		ColourPalette: palette,
	}
	id, err := s.albums.CreateAlbum(ctx, newAlbum)
	if err != nil {
		if repository.IsDuplicateEntry(err) {
			// Lost the creation race; the row exists now, so use it.
			winner, ferr := s.albums.GetAlbumBySpotifyID(ctx, in.SpotifyAlbumID)
			if ferr != nil || winner == nil {
				return nil, errs.Persistence("error re-resolving album after duplicate insert", err)
			}
			return winner, nil
		}
		return nil, errs.Persistence("error inserting album", err)
	}
	newAlbum.ID = id
	logCreated("album", in.SpotifyAlbumID, id)
	return newAlbum, nil
}

// CreateAlbum creates an album directly. Duplicate submission is a soft
// conflict carrying the existing record.
func (s *Service) CreateAlbum(ctx context.Context, in AlbumInput) (*CreateAlbumResult, error) {
	var missing []string
	if in.SpotifyID == "" {
		missing = append(missing, "spotifyId")
	}
	if in.Album == "" {
		missing = append(missing, "album")
	}
	if in.Artists == "" {
		missing = append(missing, "artists")
	}
	if len(missing) > 0 {
		return nil, errs.MissingFields(missing...)
	}

	existing, err := s.albums.GetAlbumBySpotifyID(ctx, in.SpotifyID)
	if err != nil {
		return nil, errs.Persistence("error checking for existing album", err)
	}
	if existing != nil {
		return &CreateAlbumResult{Created: false, Album: existing, Message: alreadyExistsMsg}, nil
	}

	palette, err := model.NormalizePalette("colourPalette", in.ColourPalette)
	if err != nil {
		return nil, err
	}

	album := &model.Album{
		SpotifyID:     in.SpotifyID,
		Album:         in.Album,
		Artists:       in.Artists,
		AlbumCover:    in.AlbumCover,
		ColourPalette: palette,
	}
	id, err := s.albums.CreateAlbum(ctx, album)
	if err != nil {
		if repository.IsDuplicateEntry(err) {
			winner, ferr := s.albums.GetAlbumBySpotifyID(ctx, in.SpotifyID)
			if ferr != nil || winner == nil {
				return nil, errs.Persistence("error re-fetching album after duplicate insert", err)
			}
			return &CreateAlbumResult{Created: false, Album: winner, Message: alreadyExistsMsg}, nil
		}
		return nil, errs.Persistence("error inserting album", err)
	}
	album.ID = id
	created, err := s.albums.GetAlbumBySpotifyID(ctx, in.SpotifyID)
	if err == nil && created != nil {
		album = created
	}
	logCreated("album", in.SpotifyID, id)
	return &CreateAlbumResult{Created: true, Album: album}, nil
}
