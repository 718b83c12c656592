package ingest

import (
	"context"
	"encoding/json"

	"chromafm/errs"
	"chromafm/model"
)

// TrackPatch is a partial track update. Nil fields are left untouched.
type TrackPatch struct {
	Title         *string         `json:"title"`
	Artists       *string         `json:"artists"`
	Album         *string         `json:"album"`
	AlbumCover    *string         `json:"albumCover"`
	SongURL       *string         `json:"songUrl"`
	PreviewURL    *string         `json:"previewUrl"`
	ColourPalette json.RawMessage `json:"colourPalette"`
}

// AlbumPatch is a partial album update.
type AlbumPatch struct {
	Album         *string         `json:"album"`
	Artists       *string         `json:"artists"`
	AlbumCover    *string         `json:"albumCover"`
	ColourPalette json.RawMessage `json:"colourPalette"`
}

// PatchTrack updates the patchable fields of an existing track.
func (s *Service) PatchTrack(ctx context.Context, spotifyID string, patch TrackPatch) (*model.Track, error) {
	if spotifyID == "" {
		return nil, errs.Validationf("spotify id is required")
	}

	fields := make(map[string]interface{})
	setString(fields, "title", patch.Title)
	setString(fields, "artists", patch.Artists)
	setString(fields, "album", patch.Album)
	setString(fields, "album_cover", patch.AlbumCover)
	setString(fields, "song_url", patch.SongURL)
	setString(fields, "preview_url", patch.PreviewURL)
	if len(patch.ColourPalette) > 0 {
		palette, err := model.NormalizePalette("colourPalette", patch.ColourPalette)
		if err != nil {
			return nil, err
		}
		fields["colour_palette"] = palette
	}
	if len(fields) == 0 {
		return nil, errs.Validationf("no valid fields to update")
	}

	matched, err := s.tracks.UpdateTrackFields(ctx, spotifyID, fields)
	if err != nil {
		return nil, errs.Persistence("error updating track", err)
	}
	if matched == 0 {
		return nil, errs.NotFoundf("track %s not found", spotifyID)
	}
	s.invalidate(ctx, spotifyID)

	track, err := s.tracks.GetTrackBySpotifyID(ctx, spotifyID)
	if err != nil {
		return nil, errs.Persistence("error reading back patched track", err)
	}
	return track, nil
}

// PatchAlbum updates the patchable fields of an existing album.
func (s *Service) PatchAlbum(ctx context.Context, spotifyID string, patch AlbumPatch) (*model.Album, error) {
	if spotifyID == "" {
		return nil, errs.Validationf("spotify id is required")
	}

	fields := make(map[string]interface{})
	setString(fields, "album", patch.Album)
	setString(fields, "artists", patch.Artists)
	setString(fields, "album_cover", patch.AlbumCover)
	if len(patch.ColourPalette) > 0 {
		palette, err := model.NormalizePalette("colourPalette", patch.ColourPalette)
		if err != nil {
			return nil, err
		}
		fields["colour_palette"] = palette
	}
	if len(fields) == 0 {
		return nil, errs.Validationf("no valid fields to update")
	}

	matched, err := s.albums.UpdateAlbumFields(ctx, spotifyID, fields)
	if err != nil {
		return nil, errs.Persistence("error updating album", err)
	}
	if matched == 0 {
		return nil, errs.NotFoundf("album %s not found", spotifyID)
	}

	album, err := s.albums.GetAlbumBySpotifyID(ctx, spotifyID)
	if err != nil {
		return nil, errs.Persistence("error reading back patched album", err)
	}
	return album, nil
}

func setString(fields map[string]interface{}, column string, value *string) {
	if value != nil {
		fields[column] = *value
	}
}
