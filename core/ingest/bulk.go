package ingest

import (
	"context"
	"strings"

	"chromafm/errs"
	"chromafm/logger"
	"chromafm/model"
	"chromafm/repository"
)

// InsertedID pairs an assigned internal id with its external id.
type InsertedID struct {
	ID        int64  `json:"id"`
	SpotifyID string `json:"spotifyId"`
}

// SkippedRecord identifies a batch entry that already existed.
type SkippedRecord struct {
	ID        int64  `json:"id"`
	SpotifyID string `json:"spotifyId"`
}

// BulkResult is the accounting returned by CreateBulkTracks.
//
// Skipped.CountExact is false only on the partial-success path: a concurrent
// writer inserted one of the partitioned-as-new ids before commit, the whole
// transaction rolled back, and the true partitioning is no longer known.
type BulkResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Inserted struct {
		Count int          `json:"count"`
		IDs   []InsertedID `json:"ids"`
	} `json:"inserted"`
	Skipped struct {
		Count      int             `json:"count"`
		CountExact bool            `json:"countExact"`
		Records    []SkippedRecord `json:"records"`
	} `json:"skipped"`
	Total struct {
		Processed int `json:"processed"`
		Inserted  int `json:"inserted"`
		Skipped   int `json:"skipped"`
	} `json:"total"`
}

// CreateBulkTracks creates many tracks in one transaction. The batch is
// partitioned into already-present and new entries by a single existence
// query; only the new entries are inserted. Either all new rows become
// visible or none do. Albums are not resolved on this path.
func (s *Service) CreateBulkTracks(ctx context.Context, inputs []TrackInput) (*BulkResult, error) {
	if err := validateBulk(inputs); err != nil {
		return nil, err
	}

	tx, err := s.tracks.BeginTx(ctx)
	if err != nil {
		return nil, errs.Persistence("error starting bulk transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	spotifyIDs := make([]string, len(inputs))
	for i, in := range inputs {
		spotifyIDs[i] = in.SpotifyID
	}

	existing, err := s.tracks.GetTracksBySpotifyIDsTx(tx, spotifyIDs)
	if err != nil {
		return nil, errs.Persistence("error querying existing tracks", err)
	}
	existingByID := make(map[string]*model.Track, len(existing))
	for _, t := range existing {
		existingByID[t.SpotifyID] = t
	}

	result := &BulkResult{Success: true}
	result.Skipped.CountExact = true

	newTracks := make([]*model.Track, 0, len(inputs))
	newIDs := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if found, ok := existingByID[in.SpotifyID]; ok {
			result.Skipped.Records = append(result.Skipped.Records,
				SkippedRecord{ID: found.ID, SpotifyID: found.SpotifyID})
			continue
		}
		palette, perr := model.NormalizePalette("colourPalette", in.ColourPalette)
		if perr != nil {
			return nil, perr
		}
		newTracks = append(newTracks, &model.Track{
			SpotifyID:     in.SpotifyID,
			Title:         in.Title,
			Artists:       in.Artists,
			Album:         in.Album,
			AlbumCover:    in.AlbumCover,
			SongURL:       in.SongURL,
			PreviewURL:    in.PreviewURL,
			ColourPalette: palette,
			Features:      in.AudioFeatures,
			Status:        inferStatus(&in.AudioFeatures, in.Status),
		})
		newIDs = append(newIDs, in.SpotifyID)
	}

	if len(newTracks) > 0 {
		ids, ierr := s.tracks.CreateTracksTx(tx, newTracks)
		if ierr != nil {
			if repository.IsDuplicateEntry(ierr) {
				return partialSuccess(len(inputs)), nil
			}
			return nil, errs.Persistence("error inserting bulk tracks", ierr)
		}
		for i, id := range ids {
			result.Inserted.IDs = append(result.Inserted.IDs, InsertedID{ID: id, SpotifyID: newIDs[i]})
		}
	}

	if err := tx.Commit(); err != nil {
		if repository.IsDuplicateEntry(err) {
			return partialSuccess(len(inputs)), nil
		}
		return nil, errs.Persistence("error committing bulk transaction", err)
	}
	committed = true

	result.Inserted.Count = len(result.Inserted.IDs)
	result.Skipped.Count = len(result.Skipped.Records)
	result.Total.Processed = len(inputs)
	result.Total.Inserted = result.Inserted.Count
	result.Total.Skipped = result.Skipped.Count

	logger.Info("bulk ingest committed",
		logger.Int("processed", result.Total.Processed),
		logger.Int("inserted", result.Total.Inserted),
		logger.Int("skipped", result.Total.Skipped),
	)
	return result, nil
}

// validateBulk runs all batch preconditions before any store access.
func validateBulk(inputs []TrackInput) error {
	if len(inputs) == 0 {
		return errs.Validationf("request body must be a non-empty array of track objects")
	}

	var invalid []string
	for _, in := range inputs {
		if in.SpotifyID == "" || in.Title == "" || in.Artists == "" {
			id := in.SpotifyID
			if id == "" {
				id = "unknown"
			}
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return &errs.Error{
			Kind:    errs.KindValidation,
			Message: "some items are missing required fields (spotifyId, title, artists)",
			Fields:  invalid,
		}
	}

	seen := make(map[string]bool, len(inputs))
	var duplicates []string
	for _, in := range inputs {
		if seen[in.SpotifyID] {
			duplicates = append(duplicates, in.SpotifyID)
		}
		seen[in.SpotifyID] = true
	}
	if len(duplicates) > 0 {
		return errs.Validationf("request contains duplicate spotifyIds: %s", strings.Join(dedupe(duplicates), ", "))
	}
	return nil
}

// partialSuccess is the best-effort accounting returned when a concurrent
// writer raced the existence partition and the transaction rolled back. The
// true split is unknown at this point; CountExact flags the imprecision.
func partialSuccess(processed int) *BulkResult {
	result := &BulkResult{
		Success: true,
		Message: "partial success - some tracks were inserted, others already existed",
	}
	result.Skipped.CountExact = false
	result.Total.Processed = processed
	logger.Warn("bulk ingest hit a concurrent duplicate; reporting approximate accounting",
		logger.Int("processed", processed))
	return result
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
