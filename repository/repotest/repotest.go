// Package repotest provides in-memory repository doubles for engine and
// handler tests. The doubles enforce the same uniqueness and status rules as
// the MySQL schema, including duplicate-entry errors that satisfy
// repository.IsDuplicateEntry.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chromafm/model"
	"chromafm/repository"

	"github.com/go-sql-driver/mysql"
)

// DuplicateErr mimics the driver error raised by a unique-constraint
// violation.
func DuplicateErr(key string) error {
	return &mysql.MySQLError{Number: 1062, Message: fmt.Sprintf("Duplicate entry '%s'", key)}
}

// TrackStore is an in-memory repository.TrackRepository.
type TrackStore struct {
	mu     sync.Mutex
	byID   map[string]*model.Track
	order  []string
	nextID int64
	clock  time.Time

	// InsertErr, when set, is returned by the next insert and cleared.
	InsertErr error
	// MissNextLookup makes the next GetTrackBySpotifyID miss and is then
	// cleared. Simulates a concurrent writer landing between lookup and
	// insert.
	MissNextLookup bool
	// Lookups counts read queries, for asserting fail-fast validation.
	Lookups int
}

// NewTrackStore creates an empty track store.
func NewTrackStore() *TrackStore {
	return &TrackStore{
		byID:  make(map[string]*model.Track),
		clock: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func cloneTrack(t *model.Track) *model.Track {
	c := *t
	return &c
}

// Len returns the number of committed rows.
func (s *TrackStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *TrackStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *TrackStore) insertLocked(track *model.Track) (int64, error) {
	if s.InsertErr != nil {
		err := s.InsertErr
		s.InsertErr = nil
		return 0, err
	}
	if _, exists := s.byID[track.SpotifyID]; exists {
		return 0, DuplicateErr(track.SpotifyID)
	}
	s.nextID++
	row := cloneTrack(track)
	row.ID = s.nextID
	if row.Status == "" {
		row.Status = model.StatusUnprocessed
	} else if !row.Status.Valid() {
		return 0, fmt.Errorf("data truncated for column 'audio_features_status'")
	}
	now := s.tick()
	row.CreatedAt = now
	row.UpdatedAt = now
	s.byID[row.SpotifyID] = row
	s.order = append(s.order, row.SpotifyID)
	return row.ID, nil
}

func (s *TrackStore) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(track)
}

func (s *TrackStore) GetTrackBySpotifyID(ctx context.Context, spotifyID string) (*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lookups++
	if s.MissNextLookup {
		s.MissNextLookup = false
		return nil, nil
	}
	if row, ok := s.byID[spotifyID]; ok {
		return cloneTrack(row), nil
	}
	return nil, nil
}

func (s *TrackStore) GetTracksBySpotifyIDs(ctx context.Context, spotifyIDs []string) ([]*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lookups++
	wanted := make(map[string]bool, len(spotifyIDs))
	for _, id := range spotifyIDs {
		wanted[id] = true
	}
	out := make([]*model.Track, 0)
	for _, id := range s.order {
		if wanted[id] {
			out = append(out, cloneTrack(s.byID[id]))
		}
	}
	return out, nil
}

func (s *TrackStore) GetTracksByAlbumID(ctx context.Context, albumID int64) ([]*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Track, 0)
	for _, id := range s.order {
		row := s.byID[id]
		if row.AlbumID.Valid && row.AlbumID.Int64 == albumID {
			out = append(out, cloneTrack(row))
		}
	}
	return out, nil
}

func (s *TrackStore) UpdateAudioFeatures(ctx context.Context, spotifyID string, features *model.AudioFeatures, status model.AudioFeatureStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !status.Valid() {
		return 0, fmt.Errorf("data truncated for column 'audio_features_status'")
	}
	row, ok := s.byID[spotifyID]
	if !ok {
		return 0, nil
	}
	row.Features = *features
	row.Status = status
	row.UpdatedAt = s.tick()
	return 1, nil
}

func (s *TrackStore) UpdateStatus(ctx context.Context, spotifyID string, status model.AudioFeatureStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !status.Valid() {
		return 0, fmt.Errorf("data truncated for column 'audio_features_status'")
	}
	row, ok := s.byID[spotifyID]
	if !ok {
		return 0, nil
	}
	row.Status = status
	row.UpdatedAt = s.tick()
	return 1, nil
}

func (s *TrackStore) ListByStatus(ctx context.Context, status model.AudioFeatureStatus, limit int) ([]*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Track, 0)
	for _, id := range s.order {
		row := s.byID[id]
		if row.Status == status {
			out = append(out, cloneTrack(row))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *TrackStore) ClaimUnprocessed(ctx context.Context, limit int) ([]*model.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Track, 0)
	for _, id := range s.order {
		row := s.byID[id]
		if row.Status == model.StatusUnprocessed {
			row.Status = model.StatusProcessing
			row.UpdatedAt = s.tick()
			out = append(out, cloneTrack(row))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *TrackStore) UpdateTrackFields(ctx context.Context, spotifyID string, fields map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.byID[spotifyID]
	if !ok {
		return 0, nil
	}
	for col, val := range fields {
		switch col {
		case "title":
			row.Title = val.(string)
		case "artists":
			row.Artists = val.(string)
		case "album":
			row.Album = val.(string)
		case "album_cover":
			row.AlbumCover = val.(string)
		case "song_url":
			row.SongURL = val.(string)
		case "preview_url":
			row.PreviewURL = val.(string)
		case "colour_palette":
			row.ColourPalette = val.(model.Palette)
		default:
			return 0, fmt.Errorf("unknown column %q", col)
		}
	}
	row.UpdatedAt = s.tick()
	return 1, nil
}

// trackTx stages bulk inserts until Commit.
type trackTx struct {
	store      *TrackStore
	staged     []*model.Track
	done       bool
	RolledBack bool
}

func (s *TrackStore) BeginTx(ctx context.Context) (repository.Tx, error) {
	return &trackTx{store: s}, nil
}

func (tx *trackTx) Commit() error {
	if tx.done {
		return fmt.Errorf("transaction already closed")
	}
	tx.done = true
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for _, track := range tx.staged {
		if _, err := tx.store.insertLocked(track); err != nil {
			return err
		}
	}
	return nil
}

func (tx *trackTx) Rollback() error {
	if tx.done {
		return fmt.Errorf("transaction already closed")
	}
	tx.done = true
	tx.RolledBack = true
	tx.staged = nil
	return nil
}

func (s *TrackStore) GetTracksBySpotifyIDsTx(tx repository.Tx, spotifyIDs []string) ([]*model.Track, error) {
	return s.GetTracksBySpotifyIDs(context.Background(), spotifyIDs)
}

func (s *TrackStore) CreateTracksTx(tx repository.Tx, tracks []*model.Track) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		err := s.InsertErr
		s.InsertErr = nil
		return nil, err
	}
	for _, track := range tracks {
		if _, exists := s.byID[track.SpotifyID]; exists {
			return nil, DuplicateErr(track.SpotifyID)
		}
	}
	ftx := tx.(*trackTx)
	ids := make([]int64, len(tracks))
	base := s.nextID
	for i, track := range tracks {
		ids[i] = base + int64(i) + 1
		ftx.staged = append(ftx.staged, cloneTrack(track))
	}
	return ids, nil
}

// AlbumStore is an in-memory repository.AlbumRepository.
type AlbumStore struct {
	mu     sync.Mutex
	byID   map[string]*model.Album
	order  []string
	nextID int64

	// InsertErr, when set, is returned by the next insert and cleared.
	InsertErr error
	// MissNextLookup makes the next GetAlbumBySpotifyID miss and is then
	// cleared.
	MissNextLookup bool
}

// NewAlbumStore creates an empty album store.
func NewAlbumStore() *AlbumStore {
	return &AlbumStore{byID: make(map[string]*model.Album)}
}

func cloneAlbum(a *model.Album) *model.Album {
	c := *a
	return &c
}

// Len returns the number of committed rows.
func (s *AlbumStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *AlbumStore) CreateAlbum(ctx context.Context, album *model.Album) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		err := s.InsertErr
		s.InsertErr = nil
		return 0, err
	}
	if _, exists := s.byID[album.SpotifyID]; exists {
		return 0, DuplicateErr(album.SpotifyID)
	}
	s.nextID++
	row := cloneAlbum(album)
	row.ID = s.nextID
	now := time.Now()
	row.CreatedAt = now
	row.UpdatedAt = now
	s.byID[row.SpotifyID] = row
	s.order = append(s.order, row.SpotifyID)
	return row.ID, nil
}

func (s *AlbumStore) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.byID {
		if row.ID == id {
			return cloneAlbum(row), nil
		}
	}
	return nil, nil
}

func (s *AlbumStore) GetAlbumBySpotifyID(ctx context.Context, spotifyID string) (*model.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MissNextLookup {
		s.MissNextLookup = false
		return nil, nil
	}
	if row, ok := s.byID[spotifyID]; ok {
		return cloneAlbum(row), nil
	}
	return nil, nil
}

// Put inserts an album directly, bypassing error hooks. Test setup helper.
func (s *AlbumStore) Put(album *model.Album) *model.Album {
	id, err := s.CreateAlbum(context.Background(), album)
	if err != nil {
		panic(err)
	}
	album.ID = id
	return album
}

func (s *AlbumStore) UpdateAlbumFields(ctx context.Context, spotifyID string, fields map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.byID[spotifyID]
	if !ok {
		return 0, nil
	}
	for col, val := range fields {
		switch col {
		case "album":
			row.Album = val.(string)
		case "artists":
			row.Artists = val.(string)
		case "album_cover":
			row.AlbumCover = val.(string)
		case "colour_palette":
			row.ColourPalette = val.(model.Palette)
		default:
			return 0, fmt.Errorf("unknown column %q", col)
		}
	}
	row.UpdatedAt = time.Now()
	return 1, nil
}

var (
	_ repository.TrackRepository = (*TrackStore)(nil)
	_ repository.AlbumRepository = (*AlbumStore)(nil)
)
