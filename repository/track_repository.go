package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chromafm/model"

	"github.com/go-sql-driver/mysql"
)

// Tx is a store transaction. The MySQL implementation wraps *sql.Tx; test
// doubles provide their own.
type Tx interface {
	Commit() error
	Rollback() error
}

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(ctx context.Context, track *model.Track) (int64, error)
	GetTrackBySpotifyID(ctx context.Context, spotifyID string) (*model.Track, error)
	GetTracksBySpotifyIDs(ctx context.Context, spotifyIDs []string) ([]*model.Track, error)
	GetTracksByAlbumID(ctx context.Context, albumID int64) ([]*model.Track, error)

	// UpdateAudioFeatures writes the full descriptor set together with a new
	// status, stamping updated_at. Returns the number of rows matched.
	UpdateAudioFeatures(ctx context.Context, spotifyID string, features *model.AudioFeatures, status model.AudioFeatureStatus) (int64, error)
	// UpdateStatus sets the enrichment status alone.
	UpdateStatus(ctx context.Context, spotifyID string, status model.AudioFeatureStatus) (int64, error)
	// ListByStatus returns up to limit tracks in the given status, oldest first.
	ListByStatus(ctx context.Context, status model.AudioFeatureStatus, limit int) ([]*model.Track, error)
	// ClaimUnprocessed atomically transitions up to limit unprocessed tracks
	// to processing and returns them. Two concurrent callers never receive
	// the same track.
	ClaimUnprocessed(ctx context.Context, limit int) ([]*model.Track, error)

	// UpdateTrackFields applies a partial update of whitelisted columns.
	UpdateTrackFields(ctx context.Context, spotifyID string, fields map[string]interface{}) (int64, error)

	BeginTx(ctx context.Context) (Tx, error)
	GetTracksBySpotifyIDsTx(tx Tx, spotifyIDs []string) ([]*model.Track, error)
	CreateTracksTx(tx Tx, tracks []*model.Track) ([]int64, error)
}

// IsDuplicateEntry reports whether err is a MySQL unique-constraint violation.
func IsDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	db *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository(db *sql.DB) TrackRepository {
	return &mysqlTrackRepository{db: db}
}

const trackColumns = "id, spotify_id, title, artists, album, album_cover, song_url, preview_url, colour_palette, album_id, " +
	"album_name, track_name, popularity, duration_ms, explicit, danceability, energy, `key`, loudness, mode, " +
	"speechiness, acousticness, instrumentalness, liveness, valence, tempo, time_signature, track_genre, " +
	"audio_features_status, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner) (*model.Track, error) {
	track := &model.Track{}
	var previewURL sql.NullString
	err := row.Scan(
		&track.ID, &track.SpotifyID, &track.Title, &track.Artists, &track.Album,
		&track.AlbumCover, &track.SongURL, &previewURL, &track.ColourPalette, &track.AlbumID,
		&track.Features.AlbumName, &track.Features.TrackName, &track.Features.Popularity,
		&track.Features.DurationMs, &track.Features.Explicit, &track.Features.Danceability,
		&track.Features.Energy, &track.Features.Key, &track.Features.Loudness,
		&track.Features.Mode, &track.Features.Speechiness, &track.Features.Acousticness,
		&track.Features.Instrumentalness, &track.Features.Liveness, &track.Features.Valence,
		&track.Features.Tempo, &track.Features.TimeSignature, &track.Features.TrackGenre,
		&track.Status, &track.CreatedAt, &track.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	track.PreviewURL = previewURL.String
	return track, nil
}

func trackInsertArgs(track *model.Track, now time.Time) []interface{} {
	var previewURL interface{}
	if track.PreviewURL != "" {
		previewURL = track.PreviewURL
	}
	var albumID interface{}
	if track.AlbumID.Valid {
		albumID = track.AlbumID.Int64
	}
	f := &track.Features
	return []interface{}{
		track.SpotifyID, track.Title, track.Artists, track.Album, track.AlbumCover,
		track.SongURL, previewURL, track.ColourPalette, albumID,
		f.AlbumName, f.TrackName, f.Popularity, f.DurationMs, f.Explicit,
		f.Danceability, f.Energy, f.Key, f.Loudness, f.Mode,
		f.Speechiness, f.Acousticness, f.Instrumentalness, f.Liveness, f.Valence,
		f.Tempo, f.TimeSignature, f.TrackGenre,
		now, now,
	}
}

// insertColumns builds the column and placeholder lists for a track insert.
// audio_features_status is included only when the track carries an explicit
// status; otherwise the column default (unprocessed) applies.
func insertColumns(withStatus bool) (string, string) {
	cols := "spotify_id, title, artists, album, album_cover, song_url, preview_url, colour_palette, album_id, " +
		"album_name, track_name, popularity, duration_ms, explicit, danceability, energy, `key`, loudness, mode, " +
		"speechiness, acousticness, instrumentalness, liveness, valence, tempo, time_signature, track_genre, " +
		"created_at, updated_at"
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", 29), ", ")
	if withStatus {
		cols += ", audio_features_status"
		placeholders += ", ?"
	}
	return cols, placeholders
}

// CreateTrack adds a new track to the database.
func (r *mysqlTrackRepository) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	withStatus := track.Status != ""
	cols, placeholders := insertColumns(withStatus)
	query := fmt.Sprintf("INSERT INTO tracks (%s) VALUES (%s)", cols, placeholders)

	args := trackInsertArgs(track, time.Now())
	if withStatus {
		args = append(args, string(track.Status))
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if IsDuplicateEntry(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to execute CreateTrack: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateTrack: %w", err)
	}
	return id, nil
}

// GetTrackBySpotifyID retrieves a track by its external id. Returns (nil, nil)
// when the track does not exist.
func (r *mysqlTrackRepository) GetTrackBySpotifyID(ctx context.Context, spotifyID string) (*model.Track, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE spotify_id = ?", trackColumns)
	track, err := scanTrack(r.db.QueryRowContext(ctx, query, spotifyID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by spotify id %s: %w", spotifyID, err)
	}
	return track, nil
}

func (r *mysqlTrackRepository) GetTracksBySpotifyIDs(ctx context.Context, spotifyIDs []string) ([]*model.Track, error) {
	if len(spotifyIDs) == 0 {
		return []*model.Track{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE spotify_id IN (%s) ORDER BY created_at",
		trackColumns, placeholderList(len(spotifyIDs)))
	rows, err := r.db.QueryContext(ctx, query, stringArgs(spotifyIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks by spotify ids: %w", err)
	}
	defer rows.Close()
	return collectTracks(rows)
}

func (r *mysqlTrackRepository) GetTracksByAlbumID(ctx context.Context, albumID int64) ([]*model.Track, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE album_id = ? ORDER BY created_at", trackColumns)
	rows, err := r.db.QueryContext(ctx, query, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for album %d: %w", albumID, err)
	}
	defer rows.Close()
	return collectTracks(rows)
}

func (r *mysqlTrackRepository) UpdateAudioFeatures(ctx context.Context, spotifyID string, features *model.AudioFeatures, status model.AudioFeatureStatus) (int64, error) {
	query := `UPDATE tracks SET
		album_name = ?, track_name = ?, popularity = ?, duration_ms = ?, explicit = ?,
		danceability = ?, energy = ?, ` + "`key`" + ` = ?, loudness = ?, mode = ?,
		speechiness = ?, acousticness = ?, instrumentalness = ?, liveness = ?, valence = ?,
		tempo = ?, time_signature = ?, track_genre = ?, audio_features_status = ?, updated_at = ?
		WHERE spotify_id = ?`
	res, err := r.db.ExecContext(ctx, query,
		features.AlbumName, features.TrackName, features.Popularity, features.DurationMs,
		features.Explicit, features.Danceability, features.Energy, features.Key,
		features.Loudness, features.Mode, features.Speechiness, features.Acousticness,
		features.Instrumentalness, features.Liveness, features.Valence, features.Tempo,
		features.TimeSignature, features.TrackGenre, string(status), time.Now(), spotifyID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update audio features for %s: %w", spotifyID, err)
	}
	return res.RowsAffected()
}

func (r *mysqlTrackRepository) UpdateStatus(ctx context.Context, spotifyID string, status model.AudioFeatureStatus) (int64, error) {
	query := `UPDATE tracks SET audio_features_status = ?, updated_at = ? WHERE spotify_id = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), time.Now(), spotifyID)
	if err != nil {
		return 0, fmt.Errorf("failed to update status for %s: %w", spotifyID, err)
	}
	return res.RowsAffected()
}

func (r *mysqlTrackRepository) ListByStatus(ctx context.Context, status model.AudioFeatureStatus, limit int) ([]*model.Track, error) {
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE audio_features_status = ? ORDER BY created_at ASC LIMIT ?", trackColumns)
	rows, err := r.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks by status %s: %w", status, err)
	}
	defer rows.Close()
	return collectTracks(rows)
}

// ClaimUnprocessed marks a batch as processing inside one transaction, using
// a locking read so concurrent claimers cannot pick the same rows.
func (r *mysqlTrackRepository) ClaimUnprocessed(ctx context.Context, limit int) ([]*model.Track, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf("SELECT %s FROM tracks WHERE audio_features_status = 'unprocessed' ORDER BY created_at ASC LIMIT ? FOR UPDATE SKIP LOCKED", trackColumns)
	rows, err := tx.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select claimable tracks: %w", err)
	}
	tracks, err := collectTracks(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return tracks, tx.Commit()
	}

	ids := make([]interface{}, 0, len(tracks)+1)
	ids = append(ids, time.Now())
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}
	update := fmt.Sprintf("UPDATE tracks SET audio_features_status = 'processing', updated_at = ? WHERE id IN (%s)",
		placeholderList(len(tracks)))
	if _, err := tx.ExecContext(ctx, update, ids...); err != nil {
		return nil, fmt.Errorf("failed to mark tracks processing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	for _, t := range tracks {
		t.Status = model.StatusProcessing
	}
	return tracks, nil
}

// UpdateTrackFields applies a partial update. Callers are responsible for
// passing only whitelisted column names.
func (r *mysqlTrackRepository) UpdateTrackFields(ctx context.Context, spotifyID string, fields map[string]interface{}) (int64, error) {
	if len(fields) == 0 {
		return 0, nil
	}
	setClauses := make([]string, 0, len(fields)+1)
	args := make([]interface{}, 0, len(fields)+2)
	for col, val := range fields {
		setClauses = append(setClauses, col+" = ?")
		args = append(args, val)
	}
	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, time.Now(), spotifyID)

	query := fmt.Sprintf("UPDATE tracks SET %s WHERE spotify_id = ?", strings.Join(setClauses, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to patch track %s: %w", spotifyID, err)
	}
	return res.RowsAffected()
}

// mysqlTx adapts *sql.Tx to the Tx interface.
type mysqlTx struct {
	*sql.Tx
}

// BeginTx starts a new transaction.
func (r *mysqlTrackRepository) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &mysqlTx{tx}, nil
}

// GetTracksBySpotifyIDsTx runs the bulk existence query inside tx.
func (r *mysqlTrackRepository) GetTracksBySpotifyIDsTx(tx Tx, spotifyIDs []string) ([]*model.Track, error) {
	if len(spotifyIDs) == 0 {
		return []*model.Track{}, nil
	}
	query := fmt.Sprintf("SELECT %s FROM tracks WHERE spotify_id IN (%s)",
		trackColumns, placeholderList(len(spotifyIDs)))
	rows, err := tx.(*mysqlTx).Query(query, stringArgs(spotifyIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing tracks in tx: %w", err)
	}
	defer rows.Close()
	return collectTracks(rows)
}

// CreateTracksTx inserts all tracks in one multi-row statement inside tx.
// Auto-increment ids for a single multi-row INSERT are allocated
// consecutively, so the assigned ids are derived from LastInsertId.
func (r *mysqlTrackRepository) CreateTracksTx(tx Tx, tracks []*model.Track) ([]int64, error) {
	if len(tracks) == 0 {
		return nil, nil
	}
	// Bulk rows always carry an explicit-or-default status decided by the
	// caller, but never an album link; insert NULL album_id rows uniformly.
	cols, placeholders := insertColumns(true)
	rowPlaceholders := make([]string, len(tracks))
	args := make([]interface{}, 0, len(tracks)*30)
	now := time.Now()
	for i, track := range tracks {
		rowPlaceholders[i] = "(" + placeholders + ")"
		status := track.Status
		if status == "" {
			status = model.StatusUnprocessed
		}
		args = append(args, trackInsertArgs(track, now)...)
		args = append(args, string(status))
	}

	query := fmt.Sprintf("INSERT INTO tracks (%s) VALUES %s", cols, strings.Join(rowPlaceholders, ", "))
	res, err := tx.(*mysqlTx).Exec(query, args...)
	if err != nil {
		if IsDuplicateEntry(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to execute bulk track insert: %w", err)
	}

	firstID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get first insert ID for bulk insert: %w", err)
	}
	ids := make([]int64, len(tracks))
	for i := range tracks {
		ids[i] = firstID + int64(i)
	}
	return ids, nil
}

func collectTracks(rows *sql.Rows) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during track rows iteration: %w", err)
	}
	return tracks, nil
}

func placeholderList(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
