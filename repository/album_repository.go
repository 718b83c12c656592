package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"chromafm/model"
)

// AlbumRepository defines the interface for album data operations.
type AlbumRepository interface {
	CreateAlbum(ctx context.Context, album *model.Album) (int64, error)
	GetAlbumByID(ctx context.Context, id int64) (*model.Album, error)
	GetAlbumBySpotifyID(ctx context.Context, spotifyID string) (*model.Album, error)
	UpdateAlbumFields(ctx context.Context, spotifyID string, fields map[string]interface{}) (int64, error)
}

// mysqlAlbumRepository implements AlbumRepository for MySQL.
type mysqlAlbumRepository struct {
	db *sql.DB
}

// NewMySQLAlbumRepository creates a new instance of mysqlAlbumRepository.
func NewMySQLAlbumRepository(db *sql.DB) AlbumRepository {
	return &mysqlAlbumRepository{db: db}
}

const albumColumns = "id, spotify_id, album, artists, album_cover, colour_palette, created_at, updated_at"

func scanAlbum(row rowScanner) (*model.Album, error) {
	album := &model.Album{}
	err := row.Scan(
		&album.ID, &album.SpotifyID, &album.Album, &album.Artists,
		&album.AlbumCover, &album.ColourPalette, &album.CreatedAt, &album.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return album, nil
}

// CreateAlbum inserts a new album row.
func (r *mysqlAlbumRepository) CreateAlbum(ctx context.Context, album *model.Album) (int64, error) {
	query := `INSERT INTO albums (spotify_id, album, artists, album_cover, colour_palette, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	res, err := r.db.ExecContext(ctx, query,
		album.SpotifyID, album.Album, album.Artists, album.AlbumCover, album.ColourPalette, now, now)
	if err != nil {
		if IsDuplicateEntry(err) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to execute CreateAlbum: %w", err)
	}
	return res.LastInsertId()
}

// GetAlbumByID retrieves an album by its internal id. Returns (nil, nil) when
// the album does not exist.
func (r *mysqlAlbumRepository) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	query := fmt.Sprintf("SELECT %s FROM albums WHERE id = ?", albumColumns)
	album, err := scanAlbum(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan album by id %d: %w", id, err)
	}
	return album, nil
}

// GetAlbumBySpotifyID retrieves an album by its external id. Returns
// (nil, nil) when the album does not exist.
func (r *mysqlAlbumRepository) GetAlbumBySpotifyID(ctx context.Context, spotifyID string) (*model.Album, error) {
	query := fmt.Sprintf("SELECT %s FROM albums WHERE spotify_id = ?", albumColumns)
	album, err := scanAlbum(r.db.QueryRowContext(ctx, query, spotifyID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan album by spotify id %s: %w", spotifyID, err)
	}
	return album, nil
}

// UpdateAlbumFields applies a partial update of whitelisted columns.
func (r *mysqlAlbumRepository) UpdateAlbumFields(ctx context.Context, spotifyID string, fields map[string]interface{}) (int64, error) {
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

	query := fmt.Sprintf("UPDATE albums SET %s WHERE spotify_id = ?", strings.Join(setClauses, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to patch album %s: %w", spotifyID, err)
	}
	return res.RowsAffected()
}
