package db

import (
	"database/sql"
	"fmt"

	"chromafm/config"
	"chromafm/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// DB is the shared database handle. It is set by ConnectDB and passed
// explicitly into repositories; nothing below this package reads it directly.
var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createAlbumsTable(); err != nil {
		return err
	}
	if err := createTracksTable(); err != nil {
		return err
	}
	logger.Info("Database schema initialized")
	return nil
}

func createAlbumsTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS albums (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		spotify_id VARCHAR(64) NOT NULL,
		album VARCHAR(255) NOT NULL,
		artists VARCHAR(512) NOT NULL,
		album_cover VARCHAR(767) NOT NULL,
		colour_palette JSON NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT uq_albums_spotify_id UNIQUE (spotify_id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create albums table: %w", err)
	}
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		spotify_id VARCHAR(64) NOT NULL,
		title VARCHAR(255) NOT NULL,
		artists VARCHAR(512) NOT NULL,
		album VARCHAR(255) NOT NULL DEFAULT '',
		album_cover VARCHAR(767) NOT NULL DEFAULT '',
		song_url VARCHAR(767) NOT NULL DEFAULT '',
		preview_url VARCHAR(767),
		colour_palette JSON NOT NULL,
		album_id BIGINT,
		album_name VARCHAR(255),
		track_name VARCHAR(255),
		popularity INT,
		duration_ms INT,
		explicit BOOLEAN,
		danceability DECIMAL(5,3),
		energy DECIMAL(5,3),
		` + "`key`" + ` INT,
		loudness DECIMAL(8,3),
		mode INT,
		speechiness DECIMAL(5,3),
		acousticness DECIMAL(5,3),
		instrumentalness DECIMAL(5,3),
		liveness DECIMAL(5,3),
		valence DECIMAL(5,3),
		tempo DECIMAL(8,3),
		time_signature INT,
		track_genre VARCHAR(128),
		audio_features_status ENUM('unprocessed','processing','processed','failed','imported')
			NOT NULL DEFAULT 'unprocessed',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		CONSTRAINT uq_tracks_spotify_id UNIQUE (spotify_id),
		CONSTRAINT fk_tracks_album FOREIGN KEY (album_id) REFERENCES albums(id),
		INDEX idx_tracks_audio_status_created (audio_features_status, created_at)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	return nil
}
