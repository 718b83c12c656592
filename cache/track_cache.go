// Package cache provides the redis-backed read cache for track records.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chromafm/logger"
	"chromafm/model"

	"github.com/redis/go-redis/v9"
)

// TrackCache caches track records by external id. Misses and redis failures
// degrade to the database; the cache never fails a request.
type TrackCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTrackCache creates a cache over client with the given TTL.
func NewTrackCache(client *redis.Client, ttl time.Duration) *TrackCache {
	return &TrackCache{client: client, ttl: ttl}
}

func trackKey(spotifyID string) string {
	return fmt.Sprintf("track:%s", spotifyID)
}

// Get returns the cached track, if present.
func (c *TrackCache) Get(ctx context.Context, spotifyID string) (*model.Track, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, trackKey(spotifyID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("track cache get failed", logger.String("spotifyId", spotifyID), logger.Err(err))
		}
		return nil, false
	}
	track := &model.Track{}
	if err := json.Unmarshal(data, track); err != nil {
		logger.Warn("track cache held unreadable entry", logger.String("spotifyId", spotifyID), logger.Err(err))
		c.Invalidate(ctx, spotifyID)
		return nil, false
	}
	return track, true
}

// Set stores the track under its external id.
func (c *TrackCache) Set(ctx context.Context, track *model.Track) {
	if c == nil || c.client == nil || track == nil {
		return
	}
	data, err := json.Marshal(track)
	if err != nil {
		logger.Warn("failed to marshal track for cache", logger.String("spotifyId", track.SpotifyID), logger.Err(err))
		return
	}
	if err := c.client.Set(ctx, trackKey(track.SpotifyID), data, c.ttl).Err(); err != nil {
		logger.Warn("track cache set failed", logger.String("spotifyId", track.SpotifyID), logger.Err(err))
	}
}

// Invalidate removes the cached entry for spotifyID.
func (c *TrackCache) Invalidate(ctx context.Context, spotifyID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, trackKey(spotifyID)).Err(); err != nil {
		logger.Warn("track cache invalidate failed", logger.String("spotifyId", spotifyID), logger.Err(err))
	}
}
