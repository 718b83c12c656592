package ingest

import (
	"context"
	"testing"

	"chromafm/errs"
	"chromafm/model"
)

func TestUpdateAudioFeatures(t *testing.T) {
	ctx := context.Background()

	t.Run("writes descriptors and status", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, validInput("t1"))

		tempo := 174.0
		key := 7
		track, err := svc.UpdateAudioFeatures(ctx, "t1",
			model.AudioFeatures{Tempo: &tempo, Key: &key}, model.StatusProcessed)
		if err != nil {
			t.Fatal(err)
		}
		if track.Status != model.StatusProcessed {
			t.Fatalf("status = %q", track.Status)
		}
		if track.Features.Tempo == nil || *track.Features.Tempo != 174.0 {
			t.Fatalf("features = %+v", track.Features)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.UpdateAudioFeatures(ctx, "ghost", model.AudioFeatures{}, model.StatusFailed)
		if !errs.IsNotFound(err) {
			t.Fatalf("err = %v, want not found", err)
		}
	})

	t.Run("empty status is validation", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.UpdateAudioFeatures(ctx, "t1", model.AudioFeatures{}, "")
		if !errs.IsValidation(err) {
			t.Fatalf("err = %v, want validation", err)
		}
	})

	t.Run("status outside the closed set fails at the store", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, validInput("t1"))

		_, err := svc.UpdateAudioFeatures(ctx, "t1", model.AudioFeatures{}, "done")
		if errs.KindOf(err) != errs.KindPersistence {
			t.Fatalf("err = %v, want persistence", err)
		}
	})

	t.Run("invalidates the cache entry", func(t *testing.T) {
		cache := newMemCache()
		svc, tracks, albums := newTestService(t)
		svc = NewService(tracks, albums, cache)
		mustCreate(t, svc, validInput("t1"))
		if _, err := svc.GetTrackBySpotifyID(ctx, "t1"); err != nil {
			t.Fatal(err)
		}

		if _, err := svc.UpdateAudioFeatures(ctx, "t1", model.AudioFeatures{}, model.StatusFailed); err != nil {
			t.Fatal(err)
		}
		if cache.invalidations == 0 {
			t.Fatal("update must invalidate the cached track")
		}
		track, err := svc.GetTrackBySpotifyID(ctx, "t1")
		if err != nil {
			t.Fatal(err)
		}
		if track.Status != model.StatusFailed {
			t.Fatalf("stale read after update: status = %q", track.Status)
		}
	})
}

func TestUpdateProcessingStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("status only", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		tempo := 90.0
		in := validInput("t1")
		in.Tempo = &tempo
		mustCreate(t, svc, in)

		track, err := svc.UpdateProcessingStatus(ctx, "t1", model.StatusProcessing)
		if err != nil {
			t.Fatal(err)
		}
		if track.Status != model.StatusProcessing {
			t.Fatalf("status = %q", track.Status)
		}
		if track.Features.Tempo == nil || *track.Features.Tempo != 90.0 {
			t.Fatal("status update must not touch descriptors")
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.UpdateProcessingStatus(ctx, "ghost", model.StatusProcessing)
		if !errs.IsNotFound(err) {
			t.Fatalf("err = %v, want not found", err)
		}
	})
}

func TestListUnprocessedTracks(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	for _, id := range []string{"t1", "t2", "t3"} {
		mustCreate(t, svc, validInput(id))
	}
	in := validInput("t4")
	in.Status = model.StatusProcessed
	mustCreate(t, svc, in)

	t.Run("oldest first, only unprocessed", func(t *testing.T) {
		tracks, err := svc.ListUnprocessedTracks(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(tracks) != 3 {
			t.Fatalf("got %d tracks, want 3", len(tracks))
		}
		if tracks[0].SpotifyID != "t1" {
			t.Fatalf("first = %s, want t1", tracks[0].SpotifyID)
		}
	})

	t.Run("limit honored", func(t *testing.T) {
		tracks, err := svc.ListUnprocessedTracks(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(tracks) != 2 {
			t.Fatalf("got %d tracks, want 2", len(tracks))
		}
	})

	t.Run("listing does not claim", func(t *testing.T) {
		if _, err := svc.ListUnprocessedTracks(ctx, 10); err != nil {
			t.Fatal(err)
		}
		again, err := svc.ListUnprocessedTracks(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != 3 {
			t.Fatalf("listing mutated the queue: %d left", len(again))
		}
	})
}

func TestClaimUnprocessedTracks(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	for _, id := range []string{"t1", "t2", "t3"} {
		mustCreate(t, svc, validInput(id))
	}

	claimed, err := svc.ClaimUnprocessedTracks(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 2 {
		t.Fatalf("claimed %d, want 2", len(claimed))
	}
	for _, track := range claimed {
		if track.Status != model.StatusProcessing {
			t.Fatalf("claimed track %s has status %q", track.SpotifyID, track.Status)
		}
	}

	// A second worker only gets the remainder.
	rest, err := svc.ClaimUnprocessedTracks(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].SpotifyID != "t3" {
		t.Fatalf("second claim = %+v", rest)
	}

	empty, err := svc.ClaimUnprocessedTracks(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("queue should be drained, got %d", len(empty))
	}
}
