package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"chromafm/errs"
	"chromafm/model"
)

func TestCreateTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("creates track and its album", func(t *testing.T) {
		svc, tracks, albums := newTestService(t)

		res, err := svc.CreateTrack(ctx, validInput("t1"))
		if err != nil {
			t.Fatal(err)
		}
		if !res.Created || res.Track == nil {
			t.Fatalf("result = %+v", res)
		}
		if res.Track.ID == 0 {
			t.Fatal("inserted track has no id")
		}
		if !res.Track.AlbumID.Valid {
			t.Fatal("single-track creation must link the album")
		}
		if res.Track.Status != model.StatusUnprocessed {
			t.Fatalf("status = %q, want unprocessed default", res.Track.Status)
		}
		if tracks.Len() != 1 || albums.Len() != 1 {
			t.Fatalf("store sizes: tracks=%d albums=%d", tracks.Len(), albums.Len())
		}

		album, err := albums.GetAlbumBySpotifyID(ctx, "album-t1")
		if err != nil || album == nil {
			t.Fatalf("album lookup: %v %v", album, err)
		}
		if res.Track.AlbumID.Int64 != album.ID {
			t.Fatalf("track links album %d, want %d", res.Track.AlbumID.Int64, album.ID)
		}
		if len(album.ColourPalette.Colors) != 1 || album.ColourPalette.Colors[0] != (model.RGB{1, 2, 3}) {
			t.Fatalf("album palette = %v", album.ColourPalette.Colors)
		}
	})

	t.Run("reuses an existing album", func(t *testing.T) {
		svc, _, albums := newTestService(t)
		first := mustCreate(t, svc, validInput("t1"))

		in := validInput("t2")
		in.SpotifyAlbumID = "album-t1"
		in.Album = "Some Other Name" // first writer wins; this is discarded
		second := mustCreate(t, svc, in)

		if albums.Len() != 1 {
			t.Fatalf("albums = %d, want 1", albums.Len())
		}
		if second.AlbumID.Int64 != first.AlbumID.Int64 {
			t.Fatal("tracks of the same album must share one album row")
		}
		album, _ := albums.GetAlbumBySpotifyID(ctx, "album-t1")
		if album.Album == "Some Other Name" {
			t.Fatal("later track submission must not rewrite the album")
		}
	})

	t.Run("duplicate submission is a soft conflict", func(t *testing.T) {
		svc, tracks, _ := newTestService(t)
		first := mustCreate(t, svc, validInput("t1"))

		res, err := svc.CreateTrack(ctx, validInput("t1"))
		if err != nil {
			t.Fatalf("duplicate must not be an error: %v", err)
		}
		if res.Created {
			t.Fatal("duplicate reported as created")
		}
		if res.Track.ID != first.ID {
			t.Fatalf("conflict carries id %d, want existing %d", res.Track.ID, first.ID)
		}
		if res.Message == "" {
			t.Fatal("conflict must carry an explanation")
		}
		if tracks.Len() != 1 {
			t.Fatalf("store grew to %d rows", tracks.Len())
		}
	})

	t.Run("missing fields fail before any store access", func(t *testing.T) {
		svc, tracks, _ := newTestService(t)

		_, err := svc.CreateTrack(ctx, TrackInput{})
		var e *errs.Error
		if !errors.As(err, &e) || e.Kind != errs.KindValidation {
			t.Fatalf("err = %v, want validation", err)
		}
		want := map[string]bool{
			"spotifyId": true, "title": true, "artists": true,
			"spotifyAlbumId": true, "albumCover": true, "albumColourPalette": true,
		}
		if len(e.Fields) != len(want) {
			t.Fatalf("fields = %v", e.Fields)
		}
		for _, f := range e.Fields {
			if !want[f] {
				t.Fatalf("unexpected field %q in %v", f, e.Fields)
			}
		}
		if tracks.Lookups != 0 {
			t.Fatal("validation must run before the store is touched")
		}
	})

	t.Run("invalid palette rejected", func(t *testing.T) {
		svc, tracks, _ := newTestService(t)
		in := validInput("t1")
		in.ColourPalette = json.RawMessage(`42`)

		_, err := svc.CreateTrack(ctx, in)
		if !errs.IsValidation(err) {
			t.Fatalf("err = %v, want validation", err)
		}
		if tracks.Len() != 0 {
			t.Fatal("rejected input must not be stored")
		}
	})

	t.Run("descriptors without status infer imported", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		in := validInput("t1")
		tempo := 128.0
		in.Tempo = &tempo

		track := mustCreate(t, svc, in)
		if track.Status != model.StatusImported {
			t.Fatalf("status = %q, want imported", track.Status)
		}
		if track.Features.Tempo == nil || *track.Features.Tempo != 128.0 {
			t.Fatalf("features = %+v", track.Features)
		}
	})

	t.Run("explicit status wins over inference", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		in := validInput("t1")
		tempo := 128.0
		in.Tempo = &tempo
		in.Status = model.StatusProcessed

		track := mustCreate(t, svc, in)
		if track.Status != model.StatusProcessed {
			t.Fatalf("status = %q, want processed", track.Status)
		}
	})

	t.Run("lost insert race surfaces the winner", func(t *testing.T) {
		svc, tracks, _ := newTestService(t)
		winner := mustCreate(t, svc, validInput("t1"))

		// The existence check misses, the insert hits the unique key.
		tracks.MissNextLookup = true
		res, err := svc.CreateTrack(ctx, validInput("t1"))
		if err != nil {
			t.Fatalf("race must degrade to a soft conflict: %v", err)
		}
		if res.Created || res.Track.ID != winner.ID {
			t.Fatalf("result = %+v, want winner %d", res, winner.ID)
		}
	})
}

func TestResolveAlbumRace(t *testing.T) {
	ctx := context.Background()
	svc, _, albums := newTestService(t)
	mustCreate(t, svc, validInput("t1"))

	// Album lookup misses while the row exists; creation hits the unique key
	// and the engine adopts the winner.
	albums.MissNextLookup = true
	in := validInput("t2")
	in.SpotifyAlbumID = "album-t1"
	res, err := svc.CreateTrack(ctx, in)
	if err != nil {
		t.Fatalf("album race must resolve to the winner: %v", err)
	}
	if !res.Created {
		t.Fatal("track itself is new and must be created")
	}
	if albums.Len() != 1 {
		t.Fatalf("albums = %d, want 1", albums.Len())
	}
}

func TestCreateAlbum(t *testing.T) {
	ctx := context.Background()

	valid := AlbumInput{
		SpotifyID:     "al1",
		Album:         "Substrata",
		Artists:       "Biosphere",
		AlbumCover:    "https://img.example/substrata.jpg",
		ColourPalette: json.RawMessage(`{"palette":[[9,9,9]]}`),
	}

	t.Run("created", func(t *testing.T) {
		svc, _, albums := newTestService(t)
		res, err := svc.CreateAlbum(ctx, valid)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Created || res.Album.ID == 0 {
			t.Fatalf("result = %+v", res)
		}
		if len(res.Album.ColourPalette.Colors) != 1 {
			t.Fatalf("palette = %v", res.Album.ColourPalette)
		}
		if albums.Len() != 1 {
			t.Fatalf("albums = %d", albums.Len())
		}
	})

	t.Run("duplicate is a soft conflict", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		first, err := svc.CreateAlbum(ctx, valid)
		if err != nil {
			t.Fatal(err)
		}
		res, err := svc.CreateAlbum(ctx, valid)
		if err != nil {
			t.Fatal(err)
		}
		if res.Created || res.Album.ID != first.Album.ID {
			t.Fatalf("result = %+v", res)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.CreateAlbum(ctx, AlbumInput{})
		var e *errs.Error
		if !errors.As(err, &e) || e.Kind != errs.KindValidation || len(e.Fields) != 3 {
			t.Fatalf("err = %v", err)
		}
	})
}
