package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"chromafm/errs"
	"chromafm/model"
)

func strptr(s string) *string { return &s }

func TestPatchTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("updates named fields only", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, validInput("t1"))

		track, err := svc.PatchTrack(ctx, "t1", TrackPatch{
			Title:         strptr("Weightless, Pt. 2"),
			ColourPalette: json.RawMessage(`{"palette":[[11,12,13]]}`),
		})
		if err != nil {
			t.Fatal(err)
		}
		if track.Title != "Weightless, Pt. 2" {
			t.Fatalf("title = %q", track.Title)
		}
		if track.Artists != "Marconi Union" {
			t.Fatal("unnamed field changed")
		}
		if len(track.ColourPalette.Colors) != 1 || track.ColourPalette.Colors[0] != (model.RGB{11, 12, 13}) {
			t.Fatalf("palette = %v", track.ColourPalette.Colors)
		}
	})

	t.Run("empty patch is validation", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, validInput("t1"))
		_, err := svc.PatchTrack(ctx, "t1", TrackPatch{})
		if !errs.IsValidation(err) {
			t.Fatalf("err = %v, want validation", err)
		}
	})

	t.Run("invalid palette is validation", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, validInput("t1"))
		_, err := svc.PatchTrack(ctx, "t1", TrackPatch{ColourPalette: json.RawMessage(`7`)})
		if !errs.IsValidation(err) {
			t.Fatalf("err = %v, want validation", err)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.PatchTrack(ctx, "ghost", TrackPatch{Title: strptr("x")})
		if !errs.IsNotFound(err) {
			t.Fatalf("err = %v, want not found", err)
		}
	})
}

func TestPatchAlbum(t *testing.T) {
	ctx := context.Background()

	t.Run("updates named fields", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, validInput("t1"))

		album, err := svc.PatchAlbum(ctx, "album-t1", AlbumPatch{
			AlbumCover: strptr("https://img.example/new-cover.jpg"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if album.AlbumCover != "https://img.example/new-cover.jpg" {
			t.Fatalf("cover = %q", album.AlbumCover)
		}
	})

	t.Run("empty patch is validation", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustCreate(t, svc, validInput("t1"))
		_, err := svc.PatchAlbum(ctx, "album-t1", AlbumPatch{})
		if !errs.IsValidation(err) {
			t.Fatalf("err = %v, want validation", err)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.PatchAlbum(ctx, "ghost", AlbumPatch{Artists: strptr("x")})
		if !errs.IsNotFound(err) {
			t.Fatalf("err = %v, want not found", err)
		}
	})
}
