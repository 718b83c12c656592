package model

import (
	"bytes"
	"encoding/json"
	"testing"

	"chromafm/errs"
)

func normalize(t *testing.T, raw string) Palette {
	t.Helper()
	p, err := NormalizePalette("colourPalette", json.RawMessage(raw))
	if err != nil {
		t.Fatalf("NormalizePalette(%s): %v", raw, err)
	}
	return p
}

func TestNormalizePalette(t *testing.T) {
	want := []RGB{{1, 2, 3}, {200, 100, 50}}

	t.Run("raw array", func(t *testing.T) {
		p := normalize(t, `[[1,2,3],[200,100,50]]`)
		if len(p.Colors) != 2 || p.Colors[0] != want[0] || p.Colors[1] != want[1] {
			t.Fatalf("got %v, want %v", p.Colors, want)
		}
	})

	t.Run("wrapper object", func(t *testing.T) {
		p := normalize(t, `{"palette":[[1,2,3],[200,100,50]]}`)
		if len(p.Colors) != 2 || p.Colors[1] != want[1] {
			t.Fatalf("got %v, want %v", p.Colors, want)
		}
		if p.IsOpaque() {
			t.Fatal("wrapper object must decode to triples, not opaque")
		}
	})

	t.Run("json text", func(t *testing.T) {
		p := normalize(t, `"[[1,2,3],[200,100,50]]"`)
		if len(p.Colors) != 2 || p.Colors[0] != want[0] {
			t.Fatalf("got %v, want %v", p.Colors, want)
		}
	})

	t.Run("json text wrapping object", func(t *testing.T) {
		p := normalize(t, `"{\"palette\":[[1,2,3]]}"`)
		if len(p.Colors) != 1 || p.Colors[0] != want[0] {
			t.Fatalf("got %v", p.Colors)
		}
	})

	t.Run("absent and null are empty", func(t *testing.T) {
		for _, raw := range []string{"", "null", "  "} {
			p, err := NormalizePalette("colourPalette", json.RawMessage(raw))
			if err != nil {
				t.Fatalf("NormalizePalette(%q): %v", raw, err)
			}
			if len(p.Colors) != 0 || p.IsOpaque() {
				t.Fatalf("NormalizePalette(%q) = %v, want empty", raw, p)
			}
		}
	})

	t.Run("opaque object passthrough", func(t *testing.T) {
		raw := `{"vibrant":"#aabbcc","muted":"#112233"}`
		p := normalize(t, raw)
		if !p.IsOpaque() {
			t.Fatal("expected opaque palette")
		}
		out, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out, []byte(raw)) {
			t.Fatalf("opaque round trip changed payload: %s", out)
		}
	})

	t.Run("scalars rejected", func(t *testing.T) {
		for _, raw := range []string{"42", "true", "3.14"} {
			_, err := NormalizePalette("colourPalette", json.RawMessage(raw))
			if !errs.IsValidation(err) {
				t.Fatalf("NormalizePalette(%s) err = %v, want validation", raw, err)
			}
		}
	})

	t.Run("component out of range rejected", func(t *testing.T) {
		_, err := NormalizePalette("colourPalette", json.RawMessage(`[[1,2,300]]`))
		if !errs.IsValidation(err) {
			t.Fatalf("err = %v, want validation", err)
		}
	})

	t.Run("unparseable text rejected", func(t *testing.T) {
		_, err := NormalizePalette("colourPalette", json.RawMessage(`"not json at all"`))
		if !errs.IsValidation(err) {
			t.Fatalf("err = %v, want validation", err)
		}
	})
}

func TestPaletteJSONRoundTrip(t *testing.T) {
	// All canonical-decodable shapes converge on the same serialized form.
	shapes := []string{
		`[[1,2,3]]`,
		`{"palette":[[1,2,3]]}`,
		`"[[1,2,3]]"`,
	}
	for _, raw := range shapes {
		p := normalize(t, raw)
		out, err := json.Marshal(p)
		if err != nil {
			t.Fatal(err)
		}
		if string(out) != `[[1,2,3]]` {
			t.Fatalf("shape %s serialized as %s", raw, out)
		}
	}
}

func TestPaletteMarshalEmpty(t *testing.T) {
	out, err := json.Marshal(Palette{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "[]" {
		t.Fatalf("empty palette serialized as %s, want []", out)
	}
}

func TestPaletteSQLRoundTrip(t *testing.T) {
	p := normalize(t, `[[10,20,30]]`)
	v, err := p.Value()
	if err != nil {
		t.Fatal(err)
	}
	var back Palette
	if err := back.Scan([]byte(v.(string))); err != nil {
		t.Fatal(err)
	}
	if len(back.Colors) != 1 || back.Colors[0] != (RGB{10, 20, 30}) {
		t.Fatalf("got %v after scan", back.Colors)
	}

	var null Palette
	if err := null.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if len(null.Colors) != 0 || null.IsOpaque() {
		t.Fatalf("NULL column scanned to %v, want empty", null)
	}
}

func TestAudioFeatureStatusValid(t *testing.T) {
	valid := []AudioFeatureStatus{
		StatusUnprocessed, StatusProcessing, StatusProcessed, StatusFailed, StatusImported,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, s := range []AudioFeatureStatus{"", "done", "UNPROCESSED"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}

func TestAudioFeaturesEmpty(t *testing.T) {
	var f AudioFeatures
	if !f.Empty() {
		t.Fatal("zero value should be empty")
	}
	tempo := 120.5
	f.Tempo = &tempo
	if f.Empty() {
		t.Fatal("features with tempo should not be empty")
	}
	var nilFeatures *AudioFeatures
	if !nilFeatures.Empty() {
		t.Fatal("nil receiver should be empty")
	}
}
