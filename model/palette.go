package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"chromafm/errs"
)

// RGB is one palette entry. Components are 0-255; json decoding rejects
// anything that does not fit.
type RGB [3]uint8

// Palette is the canonical colour palette stored for tracks and albums: an
// ordered sequence of RGB triples. Submissions arrive in several shapes
// (raw sequence, {"palette": [...]} wrapper, JSON-encoded text, or an opaque
// object kept for forward compatibility); NormalizePalette folds all of them
// into this one representation. Opaque is set only for the passthrough case
// and is persisted verbatim.
type Palette struct {
	Colors []RGB
	Opaque json.RawMessage
}

// NormalizePalette coerces a raw palette submission into the canonical form.
// The field name is only used in error messages. Absent and null inputs yield
// an empty palette; numbers and booleans are rejected.
func NormalizePalette(field string, raw json.RawMessage) (Palette, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Palette{}, nil
	}

	switch raw[0] {
	case '"':
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return Palette{}, errs.Validationf("field %q is not valid JSON text", field)
		}
		inner := bytes.TrimSpace([]byte(text))
		if !json.Valid(inner) {
			return Palette{}, errs.Validationf("field %q contains unparseable palette text", field)
		}
		return NormalizePalette(field, inner)
	case '[':
		colors, err := decodeTriples(raw)
		if err != nil {
			return Palette{}, errs.Validationf("field %q is not a sequence of RGB triples: %v", field, err)
		}
		return Palette{Colors: colors}, nil
	case '{':
		var wrapper struct {
			Palette json.RawMessage `json:"palette"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return Palette{}, errs.Validationf("field %q is not a valid palette object", field)
		}
		member := bytes.TrimSpace(wrapper.Palette)
		if len(member) > 0 && member[0] == '[' {
			colors, err := decodeTriples(member)
			if err != nil {
				return Palette{}, errs.Validationf("field %q has a palette member that is not RGB triples: %v", field, err)
			}
			return Palette{Colors: colors}, nil
		}
		// Unrecognized object shape: kept as-is so forward-compatible
		// submissions survive the round trip.
		return Palette{Opaque: append(json.RawMessage(nil), raw...)}, nil
	default:
		return Palette{}, errs.Validationf("field %q must be an array, object, or JSON text, not a scalar", field)
	}
}

func decodeTriples(raw json.RawMessage) ([]RGB, error) {
	var colors []RGB
	if err := json.Unmarshal(raw, &colors); err != nil {
		return nil, err
	}
	return colors, nil
}

// IsOpaque reports whether the palette carries a passthrough object instead
// of canonical triples.
func (p Palette) IsOpaque() bool {
	return len(p.Opaque) > 0
}

func (p Palette) MarshalJSON() ([]byte, error) {
	if p.IsOpaque() {
		return p.Opaque, nil
	}
	if p.Colors == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Colors)
}

func (p *Palette) UnmarshalJSON(data []byte) error {
	normalized, err := NormalizePalette("colourPalette", data)
	if err != nil {
		return err
	}
	*p = normalized
	return nil
}

// Value implements driver.Valuer: palettes are stored as JSON columns.
func (p Palette) Value() (driver.Value, error) {
	data, err := p.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for JSON columns.
func (p *Palette) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = Palette{}
		return nil
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("cannot scan %T into Palette", src)
	}
}
