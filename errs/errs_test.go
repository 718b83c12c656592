package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindDispatch(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		err := Validationf("bad input %d", 7)
		if KindOf(err) != KindValidation || !IsValidation(err) {
			t.Fatalf("KindOf = %v", KindOf(err))
		}
		if err.Error() != "bad input 7" {
			t.Fatalf("message = %q", err.Error())
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		err := MissingFields("spotifyId", "title")
		var e *Error
		if !errors.As(err, &e) {
			t.Fatal("not an *Error")
		}
		if len(e.Fields) != 2 || e.Fields[0] != "spotifyId" {
			t.Fatalf("fields = %v", e.Fields)
		}
		if !IsValidation(err) {
			t.Fatal("missing fields must be a validation error")
		}
	})

	t.Run("not found", func(t *testing.T) {
		err := NotFoundf("track %s not found", "abc")
		if !IsNotFound(err) || IsValidation(err) {
			t.Fatalf("KindOf = %v", KindOf(err))
		}
	})

	t.Run("persistence wraps cause", func(t *testing.T) {
		cause := fmt.Errorf("connection reset")
		err := Persistence("error inserting track", cause)
		if KindOf(err) != KindPersistence {
			t.Fatalf("KindOf = %v", KindOf(err))
		}
		if !errors.Is(err, cause) {
			t.Fatal("cause not reachable through Unwrap")
		}
	})

	t.Run("foreign errors are unknown", func(t *testing.T) {
		if KindOf(fmt.Errorf("plain")) != KindUnknown {
			t.Fatal("foreign error must classify as unknown")
		}
		if KindOf(nil) != KindUnknown {
			t.Fatal("nil must classify as unknown")
		}
	})
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindUnknown:     "unknown",
		KindValidation:  "validation",
		KindNotFound:    "not_found",
		KindPersistence: "persistence",
	}
	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, got, want)
		}
	}
}
