package randx

import (
	"strings"
	"testing"
)

func TestSuffixLengthAndAlphabet(t *testing.T) {
	s, err := Suffix()
	if err != nil {
		t.Fatal(err)
	}
	if len(s) != SuffixLength {
		t.Fatalf("length = %d, want %d", len(s), SuffixLength)
	}
	for _, c := range s {
		if !strings.ContainsRune(Base62Chars, c) {
			t.Fatalf("character %q outside Base62 alphabet", c)
		}
	}
}

func TestRoomNameUniqueness(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		name, err := RoomName("guru", "g1")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(name, "guru_g1_") {
			t.Fatalf("unexpected shape %q", name)
		}
		if _, dup := seen[name]; dup {
			t.Fatalf("duplicate room name %q", name)
		}
		seen[name] = struct{}{}
	}
}

func TestRoomNameOmitsEmptyScope(t *testing.T) {
	name, err := RoomName("voice_assistant_room", "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(name, "__") {
		t.Fatalf("empty scope left a double underscore: %q", name)
	}
}

func TestDisabledEgressIDRoundTrip(t *testing.T) {
	id := DisabledEgressID()
	if !IsDisabledEgressID(id) {
		t.Fatalf("%q not recognized as synthetic", id)
	}
	if IsDisabledEgressID("EG_real") {
		t.Fatal("real IDs must not be classified as synthetic")
	}
}

func TestSessionIDIsUUID(t *testing.T) {
	id := SessionID()
	if len(id) != 36 || strings.Count(id, "-") != 4 {
		t.Fatalf("unexpected session ID shape %q", id)
	}
}
