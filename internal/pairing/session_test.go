package pairing

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewSessionID_Shape(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := NewSessionID()
		if len(id) != SessionIDLength {
			t.Fatalf("expected length %d, got %d (%q)", SessionIDLength, len(id), id)
		}
		for _, c := range id {
			if !strings.ContainsRune(SessionIDAlphabet, c) {
				t.Fatalf("character %q outside alphabet in %q", c, id)
			}
		}
	}
}

func TestNewSessionID_Fresh(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := NewSessionID()
		if seen[id] {
			t.Fatalf("duplicate session ID %q within 50 draws", id)
		}
		seen[id] = true
	}
}

func TestSessionIDFrom_RejectsBiasedBytes(t *testing.T) {
	// 256 is not a multiple of 62, so bytes >= 248 must be discarded rather
	// than wrapped; wrapping would over-represent the first 8 characters.
	entropy := append(
		[]byte{255, 254, 253, 252, 251, 250, 249, 248}, // all rejected
		0, 1, 2, 3, 61, 62, 124, 247, // accepted
	)

	got := sessionIDFrom(bytes.NewReader(entropy))

	// 62 and 124 wrap to index 0, 247 to index 61.
	want := "ABCD9AA9"
	if got != want {
		t.Errorf("sessionIDFrom = %q, want %q", got, want)
	}
}

func TestURL(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"https://pos.example.com", "https://pos.example.com/scanner?session=Ab3xY9z0"},
		{"https://pos.example.com/", "https://pos.example.com/scanner?session=Ab3xY9z0"},
		{"http://localhost:5173", "http://localhost:5173/scanner?session=Ab3xY9z0"},
	}
	for _, tt := range tests {
		if got := URL(tt.origin, "Ab3xY9z0"); got != tt.want {
			t.Errorf("URL(%q) = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestNewSession(t *testing.T) {
	s := NewSession("https://pos.example.com")
	if len(s.ID) != SessionIDLength {
		t.Fatalf("bad session ID %q", s.ID)
	}
	if !strings.HasSuffix(s.PairingURL, "session="+s.ID) {
		t.Errorf("pairing URL %q does not embed session ID %q", s.PairingURL, s.ID)
	}
}

func TestQRPNG(t *testing.T) {
	s := NewSession("https://pos.example.com")
	png, err := s.QRPNG(256)
	if err != nil {
		t.Fatalf("QRPNG: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("empty PNG output")
	}
	// PNG magic header
	if string(png[1:4]) != "PNG" {
		t.Errorf("output does not look like a PNG")
	}
}
