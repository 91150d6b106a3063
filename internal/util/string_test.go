package util

import (
	"reflect"
	"testing"
	"time"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sheikh Dr. Omar Suleiman (scholar)", "Omar Suleiman"},
		{"Imam Example", "Example"},
		{"  Mufti   Menk ", "Menk"},
		{"Ustadh Nouman Ali Khan [Bayyinah]", "Nouman Ali Khan"},
		{"Imam", "Imam"},
		{"Yasir Qadhi", "Yasir Qadhi"},
	}

	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameTokens(t *testing.T) {
	got := NameTokens("Dr. Yāsir Al Qāḍī")
	want := []string{"yasir", "qadi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NameTokens = %v, want %v", got, want)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Omar Suleiman":      "omar-suleiman",
		"Yāsir Qāḍī":         "yasir-qadi",
		"Abu Bakr al-Siddiq": "abu-bakr-al-siddiq",
		"Dr. O'Neil  ":       "dr-oneil",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNameFromSlug(t *testing.T) {
	if got := NameFromSlug("omar-suleiman"); got != "Omar Suleiman" {
		t.Fatalf("NameFromSlug = %q", got)
	}
	if got := NameFromSlug(""); got != "" {
		t.Fatalf("NameFromSlug(empty) = %q", got)
	}
}

func TestNormalizeForCompare(t *testing.T) {
	a := NormalizeForCompare("An American  Islamic scholar.")
	b := NormalizeForCompare("an american islamic SCHOLAR")
	if a != b {
		t.Fatalf("expected %q == %q", a, b)
	}
}

func TestClampAndUnique(t *testing.T) {
	if Clamp(-5, 0, 100) != 0 || Clamp(120, 0, 100) != 100 || Clamp(55, 0, 100) != 55 {
		t.Fatalf("Clamp bounds incorrect")
	}
	got := UniqueStrings([]string{"video", "", "books", "video"})
	if !reflect.DeepEqual(got, []string{"video", "books"}) {
		t.Fatalf("UniqueStrings = %v", got)
	}
}

func TestNextPacificMidnight(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	next := NextPacificMidnight(now)
	if !next.After(now) {
		t.Fatalf("expected reset after now")
	}
	if next.Sub(now) > 24*time.Hour {
		t.Fatalf("reset too far away: %s", next.Sub(now))
	}
}
