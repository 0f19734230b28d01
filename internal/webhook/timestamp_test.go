package webhook

import (
	"testing"
	"time"
)

func pinZone(t *testing.T, zone *time.Location) {
	t.Helper()
	old := localZone
	localZone = zone
	t.Cleanup(func() { localZone = old })
}

func TestNormalizeTimestamp_ShortValuesPassThrough(t *testing.T) {
	pinZone(t, time.UTC)

	for _, in := range []string{"", "2016-04-22T22:37:56", "not a timestamp"} {
		if got := NormalizeTimestamp(in); got != in {
			t.Fatalf("NormalizeTimestamp(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestNormalizeTimestamp_PositiveOffset(t *testing.T) {
	pinZone(t, time.UTC)

	got := NormalizeTimestamp("2016-04-22T22:37:56+02:00")
	if got != "2016-04-22T20:37:56" {
		t.Fatalf("got %q, want 2016-04-22T20:37:56", got)
	}
}

func TestNormalizeTimestamp_NegativeOffset(t *testing.T) {
	pinZone(t, time.UTC)

	got := NormalizeTimestamp("2016-04-22T22:37:56-05:00")
	if got != "2016-04-23T03:37:56" {
		t.Fatalf("got %q, want 2016-04-23T03:37:56", got)
	}
}

func TestNormalizeTimestamp_RendersInLocalZone(t *testing.T) {
	zone := time.FixedZone("plus1", 3600)
	pinZone(t, zone)

	got := NormalizeTimestamp("2016-04-22T22:37:56+00:00")
	if got != "2016-04-22T23:37:56" {
		t.Fatalf("got %q, want 2016-04-22T23:37:56", got)
	}
}

func TestNormalizeTimestamp_UnparsablePrefixPassesThrough(t *testing.T) {
	pinZone(t, time.UTC)

	in := "9999-99-99T99:99:99+02:00"
	if got := NormalizeTimestamp(in); got != in {
		t.Fatalf("got %q, want unchanged", got)
	}
}
