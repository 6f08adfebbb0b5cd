package clock

import (
	"testing"
	"time"
)

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewFake(start)

	if !c.Now().Equal(start) {
		t.Fatalf("Now: got %v, want %v", c.Now(), start)
	}

	c.AdvanceDays(15)
	want := start.Add(15 * 24 * time.Hour)
	if !c.Now().Equal(want) {
		t.Errorf("AdvanceDays: got %v, want %v", c.Now(), want)
	}

	c.Advance(time.Hour)
	if !c.Now().Equal(want.Add(time.Hour)) {
		t.Errorf("Advance: got %v, want %v", c.Now(), want.Add(time.Hour))
	}
}

func TestFakeSetNormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	c := NewFake(time.Time{})
	c.Set(time.Date(2025, 6, 1, 3, 0, 0, 0, loc))

	if c.Now().Location() != time.UTC {
		t.Errorf("expected UTC location, got %v", c.Now().Location())
	}
	if c.Now().Hour() != 0 {
		t.Errorf("expected hour 0 in UTC, got %d", c.Now().Hour())
	}
}

func TestFunc(t *testing.T) {
	fixed := time.Date(2030, 3, 4, 5, 6, 7, 0, time.UTC)
	var c Clock = Func(func() time.Time { return fixed })
	if !c.Now().Equal(fixed) {
		t.Errorf("got %v, want %v", c.Now(), fixed)
	}
}

func TestSystemIsUTC(t *testing.T) {
	if System().Now().Location() != time.UTC {
		t.Error("expected system clock in UTC")
	}
}
