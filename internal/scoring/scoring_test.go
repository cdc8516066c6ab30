package scoring

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestScoreFor(t *testing.T) {
	cases := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"instant", 0, 1000},
		{"early answer clamps to zero elapsed", -500 * time.Millisecond, 1000},
		{"sub-tick", 9 * time.Millisecond, 1000},
		{"two seconds", 2 * time.Second, 800},
		{"ten seconds hits floor", 10 * time.Second, 200},
		{"past zero crossing", 20 * time.Second, 200},
		{"just above floor", 7990 * time.Millisecond, 201},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScoreFor(t0, t0.Add(tc.elapsed)); got != tc.want {
				t.Errorf("ScoreFor(+%v) = %d, want %d", tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestScoreFor_NonIncreasing(t *testing.T) {
	prev := ScoreFor(t0, t0)
	for ms := 0; ms <= 15000; ms += 7 {
		got := ScoreFor(t0, t0.Add(time.Duration(ms)*time.Millisecond))
		if got > prev {
			t.Fatalf("score increased at %dms: %d > %d", ms, got, prev)
		}
		if got < MinPoints {
			t.Fatalf("score %d below floor at %dms", got, ms)
		}
		prev = got
	}
}

func TestOrderingGain(t *testing.T) {
	at := t0.Add(2 * time.Second) // ScoreFor = 800

	cases := []struct {
		name           string
		matches, total int
		want           int
	}{
		{"all correct equals ScoreFor", 4, 4, 800},
		{"none correct is zero", 0, 4, 0},
		{"half", 2, 4, 400},
		{"rounds to nearest", 1, 3, 267},
		{"empty question", 0, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OrderingGain(t0, at, tc.matches, tc.total); got != tc.want {
				t.Errorf("OrderingGain(%d/%d) = %d, want %d", tc.matches, tc.total, got, tc.want)
			}
		})
	}
}

func TestRaceGain(t *testing.T) {
	if got := RaceGain(t0, t0); got != 1200 {
		t.Errorf("RaceGain(instant) = %d, want 1200", got)
	}
	if got := RaceGain(t0, t0.Add(30*time.Second)); got != 400 {
		t.Errorf("RaceGain(late) = %d, want 400", got)
	}
	if got := RaceGain(t0, t0.Add(3*time.Second)); got != 900 {
		t.Errorf("RaceGain(3s) = %d, want 900", got)
	}
}
