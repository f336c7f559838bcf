package shift

import (
	"testing"
	"time"
)

func TestCronCalendarShiftAt(t *testing.T) {
	t.Parallel()

	cal, err := NewCronCalendar("0 6 * * *", "0 18 * * *")
	if err != nil {
		t.Fatalf("NewCronCalendar: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want Shift
	}{
		{"mid-morning", time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC), Day},
		{"just after day start", time.Date(2026, 3, 14, 6, 0, 1, 0, time.UTC), Day},
		{"evening", time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC), Night},
		{"small hours", time.Date(2026, 3, 14, 3, 0, 0, 0, time.UTC), Night},
		{"just before day start", time.Date(2026, 3, 14, 5, 59, 0, 0, time.UTC), Night},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cal.ShiftAt(tt.at); got != tt.want {
				t.Fatalf("ShiftAt(%v) = %s, want %s", tt.at, got, tt.want)
			}
		})
	}
}

func TestCronCalendarRejectsBadExpr(t *testing.T) {
	t.Parallel()

	if _, err := NewCronCalendar("not cron", "0 18 * * *"); err == nil {
		t.Fatal("bad day expression accepted")
	}
	if _, err := NewCronCalendar("0 6 * * *", "61 99 * * *"); err == nil {
		t.Fatal("bad night expression accepted")
	}
}

func TestFixedCollaborators(t *testing.T) {
	t.Parallel()

	if Fixed(Night).ShiftAt(time.Now()) != Night {
		t.Fatal("Fixed calendar did not hold")
	}

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !FixedClock(at).Now().Equal(at) {
		t.Fatal("FixedClock did not hold")
	}
}
