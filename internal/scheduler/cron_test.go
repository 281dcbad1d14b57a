package scheduler

import (
	"errors"
	"testing"
	"time"
)

func TestDailySpec(t *testing.T) {
	spec, err := DailySpec(8, 5)
	if err != nil {
		t.Fatalf("daily spec: %v", err)
	}
	if spec != "0 5 8 * * *" {
		t.Fatalf("unexpected spec %q", spec)
	}
	for _, tc := range [][2]int{{24, 0}, {-1, 0}, {8, 60}} {
		if _, err := DailySpec(tc[0], tc[1]); !errors.Is(err, ErrInvalidTriggerTime) {
			t.Fatalf("DailySpec(%d, %d): expected ErrInvalidTriggerTime, got %v", tc[0], tc[1], err)
		}
	}
}

func TestCronScheduleDailyNextRun(t *testing.T) {
	c := NewCron(time.UTC)
	id, err := c.ScheduleDaily(7, 30, func() {})
	if err != nil {
		t.Fatalf("schedule daily: %v", err)
	}
	c.Start()
	defer c.Stop()

	next := c.Next(id)
	if next.IsZero() {
		t.Fatal("expected a next run once started")
	}
	next = next.UTC()
	if next.Hour() != 7 || next.Minute() != 30 || next.Second() != 0 {
		t.Fatalf("unexpected next run %v", next)
	}
	if !next.After(time.Now()) || next.Sub(time.Now()) > 24*time.Hour {
		t.Fatalf("next run %v not within the coming day", next)
	}

	c.Remove(id)
	if !c.Next(id).IsZero() {
		t.Fatal("expected removed entry to have no next run")
	}
}

func TestCronRejectsBadTime(t *testing.T) {
	c := NewCron(nil)
	if _, err := c.ScheduleDaily(25, 0, func() {}); !errors.Is(err, ErrInvalidTriggerTime) {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
}
