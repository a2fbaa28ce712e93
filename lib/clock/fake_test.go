package clock

import (
	"testing"
	"time"
)

func TestFakeSleepAdvances(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Fake(start)

	c.Sleep(250 * time.Millisecond)
	c.Sleep(250 * time.Millisecond)

	if got, want := c.Now(), start.Add(500*time.Millisecond); !got.Equal(want) {
		t.Errorf("Now() = %v, want %v", got, want)
	}
}

func TestFakeSleepNegativeIsNoop(t *testing.T) {
	start := time.Unix(1000, 0)
	c := Fake(start)
	c.Sleep(-time.Second)
	if !c.Now().Equal(start) {
		t.Errorf("negative sleep moved the clock to %v", c.Now())
	}
}

func TestFakeAfterPrefilled(t *testing.T) {
	start := time.Unix(0, 0)
	c := Fake(start)

	select {
	case got := <-c.After(3 * time.Second):
		if want := start.Add(3 * time.Second); !got.Equal(want) {
			t.Errorf("After delivered %v, want %v", got, want)
		}
	default:
		t.Fatal("After channel should be pre-filled")
	}
}

func TestFakeSleepHook(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	var calls int
	c.SleepHook = func(time.Time) { calls++ }

	c.Sleep(time.Second)
	c.Sleep(time.Second)

	if calls != 2 {
		t.Errorf("hook ran %d times, want 2", calls)
	}
}
