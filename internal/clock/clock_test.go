package clock

import (
	"testing"
	"time"
)

func TestManual_AdvanceRunsDueTimersInOrder(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	var got []string

	c.AfterFunc(20*time.Millisecond, func() { got = append(got, "b") })
	c.AfterFunc(10*time.Millisecond, func() { got = append(got, "a") })
	c.AfterFunc(20*time.Millisecond, func() { got = append(got, "c") })
	c.AfterFunc(50*time.Millisecond, func() { got = append(got, "late") })

	c.Advance(20 * time.Millisecond)

	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("fired = %v, want [a b c]", got)
	}
	if c.Pending() != 1 {
		t.Errorf("pending = %d, want 1", c.Pending())
	}
	if !c.Now().Equal(time.Unix(0, 0).Add(20 * time.Millisecond)) {
		t.Errorf("now = %v", c.Now())
	}
}

func TestManual_Stop(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	fired := false
	tm := c.AfterFunc(time.Millisecond, func() { fired = true })

	if !tm.Stop() {
		t.Error("first Stop should report true")
	}
	if tm.Stop() {
		t.Error("second Stop should report false")
	}
	c.Advance(time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestManual_CallbackSchedulesWithinAdvance(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	count := 0
	c.AfterFunc(10*time.Millisecond, func() {
		count++
		c.AfterFunc(10*time.Millisecond, func() { count++ })
	})

	c.Advance(25 * time.Millisecond)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestManual_StopAfterFire(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	tm := c.AfterFunc(time.Millisecond, func() {})
	c.Advance(time.Millisecond)

	if tm.Stop() {
		t.Error("Stop after firing should report false")
	}
}
