package terminal

import (
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/inkwell/internal/clock"
)

// loopClock runs timer callbacks on the event loop by posting them to the
// screen as interrupt events.
type loopClock struct {
	screen tcell.Screen
}

// NewClock returns a clock whose callbacks run inside App.Run, between
// terminal events.
func NewClock(screen tcell.Screen) clock.Clock {
	return loopClock{screen: screen}
}

func (c loopClock) Now() time.Time {
	return time.Now()
}

func (c loopClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	return time.AfterFunc(d, func() {
		_ = c.screen.PostEvent(tcell.NewEventInterrupt(f))
	})
}
