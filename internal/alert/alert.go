// Package alert delivers the "focus session finished" signal to the user.
package alert

import (
	"context"
	"fmt"
	"focustrack/internal/event"
	"io"
	"sync"

	"github.com/gen2brain/beeep"
	"go.uber.org/multierr"
)

// Sink is invoked once per natural timer completion.
type Sink interface {
	Alert(ctx context.Context, title, message string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, title, message string) error

func (f SinkFunc) Alert(ctx context.Context, title, message string) error {
	return f(ctx, title, message)
}

// Nop drops every alert.
var Nop Sink = SinkFunc(func(context.Context, string, string) error { return nil })

// DesktopSink raises a desktop notification and plays the system beep.
// Both can be toggled while the daemon runs.
type DesktopSink struct {
	mu     sync.RWMutex
	notify bool
	sound  bool
}

func NewDesktopSink(notify, sound bool) *DesktopSink {
	return &DesktopSink{notify: notify, sound: sound}
}

func (d *DesktopSink) SetEnabled(notify, sound bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notify, d.sound = notify, sound
}

func (d *DesktopSink) Alert(ctx context.Context, title, message string) error {
	d.mu.RLock()
	notify, sound := d.notify, d.sound
	d.mu.RUnlock()

	var err error
	if notify {
		if nerr := beeep.Notify(title, message, ""); nerr != nil {
			err = multierr.Append(err, fmt.Errorf("desktop notification: %w", nerr))
		}
	}
	if sound {
		if berr := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); berr != nil {
			err = multierr.Append(err, fmt.Errorf("beep: %w", berr))
		}
	}
	return err
}

// BellSink writes the terminal bell and a one-line message.
type BellSink struct {
	w io.Writer
}

func NewBellSink(w io.Writer) *BellSink {
	return &BellSink{w: w}
}

func (b *BellSink) Alert(ctx context.Context, title, message string) error {
	_, err := fmt.Fprintf(b.w, "\a%s: %s\n", title, message)
	return err
}

// Multi calls every sink, even after one fails, and merges the errors.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, title, message string) error {
		var err error
		for _, s := range sinks {
			err = multierr.Append(err, Safe(s).Alert(ctx, title, message))
		}
		return err
	})
}

// Safe turns a panic inside the wrapped sink into an error.
func Safe(s Sink) Sink {
	return SinkFunc(func(ctx context.Context, title, message string) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("alert sink panicked: %v", r)
			}
		}()
		if s == nil {
			return nil
		}
		return s.Alert(ctx, title, message)
	})
}

// Notify delivers n through s, never panicking.
func Notify(ctx context.Context, s Sink, n event.Notification) error {
	return Safe(s).Alert(ctx, n.Title, n.Message)
}
