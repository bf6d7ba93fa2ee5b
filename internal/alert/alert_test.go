package alert

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"focustrack/internal/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestSafeRecoversPanic(t *testing.T) {
	boom := SinkFunc(func(context.Context, string, string) error { panic("speaker on fire") })

	err := Safe(boom).Alert(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speaker on fire")
}

func TestMultiCallsEverySink(t *testing.T) {
	var buf bytes.Buffer
	failing := SinkFunc(func(context.Context, string, string) error { return errors.New("no dbus") })
	panicking := SinkFunc(func(context.Context, string, string) error { panic("x") })

	err := Multi(failing, panicking, NewBellSink(&buf)).Alert(context.Background(), "Focus", "done")

	assert.Len(t, multierr.Errors(err), 2)
	assert.Equal(t, "\aFocus: done\n", buf.String())
}

func TestDesktopSinkDisabled(t *testing.T) {
	s := NewDesktopSink(false, false)
	assert.NoError(t, s.Alert(context.Background(), "t", "m"))
}

func TestNilSinkIsSafe(t *testing.T) {
	assert.NoError(t, Safe(nil).Alert(context.Background(), "t", "m"))
}

func TestNotifyUsesTitleAndMessage(t *testing.T) {
	var buf bytes.Buffer
	err := Notify(context.Background(), NewBellSink(&buf), event.Notification{Title: "Level up", Message: "level 2"})
	require.NoError(t, err)
	assert.Equal(t, "\aLevel up: level 2\n", buf.String())
}
