package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focustrack/internal/alert"
	"focustrack/internal/analytics"
	"focustrack/internal/config"
	"focustrack/internal/event"
	"focustrack/internal/ipc"
	"focustrack/internal/storage"
	"focustrack/internal/storage/filestate"
	"focustrack/internal/storage/memory"
	"focustrack/internal/timer"

	sqlitestore "focustrack/internal/storage/sqlite"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"
)

type Options struct {
	// Ephemeral keeps the ledger and timer state in memory only.
	Ephemeral bool

	// ConfigUpdates delivers reloaded configuration while running.
	ConfigUpdates <-chan *config.Config

	// Bell receives the terminal bell when alert.bell is on. Defaults to stdout.
	Bell io.Writer

	Clock clockwork.Clock
}

type App struct {
	cfg     *config.Config
	opts    Options
	storage storage.Storage
	state   storage.StateStore

	engine    *timer.Engine
	analytics *analytics.Service
	desktop   *alert.DesktopSink
	sink      alert.Sink

	// --- Socket Handling ---
	socketPath string
	listener   *net.UnixListener

	ledgerChanged chan event.FocusSession

	wg     conc.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp(cfg *config.Config, opts Options) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	if opts.Bell == nil {
		opts.Bell = os.Stdout
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	a := &App{
		cfg:           cfg,
		opts:          opts,
		socketPath:    cfg.SocketPath,
		ledgerChanged: make(chan event.FocusSession, 16),
		ctx:           ctx,
		cancel:        cancel,
	}
	if a.socketPath == "" {
		a.socketPath = ipc.SocketPath
	}

	if err := a.openStorage(ctx); err != nil {
		cancel()
		return nil, err
	}

	a.desktop = alert.NewDesktopSink(cfg.Alert.Desktop, cfg.Alert.Sound)
	sinks := []alert.Sink{a.desktop}
	if cfg.Alert.Bell {
		sinks = append(sinks, alert.NewBellSink(opts.Bell))
	}
	a.sink = alert.Multi(sinks...)

	a.analytics = analytics.NewService(a.storage, a.storage, opts.Clock, analytics.Config{
		MinutesPerLevel: cfg.Analytics.MinutesPerLevel,
	})
	// Prime the level tracker so the first ledger change can detect a level-up.
	if _, _, err := a.analytics.Refresh(ctx); err != nil {
		log.Printf("Warning: initial stats computation failed: %v", err)
	}

	a.engine = timer.New(ctx, timer.Options{
		State:           a.state,
		Ledger:          a.storage,
		Sink:            a.sink,
		Clock:           opts.Clock,
		DefaultDuration: cfg.Timer.DefaultDuration(),
		TickInterval:    cfg.Timer.TickInterval,
		DefaultTag:      cfg.Timer.DefaultTag,
		OnRecord:        a.notifyLedgerChanged,
	})

	return a, nil
}

func (a *App) openStorage(ctx context.Context) error {
	if a.opts.Ephemeral {
		log.Println("Ephemeral mode: sessions and timer state are kept in memory only")
		m := memory.New()
		a.storage, a.state = m, m
		return nil
	}

	a.storage = sqlitestore.NewSQLiteStore(a.cfg.DatabasePath, a.cfg.DatabaseDriver)
	if err := a.storage.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.state = a.storage
	if a.cfg.StateBackend == "file" {
		log.Printf("Timer state kept in %s", a.cfg.StateFile)
		a.state = filestate.NewOS(a.cfg.StateFile)
	}
	return nil
}

// notifyLedgerChanged runs under the engine lock, so it never blocks.
func (a *App) notifyLedgerChanged(s event.FocusSession) {
	select {
	case a.ledgerChanged <- s:
	default:
		log.Println("Warning: ledger change queue full, stats refresh will catch up on the next change")
	}
}

// setupSocket checks for existing socket and creates the listener
func (a *App) setupSocket() error {
	if _, err := os.Stat(a.socketPath); err == nil {
		conn, err := net.DialTimeout("unix", a.socketPath, 1*time.Second)
		if err == nil {
			// Connection successful - another instance is likely running
			conn.Close()
			return fmt.Errorf("socket %s already active, another instance might be running", a.socketPath)
		}
		log.Printf("Stale socket file found at %s, removing.", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket file %s: %w", a.socketPath, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("error checking socket file %s: %w", a.socketPath, err)
	}

	addr, err := net.ResolveUnixAddr("unix", a.socketPath)
	if err != nil {
		return fmt.Errorf("failed to resolve unix addr %s: %w", a.socketPath, err)
	}
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", a.socketPath, err)
	}
	if err := os.Chmod(a.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set permissions on socket %s: %w", a.socketPath, err)
	}

	a.listener = listener
	log.Printf("Listening for commands on %s", a.socketPath)
	return nil
}

// listenForCommands accepts connections and handles them
func (a *App) listenForCommands() {
	defer log.Println("Socket command listener stopped.")

	for {
		conn, err := a.listener.AcceptUnix()
		if err != nil {
			select {
			case <-a.ctx.Done():
				return // Expected error on shutdown
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				log.Println("Listener closed, stopping.")
				return
			}
			log.Printf("Failed to accept connection: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		a.wg.Go(func() { a.handleConnection(conn) })
	}
}

// handleConnection reads command, processes it, and sends response
func (a *App) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	var cmd ipc.Command
	if err := decoder.Decode(&cmd); err != nil {
		if err != io.EOF {
			log.Printf("Failed to decode command: %v", err)
		}
		_ = encoder.Encode(ipc.Response{Success: false, Message: "Failed to decode command: " + err.Error()})
		return
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	log.Printf("Received command: %s", cmd.Name)
	response := a.processCommand(cmd)

	if err := encoder.Encode(response); err != nil {
		log.Printf("Failed to send response: %v", err)
	}
}

func fail(format string, args ...interface{}) ipc.Response {
	return ipc.Response{Success: false, Message: fmt.Sprintf(format, args...)}
}

// processCommand routes the command to the correct handler
func (a *App) processCommand(cmd ipc.Command) ipc.Response {
	ctx := a.ctx

	switch cmd.Name {
	case ipc.CmdPing:
		return ipc.Response{Success: true, Message: "pong"}

	case ipc.CmdTimerStart:
		if err := a.engine.Start(ctx); err != nil {
			return fail("Cannot start timer: %v", err)
		}
		snap := a.engine.Snapshot()
		return ipc.Response{Success: true, Message: fmt.Sprintf("Timer running, %s left", formatDuration(snap.Remaining)), Data: a.status()}

	case ipc.CmdTimerPause:
		if err := a.engine.Pause(ctx); err != nil {
			return fail("Cannot pause timer: %v", err)
		}
		snap := a.engine.Snapshot()
		return ipc.Response{Success: true, Message: fmt.Sprintf("Timer paused, %s left", formatDuration(snap.Remaining)), Data: a.status()}

	case ipc.CmdTimerReset:
		if err := a.engine.Reset(ctx); err != nil {
			return fail("Cannot reset timer: %v", err)
		}
		return ipc.Response{Success: true, Message: "Timer reset", Data: a.status()}

	case ipc.CmdTimerDuration:
		var args ipc.DurationArgs
		if err := ipc.DecodeArgs(cmd, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err)
		}
		if err := a.engine.ChangeDuration(ctx, args.Minutes); err != nil {
			return fail("Cannot change duration: %v", err)
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Timer set to %d minutes", args.Minutes), Data: a.status()}

	case ipc.CmdTimerTag:
		var args ipc.TagArgs
		if err := ipc.DecodeArgs(cmd, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err)
		}
		a.engine.SetTag(ctx, args.Tag)
		tag := args.Tag
		if tag == "" {
			tag = event.DefaultTag
		}
		return ipc.Response{Success: true, Message: fmt.Sprintf("Sessions will be tagged '%s'", tag)}

	case ipc.CmdTimerStatus:
		return ipc.Response{Success: true, Data: a.status()}

	case ipc.CmdPresetAdd, ipc.CmdPresetRemove:
		var args ipc.DurationArgs
		if err := ipc.DecodeArgs(cmd, &args); err != nil {
			return fail("Invalid args for %s: %v", cmd.Name, err)
		}
		var presets []int
		var err error
		if cmd.Name == ipc.CmdPresetAdd {
			presets, err = a.engine.AddPreset(ctx, args.Minutes)
		} else {
			presets, err = a.engine.RemovePreset(ctx, args.Minutes)
		}
		if err != nil {
			return fail("Cannot update presets: %v", err)
		}
		return ipc.Response{Success: true, Data: ipc.PresetsData{Minutes: presets}}

	case ipc.CmdPresetList:
		presets, err := a.engine.Presets(ctx)
		if err != nil {
			return fail("Cannot read presets: %v", err)
		}
		return ipc.Response{Success: true, Data: ipc.PresetsData{Minutes: presets}}

	case ipc.CmdStats:
		stats, err := a.analytics.Stats(ctx)
		if err != nil {
			return fail("Cannot compute stats: %v", err)
		}
		return ipc.Response{Success: true, Data: stats}

	case ipc.CmdChart:
		var args ipc.ChartArgs
		if cmd.Args != nil {
			if err := ipc.DecodeArgs(cmd, &args); err != nil {
				return fail("Invalid args for %s: %v", cmd.Name, err)
			}
		}
		period, err := analytics.ParsePeriod(args.Period)
		if err != nil {
			return fail("%v", err)
		}
		points, err := a.analytics.Chart(ctx, period)
		if err != nil {
			return fail("Cannot build chart: %v", err)
		}
		insight, err := a.analytics.Insight(ctx, period)
		if err != nil {
			return fail("Cannot build chart: %v", err)
		}
		return ipc.Response{Success: true, Data: ipc.ChartData{Period: period, Points: points, Insight: insight}}

	case ipc.CmdCelebrationAck:
		if a.analytics.AcknowledgeCelebration() {
			return ipc.Response{Success: true, Message: "Celebration acknowledged"}
		}
		return ipc.Response{Success: true, Message: "Nothing to celebrate"}

	default:
		return fail("Unknown command: %s", cmd.Name)
	}
}

func (a *App) status() ipc.StatusData {
	snap := a.engine.Snapshot()
	st := ipc.StatusData{
		State:              string(snap.State),
		RemainingSecs:      snap.Remaining.Seconds(),
		InitialMinutes:     int(snap.Initial / time.Minute),
		Tag:                snap.Tag,
		CelebrationPending: a.analytics.CelebrationPending(),
	}
	if !snap.EndTime.IsZero() {
		st.EndsAtUnixMs = snap.EndTime.UnixMilli()
	}
	if today, err := a.analytics.TodayMinutes(a.ctx); err != nil {
		log.Printf("Warning: %v", err)
	} else {
		st.TodayMinutes = today
	}
	return st
}

func (a *App) Run() error {
	defer a.cleanup()

	log.Println("Starting focustrack daemon...")
	log.Printf("Timer: %d min default, tag '%s'", a.cfg.Timer.DefaultMinutes, a.cfg.Timer.DefaultTag)

	if err := a.setupSocket(); err != nil {
		return err
	}

	a.handleSignals()
	a.wg.Go(a.mainLoop)
	a.wg.Go(a.listenForCommands)

	log.Println("focustrack daemon running. Send commands via focustrack-cli or socket.")
	<-a.ctx.Done()

	log.Println("Shutdown signal received, waiting for components...")
	if a.listener != nil {
		log.Println("Closing command socket listener...")
		if err := a.listener.Close(); err != nil {
			log.Printf("Error closing socket listener: %v", err)
		}
	}

	waitChan := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(waitChan)
	}()
	select {
	case <-waitChan:
		log.Println("All application goroutines finished.")
	case <-time.After(5 * time.Second):
		log.Println("Warning: Timeout waiting for application goroutines to stop.")
	}

	log.Println("focustrack finished.")
	return nil
}

// mainLoop reacts to ledger changes, timer completions and config reloads.
func (a *App) mainLoop() {
	defer log.Println("Main application loop stopped.")

	for {
		select {
		case <-a.ctx.Done():
			return

		case s := <-a.ledgerChanged:
			log.Printf("Ledger changed: %s session of %d min (%s)", s.Status, s.DurationMinutes, s.Tag)
			a.refreshStats()

		case f := <-a.engine.Finished():
			if f.Session != nil {
				log.Printf("Focus session finished at %s: %d min of %s", f.At.Format(time.Kitchen), f.Session.DurationMinutes, f.Session.Tag)
			} else {
				log.Printf("Focus session finished at %s", f.At.Format(time.Kitchen))
			}

		case cfg := <-a.opts.ConfigUpdates:
			a.applyConfig(cfg)
		}
	}
}

func (a *App) refreshStats() {
	stats, up, err := a.analytics.Refresh(a.ctx)
	if err != nil {
		log.Printf("Error refreshing stats: %v", err)
		return
	}
	if !up {
		return
	}
	log.Printf("Level up! Level %d (%s), %.1f hours total", stats.Level, stats.Title, stats.TotalHours)
	n := event.Notification{Title: "Level up", Message: fmt.Sprintf("You reached level %d: %s", stats.Level, stats.Title)}
	if err := alert.Notify(a.ctx, a.sink, n); err != nil {
		log.Printf("Warning: level-up alert failed: %v", err)
	}
}

// applyConfig takes over the settings that can change at runtime; the
// rest needs a restart.
func (a *App) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	a.desktop.SetEnabled(cfg.Alert.Desktop, cfg.Alert.Sound)
	log.Printf("Alerts updated: desktop=%t sound=%t", cfg.Alert.Desktop, cfg.Alert.Sound)
	if cfg.DatabasePath != a.cfg.DatabasePath || cfg.SocketPath != a.cfg.SocketPath {
		log.Println("Warning: database_path and socket_path changes take effect after a restart")
	}
}

func (a *App) handleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal: %v. Initiating shutdown...", sig)
			a.cancel()
		case <-a.ctx.Done():
		}
		signal.Stop(sigChan)
	}()
}

// Shutdown stops Run from outside, the same way a signal does.
func (a *App) Shutdown() {
	a.cancel()
}

func (a *App) cleanup() {
	log.Println("Running cleanup...")

	// The countdown itself stays persisted and resumes on the next start.
	var err error
	if a.engine != nil {
		err = multierr.Append(err, a.engine.Close())
	}
	if a.storage != nil {
		err = multierr.Append(err, a.storage.Close())
	}
	if err != nil {
		log.Printf("Error during cleanup: %v", err)
	}

	if _, statErr := os.Stat(a.socketPath); statErr == nil && a.listener != nil {
		log.Printf("Removing socket file: %s", a.socketPath)
		if err := os.Remove(a.socketPath); err != nil {
			log.Printf("Warning: Failed to remove socket file %s: %v", a.socketPath, err)
		}
	}
	a.cancel()

	log.Println("Cleanup finished.")
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
