package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"focustrack/internal/analytics"
	"focustrack/internal/config"
	"focustrack/internal/ipc"

	sqlitestore "focustrack/internal/storage/sqlite"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	configPath string
	socketPath string
	dbPath     string
	dbDriver   string
	offline    bool
	out        painter
)

var rootCmd = &cobra.Command{
	Use:   "focustrack-cli",
	Short: "CLI tool to interact with the focustrack daemon",
	Long:  `A command-line interface to control the focus timer and read focus statistics through the focustrack daemon's Unix socket.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		out = painter{color: term.IsTerminal(int(os.Stdout.Fd()))}
		if socketPath != "" && dbPath != "" {
			return
		}
		cfg := loadConfig()
		if socketPath == "" {
			socketPath = cfg.SocketPath
		}
		if dbPath == "" {
			dbPath = cfg.DatabasePath
		}
		if dbDriver == "" {
			dbDriver = cfg.DatabaseDriver
		}
	},
}

// loadConfig reads the daemon's configuration quietly; the CLI only needs
// the socket and database locations from it.
func loadConfig() *config.Config {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using built-in defaults\n", err)
		return &config.Config{SocketPath: ipc.SocketPath, DatabasePath: "focustrack.db", DatabaseDriver: sqlitestore.DriverCgo}
	}
	return cfg
}

func minutesArg(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		log.Fatalf("Error: minutes must be a positive whole number, got %q", s)
	}
	return n
}

// --- Command Definitions ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if the focustrack daemon is running",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(sendCommand(ipc.Command{Name: ipc.CmdPing}).Message)
	},
}

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Control the focus timer",
}

// timerAction builds a subcommand that sends one argument-less command
// and prints the resulting timer status.
func timerAction(use, short, name string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			var st ipc.StatusData
			resp := sendAndDecode(ipc.Command{Name: name}, &st)
			if resp.Message != "" {
				fmt.Println(resp.Message)
			}
			fmt.Print(renderStatus(out, st, time.Now()))
		},
	}
}

var timerDurationCmd = &cobra.Command{
	Use:   "duration <minutes>",
	Short: "Reset the timer and set its length",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var st ipc.StatusData
		resp := sendAndDecode(ipc.Command{
			Name: ipc.CmdTimerDuration,
			Args: ipc.DurationArgs{Minutes: minutesArg(args[0])},
		}, &st)
		fmt.Println(resp.Message)
		fmt.Print(renderStatus(out, st, time.Now()))
	},
}

var timerTagCmd = &cobra.Command{
	Use:   "tag [tag]",
	Short: "Label the sessions recorded from now on (no argument clears it)",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tag := ""
		if len(args) == 1 {
			tag = args[0]
		}
		fmt.Println(sendCommand(ipc.Command{Name: ipc.CmdTimerTag, Args: ipc.TagArgs{Tag: tag}}).Message)
	},
}

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage remembered timer durations",
}

func presetAction(use, short, name string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var presets ipc.PresetsData
			sendAndDecode(ipc.Command{Name: name, Args: ipc.DurationArgs{Minutes: minutesArg(args[0])}}, &presets)
			printPresets(presets)
		},
	}
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered durations",
	Run: func(cmd *cobra.Command, args []string) {
		var presets ipc.PresetsData
		sendAndDecode(ipc.Command{Name: ipc.CmdPresetList}, &presets)
		printPresets(presets)
	},
}

func printPresets(p ipc.PresetsData) {
	if len(p.Minutes) == 0 {
		fmt.Println("No presets.")
		return
	}
	for _, m := range p.Minutes {
		fmt.Printf("%d min\n", m)
	}
}

// openOffline reads the database directly, without a running daemon.
func openOffline(ctx context.Context) (*analytics.Service, func()) {
	if _, err := os.Stat(dbPath); err != nil {
		log.Fatalf("Error: Database file not found at %s. Ensure the focustrack daemon has run or specify path with --db.", dbPath)
	}
	store := sqlitestore.NewSQLiteStore(dbPath, dbDriver)
	if err := store.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize storage connection: %v", err)
	}
	cfg := loadConfig()
	svc := analytics.NewService(store, store, nil, analytics.Config{MinutesPerLevel: cfg.Analytics.MinutesPerLevel})
	return svc, func() { store.Close() }
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show level, streaks and total focus time",
	Run: func(cmd *cobra.Command, args []string) {
		var stats analytics.UserStats
		if offline {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			svc, closeStore := openOffline(ctx)
			defer closeStore()
			var err error
			if stats, err = svc.Stats(ctx); err != nil {
				log.Fatalf("Failed to compute stats: %v", err)
			}
		} else {
			sendAndDecode(ipc.Command{Name: ipc.CmdStats}, &stats)
		}
		fmt.Println(renderStats(out, stats))
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Show focus minutes per day, 5-day span, month or year",
	Run: func(cmd *cobra.Command, args []string) {
		periodStr, _ := cmd.Flags().GetString("period")
		period, err := analytics.ParsePeriod(periodStr)
		if err != nil {
			log.Fatalf("Error: %v (use weekly, monthly, yearly or lifetime)", err)
		}

		var data ipc.ChartData
		if offline {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			svc, closeStore := openOffline(ctx)
			defer closeStore()
			if data.Points, err = svc.Chart(ctx, period); err != nil {
				log.Fatalf("Failed to build chart: %v", err)
			}
			if data.Insight, err = svc.Insight(ctx, period); err != nil {
				log.Fatalf("Failed to build chart: %v", err)
			}
		} else {
			sendAndDecode(ipc.Command{Name: ipc.CmdChart, Args: ipc.ChartArgs{Period: string(period)}}, &data)
		}
		fmt.Print(renderChart(out, data.Points, data.Insight))
	},
}

var celebrateCmd = &cobra.Command{
	Use:   "celebrate",
	Short: "Level-up celebration",
}

var celebrateAckCmd = &cobra.Command{
	Use:   "ack",
	Short: "Dismiss a pending level-up celebration",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(sendCommand(ipc.Command{Name: ipc.CmdCelebrationAck}).Message)
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live timer and weekly chart",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := request(ipc.Command{Name: ipc.CmdPing}); err != nil {
			log.Fatal(err)
		}
		if err := newDashboard().run(); err != nil {
			log.Fatalf("Dashboard error: %v", err)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the daemon configuration file")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "Daemon socket path (default: from config or "+ipc.SocketPath+")")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the focustrack database file (default: from config or 'focustrack.db')")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "driver", "", "SQLite driver for --offline reads: sqlite3 or sqlite")

	// --- Timer Commands ---
	timerCmd.AddCommand(timerAction("start", "Start or resume the countdown", ipc.CmdTimerStart))
	timerCmd.AddCommand(timerAction("pause", "Pause the countdown", ipc.CmdTimerPause))
	timerCmd.AddCommand(timerAction("reset", "Abandon the current run", ipc.CmdTimerReset))
	timerCmd.AddCommand(timerAction("status", "Show the timer state", ipc.CmdTimerStatus))
	timerCmd.AddCommand(timerDurationCmd)
	timerCmd.AddCommand(timerTagCmd)
	rootCmd.AddCommand(timerCmd)

	// --- Preset Commands ---
	presetCmd.AddCommand(presetAction("add <minutes>", "Remember a duration", ipc.CmdPresetAdd))
	presetCmd.AddCommand(presetAction("remove <minutes>", "Forget a duration", ipc.CmdPresetRemove))
	presetCmd.AddCommand(presetListCmd)
	rootCmd.AddCommand(presetCmd)

	// --- Analytics Commands ---
	statsCmd.Flags().BoolVar(&offline, "offline", false, "Read the database directly instead of asking the daemon")
	chartCmd.Flags().BoolVar(&offline, "offline", false, "Read the database directly instead of asking the daemon")
	chartCmd.Flags().StringP("period", "p", "weekly", "weekly, monthly, yearly or lifetime")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(chartCmd)

	celebrateCmd.AddCommand(celebrateAckCmd)
	rootCmd.AddCommand(celebrateCmd)

	// --- Other Commands ---
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(dashboardCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
