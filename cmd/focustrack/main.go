package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"focustrack/internal/app"
	"focustrack/internal/config"

	"github.com/sevlyar/go-daemon"
)

var (
	configPath = flag.String("c", "", "Path to configuration file (e.g., config.yaml). Defaults to ./config.yaml, ~/.config/focustrack/config.yaml, /etc/focustrack/config.yaml")
	logPath    = flag.String("log", "", "Path to log file (optional, defaults to stderr)")
	daemonize  = flag.Bool("d", false, "Run in the background (requires -log)")
	pidPath    = flag.String("pid", "", "PID file for -d (optional)")
	ephemeral  = flag.Bool("ephemeral", false, "Keep sessions and timer state in memory only")
)

// setupLogging configures the log output destination.
func setupLogging(logFilePath string) (*os.File, error) {
	if logFilePath == "" {
		log.SetOutput(os.Stderr)
		log.Println("Logging to stderr")
		return nil, nil
	}

	dir := filepath.Dir(logFilePath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}

	log.SetOutput(file)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Printf("Logging to file: %s", logFilePath)
	return file, nil
}

func main() {
	flag.Parse()

	if *daemonize {
		if *logPath == "" {
			fmt.Fprintln(os.Stderr, "Error: -d needs -log, a background daemon has no stderr")
			os.Exit(2)
		}
		cntxt := &daemon.Context{
			PidFileName: *pidPath,
			PidFilePerm: 0644,
			WorkDir:     ".",
			Umask:       027,
		}
		child, err := cntxt.Reborn()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to daemonize: %v\n", err)
			os.Exit(1)
		}
		if child != nil {
			// Parent: the child carries on.
			fmt.Printf("focustrack started in background (pid %d)\n", child.Pid)
			return
		}
		defer cntxt.Release()
	}

	logFile, logErr := setupLogging(*logPath)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Error setting up file logging: %v. Logging to stderr instead.\n", logErr)
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	// Alert toggles are applied live; everything else is read once.
	updates := make(chan *config.Config, 1)
	cfg, err := config.LoadAndWatch(*configPath, func(c *config.Config) {
		select {
		case <-updates: // keep only the newest
		default:
		}
		updates <- c
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	application, err := app.NewApp(cfg, app.Options{
		Ephemeral:     *ephemeral,
		ConfigUpdates: updates,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create application: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("FATAL: Application exited with error: %v", err)
	}

	log.Println("focustrack finished successfully.")
}
