package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/1broseidon/nog/internal/config"
	"github.com/1broseidon/nog/internal/daemon"
	"github.com/1broseidon/nog/internal/hotkeys"
	"github.com/1broseidon/nog/internal/hotreload"
	"github.com/1broseidon/nog/internal/ipc"
	"github.com/1broseidon/nog/internal/logging"
	"github.com/1broseidon/nog/internal/platform"
	"github.com/1broseidon/nog/internal/script"
	"github.com/1broseidon/nog/internal/state"
)

func runDaemon() {
	// Load daemon settings
	res, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	scriptPath, err := cfg.ScriptPath()
	if err != nil {
		log.Fatalf("Failed to resolve configuration script: %v", err)
	}
	created, err := daemon.EnsureConfigFile(scriptPath)
	if err != nil {
		log.Fatalf("Failed to create configuration script: %v", err)
	}
	if created {
		log.Printf("Wrote default configuration to %s", scriptPath)
	}

	st := state.New(cfg.EventBuffer)

	// Connect to display server
	backend, err := platform.NewLinuxBackendFromDisplay()
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer backend.Disconnect()
	if wm, err := backend.WindowManagerName(); err != nil {
		log.Printf("Warning: %v; window snapshots may be incomplete", err)
	} else {
		log.Printf("Connected to window manager: %s", wm)
	}

	hotkeyHandler := hotkeys.NewHandler(backend, st)

	rt := script.New(
		script.WithLogger(logger),
		script.WithWindows(st.Windows.Snapshots),
	)
	defer rt.Close()

	d, err := daemon.New(daemon.Options{
		Runtime:    rt,
		State:      st,
		ConfigPath: scriptPath,
		Binder:     hotkeyHandler,
		Restorer:   backend,
		Logger:     logger,
	})
	if err != nil {
		log.Fatalf("Failed to create daemon: %v", err)
	}

	// Manage the windows that already exist before the script first runs.
	reconciler := daemon.NewReconciler(daemon.ReconcilerConfig{
		Interval: cfg.ReconcileInterval(),
		Logger:   logger,
	}, st.Windows, backend, backend.ListWindows)
	reconciler.ReconcileNow()

	// A broken script is reported and fixed by editing the file; the watcher
	// picks up the next save.
	if err := d.LoadInitial(); err != nil {
		log.Printf("Configuration failed to load: %s", script.ErrorMessage(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := hotreload.Start(ctx, st,
		hotreload.WithPath(scriptPath),
		hotreload.WithDebounce(cfg.Debounce()),
		hotreload.WithLogger(logger),
	); err != nil {
		if errors.Is(err, hotreload.ErrConfigDir) {
			log.Fatalf("Failed to resolve configuration directory: %v", err)
		}
		log.Fatalf("Failed to watch configuration: %v", err)
	}

	// Start IPC server
	if cfg.IPC {
		ipcServer, err := ipc.NewServer(d)
		if err != nil {
			log.Fatalf("Failed to create IPC server: %v", err)
		}
		if err := ipcServer.Start(); err != nil {
			log.Fatalf("Failed to start IPC server: %v", err)
		}
		defer ipcServer.Stop()
	}

	if cfg.ReconcileIntervalSeconds > 0 {
		go reconciler.Run(ctx)
	}

	// Setup signal handlers
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigCh:
				switch sig {
				case syscall.SIGHUP:
					log.Println("Received SIGHUP, reloading configuration...")
					if err := d.RequestReload("signal"); err != nil {
						log.Printf("Failed to queue reload: %v", err)
					}
				case os.Interrupt, syscall.SIGTERM:
					log.Println("Shutting down nog daemon...")
					cancel()
					return
				}
			}
		}
	}()

	// The event consumer stops the X event loop when it exits.
	go func() {
		if err := d.Run(ctx); err != nil {
			log.Printf("Event loop failed: %v", err)
		}
		cancel()
		backend.Quit()
	}()

	log.Println("nog daemon started successfully")
	backend.EventLoop()

	if cfg.RestoreOnExit {
		n, err := d.RestoreAll()
		if err != nil {
			log.Printf("Failed to restore some windows: %v", err)
		}
		log.Printf("Restored %d windows", n)
	}
}
