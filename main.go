package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"scope/cmd"
	"scope/internal/audio"
	"scope/internal/config"
	applog "scope/internal/log"
	"scope/internal/transport"
	"scope/internal/transport/udp"
	"scope/internal/tui"
	"scope/pkg/build"
)

// main is the entry point for the scope application.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Configure logging
//   - Initialize the capture backend
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the transports
//   - Start capture and the poll loop
//   - Run the monitor UI or wait for a signal when headless
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop capture
//   - Close transports and the log file
func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Initialize build information including version, commit hash, and build time
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build info incomplete: %v", err)
	}

	// Parse command line arguments and build configuration
	cfg, err := cmd.ParseArgs(args)
	if err != nil {
		return err
	}
	if cfg == nil {
		// --help or --version
		return nil
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer applog.Close()

	backend, err := audio.NewBackend(cfg)
	if err != nil {
		return err
	}

	// Initialize PortAudio subsystem
	if cfg.Audio.Backend == "portaudio" {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
	}

	// Handle one-off commands that don't require the engine to be running
	if cfg.Command == cmd.CommandList {
		devices, err := backend.Devices()
		if err != nil {
			return err
		}
		audio.ListDevices(os.Stdout, devices)
		return nil
	}

	engine, err := audio.NewEngine(cfg, backend)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			applog.Errorf("Error closing engine: %v", err)
		}
	}()

	deviceIndex := cfg.Audio.InputDevice
	if cfg.Command == cmd.CommandPick {
		selection, err := tui.PickDevice(engine.Devices, engine.ChannelMode())
		if err != nil {
			return err
		}
		if !selection.Confirmed {
			return nil
		}
		deviceIndex = selection.DeviceIndex
		engine.SetChannelMode(selection.Mode)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			applog.Warnf("Error closing transports: %v", err)
		}
	}()
	engine.AddListener(sink)

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(done)

	if cfg.Command == cmd.CommandHeadless {
		if err := engine.Start(deviceIndex); err != nil {
			return err
		}
		applog.Infof("Capturing headless, press Ctrl+C to stop")
		<-done
		// ==================== SHUTDOWN PHASE (Cold Path) ====================
		engine.StopCapture()
		return nil
	}

	monitor := tui.NewMonitor(engine)
	engine.AddListener(monitor.Listener())
	go func() {
		<-done
		monitor.Quit()
	}()
	// Listener sends block until the program loop is running.
	go engine.StartCapture(deviceIndex)

	if err := monitor.Run(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================
	engine.StopCapture()
	return nil
}

// setupLogging applies the configured level and destination. While the
// monitor owns the terminal, logs go to the configured file or nowhere.
func setupLogging(cfg *config.Config) error {
	level, ok := applog.ParseLevel(cfg.LogLevel)
	if !ok {
		applog.Warnf("Unknown log level %q, using %s", cfg.LogLevel, level)
	}
	if cfg.Debug {
		level = applog.LevelDebug
	}
	applog.SetLevel(level)

	interactive := cfg.Command == cmd.CommandMonitor || cfg.Command == cmd.CommandPick
	switch {
	case cfg.LogFile != "":
		return applog.SetFile(cfg.LogFile)
	case interactive:
		applog.SetOutput(io.Discard)
	}
	return nil
}

// newSink starts the enabled network transports and returns a listener
// fanning engine events out to them. Headless runs also log every event.
func newSink(cfg *config.Config) (*transport.Sink, error) {
	var transports []transport.Transport
	closeAll := func() {
		for _, t := range transports {
			_ = t.Close()
		}
	}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err := ws.Start(); err != nil {
			_ = ws.Close()
			return nil, fmt.Errorf("websocket transport: %w", err)
		}
		transports = append(transports, ws)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSpectrumSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("udp transport: %w", err)
		}
		publisher, err := udp.NewUDPPublisher(cfg.Audio.PollInterval, sender)
		if err != nil {
			closeAll()
			return nil, errors.Join(fmt.Errorf("udp transport: %w", err), sender.Close())
		}
		publisher.Start()
		transports = append(transports, publisher)
	}

	if cfg.Command == cmd.CommandHeadless {
		transports = append(transports, transport.NewLoggingTransport())
	}

	return transport.NewSink(transports...), nil
}
