package cmd

import (
	"fmt"
	"time"

	"scope/internal/config"
	"scope/pkg/build"

	"github.com/spf13/cobra"
)

// Commands selected on the command line.
const (
	CommandMonitor  = "monitor"
	CommandHeadless = "headless"
	CommandList     = "list"
	CommandPick     = "pick"
)

// flagValues holds raw flag values; only flags the user set override the
// loaded configuration.
type flagValues struct {
	configPath   string
	headless     bool
	backend      string
	device       int
	channelMode  string
	pollInterval time.Duration
	maxSamples   int
	timeScaleMs  int
	window       string
	toneHz       float64
	wavFile      string
	lowLatency   bool
	websocket    bool
	wsAddress    string
	udp          bool
	udpTarget    string
	logLevel     string
	logFile      string
	verbose      bool
}

// ParseArgs parses args, loads the configuration file and applies flag
// overrides. A nil config with a nil error means nothing is left to do,
// e.g. after --help or --version.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	flags := &flagValues{}
	var options *config.Config

	load := func(cmd *cobra.Command, command string) error {
		cfg, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg, flags)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		cfg.Command = command
		options = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.headless {
				return load(cmd, CommandHeadless)
			}
			return load(cmd, CommandMonitor)
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.Summary() + "\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandList)
		},
	}
	pickCmd := &cobra.Command{
		Use:   "pick",
		Short: "Choose a capture device and channel mode interactively, then monitor it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd, CommandPick)
		},
	}
	rootCmd.AddCommand(listCmd, pickCmd)

	pf := rootCmd.PersistentFlags()

	// Configuration
	pf.StringVar(&flags.configPath, "config", "",
		"Path to a YAML config file (default "+config.DefaultPath+" if present)")

	// Capture Configuration
	pf.StringVarP(&flags.backend, "backend", "B", config.DefaultBackend,
		"Capture backend: portaudio, simulate or wav")
	pf.IntVarP(&flags.device, "device", "d", config.DefaultDeviceID,
		"Capture device index. Use 'list' command to see available devices.")
	pf.StringVarP(&flags.channelMode, "channel", "c", config.DefaultChannelMode,
		"Channel mode: left, right or stereo")
	pf.DurationVarP(&flags.pollInterval, "poll-interval", "p", config.DefaultPollInterval,
		"How often the capture buffer is polled")
	pf.IntVarP(&flags.maxSamples, "max-samples", "n", config.DefaultMaxSamples,
		"Waveform history length in samples")
	pf.IntVar(&flags.timeScaleMs, "time-scale", 0,
		"Display time scale in milliseconds (0 = auto)")
	pf.StringVarP(&flags.window, "window", "w", config.DefaultWindow,
		"Spectrum window function")
	pf.Float64Var(&flags.toneHz, "tone", config.DefaultToneHz,
		"Tone frequency of the simulate backend, in Hz")
	pf.StringVar(&flags.wavFile, "wav", "",
		"WAV file replayed by the wav backend (implies --backend wav)")
	pf.BoolVar(&flags.lowLatency, "low-latency", false,
		"Use the device's low input latency (portaudio backend)")

	// Output Configuration
	rootCmd.Flags().BoolVar(&flags.headless, "headless", false,
		"Run without the terminal UI and report through the log and transports")
	pf.BoolVar(&flags.websocket, "ws", false, "Serve frames over WebSocket")
	pf.StringVar(&flags.wsAddress, "ws-address", config.DefaultWSAddress, "WebSocket listen address")
	pf.BoolVar(&flags.udp, "udp", false, "Send spectrum packets over UDP")
	pf.StringVar(&flags.udpTarget, "udp-target", config.DefaultUDPTarget, "UDP receiver host:port")

	// Debug Configuration
	pf.StringVar(&flags.logLevel, "log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFile, "log-file", "", "Write logs to this file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Show verbose output")

	// cobra falls back to os.Args when given nil.
	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	return options, nil
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f *flagValues) {
	changed := cmd.Flags().Changed

	if changed("backend") {
		cfg.Audio.Backend = f.backend
	}
	if changed("device") {
		cfg.Audio.InputDevice = f.device
	}
	if changed("channel") {
		cfg.Audio.ChannelMode = f.channelMode
	}
	if changed("poll-interval") {
		cfg.Audio.PollInterval = f.pollInterval
	}
	if changed("max-samples") {
		cfg.Audio.MaxSamples = f.maxSamples
	}
	if changed("time-scale") {
		cfg.Audio.TimeScaleMs = f.timeScaleMs
	}
	if changed("window") {
		cfg.Analysis.Window = f.window
	}
	if changed("tone") {
		cfg.Audio.ToneHz = f.toneHz
	}
	if changed("wav") {
		cfg.Audio.WavFile = f.wavFile
		if !changed("backend") {
			cfg.Audio.Backend = "wav"
		}
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("ws") {
		cfg.Transport.WebSocketEnabled = f.websocket
	}
	if changed("ws-address") {
		cfg.Transport.WebSocketAddress = f.wsAddress
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = f.udp
	}
	if changed("udp-target") {
		cfg.Transport.UDPTargetAddress = f.udpTarget
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-file") {
		cfg.LogFile = f.logFile
	}
	if changed("verbose") && f.verbose {
		cfg.Debug = true
	}
}
