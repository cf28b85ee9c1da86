package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the capture engine.
const (
	DefaultBackend       = "portaudio"           // Host audio API
	DefaultDeviceID      = MinDeviceID           // System default device
	DefaultMaxSamples    = 2048                  // Waveform history capacity
	DefaultPollInterval  = 30 * time.Millisecond // Capture poll period
	DefaultChannelMode   = "stereo"              // Average of both channels
	DefaultEnvelopeDecay = 0.95                  // Peak-hold decay per append
	DefaultToneHz        = 440.0                 // Simulated source frequency
	DefaultWindow        = "hann"                // Spectrum window function
	DefaultLogLevel      = "info"
	DefaultWSAddress     = ":8080"
	DefaultUDPTarget     = "127.0.0.1:9090"

	// Hardware and processing limits
	MinDeviceID     = -1 // -1 represents the system default device
	MinMaxSamples   = 8  // Smallest waveform that still yields a spectrum
	MaxMaxSamples   = 1 << 16
	MinPollInterval = time.Millisecond
)

// DefaultSampleRates is the negotiation order tried at capture start.
var DefaultSampleRates = []int{48000, 44100, 32000, 22050}

// Config is the complete runtime configuration, loaded from YAML and
// overridden by environment variables and command line flags.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug logging.
	LogLevel  string          `yaml:"log_level"`         // "debug", "info", "warn", "error".
	LogFile   string          `yaml:"log_file"`          // Log file used while the terminal UI is active.
	Command   string          `yaml:"command,omitempty"` // One-off command instead of running the engine.
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds capture settings.
type AudioConfig struct {
	Backend       string        `yaml:"backend"`        // "portaudio", "simulate" or "wav".
	InputDevice   int           `yaml:"input_device"`   // Index into the device list (-1 for default).
	SampleRates   []int         `yaml:"sample_rates"`   // Negotiation order, stereo tried before mono at each rate.
	MaxSamples    int           `yaml:"max_samples"`    // Waveform history capacity and per-poll read limit.
	PollInterval  time.Duration `yaml:"poll_interval"`  // Capture poll period.
	ChannelMode   string        `yaml:"channel_mode"`   // "left", "right" or "stereo".
	TimeScaleMs   int           `yaml:"time_scale_ms"`  // Display hint for the time axis (0 = auto).
	EnvelopeDecay float64       `yaml:"envelope_decay"` // Display peak decay in (0,1].
	ToneHz        float64       `yaml:"tone_hz"`        // Frequency of the simulated source.
	WavFile       string        `yaml:"wav_file"`       // File replayed by the wav backend.
	LowLatency    bool          `yaml:"low_latency"`    // Request the device's low input latency (portaudio).
}

// AnalysisConfig holds spectrum settings.
type AnalysisConfig struct {
	Window string `yaml:"window"` // Window function name, e.g. "hann".
}

// TransportConfig holds settings for the network consumers.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"`  // Serve frames on /ws.
	WebSocketAddress string `yaml:"websocket_address"`  // Listen address, e.g. ":8080".
	UDPEnabled       bool   `yaml:"udp_enabled"`        // Send spectrum packets over UDP.
	UDPTargetAddress string `yaml:"udp_target_address"` // host:port of the UDP receiver.
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Audio: AudioConfig{
			Backend:       DefaultBackend,
			InputDevice:   DefaultDeviceID,
			SampleRates:   append([]int(nil), DefaultSampleRates...),
			MaxSamples:    DefaultMaxSamples,
			PollInterval:  DefaultPollInterval,
			ChannelMode:   DefaultChannelMode,
			EnvelopeDecay: DefaultEnvelopeDecay,
			ToneHz:        DefaultToneHz,
		},
		Analysis: AnalysisConfig{
			Window: DefaultWindow,
		},
		Transport: TransportConfig{
			WebSocketAddress: DefaultWSAddress,
			UDPTargetAddress: DefaultUDPTarget,
		},
	}
}
