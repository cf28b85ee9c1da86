// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applog "scope/internal/log"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "scope.yaml"

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it looks for DefaultPath in the working directory and falls back
// to built-in defaults when that is missing. Environment overrides are applied
// after the file and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Audio.Backend {
	case "portaudio", "simulate":
	case "wav":
		if c.Audio.WavFile == "" {
			errs = append(errs, errors.New("audio.wav_file must be set for the wav backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("audio.backend %q is not one of portaudio, simulate, wav", c.Audio.Backend))
	}
	if c.Audio.InputDevice < MinDeviceID {
		errs = append(errs, fmt.Errorf("audio.input_device %d is below %d", c.Audio.InputDevice, MinDeviceID))
	}
	if len(c.Audio.SampleRates) == 0 {
		errs = append(errs, errors.New("audio.sample_rates must not be empty"))
	}
	for _, rate := range c.Audio.SampleRates {
		if rate <= 0 {
			errs = append(errs, fmt.Errorf("audio.sample_rates contains invalid rate %d", rate))
		}
	}
	if c.Audio.MaxSamples < MinMaxSamples || c.Audio.MaxSamples > MaxMaxSamples {
		errs = append(errs, fmt.Errorf("audio.max_samples %d outside [%d, %d]", c.Audio.MaxSamples, MinMaxSamples, MaxMaxSamples))
	}
	if c.Audio.PollInterval < MinPollInterval {
		errs = append(errs, fmt.Errorf("audio.poll_interval %s is below %s", c.Audio.PollInterval, MinPollInterval))
	}
	switch strings.ToLower(c.Audio.ChannelMode) {
	case "left", "right", "stereo":
	default:
		errs = append(errs, fmt.Errorf("audio.channel_mode %q is not one of left, right, stereo", c.Audio.ChannelMode))
	}
	if c.Audio.EnvelopeDecay <= 0 || c.Audio.EnvelopeDecay > 1 {
		errs = append(errs, fmt.Errorf("audio.envelope_decay %g outside (0, 1]", c.Audio.EnvelopeDecay))
	}
	if c.Audio.ToneHz <= 0 {
		errs = append(errs, fmt.Errorf("audio.tone_hz %g must be positive", c.Audio.ToneHz))
	}
	if c.Transport.UDPEnabled && !strings.Contains(c.Transport.UDPTargetAddress, ":") {
		errs = append(errs, fmt.Errorf("transport.udp_target_address %q appears invalid (missing port?)", c.Transport.UDPTargetAddress))
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		errs = append(errs, errors.New("transport.websocket_address must be set when websocket is enabled"))
	}

	return errors.Join(errs...)
}

// applyEnvOverrides applies ENV_* variables on top of the loaded values.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Debug = bVal
			applog.Debugf("configuration: overriding debug from env: %v", bVal)
		}
	}
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
	}

	// ENV_AUDIO_{...}
	if val, ok := os.LookupEnv("ENV_AUDIO_BACKEND"); ok {
		c.Audio.Backend = val
		applog.Debugf("configuration: overriding audio.backend from env: %s", val)
	}
	if val, ok := os.LookupEnv("ENV_AUDIO_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.Audio.InputDevice = iVal
		}
	}
	if val, ok := os.LookupEnv("ENV_AUDIO_POLL_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Audio.PollInterval = dur
		}
	}

	// ENV_UDP_{...} and ENV_WS_{...}
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
	}
}
