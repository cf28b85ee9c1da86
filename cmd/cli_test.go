package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"scope/internal/config"
)

func TestParseArgsCommands(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		args []string
		want string
	}{
		{nil, CommandMonitor},
		{[]string{"--headless"}, CommandHeadless},
		{[]string{"list"}, CommandList},
		{[]string{"pick", "--backend", "simulate"}, CommandPick},
	}
	for _, tt := range tests {
		cfg, err := ParseArgs(tt.args)
		if err != nil {
			t.Fatalf("ParseArgs(%v): %v", tt.args, err)
		}
		if cfg.Command != tt.want {
			t.Errorf("ParseArgs(%v).Command = %q, want %q", tt.args, cfg.Command, tt.want)
		}
	}
}

func TestParseArgsFlagsOverrideFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "scope.yaml")
	yaml := "audio:\n  backend: simulate\n  tone_hz: 1000\n  max_samples: 4096\n  channel_mode: left\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseArgs([]string{
		"--config", path, "--headless",
		"--channel", "right", "-p", "10ms", "--udp", "--wav", "in.wav", "-v", "--low-latency",
	})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	if cfg.Audio.ToneHz != 1000 || cfg.Audio.MaxSamples != 4096 {
		t.Errorf("file values lost: tone=%g max=%d", cfg.Audio.ToneHz, cfg.Audio.MaxSamples)
	}
	if cfg.Audio.ChannelMode != "right" || cfg.Audio.PollInterval != 10*time.Millisecond {
		t.Errorf("flag overrides missing: mode=%s poll=%s", cfg.Audio.ChannelMode, cfg.Audio.PollInterval)
	}
	if cfg.Audio.Backend != "wav" || cfg.Audio.WavFile != "in.wav" {
		t.Errorf("--wav did not select the wav backend: %s %q", cfg.Audio.Backend, cfg.Audio.WavFile)
	}
	if !cfg.Transport.UDPEnabled || !cfg.Debug || !cfg.Audio.LowLatency {
		t.Error("--udp, -v or --low-latency not applied")
	}
}

func TestParseArgsRejectsInvalidFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, args := range [][]string{
		{"--max-samples", "2"},
		{"--channel", "quad"},
		{"--backend", "jack"},
		{"--no-such-flag"},
	} {
		if _, err := ParseArgs(args); err == nil {
			t.Errorf("ParseArgs(%v) succeeded", args)
		}
	}
}

func TestParseArgsDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := ParseArgs([]string{"list"})
	if err != nil {
		t.Fatal(err)
	}
	want := config.NewConfig()
	if cfg.Audio.Backend != want.Audio.Backend || cfg.Audio.InputDevice != want.Audio.InputDevice {
		t.Errorf("defaults changed without flags: %+v", cfg.Audio)
	}
}
