// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"math"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"scope/internal/config"
	"scope/pkg/utils"
)

// recorder is a Listener keeping every event.
type recorder struct {
	mu       sync.Mutex
	statuses []string
	frames   []*Frame
}

func (r *recorder) OnStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *recorder) OnFrame(frame *Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.statuses)
}

func (r *recorder) LastFrame() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil
	}
	return r.frames[len(r.frames)-1]
}

// newTestEngine returns an engine whose ticker never fires on its own;
// tests drive it by calling tick.
func newTestEngine(t *testing.T, backend Backend) (*Engine, *recorder) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Audio.PollInterval = time.Hour

	e, err := NewEngine(cfg, backend)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	rec := &recorder{}
	e.AddListener(rec)
	t.Cleanup(func() { e.Close() })
	return e, rec
}

func TestEngineEndToEndTone(t *testing.T) {
	clock := newFakeClock()
	backend := &SimulatedBackend{
		ToneHz:      440,
		Amplitude:   0.8,
		SampleRates: []int{48000},
		Channels:    []int{1},
		Now:         clock.Now,
	}
	e, rec := newTestEngine(t, backend)

	if err := e.Start(-1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if want := []string{"Format 48000 Hz, 16-bit, mono", StatusCapturing}; !reflect.DeepEqual(rec.Statuses(), want) {
		t.Fatalf("statuses = %q, want %q", rec.Statuses(), want)
	}

	// One second of 30 ms ticks.
	for range 34 {
		clock.Advance(30 * time.Millisecond)
		e.tick()
	}

	frame := rec.LastFrame()
	if frame == nil {
		t.Fatal("no frame delivered")
	}
	if len(rec.frames) != 34 {
		t.Errorf("got %d frames, want 34", len(rec.frames))
	}
	if frame.SampleRate != 48000 || len(frame.Samples) != 1440 {
		t.Errorf("frame rate/samples = %d/%d, want 48000/1440", frame.SampleRate, len(frame.Samples))
	}
	if len(frame.Waveform) != config.DefaultMaxSamples {
		t.Errorf("waveform holds %d samples, want %d", len(frame.Waveform), config.DefaultMaxSamples)
	}
	for i, v := range frame.Waveform {
		if v < 0 {
			t.Fatalf("waveform[%d] = %g, want rectified", i, v)
		}
	}
	if math.Abs(frame.Peak-0.8) > 0.01 {
		t.Errorf("peak = %g, want ~0.8", frame.Peak)
	}

	if frame.FFTSize != 2048 || len(frame.Spectrum) != 1024 {
		t.Fatalf("FFT size/bins = %d/%d, want 2048/1024", frame.FFTSize, len(frame.Spectrum))
	}
	expected := int(math.Round(440 * 2048 / 48000.0))
	if peak := utils.FindPeakBin(frame.Spectrum, 0, len(frame.Spectrum)-1); peak < expected-1 || peak > expected+1 {
		t.Errorf("spectrum peak bin = %d, want %d±1", peak, expected)
	}

	if got := e.Waveform(); !reflect.DeepEqual(got, frame.Waveform) {
		t.Error("Waveform() differs from the last frame")
	}
	if f, ok := e.Format(); !ok || f != NewCaptureFormat(48000, 1) {
		t.Errorf("Format() = %v, %v", f, ok)
	}

	e.StopCapture()
	if e.IsCapturing() {
		t.Error("still capturing after StopCapture")
	}
	if st := rec.Statuses(); st[len(st)-1] != StatusStopped {
		t.Errorf("last status = %q, want %q", st[len(st)-1], StatusStopped)
	}
	if _, ok := e.Format(); ok {
		t.Error("Format() still reported after stop")
	}
	if got := e.Waveform(); len(got) != 0 {
		t.Errorf("Waveform() holds %d samples after stop, want 0", len(got))
	}
	if got := e.Peak(); got != initialPeak {
		t.Errorf("Peak() = %g after stop, want %g", got, initialPeak)
	}
}

func TestEngineStartFailures(t *testing.T) {
	tests := []struct {
		name       string
		backend    Backend
		index      int
		wantErr    error
		wantStatus string
	}{
		{
			name:       "no devices",
			backend:    &SimulatedBackend{NoDevices: true},
			wantErr:    ErrNoDevice,
			wantStatus: StatusNoDevices,
		},
		{
			name:       "enumeration error",
			backend:    &fakeBackend{listErr: errors.New("host gone")},
			wantErr:    ErrNoDevice,
			wantStatus: StatusInitFailed,
		},
		{
			name:       "index out of range",
			backend:    NewSimulatedBackend(440),
			index:      3,
			wantErr:    ErrNoDevice,
			wantStatus: StatusInitFailed,
		},
		{
			name:       "no supported format",
			backend:    &SimulatedBackend{SampleRates: []int{96000}},
			wantErr:    ErrNoDeviceFormat,
			wantStatus: StatusInitFailed,
		},
		{
			name: "device busy",
			backend: &fakeBackend{
				devices: []DeviceDescriptor{{Name: "mic"}},
				openErr: errors.New("busy"),
			},
			wantErr:    ErrDeviceOpenFailed,
			wantStatus: StatusInitFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rec := newTestEngine(t, tt.backend)

			err := e.Start(tt.index)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Start err = %v, want %v", err, tt.wantErr)
			}
			if e.IsCapturing() {
				t.Error("capturing after failed start")
			}
			if st := rec.Statuses(); len(st) != 1 || st[0] != tt.wantStatus {
				t.Errorf("statuses = %q, want [%q]", st, tt.wantStatus)
			}
			if e.StartCapture(tt.index) {
				t.Error("StartCapture reported success")
			}
		})
	}
}

func TestEngineStartFailedReleasesDevice(t *testing.T) {
	dev := &fakeDevice{buf: &fakeBuffer{startErr: errors.New("no clock")}}
	e, rec := newTestEngine(t, &fakeBackend{devices: []DeviceDescriptor{{Name: "mic"}}, device: dev})

	if err := e.Start(0); err == nil {
		t.Fatal("Start succeeded")
	}
	if st := rec.Statuses(); st[len(st)-1] != StatusStartFailed {
		t.Errorf("statuses = %q, want last %q", st, StatusStartFailed)
	}
	if !dev.buf.closed || !dev.closed {
		t.Error("buffer or device left open")
	}
}

// startFakeEngine starts an engine on a stereo 48 kHz fake device.
func startFakeEngine(t *testing.T) (*Engine, *recorder, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	backend := &fakeBackend{
		devices: []DeviceDescriptor{{Name: "mic"}, {Name: "line in", Identity: "line"}},
		device:  dev,
	}
	e, rec := newTestEngine(t, backend)
	if err := e.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return e, rec, dev
}

func TestEngineTickErrorsKeepPolling(t *testing.T) {
	e, rec, dev := startFakeEngine(t)
	buf := dev.buf

	buf.posErr = errors.New("position lost")
	e.tick()
	buf.posErr = nil
	buf.capture, buf.ready = 8, 8
	buf.lockErr = errors.New("lock lost")
	e.tick()
	buf.lockErr = nil
	e.tick()

	want := []string{"Format 48000 Hz, 16-bit, stereo", StatusCapturing, StatusReadFailed, StatusLockFailed, StatusCapturing}
	if got := rec.Statuses(); !reflect.DeepEqual(got, want) {
		t.Errorf("statuses = %q, want %q", got, want)
	}
	if frame := rec.LastFrame(); frame == nil || len(frame.Samples) != 2 {
		t.Errorf("frame after recovery = %+v, want 2 samples", frame)
	}
	if !e.IsCapturing() {
		t.Error("tick errors stopped capture")
	}
}

func TestEngineControls(t *testing.T) {
	e, rec, dev := startFakeEngine(t)
	copy(dev.buf.data, utils.PCMFrames(1000, -1000, 2000, -2000))
	dev.buf.capture, dev.buf.ready = 8, 8

	e.SetChannelMode(ChannelLeft)
	e.SetTimeScaleMs(-5)
	if e.TimeScaleMs() != 0 {
		t.Errorf("TimeScaleMs = %d after negative set, want 0", e.TimeScaleMs())
	}
	e.SetTimeScaleMs(20)
	e.tick()

	frame := rec.LastFrame()
	if frame == nil {
		t.Fatal("no frame")
	}
	if want := []float64{1000.0 / 32768, 2000.0 / 32768}; !reflect.DeepEqual(frame.Samples, want) {
		t.Errorf("left samples = %v, want %v", frame.Samples, want)
	}
	if frame.Mode != ChannelLeft || frame.TimeScaleMs != 20 {
		t.Errorf("frame mode/time scale = %v/%d", frame.Mode, frame.TimeScaleMs)
	}
	if frame.FFTSize != 0 || len(frame.Spectrum) != 0 {
		t.Errorf("2 samples produced a %d-point spectrum", frame.FFTSize)
	}
}

func TestEngineSetDeviceIndexRestarts(t *testing.T) {
	e, rec, _ := startFakeEngine(t)
	backend := e.Backend().(*fakeBackend)

	if err := e.SetDeviceIndex(1); err != nil {
		t.Fatalf("SetDeviceIndex: %v", err)
	}
	if !e.IsCapturing() || e.DeviceIndex() != 1 {
		t.Errorf("capturing=%v index=%d, want true/1", e.IsCapturing(), e.DeviceIndex())
	}
	if len(backend.opened) != 2 || backend.opened[1].Name != "line in" {
		t.Errorf("opened %v, want mic then line in", backend.opened)
	}
	for _, st := range rec.Statuses() {
		if st == StatusStopped {
			t.Error("restart reported Stopped")
		}
	}

	e.StopCapture()
	if err := e.SetDeviceIndex(0); err != nil || e.IsCapturing() {
		t.Errorf("SetDeviceIndex while idle started capture (err %v)", err)
	}
}

// slowListener holds each frame for delay and counts frames that overlap
// or start after stopped is set.
type slowListener struct {
	delay    time.Duration
	active   atomic.Int32
	frames   atomic.Int32
	overlaps atomic.Int32
	late     atomic.Int32
	stopped  atomic.Bool
}

func (l *slowListener) OnStatus(string) {}

func (l *slowListener) OnFrame(*Frame) {
	if l.active.Add(1) > 1 {
		l.overlaps.Add(1)
	}
	if l.stopped.Load() {
		l.late.Add(1)
	}
	time.Sleep(l.delay)
	l.frames.Add(1)
	l.active.Add(-1)
}

func TestEnginePollLoopSerializesTicks(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Audio.PollInterval = 5 * time.Millisecond
	e, err := NewEngine(cfg, NewSimulatedBackend(440))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { e.Close() })

	// Each frame outlasts three poll intervals.
	l := &slowListener{delay: 15 * time.Millisecond}
	e.AddListener(l)

	if err := e.Start(-1); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for l.frames.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	e.StopCapture()
	l.stopped.Store(true)
	if n := l.active.Load(); n != 0 {
		t.Errorf("%d frames still in flight after StopCapture returned", n)
	}
	delivered := l.frames.Load()
	time.Sleep(30 * time.Millisecond)

	if delivered < 3 {
		t.Errorf("poll loop delivered %d frames, want at least 3", delivered)
	}
	if got := l.frames.Load(); got != delivered {
		t.Errorf("frames went from %d to %d after StopCapture", delivered, got)
	}
	if n := l.overlaps.Load(); n != 0 {
		t.Errorf("OnFrame re-entered %d times", n)
	}
	if n := l.late.Load(); n != 0 {
		t.Errorf("%d frames started after StopCapture", n)
	}
}

func TestEngineStopWhenIdle(t *testing.T) {
	e, rec := newTestEngine(t, NewSimulatedBackend(440))
	e.StopCapture()
	if len(rec.Statuses()) != 0 {
		t.Errorf("idle stop emitted %q", rec.Statuses())
	}
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Audio.ChannelMode = "quad"
	if _, err := NewEngine(cfg, NewSimulatedBackend(440)); err == nil {
		t.Error("NewEngine accepted an unknown channel mode")
	}
	if _, err := NewEngine(config.NewConfig(), nil); err == nil {
		t.Error("NewEngine accepted a nil backend")
	}
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		backend string
		wavFile string
		want    string
		wantErr bool
	}{
		{"portaudio", "", "portaudio", false},
		{"simulate", "", "simulate", false},
		{"wav", "in.wav", "wav", false},
		{"wav", "", "", true},
		{"jack", "", "", true},
	}
	for _, tt := range tests {
		cfg := config.NewConfig()
		cfg.Audio.Backend = tt.backend
		cfg.Audio.WavFile = tt.wavFile
		b, err := NewBackend(cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewBackend(%q) err = %v, wantErr %v", tt.backend, err, tt.wantErr)
			continue
		}
		if err == nil && b.Name() != tt.want {
			t.Errorf("NewBackend(%q).Name() = %q", tt.backend, b.Name())
		}
	}
}

func TestNewBackendLowLatency(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Audio.LowLatency = true
	b, err := NewBackend(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if pa, ok := b.(*PortAudioBackend); !ok || !pa.LowLatency {
		t.Errorf("NewBackend = %#v, want low-latency PortAudioBackend", b)
	}
}
