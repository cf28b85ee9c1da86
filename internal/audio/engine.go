// SPDX-License-Identifier: MIT
/*
Package audio implements the capture side of the scope:
- Device enumeration and format negotiation over pluggable backends
  (PortAudio, a simulated tone, WAV replay)
- A polled circular capture buffer that survives wraparound and lazy
  driver cursors
- Channel mixing from interleaved 16-bit PCM to a mono signal
- A rolling waveform with a peak-hold display envelope

Thread Safety:
- One goroutine polls the device and runs the analysis per tick
- Lifecycle calls are serialized by the engine mutex
- Channel mode and time scale are atomics, settable from any goroutine
*/
package audio

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"scope/internal/analysis"
	"scope/internal/config"
	applog "scope/internal/log"
)

// Status texts reported to listeners.
const (
	StatusCapturing     = "Capturing"
	StatusStopped       = "Stopped"
	StatusNoDevices     = "No capture devices found"
	StatusInitFailed    = "Capture init failed"
	StatusStartFailed   = "Capture start failed"
	StatusReadFailed    = "Capture read failed"
	StatusLockFailed    = "Capture lock failed"
	statusFormatPattern = "Format %s"
)

// Frame is everything one poll tick produced.
type Frame struct {
	Samples     []float64   // Mono samples captured this tick, signed.
	SampleRate  int         // Negotiated capture rate.
	Waveform    []float64   // Rectified display history, oldest first.
	Peak        float64     // Display envelope.
	Spectrum    []float64   // Magnitude bins of the signed history.
	FFTSize     int         // Transform size behind Spectrum.
	TimeScaleMs int         // Display hint, 0 means auto.
	Mode        ChannelMode // Mixing mode used for Samples.
}

// Listener receives engine events. Calls arrive on the engine's poll
// goroutine (frames and tick errors) or on the goroutine calling a
// control method (lifecycle statuses), so implementations must not block.
type Listener interface {
	OnStatus(status string)
	OnFrame(frame *Frame)
}

type Engine struct {
	config     *config.Config
	backend    Backend
	candidates []FormatCandidate
	analyzer   *analysis.Analyzer

	// Lifecycle, guarded by mu.
	mu          sync.Mutex
	devices     []DeviceDescriptor
	deviceIndex int
	ring        *Ring
	ticker      *time.Ticker
	doneChan    chan struct{}
	wg          sync.WaitGroup

	// Waveform state. Only the poll goroutine writes; dataMu lets the
	// accessors take consistent copies.
	dataMu  sync.RWMutex
	display *WaveformBuffer // Rectified, for drawing.
	signal  *WaveformBuffer // Signed, for the spectrum.
	format  CaptureFormat

	mode      atomic.Int32
	timeScale atomic.Int64
	capturing atomic.Bool

	listenersMu sync.RWMutex
	listeners   []Listener
	faulted     bool // Last tick failed; touched by the poll goroutine only.

	samples []float64 // Tick scratch.
}

// NewEngine builds an idle engine capturing from backend.
func NewEngine(cfg *config.Config, backend Backend) (*Engine, error) {
	if backend == nil {
		return nil, fmt.Errorf("audio backend cannot be nil")
	}

	mode, err := ParseChannelMode(cfg.Audio.ChannelMode)
	if err != nil {
		return nil, err
	}
	window, err := analysis.ParseWindowFunc(cfg.Analysis.Window)
	if err != nil {
		return nil, err
	}

	display, err := NewWaveformBuffer(WaveformConfig{
		Capacity: cfg.Audio.MaxSamples,
		Decay:    cfg.Audio.EnvelopeDecay,
	})
	if err != nil {
		return nil, err
	}
	signal, err := NewWaveformBuffer(WaveformConfig{
		Capacity: cfg.Audio.MaxSamples,
		Decay:    cfg.Audio.EnvelopeDecay,
		Signed:   true,
	})
	if err != nil {
		return nil, err
	}

	candidates := DefaultCandidates()
	if len(cfg.Audio.SampleRates) > 0 {
		candidates = CandidatesFor(cfg.Audio.SampleRates)
	}

	e := &Engine{
		config:      cfg,
		backend:     backend,
		candidates:  candidates,
		analyzer:    analysis.NewAnalyzer(window),
		deviceIndex: cfg.Audio.InputDevice,
		display:     display,
		signal:      signal,
		samples:     make([]float64, 0, display.Cap()),
	}
	e.mode.Store(int32(mode))
	e.timeScale.Store(int64(max(cfg.Audio.TimeScaleMs, 0)))
	return e, nil
}

// AddListener registers l for status and frame events.
func (e *Engine) AddListener(l Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Backend returns the backend the engine captures from.
func (e *Engine) Backend() Backend {
	return e.backend
}

// Devices re-enumerates the backend's capture devices.
func (e *Engine) Devices() ([]DeviceDescriptor, error) {
	devices, err := e.backend.Devices()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.devices = devices
	e.mu.Unlock()
	return slices.Clone(devices), nil
}

// Start begins capturing from the device at index in the current device
// list; a negative index selects the first (default) device. A running
// capture is stopped first. On failure nothing stays open and the reason
// is reported as a status.
func (e *Engine) Start(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked(false)
	return e.startLocked(index)
}

// StartCapture is Start reporting only success.
func (e *Engine) StartCapture(index int) bool {
	if err := e.Start(index); err != nil {
		applog.Warnf("Engine: %v", err)
		return false
	}
	return true
}

// StopCapture stops polling and releases the device. The in-flight tick,
// if any, completes first.
func (e *Engine) StopCapture() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(true)
}

// IsCapturing reports whether the poll loop is running.
func (e *Engine) IsCapturing() bool {
	return e.capturing.Load()
}

// SetDeviceIndex selects the device used by the next start, restarting a
// running capture on it.
func (e *Engine) SetDeviceIndex(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.deviceIndex = index
	if !e.capturing.Load() {
		return nil
	}
	e.stopLocked(false)
	return e.startLocked(index)
}

// DeviceIndex returns the selected device index.
func (e *Engine) DeviceIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deviceIndex
}

// SetChannelMode changes the mixing mode from the next tick on.
func (e *Engine) SetChannelMode(mode ChannelMode) {
	e.mode.Store(int32(mode))
}

// ChannelMode returns the current mixing mode.
func (e *Engine) ChannelMode() ChannelMode {
	return ChannelMode(e.mode.Load())
}

// SetTimeScaleMs sets the display time-scale hint, clamped to >= 0. It
// does not affect capture or analysis.
func (e *Engine) SetTimeScaleMs(ms int) {
	e.timeScale.Store(int64(max(ms, 0)))
}

// TimeScaleMs returns the display time-scale hint.
func (e *Engine) TimeScaleMs() int {
	return int(e.timeScale.Load())
}

// Format returns the negotiated format of the running capture.
func (e *Engine) Format() (CaptureFormat, bool) {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.format, e.format.BlockAlign > 0
}

// Waveform returns a copy of the rectified display history.
func (e *Engine) Waveform() []float64 {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.display.Snapshot()
}

// Peak returns the display envelope.
func (e *Engine) Peak() float64 {
	e.dataMu.RLock()
	defer e.dataMu.RUnlock()
	return e.display.Peak()
}

// Close stops any running capture.
func (e *Engine) Close() error {
	e.StopCapture()
	return nil
}

func (e *Engine) startLocked(index int) error {
	devices, err := e.backend.Devices()
	if err != nil {
		e.emitStatus(StatusInitFailed)
		return fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	e.devices = devices
	if len(devices) == 0 {
		e.emitStatus(StatusNoDevices)
		return ErrNoDevice
	}
	if index < 0 {
		index = 0
	}
	if index >= len(devices) {
		e.emitStatus(StatusInitFailed)
		return fmt.Errorf("%w: index %d of %d", ErrNoDevice, index, len(devices))
	}
	e.deviceIndex = index

	ring, err := OpenRing(e.backend, devices[index], e.candidates, e.config.Audio.MaxSamples)
	if err != nil {
		e.emitStatus(StatusInitFailed)
		return err
	}
	if err := ring.Start(); err != nil {
		if cerr := ring.Close(); cerr != nil {
			applog.Warnf("Engine: releasing %s: %v", devices[index].Name, cerr)
		}
		e.emitStatus(StatusStartFailed)
		return fmt.Errorf("failed to start capture on %s: %w", devices[index].Name, err)
	}

	e.dataMu.Lock()
	e.display.Reset()
	e.signal.Reset()
	e.format = ring.Format()
	e.dataMu.Unlock()

	e.ring = ring
	e.faulted = false
	e.capturing.Store(true)
	e.emitStatus(fmt.Sprintf(statusFormatPattern, ring.Format()))
	e.emitStatus(StatusCapturing)
	applog.Infof("Engine: capturing from %s via %s (%s window)", devices[index].Name, e.backend.Name(), e.analyzer.Window())

	e.startPolling()
	return nil
}

// startPolling launches the poll goroutine. Callers hold e.mu.
func (e *Engine) startPolling() {
	interval := e.config.Audio.PollInterval
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}

	e.ticker = time.NewTicker(interval)
	e.doneChan = make(chan struct{})
	ticker := e.ticker
	doneChan := e.doneChan

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		applog.Debugf("Engine: poll goroutine started (interval: %s)", interval)
		for {
			select {
			case <-ticker.C:
				e.tick()
			case <-doneChan:
				return
			}
		}
	}()
}

// stopLocked stops polling, waits for the goroutine, closes the ring and
// clears the waveform history.
// Callers hold e.mu.
func (e *Engine) stopLocked(report bool) {
	if e.ticker != nil {
		close(e.doneChan)
		e.ticker.Stop()
		e.ticker = nil
		e.wg.Wait()
	}

	wasCapturing := e.capturing.Swap(false)
	if e.ring != nil {
		if err := e.ring.Close(); err != nil {
			applog.Warnf("Engine: closing capture ring: %v", err)
		}
		e.ring = nil
	}
	e.dataMu.Lock()
	e.display.Reset()
	e.signal.Reset()
	e.format = CaptureFormat{}
	e.dataMu.Unlock()

	if report && wasCapturing {
		e.emitStatus(StatusStopped)
		applog.Infof("Engine: capture stopped")
	}
}

// tick drains the ring once and publishes the resulting frame. Errors are
// reported and the next tick tries again.
func (e *Engine) tick() {
	ring := e.ring
	if ring == nil {
		return
	}

	mode := ChannelMode(e.mode.Load())
	format := ring.Format()

	e.samples = e.samples[:0]
	_, err := ring.Poll(func(first, second []byte) {
		e.samples = AppendConverted(e.samples, first, format, mode)
		e.samples = AppendConverted(e.samples, second, format, mode)
	})
	if err != nil {
		status := StatusReadFailed
		if errors.Is(err, ErrLockFailed) {
			status = StatusLockFailed
		}
		e.faulted = true
		e.emitStatus(status)
		applog.Warnf("Engine: %v", err)
		return
	}
	if e.faulted {
		e.faulted = false
		e.emitStatus(StatusCapturing)
	}
	if len(e.samples) == 0 {
		return
	}

	e.dataMu.Lock()
	e.display.Append(e.samples)
	e.signal.Append(e.samples)
	waveform := e.display.Snapshot()
	peak := e.display.Peak()
	signal := e.signal.Snapshot()
	e.dataMu.Unlock()

	e.emitFrame(&Frame{
		Samples:     slices.Clone(e.samples),
		SampleRate:  format.SampleRate,
		Waveform:    waveform,
		Peak:        peak,
		Spectrum:    e.analyzer.Compute(signal),
		FFTSize:     analysis.FFTSize(len(signal)),
		TimeScaleMs: int(e.timeScale.Load()),
		Mode:        mode,
	})
}

func (e *Engine) emitStatus(status string) {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	for _, l := range e.listeners {
		l.OnStatus(status)
	}
}

func (e *Engine) emitFrame(frame *Frame) {
	e.listenersMu.RLock()
	defer e.listenersMu.RUnlock()
	for _, l := range e.listeners {
		l.OnFrame(frame)
	}
}
