package transport

import (
	"scope/internal/analysis"
	applog "scope/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of each message. It is the transport used in headless mode when no
// network consumer is configured.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. Statuses are logged at info level, frames
// at debug level to avoid flooding the log.
func (lt *LoggingTransport) Send(data any) error {
	switch msg := data.(type) {
	case *StatusMessage:
		applog.Infof("Status: %s", msg.Status)
	case *FrameMessage:
		peakBin, _ := analysis.NewSpectrum(msg.Spectrum, msg.FFTSize, float64(msg.SampleRate)).PeakBin()
		l := applog.Logger()
		l.Debug().
			Uint64("seq", msg.Seq).
			Float64("peak", msg.Peak).
			Int("fft_size", msg.FFTSize).
			Float64("peak_hz", analysis.BinFrequency(peakBin, msg.FFTSize, float64(msg.SampleRate))).
			Msg("frame")
	default:
		applog.Debugf("LOG_TRANSPORT: Received (%T): %+v", data, data)
	}
	return nil // Logging transport never fails to "send"
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
