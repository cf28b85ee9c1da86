// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"sync/atomic"
	"time"

	"scope/internal/audio"
	applog "scope/internal/log"
)

// Sink is an audio.Listener fanning engine events out to transports.
type Sink struct {
	transports []Transport
	seq        atomic.Uint64
	now        func() time.Time
}

// NewSink returns a sink sending to every transport.
func NewSink(transports ...Transport) *Sink {
	return &Sink{transports: transports, now: time.Now}
}

// OnStatus implements audio.Listener.
func (s *Sink) OnStatus(status string) {
	s.send(NewStatusMessage(status))
}

// OnFrame implements audio.Listener.
func (s *Sink) OnFrame(frame *audio.Frame) {
	s.send(NewFrameMessage(s.seq.Add(1), frame, s.now()))
}

func (s *Sink) send(msg any) {
	for _, t := range s.transports {
		if err := t.Send(msg); err != nil {
			applog.Debugf("Sink: send via %T failed: %v", t, err)
		}
	}
}

// Close closes every transport.
func (s *Sink) Close() error {
	var errs []error
	for _, t := range s.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ audio.Listener = (*Sink)(nil)
