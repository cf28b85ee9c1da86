// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"sync"
	"time"

	applog "scope/internal/log"
	"scope/internal/transport"
)

// UDPPublisher keeps the latest spectrum handed to Send and, on its own
// interval, sends it as a SpectrumPacket through a SpectrumSender. The
// network rate is therefore independent of the capture poll rate.
// It runs in a separate goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   *SpectrumSender // The underlying UDP sender instance.
	interval time.Duration   // The interval at which packets are sent.

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	latestMu sync.Mutex
	latest   []float64 // Spectrum of the newest frame.
	fresh    bool      // latest has not been sent yet.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.
	now         func() time.Time

	// Reused between packets; only the publisher goroutine touches it.
	packet SpectrumPacket
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *SpectrumSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s)", interval)
	return &UDPPublisher{
		sender:   sender,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Send implements transport.Transport. Frame messages replace the pending
// spectrum; everything else is ignored.
func (p *UDPPublisher) Send(data any) error {
	msg, ok := data.(*transport.FrameMessage)
	if !ok {
		return nil
	}

	p.latestMu.Lock()
	p.latest = append(p.latest[:0], msg.Spectrum...)
	p.fresh = true
	p.latestMu.Unlock()
	return nil
}

// Start begins the periodic publishing process.
// It is safe to call Start multiple times; subsequent calls are no-ops if already started.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Locals keep the goroutine off p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				applog.Debugf("UDPPublisher: Publisher goroutine received stop signal.")
				return
			}
		}
	}()
}

// Stop gracefully signals the publisher goroutine to terminate and waits for it to exit.
// It is safe to call Stop multiple times; subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		applog.Debugf("UDPPublisher: Stop called but not running.")
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Publisher goroutine finished.")
	return nil
}

// buildAndSendPacket sends the pending spectrum, if a new one arrived
// since the previous packet.
func (p *UDPPublisher) buildAndSendPacket() {
	p.latestMu.Lock()
	if !p.fresh {
		p.latestMu.Unlock()
		return
	}
	p.fresh = false
	mags := p.packet.Magnitudes[:0]
	for _, v := range p.latest[:min(len(p.latest), maxMagnitudes)] {
		mags = append(mags, float32(v))
	}
	p.latestMu.Unlock()

	p.sequenceNum++
	p.packet.Seq = p.sequenceNum
	p.packet.Timestamp = p.now()
	p.packet.Magnitudes = mags

	if err := p.sender.Send(&p.packet); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packet.Size())
	}
}

// Close stops the publisher goroutine and closes the sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

// Ensure UDPPublisher satisfies the transport interface at compile time.
var _ transport.Transport = (*UDPPublisher)(nil)
