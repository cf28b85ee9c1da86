package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	applog "scope/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("spectrum sender is closed")

// SpectrumSender writes spectrum packets to one UDP receiver.
type SpectrumSender struct {
	mu     sync.Mutex
	conn   *net.UDPConn // nil once closed
	target string
	buf    []byte // Encoding scratch, guarded by mu.
}

// NewSpectrumSender dials targetAddress ("host:port").
func NewSpectrumSender(targetAddress string) (*SpectrumSender, error) {
	addr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("SpectrumSender: Sending to %s", conn.RemoteAddr())
	return &SpectrumSender{conn: conn, target: addr.String()}, nil
}

// Send encodes p and writes it as a single datagram.
func (s *SpectrumSender) Send(p *SpectrumPacket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrSenderClosed
	}

	s.buf = p.AppendBinary(s.buf[:0])
	if _, err := s.conn.Write(s.buf); err != nil {
		applog.Debugf("SpectrumSender: packet %d: %v", p.Seq, err)
		return fmt.Errorf("failed to send spectrum packet %d: %w", p.Seq, err)
	}
	return nil
}

// Close releases the socket. Later calls are no-ops.
func (s *SpectrumSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}

	applog.Infof("SpectrumSender: Closing connection to %s", s.target)
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("failed to close UDP connection: %w", err)
	}
	return nil
}
