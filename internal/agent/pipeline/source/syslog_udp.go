package source

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/errkind"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

const (
	defaultQueueCapacity = 50000
	maxDatagramSize      = 65535
)

// syslogUDP binds a UDP socket at construction time and runs a background
// receiver goroutine that decodes datagrams into a bounded queue. Poll only
// ever drains that queue — it never touches the socket itself.
type syslogUDP struct {
	conn   *net.UDPConn
	queue  chan model.Event
	logger *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newSyslogUDP(options map[string]any, logger *zap.Logger) (*syslogUDP, error) {
	port := optInt(options, "port", 0)
	capacity := optInt(options, "queue_capacity", defaultQueueCapacity)

	addr := &net.UDPAddr{Port: port}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errkind.SourceOpen("syslog_udp: bind port %d: %v", port, err)
	}

	s := &syslogUDP{
		conn:   conn,
		queue:  make(chan model.Event, capacity),
		logger: logger.Named("syslog_udp"),
		done:   make(chan struct{}),
	}
	go s.receiveLoop()
	return s, nil
}

func (s *syslogUDP) receiveLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, remote, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Debug("udp read error, stopping receiver", zap.Error(err))
				return
			}
		}

		line := strings.TrimSpace(toUTF8Lossy(buf[:n]))
		if line == "" {
			continue
		}

		ev := model.Event{
			TS:  time.Now().UTC(),
			Raw: line,
			Meta: map[string]any{
				"remote_addr": remote.String(),
			},
		}
		select {
		case s.queue <- ev:
		default:
			// Queue full: drop-newest, the contract's deliberate overflow policy.
			s.logger.Warn("syslog_udp queue full, dropping datagram")
		}
	}
}

func toUTF8Lossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}

func (s *syslogUDP) Poll(ctx context.Context, maxEvents int) ([]model.Event, error) {
	events := make([]model.Event, 0, maxEvents)
	for len(events) < maxEvents {
		select {
		case ev := <-s.queue:
			events = append(events, ev)
		default:
			return events, nil
		}
	}
	return events, nil
}

func (s *syslogUDP) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.conn.Close()
}
