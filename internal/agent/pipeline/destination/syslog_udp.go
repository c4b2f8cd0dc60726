package destination

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/errkind"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

const defaultSyslogPriority = 13

// syslogUDPDestination emits one RFC3164-style datagram per event. UDP
// delivery is best-effort by design — a send failure here still surfaces
// through the usual backoff path, but nothing guarantees the remote syslog
// collector actually received a prior datagram.
type syslogUDPDestination struct {
	addr     *net.UDPAddr
	priority int
	appName  string
	conn     *net.UDPConn
	logger   *zap.Logger
}

func newSyslogUDPDestination(options map[string]any, logger *zap.Logger) (*syslogUDPDestination, error) {
	host := optString(options, "host", "127.0.0.1")
	port := optInt(options, "port", 514)
	priority := optInt(options, "priority", defaultSyslogPriority)
	appName := optString(options, "app_name", "observix")

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, errkind.DestinationOpen("syslog_udp destination: resolve %s:%d: %v", host, port, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, errkind.DestinationOpen("syslog_udp destination: dial %s:%d: %v", host, port, err)
	}

	return &syslogUDPDestination{
		addr:     addr,
		priority: priority,
		appName:  appName,
		conn:     conn,
		logger:   logger.Named("syslog_udp_destination"),
	}, nil
}

func (s *syslogUDPDestination) Send(ctx context.Context, batch []model.Event) error {
	for _, ev := range batch {
		line := s.format(ev)
		if _, err := s.conn.Write([]byte(line)); err != nil {
			// Best-effort by design, but a write failure on the local socket
			// (e.g. ENETUNREACH) still needs to surface so the runner backs off.
			return errkind.DestinationSend("syslog_udp: write: %v", err)
		}
	}
	return nil
}

func (s *syslogUDPDestination) format(ev model.Event) string {
	hostname := ev.MetaString("agent_id")
	if hostname == "" {
		hostname = "observix"
	}
	msg := strings.ReplaceAll(ev.Raw, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	ts := ev.TS
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return fmt.Sprintf("<%d>%s %s %s: %s", s.priority, ts.Format("Jan _2 15:04:05"), hostname, s.appName, msg)
}
