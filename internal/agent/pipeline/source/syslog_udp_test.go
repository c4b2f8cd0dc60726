package source

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSyslogUDPReceivesAndPolls(t *testing.T) {
	s, err := newSyslogUDP(map[string]any{"port": 0}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Close()

	sender, err := net.DialUDP("udp", nil, s.conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("failed to dial sender: %v", err)
	}
	defer sender.Close()

	if _, err := sender.Write([]byte("hello syslog")); err != nil {
		t.Fatalf("failed to send datagram: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		ev, err := s.Poll(context.Background(), 10)
		if err != nil {
			t.Fatalf("unexpected poll error: %v", err)
		}
		if len(ev) == 1 {
			if ev[0].Raw != "hello syslog" {
				t.Fatalf("expected decoded payload, got %q", ev[0].Raw)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the datagram to surface via Poll")
}

func TestSyslogUDPDropsNewestOnQueueOverflow(t *testing.T) {
	s := newBoundedSyslogUDP(t, 2)
	defer s.Close()

	sender, err := net.DialUDP("udp", nil, s.conn.LocalAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("failed to dial sender: %v", err)
	}
	defer sender.Close()

	for i := 0; i < 5; i++ {
		if _, err := sender.Write([]byte("msg")); err != nil {
			t.Fatalf("failed to send: %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)

	total := 0
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		ev, _ := s.Poll(context.Background(), 10)
		total += len(ev)
		if total >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if total > 2 {
		t.Fatalf("expected at most queue capacity (2) events to survive, got %d", total)
	}
}

func newBoundedSyslogUDP(t *testing.T, capacity int) *syslogUDP {
	t.Helper()
	s, err := newSyslogUDP(map[string]any{"port": 0, "queue_capacity": capacity}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}
