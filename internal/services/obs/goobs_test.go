package obs

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"stagehand/internal/config"
)

func dialerFor(address string) Dialer {
	cfg := &config.Config{}
	cfg.OBS.Address = address
	return NewDialer(cfg)
}

func TestDialerReportsUnreachableEncoder(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	address := listener.Addr().String()
	listener.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = dialerFor(address)(ctx)
	if err == nil {
		t.Fatal("expected dial error for closed port")
	}
	if !strings.Contains(err.Error(), "connect to encoder") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDialerHonorsContextCancellation(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("start stall listener: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	go func() {
		// Accept and hold the connection open without completing the
		// websocket handshake.
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = dialerFor(listener.Addr().String())(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
