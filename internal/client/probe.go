package client

import (
	"fmt"
	"net"
	"time"

	"github.com/deb2000-sudo/teleporter/internal/framer"
	"github.com/deb2000-sudo/teleporter/internal/telemetry"
	"github.com/deb2000-sudo/teleporter/pkg/wire"
)

// Probe opens a short-lived connection to addr, sends a Ping, and returns
// the round-trip time to the PingAck. It records the measurement on
// collector if one is given, for a CLI to report alongside a transfer's
// throughput. The connection is closed before Probe returns; this is not
// part of the ClientSession that follows, just a pre-flight health check
// (spec §1 "pre-transfer health probes").
func Probe(addr string, timeout time.Duration, collector *telemetry.Collector) (time.Duration, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return 0, fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()

	fr := framer.New(conn)
	ping := wire.Init{Features: wire.FeaturePing}
	start := time.Now()
	if err := fr.Send(wire.ActionPing, ping.Serialize()); err != nil {
		return 0, fmt.Errorf("send ping: %w", err)
	}

	action, payload, err := fr.Recv()
	if err != nil {
		return 0, fmt.Errorf("recv ping ack: %w", err)
	}
	rtt := time.Since(start)

	if action != wire.ActionPingAck {
		return 0, fmt.Errorf("expected PingAck, got action %v", action)
	}
	ack, err := wire.DeserializeInitAck(payload)
	if err != nil {
		return 0, fmt.Errorf("decode ping ack: %w", err)
	}
	if ack.Status != wire.StatusPong {
		return 0, fmt.Errorf("expected status Pong, got %v", ack.Status)
	}

	if collector != nil {
		collector.RecordRTT(rtt)
	}
	return rtt, nil
}
