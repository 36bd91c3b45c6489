package probe

import (
	"context"
	"math"
	"net"
	"strconv"
	"time"
)

// TCPProbe implements TCP connection probing
type TCPProbe struct {
	BaseProbe
	Port int
}

// NewTCPProbe creates a new TCP probe for the given target
func NewTCPProbe(name, host string, port int, timeout time.Duration, pings int) *TCPProbe {
	if pings < 1 {
		pings = 1
	}
	return &TCPProbe{
		BaseProbe: BaseProbe{
			TargetName: name,
			TargetHost: host,
			Timeout:    timeout,
			Pings:      pings,
		},
		Port: port,
	}
}

// Type returns "tcp"
func (p *TCPProbe) Type() string {
	return TypeTCP
}

// Execute performs a burst of TCP connects and returns the result.
// A TCP probe cannot see players, so only reachability and latency are reported.
func (p *TCPProbe) Execute(ctx context.Context) Result {
	address := net.JoinHostPort(p.TargetHost, strconv.Itoa(p.Port))

	// Divide the timeout among the attempts, with a floor of one second
	dialer := &net.Dialer{Timeout: p.Timeout / time.Duration(p.Pings)}
	if dialer.Timeout < time.Second {
		dialer.Timeout = time.Second
	}

	var rtts []time.Duration
	sent := 0
	var lastErr error

	for i := 0; i < p.Pings; i++ {
		if ctx.Err() != nil {
			break
		}

		sent++
		start := time.Now()
		conn, err := dialer.DialContext(ctx, "tcp", address)
		latency := time.Since(start)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		rtts = append(rtts, latency)

		// Small delay between attempts to avoid hammering the server
		if i < p.Pings-1 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	return p.NewBurstResult(summarizeRtts(rtts, sent), lastErr)
}

// summarizeRtts builds burst statistics from the successful round trips
func summarizeRtts(rtts []time.Duration, sent int) BurstStats {
	stats := BurstStats{
		Rtts:        rtts,
		PacketsSent: sent,
		PacketsRecv: len(rtts),
	}
	if len(rtts) == 0 {
		return stats
	}

	var total time.Duration
	for _, rtt := range rtts {
		total += rtt
		if stats.MinRtt == 0 || rtt < stats.MinRtt {
			stats.MinRtt = rtt
		}
		if rtt > stats.MaxRtt {
			stats.MaxRtt = rtt
		}
	}

	if len(rtts) > 1 {
		avg := float64(total) / float64(len(rtts))
		var sumSquares float64
		for _, rtt := range rtts {
			diff := float64(rtt) - avg
			sumSquares += diff * diff
		}
		stats.StdDevRtt = time.Duration(math.Sqrt(sumSquares / float64(len(rtts))))
	}

	return stats
}
