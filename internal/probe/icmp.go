package probe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

const (
	echoInterval = 50 * time.Millisecond
	echoBudget   = 250 * time.Millisecond // per echo in a burst
)

// ICMPProbe checks reachability with an ICMP echo burst. Raw sockets are
// tried first; after the first failure the probe sticks to unprivileged
// UDP pings.
type ICMPProbe struct {
	BaseProbe
	unprivileged atomic.Bool
}

// NewICMPProbe creates an ICMP probe sending pings echoes per check
func NewICMPProbe(name, host string, timeout time.Duration, pings int) *ICMPProbe {
	return &ICMPProbe{
		BaseProbe: BaseProbe{
			TargetName: name,
			TargetHost: host,
			Timeout:    timeout,
			Pings:      max(pings, 1),
		},
	}
}

// Type returns "icmp"
func (p *ICMPProbe) Type() string {
	return TypeICMP
}

// Execute sends one burst. The host is online when any reply arrives.
func (p *ICMPProbe) Execute(ctx context.Context) Result {
	stats, err := p.burst(ctx, !p.unprivileged.Load())
	if err != nil && !p.unprivileged.Load() {
		p.unprivileged.Store(true)
		stats, err = p.burst(ctx, false)
	}
	if err != nil {
		return p.NewResult(0, false, fmt.Errorf("ping failed: %w", err))
	}
	return p.NewBurstResult(stats, nil)
}

func (p *ICMPProbe) burst(ctx context.Context, privileged bool) (BurstStats, error) {
	pinger, err := probing.NewPinger(p.TargetHost)
	if err != nil {
		return BurstStats{}, fmt.Errorf("failed to create pinger: %w", err)
	}

	pinger.Count = p.Pings
	pinger.Interval = echoInterval
	pinger.Timeout = max(time.Duration(p.Pings)*echoBudget, p.Timeout)
	pinger.SetPrivileged(privileged)

	var rtts []time.Duration
	pinger.OnRecv = func(pkt *probing.Packet) {
		rtts = append(rtts, pkt.Rtt)
	}

	if err := pinger.RunWithContext(ctx); err != nil {
		return BurstStats{}, err
	}

	s := pinger.Statistics()
	return BurstStats{
		Rtts:        rtts,
		PacketsSent: s.PacketsSent,
		PacketsRecv: s.PacketsRecv,
		MinRtt:      s.MinRtt,
		MaxRtt:      s.MaxRtt,
		StdDevRtt:   s.StdDevRtt,
	}, nil
}
