// Package netprobe measures network quality: latency against the nearest
// speedtest servers and, optionally, download/upload throughput on the
// best of them.
package netprobe

import (
	"context"
	"fmt"
	"sort"
	"time"

	st "github.com/showwin/speedtest-go/speedtest"
)

// Config controls how a probe is executed.
type Config struct {
	// Candidate servers to consider (sorted by distance, then pinged).
	ServerCount int

	// Throughput runs a full download/upload test on the lowest-latency
	// candidate. Latency-only probes are cheap; throughput probes move
	// real traffic.
	Throughput bool

	// MaxConnections passed to speedtest-go.
	MaxConnections int
}

// Result is one probe measurement.
type Result struct {
	Timestamp     time.Time     `json:"timestamp"`
	PingMs        float64       `json:"ping_ms"`
	JitterMs      float64       `json:"jitter_ms"`
	DownloadMbps  float64       `json:"download_mbps,omitempty"`
	UploadMbps    float64       `json:"upload_mbps,omitempty"`
	ISP           string        `json:"isp,omitempty"`
	ServerName    string        `json:"server_name,omitempty"`
	ServerCountry string        `json:"server_country,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// Prober executes probes. Safe for concurrent use; every probe builds its
// own speedtest client so no state leaks between runs.
type Prober struct {
	cfg Config
}

func New(cfg Config) *Prober {
	if cfg.ServerCount <= 0 {
		cfg.ServerCount = 3
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 4
	}
	return &Prober{cfg: cfg}
}

// Probe executes a single measurement.
func (p *Prober) Probe(ctx context.Context) (*Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("nil context")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	// Avoid package-level speedtest helpers; speedtest-go can keep
	// package-level state.
	stc := st.New(st.WithUserConfig(&st.UserConfig{
		MaxConnections: p.cfg.MaxConnections,
	}))
	defer func() {
		stc.Snapshots().Clean()
		stc.Reset()
	}()

	user, err := stc.FetchUserInfoContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	servers, err := stc.FetchServerListContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch server list: %w", err)
	}
	if a := servers.Available(); a != nil {
		servers = *a
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no servers available")
	}

	sort.Slice(servers, func(i, j int) bool { return servers[i].Distance < servers[j].Distance })
	n := p.cfg.ServerCount
	if n > len(servers) {
		n = len(servers)
	}

	best := pingCandidates(ctx, servers[:n])
	if best == nil {
		return nil, fmt.Errorf("all latency tests failed")
	}

	res := &Result{
		Timestamp:     time.Now(),
		PingMs:        float64(best.Latency.Milliseconds()),
		JitterMs:      float64(best.Jitter.Milliseconds()),
		ISP:           user.Isp,
		ServerName:    best.Sponsor,
		ServerCountry: best.Country,
	}

	if p.cfg.Throughput {
		if err := best.DownloadTestContext(ctx); err != nil {
			return nil, fmt.Errorf("download test: %w", err)
		}
		res.DownloadMbps = best.DLSpeed.Mbps()
		if err := best.UploadTestContext(ctx); err != nil {
			return nil, fmt.Errorf("upload test: %w", err)
		}
		res.UploadMbps = best.ULSpeed.Mbps()
	}

	res.Duration = time.Since(start)
	return res, nil
}

// pingCandidates latency-tests the candidates sequentially and returns the
// lowest-latency server, or nil if every test failed.
func pingCandidates(ctx context.Context, candidates []*st.Server) *st.Server {
	var best *st.Server
	for _, s := range candidates {
		if ctx.Err() != nil {
			break
		}
		if err := s.PingTestContext(ctx, nil); err != nil {
			continue
		}
		if s.Latency <= 0 {
			continue
		}
		if best == nil || s.Latency < best.Latency {
			best = s
		}
	}
	return best
}
