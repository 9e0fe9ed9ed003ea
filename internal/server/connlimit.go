package server

import (
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/lawnchairsociety/bossbalance/internal/config"
)

// RunLimiter tracks and limits concurrent simulation runs per IP and in
// total, and the number of trials those runs simulate at once.
type RunLimiter struct {
	mu           sync.Mutex
	ipCounts     map[string]int
	totalCount   int
	activeTrials int
	maxPerIP     int
	maxTotal     int
	maxTrials    int
}

// NewRunLimiter creates a new run limiter with the given config.
func NewRunLimiter(cfg config.ConnectionsConfig) *RunLimiter {
	return &RunLimiter{
		ipCounts:  make(map[string]int),
		maxPerIP:  cfg.MaxPerIP,
		maxTotal:  cfg.MaxTotal,
		maxTrials: cfg.MaxActiveTrials,
	}
}

// TryAcquire attempts to acquire a run slot for the given IP.
// Returns true if the run is allowed, false if it would exceed limits.
func (c *RunLimiter) TryAcquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTotal > 0 && c.totalCount >= c.maxTotal {
		return false
	}

	if c.maxPerIP > 0 && c.ipCounts[ip] >= c.maxPerIP {
		return false
	}

	c.ipCounts[ip]++
	c.totalCount++
	return true
}

// Release releases a run slot for the given IP.
func (c *RunLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ipCounts[ip] > 0 {
		c.ipCounts[ip]--
		if c.ipCounts[ip] == 0 {
			delete(c.ipCounts, ip)
		}
		c.totalCount--
	}
}

// ReserveTrials claims n trials of the shared budget. A reservation larger
// than the whole budget succeeds only while no other trials are active.
func (c *RunLimiter) ReserveTrials(n int) bool {
	if n <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxTrials > 0 && c.activeTrials > 0 && c.activeTrials+n > c.maxTrials {
		return false
	}
	c.activeTrials += n
	return true
}

// ReleaseTrials returns n trials to the budget.
func (c *RunLimiter) ReleaseTrials(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeTrials = max(0, c.activeTrials-n)
}

// ActiveTrials returns the trials currently reserved.
func (c *RunLimiter) ActiveTrials() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeTrials
}

// Stats returns the number of active runs and of distinct IPs running them.
func (c *RunLimiter) Stats() (totalCount int, ipCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCount, len(c.ipCounts)
}

// IPCount returns the active run count for a specific IP.
func (c *RunLimiter) IPCount(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ipCounts[ip]
}

// extractIP extracts the IP address from a remote address string (ip:port format).
func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr // Return as-is if can't split
	}
	return host
}

// getRealIP extracts the real client IP from an HTTP request.
// It checks X-Forwarded-For header first (for reverse proxy setups),
// then falls back to the direct remote address.
func getRealIP(r *http.Request) string {
	// X-Forwarded-For can contain multiple IPs: "client, proxy1, proxy2"
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, _ := strings.Cut(xff, ","); strings.TrimSpace(first) != "" {
			return strings.TrimSpace(first)
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	return extractIP(r.RemoteAddr)
}
