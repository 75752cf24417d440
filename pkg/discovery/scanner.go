package discovery

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ExclusiveAccount/reconforge/pkg/models"
)

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// PortScanner performs TCP connect scans
type PortScanner struct {
	logger *logrus.Logger
	dial   func(timeout time.Duration) Dialer
}

// NewPortScanner creates a new port scanner
func NewPortScanner(logger *logrus.Logger) *PortScanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &PortScanner{
		logger: logger,
		dial: func(timeout time.Duration) Dialer {
			return &net.Dialer{Timeout: timeout}
		},
	}
}

// Scan attempts a TCP connection to every port in ports on address, with at most
// concurrency attempts in flight. Every port is tried exactly once. Refused, timed out
// and unreachable attempts all count as closed.
func (s *PortScanner) Scan(ctx context.Context, address string, ports []int, concurrency int, timeout time.Duration) models.PortScanResult {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu   sync.Mutex
		open []int
	)
	dialer := s.dial(timeout)

	g := new(errgroup.Group)
	g.SetLimit(concurrency)
	for _, port := range ports {
		g.Go(func() error {
			if s.isPortOpen(ctx, dialer, address, port, timeout) {
				mu.Lock()
				open = append(open, port)
				mu.Unlock()
				s.logger.Debugf("%s has port %d open", address, port)
			}
			return nil
		})
	}
	_ = g.Wait()

	return models.PortScanResult{
		Address:      address,
		OpenPorts:    compactSorted(open),
		ScannedCount: len(ports),
	}
}

// compactSorted sorts ports and drops repeats, which only occur when the caller
// passes the same port twice.
func compactSorted(ports []int) []int {
	sort.Ints(ports)
	out := make([]int, 0, len(ports))
	for i, p := range ports {
		if i > 0 && p == ports[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// isPortOpen checks if a port accepts connections
func (s *PortScanner) isPortOpen(ctx context.Context, dialer Dialer, host string, port int, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
