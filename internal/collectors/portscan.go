package collectors

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// PortScanner probes a port range with TCP connects on a bounded pool.
type PortScanner struct {
	Host        string
	Start       int
	End         int
	Timeout     time.Duration
	Concurrency int
}

// Scan returns the sorted set of ports that accepted a connection. complete
// is false when ctx ended before every port was probed; the partial set must
// not be read as "no other ports open".
func (s *PortScanner) Scan(ctx context.Context) (open []int, complete bool) {
	var g errgroup.Group
	g.SetLimit(s.Concurrency)

	var mu sync.Mutex
	found := make(map[int]struct{})

	for port := s.Start; port <= s.End; port++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if s.probe(ctx, port) {
				mu.Lock()
				found[port] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	open = make([]int, 0, len(found))
	for port := range found {
		open = append(open, port)
	}
	sort.Ints(open)

	return open, ctx.Err() == nil
}

// probe reports whether port accepts a TCP connection. The connection is
// closed before returning.
func (s *PortScanner) probe(ctx context.Context, port int) bool {
	dialer := net.Dialer{Timeout: s.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.Host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Range renders the scanned target, e.g. 127.0.0.1:1-1023
func (s *PortScanner) Range() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Start)) + "-" + strconv.Itoa(s.End)
}
