// Package servers tracks connections to the Wiretap servers advertised by a
// directory service.
//
// A Manager enumerates the servers once, keeps those whose product passes
// its filter and connects to each lazily on first use. Concurrent first uses
// of the same hostname share a single connection attempt.
//
// Disconnect only forgets the cached handle. The Wiretap API has no
// disconnect primitive, so a handle still referenced elsewhere keeps its
// server-side resources until that holder closes it.
package servers

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// DefaultProbeConcurrency bounds the number of hosts Probe contacts at once.
const DefaultProbeConcurrency = 8

// Manager owns the connections to a filtered set of Wiretap servers.
type Manager struct {
	client    wiretap.Client
	products  wiretap.ProductSet
	servers   []wiretap.ServerInfo
	hostnames []string

	mu    sync.Mutex
	conns map[string]wiretap.Server
	group singleflight.Group
}

// NewManager lists the servers of client and keeps those whose product is in
// products. An empty set keeps every server.
//
// Returns an ErrConnection error if the directory service cannot be
// enumerated.
func NewManager(ctx context.Context, client wiretap.Client, products wiretap.ProductSet) (*Manager, error) {
	all, err := client.ListServers(ctx)
	if err != nil {
		if _, ok := wiretap.CodeOf(err); ok {
			return nil, err
		}
		return nil, wiretap.NewError(wiretap.ErrConnection, "error acquiring server list", "", err)
	}

	m := &Manager{
		client:   client,
		products: products,
		conns:    make(map[string]wiretap.Server),
	}
	for _, info := range all {
		if !products.Contains(info.Product) {
			continue
		}
		m.servers = append(m.servers, info)
		m.hostnames = append(m.hostnames, info.Hostname())
	}

	logger.Debug("Discovered %d of %d servers (products: %s)", len(m.servers), len(all), products)
	return m, nil
}

// Hostnames returns the filtered hostnames ("name:Label") in directory order.
func (m *Manager) Hostnames() []string {
	return append([]string(nil), m.hostnames...)
}

// Servers returns the filtered server descriptions in directory order.
func (m *Manager) Servers() []wiretap.ServerInfo {
	return append([]wiretap.ServerInfo(nil), m.servers...)
}

// Products returns the product filter the manager was built with.
func (m *Manager) Products() wiretap.ProductSet {
	return m.products
}

// Has reports whether hostname is one of the filtered hostnames. The match
// is case-sensitive, as Wiretap hostnames are for connecting.
func (m *Manager) Has(hostname string) bool {
	for _, h := range m.hostnames {
		if h == hostname {
			return true
		}
	}
	return false
}

// FixHostnameCase returns the known hostname that equals hostname ignoring
// case. Returns an ErrInvalidHostname error if there is none.
func (m *Manager) FixHostnameCase(hostname string) (string, error) {
	for _, h := range m.hostnames {
		if strings.EqualFold(h, hostname) {
			return h, nil
		}
	}
	return "", wiretap.Errorf(wiretap.ErrInvalidHostname, hostname, "unknown hostname")
}

// GetServer returns the cached handle for hostname, connecting first if
// needed.
//
// Returns an ErrInvalidHostname error if hostname is not among the filtered
// hostnames and an ErrConnection error if the server cannot be reached.
func (m *Manager) GetServer(ctx context.Context, hostname string) (wiretap.Server, error) {
	if !m.Has(hostname) {
		return nil, wiretap.Errorf(wiretap.ErrInvalidHostname, hostname,
			"the hostname and/or its product alias is invalid")
	}

	if srv, ok := m.cached(hostname); ok {
		return srv, nil
	}

	v, err, _ := m.group.Do(hostname, func() (any, error) {
		if srv, ok := m.cached(hostname); ok {
			return srv, nil
		}

		srv, err := m.client.Connect(ctx, hostname)
		if err != nil {
			if _, ok := wiretap.CodeOf(err); ok {
				return nil, err
			}
			return nil, wiretap.NewError(wiretap.ErrConnection, "unable to connect", hostname, err)
		}

		m.mu.Lock()
		m.conns[hostname] = srv
		m.mu.Unlock()

		logger.Info("Connected to %s", hostname)
		return srv, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(wiretap.Server), nil
}

func (m *Manager) cached(hostname string) (wiretap.Server, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	srv, ok := m.conns[hostname]
	return srv, ok
}

// Connected returns the hostnames with a cached handle.
func (m *Manager) Connected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []string
	for _, h := range m.hostnames {
		if _, ok := m.conns[h]; ok {
			out = append(out, h)
		}
	}
	return out
}

// Disconnect forgets the cached handle for hostname. The handle is not
// closed: other components may still hold it. Unknown hostnames are ignored.
func (m *Manager) Disconnect(hostname string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conns[hostname]; ok {
		delete(m.conns, hostname)
		logger.Debug("Forgot connection to %s", hostname)
	}
}

// ProbeResult is the reachability of one host.
type ProbeResult struct {
	Hostname string
	Latency  time.Duration
	Err      error
}

// OK reports whether the host answered.
func (r ProbeResult) OK() bool {
	return r.Err == nil
}

// Probe contacts every filtered host concurrently by reading its root node.
// Results are in hostname order. A host that fails does not fail the probe;
// its error is reported in its result.
func (m *Manager) Probe(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, len(m.hostnames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultProbeConcurrency)

	for i, hostname := range m.hostnames {
		i, hostname := i, hostname
		results[i].Hostname = hostname
		g.Go(func() error {
			start := time.Now()
			srv, err := m.GetServer(gctx, hostname)
			if err == nil {
				_, err = srv.Node(gctx, wiretap.RootID)
			}
			results[i].Latency = time.Since(start)
			results[i].Err = err
			if err != nil {
				logger.Warn("Probe of %s failed: %v", hostname, err)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
