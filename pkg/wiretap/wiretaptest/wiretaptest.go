// Package wiretaptest provides an in-process Wiretap deployment for tests.
//
// An Env serves memory-backed servers through the local service and wraps
// every connection so tests can record calls and inject failures:
//
//	env := wiretaptest.NewEnv(t, wiretaptest.Server("mars", wiretap.ProductIFFFS, "stonefs", "show"))
//	env.Faults.Set(wiretaptest.OpWriteFrame, func(c wiretaptest.Call) error {
//	    if c.Index == 4 {
//	        return errors.New("disk full")
//	    }
//	    return nil
//	})
package wiretaptest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/stonify/pkg/registry"
	framememory "github.com/marmos91/stonify/pkg/store/frame/memory"
	nodememory "github.com/marmos91/stonify/pkg/store/node/memory"
	"github.com/marmos91/stonify/pkg/wiretap"
	"github.com/marmos91/stonify/pkg/wiretap/local"
)

// Op names an intercepted operation.
type Op string

const (
	OpListServers  Op = "ListServers"
	OpConnect      Op = "Connect"
	OpNode         Op = "Node"
	OpChildren     Op = "Children"
	OpCreateNode   Op = "CreateNode"
	OpCreateClip   Op = "CreateClip"
	OpDestroyNode  Op = "DestroyNode"
	OpClipFormat   Op = "ClipFormat"
	OpSetFormat    Op = "SetClipFormat"
	OpNumFrames    Op = "NumFrames"
	OpSetNumFrames Op = "SetNumFrames"
	OpReadFrame    Op = "ReadFrame"
	OpWriteFrame   Op = "WriteFrame"
)

// Call is one intercepted operation. Index is -1 for non-frame operations.
type Call struct {
	Op       Op
	Hostname string
	ID       string
	Name     string
	Index    int
}

// Hook decides whether a call fails. A nil return lets the call through.
type Hook func(Call) error

// Faults records calls and holds the hooks of an Env. It is shared by every
// connection the Env hands out.
type Faults struct {
	mu    sync.Mutex
	hooks map[Op]Hook
	calls []Call
}

// Set installs the hook for op, replacing any previous one. A nil hook
// clears it.
func (f *Faults) Set(op Op, hook Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hook == nil {
		delete(f.hooks, op)
		return
	}
	f.hooks[op] = hook
}

// Calls returns the recorded calls, optionally filtered to the given ops.
func (f *Faults) Calls(ops ...Op) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(ops) == 0 {
		return append([]Call(nil), f.calls...)
	}

	var out []Call
	for _, c := range f.calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Count returns the number of recorded calls of op.
func (f *Faults) Count(op Op) int {
	return len(f.Calls(op))
}

// Reset clears recorded calls. Hooks are kept.
func (f *Faults) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Faults) intercept(c Call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	hook := f.hooks[c.Op]
	f.mu.Unlock()

	if hook == nil {
		return nil
	}
	if err := hook(c); err != nil {
		if _, ok := wiretap.CodeOf(err); ok {
			return err
		}
		return wiretap.NewError(codeFor(c.Op), "injected failure", c.ID, err)
	}
	return nil
}

func codeFor(op Op) wiretap.ErrorCode {
	switch op {
	case OpListServers, OpConnect:
		return wiretap.ErrConnection
	case OpClipFormat, OpSetFormat:
		return wiretap.ErrFormat
	case OpReadFrame, OpWriteFrame:
		return wiretap.ErrFrameIO
	default:
		return wiretap.ErrNodeAccess
	}
}

// ServerSpec describes a server to provision in an Env.
type ServerSpec struct {
	Name    string
	Product wiretap.Product
	Volumes []registry.VolumeConfig
}

// Server returns a spec with one volume holding the given projects.
func Server(name string, product wiretap.Product, volume string, projects ...string) ServerSpec {
	spec := ServerSpec{Name: name, Product: product}
	if volume != "" {
		spec.Volumes = []registry.VolumeConfig{{Name: volume, Projects: projects}}
	}
	return spec
}

// Env is an in-process deployment of memory-backed servers.
type Env struct {
	Registry *registry.Registry
	Faults   *Faults
	Client   *Client
}

// NewEnv provisions the given servers, each on its own memory stores.
func NewEnv(t testing.TB, servers ...ServerSpec) *Env {
	t.Helper()
	ctx := context.Background()

	reg := registry.NewRegistry()
	for _, spec := range servers {
		storeName := spec.Name + "-" + spec.Product.Label()
		require.NoError(t, reg.RegisterNodeStore(storeName, nodememory.NewMemoryNodeStore()))
		require.NoError(t, reg.RegisterFrameStore(storeName, framememory.NewMemoryFrameStore()))
		require.NoError(t, reg.AddServer(ctx, &registry.ServerConfig{
			Name:       spec.Name,
			Product:    spec.Product,
			NodeStore:  storeName,
			FrameStore: storeName,
			Volumes:    spec.Volumes,
		}))
	}
	t.Cleanup(func() { _ = reg.Close() })

	faults := &Faults{hooks: make(map[Op]Hook)}
	return &Env{
		Registry: reg,
		Faults:   faults,
		Client:   &Client{inner: local.NewClient(reg), faults: faults},
	}
}

// Direct returns an uninstrumented connection, for seeding and inspecting
// server state without touching the recorded calls.
func (e *Env) Direct(t testing.TB, hostname string) wiretap.Server {
	t.Helper()
	srv, err := local.NewClient(e.Registry).Connect(context.Background(), hostname)
	require.NoError(t, err)
	return srv
}
