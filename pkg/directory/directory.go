// Package directory caches the node trees of Wiretap servers for browsing.
//
// Trees are loaded lazily, one level per GetChildren call, so browsing a
// large server never walks more of it than the user opens. Each node tracks
// whether its children are Unloaded, Loading or Loaded; a failed load rolls
// the node back to Unloaded.
//
// A Directory is owned by a single browsing session. Its methods must not be
// called concurrently.
package directory

import (
	"context"
	"strings"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/pkg/nodepath"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// Container path bounds: HOST/VOLUME/PROJECT/LIBRARY[/REEL].
const (
	MinContainerSegments = 4
	MaxContainerSegments = 5
)

// ServerSource provides connections by hostname. *servers.Manager
// implements it.
type ServerSource interface {
	Hostnames() []string
	FixHostnameCase(hostname string) (string, error)
	GetServer(ctx context.Context, hostname string) (wiretap.Server, error)
}

// AddressMode selects how Navigate matches path segments.
type AddressMode int

const (
	// ByDisplayName matches the first child with the segment as display
	// name. Display names are not unique.
	ByDisplayName AddressMode = iota

	// ByNodeID matches the child whose ID equals the path walked so far.
	ByNodeID
)

// Options configures a Directory.
type Options struct {
	// ExcludeContent hides clips, setups and other non-container nodes.
	ExcludeContent bool
}

// EventKind identifies a cache change.
type EventKind int

const (
	// EventLoaded: a node's children were fetched.
	EventLoaded EventKind = iota
	// EventLoadFailed: fetching a node's children failed.
	EventLoadFailed
	// EventReset: a node's children were dropped.
	EventReset
	// EventRebuilt: the whole cache was dropped and the hosts re-listed.
	EventRebuilt
)

// Event describes a cache change. Node is nil for EventRebuilt.
type Event struct {
	Kind EventKind
	Node *Node
	Err  error
}

// Observer receives cache change notifications.
type Observer func(Event)

// Directory is a lazily populated cache of node trees, one per server.
type Directory struct {
	source    ServerSource
	opts      Options
	hosts     []*Node
	index     map[Ref]*Node
	observers []Observer
}

// New returns a directory with one unloaded HOST node per hostname of source.
func New(source ServerSource, opts Options) *Directory {
	d := &Directory{source: source, opts: opts}
	d.rebuild()
	return d
}

// Subscribe registers an observer for cache changes.
func (d *Directory) Subscribe(o Observer) {
	d.observers = append(d.observers, o)
}

func (d *Directory) notify(ev Event) {
	for _, o := range d.observers {
		o(ev)
	}
}

func (d *Directory) rebuild() {
	d.hosts = nil
	d.index = make(map[Ref]*Node)

	for _, hostname := range d.source.Hostnames() {
		name, _ := wiretap.SplitHostname(hostname)
		host := &Node{
			hostname: hostname,
			info:     wiretap.NodeInfo{ID: wiretap.RootID, DisplayName: name, Type: wiretap.NodeHost},
		}
		d.hosts = append(d.hosts, host)
		d.index[host.Ref()] = host
	}
}

// Hosts returns the HOST nodes in hostname order.
func (d *Directory) Hosts() []*Node {
	return append([]*Node(nil), d.hosts...)
}

// Host returns the HOST node of hostname.
func (d *Directory) Host(hostname string) (*Node, bool) {
	return d.Lookup(Ref{Hostname: hostname, ID: wiretap.RootID})
}

// Lookup returns a cached node.
func (d *Directory) Lookup(ref Ref) (*Node, bool) {
	n, ok := d.index[ref]
	return n, ok
}

// GetChildren returns the children of n, fetching them from the server if
// they are not cached.
//
// Returns an ErrNodeAccess error if the server cannot list them. The node is
// left Unloaded with no cached children.
func (d *Directory) GetChildren(ctx context.Context, n *Node) ([]*Node, error) {
	if n.state == Loaded {
		return n.Children(), nil
	}

	d.drop(n)
	n.state = Loading

	infos, err := d.fetch(ctx, n)
	if err != nil {
		n.children, n.state = nil, Unloaded
		err = wiretap.NewError(wiretap.ErrNodeAccess, "failed to load children from node path", n.NodePath(), err)
		logger.Warn("%v", err)
		d.notify(Event{Kind: EventLoadFailed, Node: n, Err: err})
		return nil, err
	}

	children := make([]*Node, 0, len(infos))
	for _, info := range infos {
		if d.opts.ExcludeContent && !info.Type.IsContainer() {
			continue
		}
		child := &Node{hostname: n.hostname, info: info, parent: n}
		children = append(children, child)
		d.index[child.Ref()] = child
	}
	n.children, n.state = children, Loaded

	d.notify(Event{Kind: EventLoaded, Node: n})
	return n.Children(), nil
}

func (d *Directory) fetch(ctx context.Context, n *Node) ([]wiretap.NodeInfo, error) {
	srv, err := d.source.GetServer(ctx, n.hostname)
	if err != nil {
		return nil, err
	}
	return srv.Children(ctx, n.info.ID)
}

// ResetChildren drops the cached children of n so the next GetChildren
// fetches them again.
func (d *Directory) ResetChildren(n *Node) {
	d.drop(n)
	n.children, n.state = nil, Unloaded
	d.notify(Event{Kind: EventReset, Node: n})
}

// drop removes the cached descendants of n from the index.
func (d *Directory) drop(n *Node) {
	for _, c := range n.children {
		d.drop(c)
		if d.index[c.Ref()] == c {
			delete(d.index, c.Ref())
		}
	}
}

// Reset drops the whole cache and re-lists the hosts of the source.
func (d *Directory) Reset() {
	d.rebuild()
	d.notify(Event{Kind: EventRebuilt})
}

// Navigate walks a hostname-qualified path ("host/seg/seg"), loading each
// level as needed. Level 0 matches the hostname exactly; deeper levels match
// by display name or node ID depending on mode.
//
// A path with more than one segment that ends in "/" names an unnamed node:
// the trailing empty segment must match a child with an empty display name.
//
// Navigate returns the deepest matched node and whether every segment
// matched. A partial match is not an error; callers must check complete.
// The node is nil if the hostname did not match.
func (d *Directory) Navigate(ctx context.Context, path string, mode AddressMode) (node *Node, complete bool, err error) {
	segments := nodepath.Segments(path)
	if len(segments) > 1 && strings.HasSuffix(path, "/") {
		segments = append(segments, "")
	}
	if len(segments) == 0 {
		return nil, false, nil
	}

	for _, host := range d.hosts {
		if host.hostname == segments[0] {
			node = host
			break
		}
	}
	if node == nil {
		return nil, false, nil
	}

	for depth := 1; depth < len(segments); depth++ {
		children, err := d.GetChildren(ctx, node)
		if err != nil {
			return node, false, err
		}

		next := matchChild(children, segments, depth, mode)
		if next == nil {
			return node, false, nil
		}
		node = next
	}
	return node, true, nil
}

func matchChild(children []*Node, segments []string, depth int, mode AddressMode) *Node {
	if mode == ByNodeID {
		id := "/" + strings.Join(segments[1:depth+1], "/")
		for _, c := range children {
			if c.info.ID == id {
				return c
			}
		}
		return nil
	}

	for _, c := range children {
		if c.info.DisplayName == segments[depth] {
			return c
		}
	}
	return nil
}

// ValidateContainerPath checks that path names a LIBRARY or REEL position:
// HOST/VOLUME/PROJECT/LIBRARY[/REEL]. The hostname is matched against the
// known hostnames ignoring case, and the returned path carries its
// canonical spelling. No server is contacted.
//
// Returns ErrInvalidHostname for an unknown hostname and ErrInvalidPath for
// a path with the wrong number of segments.
func (d *Directory) ValidateContainerPath(path string) (string, error) {
	segments := nodepath.Segments(path)
	if len(segments) == 0 {
		return "", wiretap.Errorf(wiretap.ErrInvalidPath, path, "empty node path")
	}

	hostname := segments[0]
	fixed, err := d.source.FixHostnameCase(hostname)
	if err != nil {
		return "", err
	}
	if fixed != hostname {
		path = strings.Replace(path, hostname, fixed, 1)
	}

	if len(segments) < MinContainerSegments || len(segments) > MaxContainerSegments {
		return path, wiretap.Errorf(wiretap.ErrInvalidPath, path,
			"expected %d to %d segments (HOST/VOLUME/PROJECT/LIBRARY[/REEL]), got %d",
			MinContainerSegments, MaxContainerSegments, len(segments))
	}
	return path, nil
}

// ResolveContainer validates path, navigates to it by display name and
// checks that it ends at a LIBRARY or REEL.
func (d *Directory) ResolveContainer(ctx context.Context, path string) (*Node, error) {
	path, err := d.ValidateContainerPath(path)
	if err != nil {
		return nil, err
	}

	n, complete, err := d.Navigate(ctx, path, ByDisplayName)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, wiretap.Errorf(wiretap.ErrInvalidPath, path, "no node matches the display path")
	}
	if !n.IsClipContainer() {
		return nil, wiretap.Errorf(wiretap.ErrInvalidPath, path, "a %s node cannot hold clips", n.Type())
	}
	return n, nil
}
