package directory

import (
	"strings"

	"github.com/marmos91/stonify/pkg/wiretap"
)

// LoadState tracks whether a node's children are cached.
type LoadState int

const (
	Unloaded LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// maxDisplayDepth caps the walk up to the HOST node when building display
// paths. IFFFS hierarchies are rarely deeper than 7 nodes.
const maxDisplayDepth = 10

// Ref addresses a node on a specific server.
type Ref struct {
	Hostname string
	ID       string
}

func (r Ref) String() string {
	return r.Hostname + r.ID
}

// Node is a cached remote node.
type Node struct {
	hostname string
	info     wiretap.NodeInfo
	parent   *Node
	children []*Node
	state    LoadState
}

func (n *Node) Ref() Ref               { return Ref{Hostname: n.hostname, ID: n.info.ID} }
func (n *Node) Hostname() string       { return n.hostname }
func (n *Node) ID() string             { return n.info.ID }
func (n *Node) DisplayName() string    { return n.info.DisplayName }
func (n *Node) Type() wiretap.NodeType { return n.info.Type }
func (n *Node) Info() wiretap.NodeInfo { return n.info }
func (n *Node) Parent() *Node          { return n.parent }
func (n *Node) State() LoadState       { return n.state }
func (n *Node) IsContainer() bool      { return n.info.Type.IsContainer() }
func (n *Node) IsClipContainer() bool  { return n.info.Type.IsClipContainer() }
func (n *Node) String() string         { return n.NodePath() }

// Children returns the cached children. Use State to tell an empty node
// from one that is not loaded.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// Label returns the text shown for the node. Unnamed reels and clips have an
// empty display name.
func (n *Node) Label() string {
	if n.info.DisplayName == "" {
		return "Unnamed"
	}
	return n.info.DisplayName
}

// DisplayPath returns the hostname followed by the display names from the
// HOST node down to n, e.g. "mars:IFFFS/stonefs/show/dailies".
func (n *Node) DisplayPath() string {
	var names []string
	cur := n
	for depth := 0; cur != nil && cur.info.Type != wiretap.NodeHost && depth < maxDisplayDepth; depth++ {
		names = append(names, cur.info.DisplayName)
		cur = cur.parent
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return n.hostname + "/" + strings.Join(names, "/")
}

// NodePath returns the hostname followed by the node ID, e.g.
// "mars:IFFFS/stonefs/show/6f1c2a9b0d3e4f51".
func (n *Node) NodePath() string {
	return n.hostname + n.info.ID
}
