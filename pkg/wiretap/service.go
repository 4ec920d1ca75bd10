package wiretap

import "context"

// Client talks to the Wiretap directory service.
type Client interface {
	// ListServers returns every server the directory service advertises.
	ListServers(ctx context.Context) ([]ServerInfo, error)

	// Connect opens a handle to the server with the given hostname
	// ("name:Product"). Failures carry ErrConnection.
	Connect(ctx context.Context, hostname string) (Server, error)
}

// Server is a handle to one Wiretap server's node hierarchy.
//
// Node IDs are server-scoped. Operations on an unknown ID return an error
// carrying ErrNodeAccess, except the frame operations which use ErrFrameIO.
type Server interface {
	Hostname() string

	// Node returns the node with the given ID. RootID is the HOST node.
	Node(ctx context.Context, id string) (NodeInfo, error)

	// Children lists the direct children of a node in server order.
	Children(ctx context.Context, id string) ([]NodeInfo, error)

	// CreateNode creates a non-clip node under parent.
	CreateNode(ctx context.Context, parent, name string, typ NodeType) (NodeInfo, error)

	// CreateClip creates an empty clip of the given format under parent.
	CreateClip(ctx context.Context, parent, name string, format ClipFormat) (NodeInfo, error)

	// DestroyNode deletes a node and its frames.
	DestroyNode(ctx context.Context, id string) error

	ClipFormat(ctx context.Context, id string) (ClipFormat, error)
	SetClipFormat(ctx context.Context, id string, format ClipFormat) error

	NumFrames(ctx context.Context, id string) (int, error)
	SetNumFrames(ctx context.Context, id string, n int) error

	// ReadFrame fills buf with frame index of clip id and returns the number
	// of bytes read. buf must hold at least the clip's frame buffer size.
	ReadFrame(ctx context.Context, id string, index int, buf []byte) (int, error)

	// WriteFrame stores data as frame index of clip id.
	WriteFrame(ctx context.Context, id string, index int, data []byte) error

	Close() error
}
