// Package local serves the Wiretap contract from the stores of a registry.
//
// It stands in for a remote Wiretap deployment: the browser and the frame
// copier talk to it through the same wiretap.Client and wiretap.Server
// interfaces they would use against real servers. Store errors are
// translated into the wiretap error taxonomy so callers see the same codes
// either way.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/pkg/registry"
	"github.com/marmos91/stonify/pkg/store/frame"
	"github.com/marmos91/stonify/pkg/store/node"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// Client is the directory service of a registry.
type Client struct {
	reg *registry.Registry
}

// NewClient returns a client over the servers of reg.
func NewClient(reg *registry.Registry) *Client {
	return &Client{reg: reg}
}

var _ wiretap.Client = (*Client)(nil)

func (c *Client) ListServers(ctx context.Context) ([]wiretap.ServerInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, wiretap.NewError(wiretap.ErrConnection, "directory service unavailable", "", err)
	}
	return c.reg.ListServers(), nil
}

func (c *Client) Connect(ctx context.Context, hostname string) (wiretap.Server, error) {
	if err := ctx.Err(); err != nil {
		return nil, wiretap.NewError(wiretap.ErrConnection, "unable to connect", hostname, err)
	}

	srv, err := c.reg.GetServer(hostname)
	if err != nil {
		return nil, wiretap.NewError(wiretap.ErrConnection, "unable to connect", hostname, err)
	}

	logger.Debug("Opened connection to %s", hostname)
	return &Server{backend: srv}, nil
}

// Server is a handle to one registry server.
type Server struct {
	backend *registry.Server
	closed  atomic.Bool
}

var _ wiretap.Server = (*Server)(nil)

func (s *Server) Hostname() string {
	return s.backend.Hostname()
}

func (s *Server) Node(ctx context.Context, id string) (wiretap.NodeInfo, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return wiretap.NodeInfo{}, err
	}
	return rec.Info(), nil
}

func (s *Server) Children(ctx context.Context, id string) ([]wiretap.NodeInfo, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	recs, err := s.backend.Nodes.Children(ctx, id)
	if err != nil {
		return nil, translate(err, wiretap.ErrNodeAccess, "unable to list children", id)
	}

	infos := make([]wiretap.NodeInfo, len(recs))
	for i, rec := range recs {
		infos[i] = rec.Info()
	}
	return infos, nil
}

// CreateNode creates a LIBRARY, REEL, SETUP or extended-type node. HOST,
// VOLUME and PROJECT nodes are provisioned by the registry and CLIP nodes by
// CreateClip.
func (s *Server) CreateNode(ctx context.Context, parent, name string, typ wiretap.NodeType) (wiretap.NodeInfo, error) {
	if err := registry.ValidateNodeName(name); err != nil {
		return wiretap.NodeInfo{}, wiretap.NewError(wiretap.ErrNodeAccess, "unable to create node", parent, err)
	}

	parentRec, err := s.get(ctx, parent)
	if err != nil {
		return wiretap.NodeInfo{}, err
	}
	if err := checkPlacement(parentRec.Type, typ); err != nil {
		return wiretap.NodeInfo{}, wiretap.NewError(wiretap.ErrNodeAccess, "unable to create node", parent, err)
	}

	rec := &node.Record{ID: newChildID(parent), Parent: parent, Name: name, Type: typ}
	if err := s.backend.Nodes.Create(ctx, rec); err != nil {
		return wiretap.NodeInfo{}, translate(err, wiretap.ErrNodeAccess, "unable to create node", parent)
	}

	logger.Debug("Created %s node %q (%s) on %s", typ, name, rec.ID, s.Hostname())
	return rec.Info(), nil
}

// CreateClip creates an empty clip under a LIBRARY or REEL. A zero
// FrameBufferSize is derived from the frame size and depth.
func (s *Server) CreateClip(ctx context.Context, parent, name string, format wiretap.ClipFormat) (wiretap.NodeInfo, error) {
	if err := registry.ValidateNodeName(name); err != nil {
		return wiretap.NodeInfo{}, wiretap.NewError(wiretap.ErrNodeAccess, "unable to create clip", parent, err)
	}

	parentRec, err := s.get(ctx, parent)
	if err != nil {
		return wiretap.NodeInfo{}, err
	}
	if !parentRec.Type.IsClipContainer() {
		return wiretap.NodeInfo{}, wiretap.Errorf(wiretap.ErrNodeAccess, parent,
			"a %s node cannot hold clips", parentRec.Type)
	}

	format, err = prepareFormat(format)
	if err != nil {
		return wiretap.NodeInfo{}, wiretap.NewError(wiretap.ErrFormat, "invalid clip format", parent, err)
	}

	rec := &node.Record{
		ID:     newChildID(parent),
		Parent: parent,
		Name:   name,
		Type:   wiretap.NodeClip,
		Format: &format,
	}
	if err := s.backend.Nodes.Create(ctx, rec); err != nil {
		return wiretap.NodeInfo{}, translate(err, wiretap.ErrNodeAccess, "unable to create clip", parent)
	}

	logger.Debug("Created clip %q (%s) %dx%d on %s", name, rec.ID, format.Width, format.Height, s.Hostname())
	return rec.Info(), nil
}

// DestroyNode deletes an empty node. Deleting a clip also deletes its frames.
func (s *Server) DestroyNode(ctx context.Context, id string) error {
	if id == wiretap.RootID {
		return wiretap.Errorf(wiretap.ErrNodeAccess, id, "the root node cannot be destroyed")
	}

	rec, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if rec.Type == wiretap.NodeClip {
		if err := s.backend.Frames.DeleteClip(ctx, id); err != nil {
			return wiretap.NewError(wiretap.ErrNodeAccess, "unable to delete frames", id, err)
		}
	}

	if err := s.backend.Nodes.Delete(ctx, id); err != nil {
		return translate(err, wiretap.ErrNodeAccess, "unable to destroy node", id)
	}

	logger.Debug("Destroyed %s node %q (%s) on %s", rec.Type, rec.Name, id, s.Hostname())
	return nil
}

func (s *Server) ClipFormat(ctx context.Context, id string) (wiretap.ClipFormat, error) {
	rec, err := s.clip(ctx, id, wiretap.ErrFormat)
	if err != nil {
		return wiretap.ClipFormat{}, err
	}
	return *rec.Format, nil
}

func (s *Server) SetClipFormat(ctx context.Context, id string, format wiretap.ClipFormat) error {
	rec, err := s.clip(ctx, id, wiretap.ErrFormat)
	if err != nil {
		return err
	}

	format, err = prepareFormat(format)
	if err != nil {
		return wiretap.NewError(wiretap.ErrFormat, "invalid clip format", id, err)
	}

	rec.Format = &format
	if err := s.backend.Nodes.Update(ctx, rec); err != nil {
		return translate(err, wiretap.ErrFormat, "unable to set clip format", id)
	}
	return nil
}

func (s *Server) NumFrames(ctx context.Context, id string) (int, error) {
	rec, err := s.clip(ctx, id, wiretap.ErrNodeAccess)
	if err != nil {
		return 0, err
	}
	return rec.NumFrames, nil
}

func (s *Server) SetNumFrames(ctx context.Context, id string, n int) error {
	if n < 0 {
		return wiretap.Errorf(wiretap.ErrNodeAccess, id, "invalid frame count %d", n)
	}

	rec, err := s.clip(ctx, id, wiretap.ErrNodeAccess)
	if err != nil {
		return err
	}

	rec.NumFrames = n
	if err := s.backend.Nodes.Update(ctx, rec); err != nil {
		return translate(err, wiretap.ErrNodeAccess, "unable to set frame count", id)
	}
	return nil
}

func (s *Server) ReadFrame(ctx context.Context, id string, index int, buf []byte) (int, error) {
	rec, err := s.frameClip(ctx, id, index)
	if err != nil {
		return 0, err
	}
	if len(buf) < rec.Format.FrameBufferSize {
		return 0, wiretap.Errorf(wiretap.ErrFrameIO, id,
			"buffer of %d bytes is smaller than the frame buffer size %d", len(buf), rec.Format.FrameBufferSize)
	}

	data, err := s.backend.Frames.ReadFrame(ctx, id, index)
	if errors.Is(err, frame.ErrFrameNotFound) {
		return 0, wiretap.NewError(wiretap.ErrFrameIO, "frame was never written", id, err)
	}
	if err != nil {
		return 0, wiretap.NewError(wiretap.ErrFrameIO, "unable to read frame", id, err)
	}
	return copy(buf, data), nil
}

// WriteFrame stores the first FrameBufferSize bytes of data.
func (s *Server) WriteFrame(ctx context.Context, id string, index int, data []byte) error {
	rec, err := s.frameClip(ctx, id, index)
	if err != nil {
		return err
	}

	size := rec.Format.FrameBufferSize
	if len(data) < size {
		return wiretap.Errorf(wiretap.ErrFrameIO, id,
			"frame %d has %d bytes, expected %d", index, len(data), size)
	}

	if err := s.backend.Frames.WriteFrame(ctx, id, index, data[:size]); err != nil {
		return wiretap.NewError(wiretap.ErrFrameIO, "unable to write frame", id, err)
	}
	return nil
}

// Close invalidates the handle. The registry server and its stores stay
// open for other handles.
func (s *Server) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Server) check(ctx context.Context) error {
	if s.closed.Load() {
		return wiretap.Errorf(wiretap.ErrConnection, s.Hostname(), "connection closed")
	}
	if err := ctx.Err(); err != nil {
		return wiretap.NewError(wiretap.ErrConnection, "request aborted", s.Hostname(), err)
	}
	return nil
}

func (s *Server) get(ctx context.Context, id string) (*node.Record, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	rec, err := s.backend.Nodes.Get(ctx, id)
	if err != nil {
		return nil, translate(err, wiretap.ErrNodeAccess, "unable to get node", id)
	}
	return rec, nil
}

// clip returns the record of a clip node, failing with code for other types.
func (s *Server) clip(ctx context.Context, id string, code wiretap.ErrorCode) (*node.Record, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Type != wiretap.NodeClip || rec.Format == nil {
		return nil, wiretap.Errorf(code, id, "%s node is not a clip", rec.Type)
	}
	return rec, nil
}

func (s *Server) frameClip(ctx context.Context, id string, index int) (*node.Record, error) {
	rec, err := s.clip(ctx, id, wiretap.ErrFrameIO)
	if err != nil {
		if wiretap.IsCode(err, wiretap.ErrConnection) {
			return nil, err
		}
		return nil, wiretap.NewError(wiretap.ErrFrameIO, "unable to access clip", id, err)
	}
	if index < 0 || index >= rec.NumFrames {
		return nil, wiretap.Errorf(wiretap.ErrFrameIO, id,
			"frame %d out of range [0, %d)", index, rec.NumFrames)
	}
	return rec, nil
}

// checkPlacement enforces which node types CreateNode may add under a parent.
func checkPlacement(parent, child wiretap.NodeType) error {
	var ok bool
	switch child {
	case wiretap.NodeHost, wiretap.NodeVolume, wiretap.NodeProject:
		return fmt.Errorf("%s nodes are provisioned by the server configuration", child)
	case wiretap.NodeClip:
		return fmt.Errorf("clips must be created with a clip format")
	case wiretap.NodeLibrary:
		ok = parent == wiretap.NodeProject
	case wiretap.NodeReel:
		ok = parent == wiretap.NodeLibrary
	case wiretap.NodeSetup:
		ok = parent == wiretap.NodeProject || parent == wiretap.NodeLibrary
	case "":
		return fmt.Errorf("node type is required")
	default:
		ok = parent.IsContainer()
	}
	if !ok {
		return fmt.Errorf("a %s node cannot hold %s nodes", parent, child)
	}
	return nil
}

func prepareFormat(format wiretap.ClipFormat) (wiretap.ClipFormat, error) {
	if err := format.Validate(); err != nil {
		return format, err
	}
	if format.PixelRatio <= 0 {
		format.PixelRatio = wiretap.DefaultPixelRatio
	}
	if format.ScanFormat == "" {
		format.ScanFormat = wiretap.ScanProgressive
	}
	if format.FrameBufferSize <= 0 {
		format.FrameBufferSize = format.ComputeFrameBufferSize()
	}
	return format, nil
}

// newChildID returns "<parent>/<16 hex chars>".
func newChildID(parent string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return registry.NamedChildID(parent, id)
}

// translate maps a store error onto the wiretap taxonomy.
func translate(err error, code wiretap.ErrorCode, message, id string) error {
	if wiretap.IsCode(err, wiretap.ErrConnection) {
		return err
	}
	switch {
	case node.IsCode(err, node.ErrNotFound):
		message = "node not found"
	case node.IsCode(err, node.ErrNotEmpty):
		message = "node has children"
	case node.IsCode(err, node.ErrAlreadyExists):
		message = "node already exists"
	}
	return wiretap.NewError(code, message, id, err)
}
