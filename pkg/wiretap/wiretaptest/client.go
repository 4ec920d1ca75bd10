package wiretaptest

import (
	"context"

	"github.com/marmos91/stonify/pkg/wiretap"
)

// Client is an instrumented wiretap.Client.
type Client struct {
	inner  wiretap.Client
	faults *Faults
}

var _ wiretap.Client = (*Client)(nil)

func (c *Client) ListServers(ctx context.Context) ([]wiretap.ServerInfo, error) {
	if err := c.faults.intercept(Call{Op: OpListServers, Index: -1}); err != nil {
		return nil, err
	}
	return c.inner.ListServers(ctx)
}

func (c *Client) Connect(ctx context.Context, hostname string) (wiretap.Server, error) {
	if err := c.faults.intercept(Call{Op: OpConnect, Hostname: hostname, Index: -1}); err != nil {
		return nil, err
	}

	srv, err := c.inner.Connect(ctx, hostname)
	if err != nil {
		return nil, err
	}
	return &server{inner: srv, faults: c.faults}, nil
}

type server struct {
	inner  wiretap.Server
	faults *Faults
}

func (s *server) call(op Op, id, name string, index int) error {
	return s.faults.intercept(Call{Op: op, Hostname: s.inner.Hostname(), ID: id, Name: name, Index: index})
}

func (s *server) Hostname() string {
	return s.inner.Hostname()
}

func (s *server) Node(ctx context.Context, id string) (wiretap.NodeInfo, error) {
	if err := s.call(OpNode, id, "", -1); err != nil {
		return wiretap.NodeInfo{}, err
	}
	return s.inner.Node(ctx, id)
}

func (s *server) Children(ctx context.Context, id string) ([]wiretap.NodeInfo, error) {
	if err := s.call(OpChildren, id, "", -1); err != nil {
		return nil, err
	}
	return s.inner.Children(ctx, id)
}

func (s *server) CreateNode(ctx context.Context, parent, name string, typ wiretap.NodeType) (wiretap.NodeInfo, error) {
	if err := s.call(OpCreateNode, parent, name, -1); err != nil {
		return wiretap.NodeInfo{}, err
	}
	return s.inner.CreateNode(ctx, parent, name, typ)
}

func (s *server) CreateClip(ctx context.Context, parent, name string, format wiretap.ClipFormat) (wiretap.NodeInfo, error) {
	if err := s.call(OpCreateClip, parent, name, -1); err != nil {
		return wiretap.NodeInfo{}, err
	}
	return s.inner.CreateClip(ctx, parent, name, format)
}

func (s *server) DestroyNode(ctx context.Context, id string) error {
	if err := s.call(OpDestroyNode, id, "", -1); err != nil {
		return err
	}
	return s.inner.DestroyNode(ctx, id)
}

func (s *server) ClipFormat(ctx context.Context, id string) (wiretap.ClipFormat, error) {
	if err := s.call(OpClipFormat, id, "", -1); err != nil {
		return wiretap.ClipFormat{}, err
	}
	return s.inner.ClipFormat(ctx, id)
}

func (s *server) SetClipFormat(ctx context.Context, id string, format wiretap.ClipFormat) error {
	if err := s.call(OpSetFormat, id, "", -1); err != nil {
		return err
	}
	return s.inner.SetClipFormat(ctx, id, format)
}

func (s *server) NumFrames(ctx context.Context, id string) (int, error) {
	if err := s.call(OpNumFrames, id, "", -1); err != nil {
		return 0, err
	}
	return s.inner.NumFrames(ctx, id)
}

func (s *server) SetNumFrames(ctx context.Context, id string, n int) error {
	if err := s.call(OpSetNumFrames, id, "", -1); err != nil {
		return err
	}
	return s.inner.SetNumFrames(ctx, id, n)
}

func (s *server) ReadFrame(ctx context.Context, id string, index int, buf []byte) (int, error) {
	if err := s.call(OpReadFrame, id, "", index); err != nil {
		return 0, err
	}
	return s.inner.ReadFrame(ctx, id, index, buf)
}

func (s *server) WriteFrame(ctx context.Context, id string, index int, data []byte) error {
	if err := s.call(OpWriteFrame, id, "", index); err != nil {
		return err
	}
	return s.inner.WriteFrame(ctx, id, index, data)
}

func (s *server) Close() error {
	return s.inner.Close()
}
