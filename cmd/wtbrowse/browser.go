package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/marmos91/stonify/pkg/directory"
	"github.com/marmos91/stonify/pkg/nodepath"
	"github.com/marmos91/stonify/pkg/servers"
	"github.com/marmos91/stonify/pkg/transfer"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// browser runs one wtbrowse command against a directory session.
type browser struct {
	mgr    *servers.Manager
	dir    *directory.Directory
	mode   directory.AddressMode
	mounts nodepath.MountMap
	out    io.Writer
}

func newBrowser(mgr *servers.Manager, opts directory.Options, mode directory.AddressMode, mounts nodepath.MountMap, out io.Writer) *browser {
	return &browser{
		mgr:    mgr,
		dir:    directory.New(mgr, opts),
		mode:   mode,
		mounts: mounts,
		out:    out,
	}
}

// hosts prints the servers passing the product filter.
func (b *browser) hosts() error {
	tw := tabwriter.NewWriter(b.out, 0, 4, 2, ' ', 0)
	for _, info := range b.mgr.Servers() {
		fmt.Fprintf(tw, "%s\t%s\n", info.Hostname(), info.Product)
	}
	return tw.Flush()
}

// navigate resolves a hostname-qualified path, fixing the hostname case.
func (b *browser) navigate(ctx context.Context, path string) (*directory.Node, error) {
	segments := nodepath.Segments(path)
	if len(segments) == 0 {
		return nil, wiretap.Errorf(wiretap.ErrInvalidPath, path, "empty node path")
	}
	fixed, err := b.mgr.FixHostnameCase(segments[0])
	if err != nil {
		return nil, err
	}
	path = strings.Replace(path, segments[0], fixed, 1)

	n, complete, err := b.dir.Navigate(ctx, path, b.mode)
	if err != nil {
		return nil, err
	}
	if !complete {
		return nil, wiretap.Errorf(wiretap.ErrInvalidPath, path, "no node matches the path (deepest match: %s)", n.DisplayPath())
	}
	return n, nil
}

// list prints the children of the node at path.
func (b *browser) list(ctx context.Context, path string) error {
	n, err := b.navigate(ctx, path)
	if err != nil {
		return err
	}
	children, err := b.dir.GetChildren(ctx, n)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(b.out, 0, 4, 2, ' ', 0)
	for _, c := range children {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Type(), c.Label(), c.NodePath())
	}
	return tw.Flush()
}

// tree prints the subtree under path down to depth levels. Containers whose
// children fail to load are reported inline and skipped.
func (b *browser) tree(ctx context.Context, path string, depth int) error {
	n, err := b.navigate(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(b.out, "%s [%s]\n", n.DisplayPath(), n.Type())
	return b.walk(ctx, n, 1, depth)
}

func (b *browser) walk(ctx context.Context, n *directory.Node, level, depth int) error {
	if level > depth || !n.IsContainer() {
		return nil
	}
	children, err := b.dir.GetChildren(ctx, n)
	if err != nil {
		fmt.Fprintf(b.out, "%s! %v\n", strings.Repeat("  ", level), err)
		return nil
	}
	for _, c := range children {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(b.out, "%s%s [%s]\n", strings.Repeat("  ", level), c.Label(), c.Type())
		if err := b.walk(ctx, c, level+1, depth); err != nil {
			return err
		}
	}
	return nil
}

// resolve checks that path names a LIBRARY or REEL and prints its node path.
func (b *browser) resolve(ctx context.Context, path string) error {
	n, err := b.dir.ResolveContainer(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(b.out, n.NodePath())
	return nil
}

// mkdir resolves a container display path, creating a missing library and
// reel.
func (b *browser) mkdir(ctx context.Context, path string) error {
	path, err := b.dir.ValidateContainerPath(path)
	if err != nil {
		return err
	}
	hostname, display := nodepath.SplitNodePath(path)

	srv, err := b.mgr.GetServer(ctx, hostname)
	if err != nil {
		return err
	}
	info, err := transfer.ResolveDisplayPath(ctx, srv, display, true)
	if err != nil {
		return err
	}

	fmt.Fprintln(b.out, hostname+info.ID)
	return nil
}

// probe prints the reachability of every host.
func (b *browser) probe(ctx context.Context) error {
	var failed int
	tw := tabwriter.NewWriter(b.out, 0, 4, 2, ' ', 0)
	for _, r := range b.mgr.Probe(ctx) {
		status := "ok"
		if !r.OK() {
			status = r.Err.Error()
			failed++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Hostname, r.Latency.Round(time.Microsecond), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d host(s) unreachable", failed)
	}
	return nil
}

// normalize prints each path in canonical form.
func (b *browser) normalize(paths []string) {
	for _, p := range paths {
		fmt.Fprintln(b.out, nodepath.Normalize(p, b.mounts))
	}
}
