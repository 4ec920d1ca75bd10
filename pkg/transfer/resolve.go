package transfer

import (
	"context"
	"strings"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/pkg/nodepath"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// Destination display path bounds: VOLUME/PROJECT/LIBRARY[/REEL].
const (
	MinDisplaySegments = 3
	MaxDisplaySegments = 4
)

// containerTypes is the node type at each display path depth.
var containerTypes = []wiretap.NodeType{
	wiretap.NodeVolume,
	wiretap.NodeProject,
	wiretap.NodeLibrary,
	wiretap.NodeReel,
}

// ResolveDisplayPath returns the node a destination display path names.
//
// The path is walked by display name, first match per level. If it does not
// resolve and create is set, missing LIBRARY and REEL nodes are created
// under the existing VOLUME and PROJECT. Volumes and projects are never
// created. Existing nodes with the right name and type are reused, so
// resolving the same path twice creates nothing the second time.
//
// Returns ErrInvalidPath for a path with the wrong number of segments, or
// that does not resolve when create is not set.
func ResolveDisplayPath(ctx context.Context, srv wiretap.Server, displayPath string, create bool) (wiretap.NodeInfo, error) {
	segments := nodepath.Segments(displayPath)
	if len(segments) < MinDisplaySegments || len(segments) > MaxDisplaySegments {
		return wiretap.NodeInfo{}, wiretap.Errorf(wiretap.ErrInvalidPath, displayPath,
			"the display path must include a library and optionally a reel, but not a clip name")
	}

	info, ok, err := walkDisplayPath(ctx, srv, segments)
	if err != nil {
		return wiretap.NodeInfo{}, err
	}
	if ok && info.Type.IsClipContainer() {
		return info, nil
	}
	if !create {
		if ok {
			return wiretap.NodeInfo{}, wiretap.Errorf(wiretap.ErrInvalidPath, displayPath,
				"a %s node cannot hold clips", info.Type)
		}
		return wiretap.NodeInfo{}, wiretap.Errorf(wiretap.ErrInvalidPath, displayPath,
			"there is no existing node that matches the display path")
	}
	return createContainers(ctx, srv, segments)
}

// walkDisplayPath matches each segment against the first child with that
// display name.
func walkDisplayPath(ctx context.Context, srv wiretap.Server, segments []string) (wiretap.NodeInfo, bool, error) {
	current := wiretap.NodeInfo{ID: wiretap.RootID, Type: wiretap.NodeHost}
	for _, seg := range segments {
		child, ok, err := findChild(ctx, srv, current.ID, seg, "")
		if err != nil || !ok {
			return current, false, err
		}
		current = child
	}
	return current, true, nil
}

// createContainers walks segments, creating the LIBRARY and REEL levels that
// do not exist.
func createContainers(ctx context.Context, srv wiretap.Server, segments []string) (wiretap.NodeInfo, error) {
	current := wiretap.NodeInfo{ID: wiretap.RootID, Type: wiretap.NodeHost}

	for depth, seg := range segments {
		typ := containerTypes[depth]

		child, ok, err := findChild(ctx, srv, current.ID, seg, typ)
		if err != nil {
			return wiretap.NodeInfo{}, err
		}
		if ok {
			current = child
			continue
		}

		if typ == wiretap.NodeVolume || typ == wiretap.NodeProject {
			return wiretap.NodeInfo{}, wiretap.Errorf(wiretap.ErrNodeAccess,
				"/"+strings.Join(segments[:depth+1], "/"),
				"%s %q does not exist and will not be created", strings.ToLower(string(typ)), seg)
		}

		created, err := srv.CreateNode(ctx, current.ID, seg, typ)
		if err != nil {
			return wiretap.NodeInfo{}, wrap(err, wiretap.ErrNodeAccess, "unable to create "+string(typ)+" node",
				"/"+strings.Join(segments[:depth+1], "/"))
		}
		logger.Info("Created a %s node %q at %s%s", typ, seg, srv.Hostname(), current.ID)
		current = created
	}
	return current, nil
}

// findChild returns the first child of parent with the given display name
// and, if typ is set, type.
func findChild(ctx context.Context, srv wiretap.Server, parent, name string, typ wiretap.NodeType) (wiretap.NodeInfo, bool, error) {
	children, err := srv.Children(ctx, parent)
	if err != nil {
		return wiretap.NodeInfo{}, false, wrap(err, wiretap.ErrNodeAccess, "unable to list children", parent)
	}
	for _, c := range children {
		if c.DisplayName == name && (typ == "" || c.Type == typ) {
			return c, true, nil
		}
	}
	return wiretap.NodeInfo{}, false, nil
}

// DeleteDuplicateClips destroys every clip directly under parent whose
// display name is name. Display names are not unique, so all matches are
// deleted.
//
// It returns the IDs that were deleted. A failure to list parent is
// returned as an ErrNodeAccess error; failures to delete individual clips
// are collected into a *wiretap.PartialCleanupError.
func DeleteDuplicateClips(ctx context.Context, srv wiretap.Server, parent, name string) ([]string, error) {
	children, err := srv.Children(ctx, parent)
	if err != nil {
		return nil, wrap(err, wiretap.ErrNodeAccess, "unable to list children", parent)
	}

	var deleted []string
	var failed []wiretap.CleanupFailure
	for _, c := range children {
		if c.Type != wiretap.NodeClip || c.DisplayName != name {
			continue
		}
		if err := srv.DestroyNode(ctx, c.ID); err != nil {
			logger.Warn("Unable to delete duplicate clip node %q: %s: %v", name, c.ID, err)
			failed = append(failed, wiretap.CleanupFailure{NodeID: c.ID, Err: err})
			continue
		}
		logger.Info("Deleted duplicate clip node %q: %s", name, c.ID)
		deleted = append(deleted, c.ID)
	}

	if len(failed) > 0 {
		return deleted, &wiretap.PartialCleanupError{Parent: parent, Name: name, Failed: failed}
	}
	return deleted, nil
}

// wrap gives err a taxonomy code unless it already carries one.
func wrap(err error, code wiretap.ErrorCode, message, path string) error {
	if _, ok := wiretap.CodeOf(err); ok {
		return err
	}
	return wiretap.NewError(code, message, path, err)
}
