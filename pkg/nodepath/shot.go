package nodepath

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/marmos91/stonify/pkg/wiretap"
)

// ClipSuffix marks a gateway node ID that addresses a media file as a clip.
const ClipSuffix = "@CLIP"

// SourceMedia describes media on disk exposed through a gateway server.
type SourceMedia struct {
	// Dir is the directory holding the media.
	Dir string

	// Name is the file name of a movie or single image. When Head is set the
	// media is an image sequence and Name is ignored.
	Name string

	// Head is the sequence file name before the frame number.
	Head string

	// Padding is the zero-padded width of the frame number.
	Padding int

	// Ext is the sequence extension without the dot.
	Ext string

	Start, End int
}

// IsSequence reports whether the media is an image sequence.
func (m SourceMedia) IsSequence() bool {
	return m.Head != ""
}

// FormatSourcePath builds the gateway node ID of on-disk media. A sequence
// becomes "head[start-end].ext@CLIP" with padded frame numbers, or
// "head<start>.ext@CLIP" when it holds a single frame.
func FormatSourcePath(m SourceMedia, mounts MountMap) string {
	var name string
	if m.IsSequence() {
		frames := strconv.Itoa(m.Start)
		if m.Start != m.End {
			frames = fmt.Sprintf("[%0*d-%0*d]", m.Padding, m.Start, m.Padding, m.End)
		}
		name = m.Head + frames + "." + m.Ext + ClipSuffix
	} else {
		name = m.Name + ClipSuffix
	}

	return GatewayNodeID(Join(m.Dir, name), mounts)
}

// GatewayNodeID normalizes a file path into a gateway node ID. A leading
// "//" is reduced to "/" since gateway node IDs are rooted at the server.
func GatewayNodeID(p string, mounts MountMap) string {
	p = Normalize(p, mounts)
	if strings.HasPrefix(p, "//") {
		p = p[1:]
	}
	return p
}

// ShotPath is a destination decomposed from "host/VOLUME/PROJECT/LIBRARY[/REEL]/CLIP".
type ShotPath struct {
	// Host is the server name without the product suffix.
	Host string

	// Parent is the display path of the clip's parent container, with a
	// leading slash.
	Parent string

	Clip string
}

// SplitShotPath decomposes a shot path into its server, parent container and
// clip name. The parent must name at least a volume, project and library.
func SplitShotPath(shotPath string) (ShotPath, error) {
	parentPath, clip := path.Split(shotPath)
	parentPath = strings.TrimSuffix(parentPath, "/")

	host, parent := SplitNodePath(parentPath)
	host, _ = wiretap.SplitHostname(host)

	if len(Segments(parent)) < 3 {
		return ShotPath{}, wiretap.Errorf(wiretap.ErrInvalidPath, shotPath,
			"clips sent to a stone filesystem require a volume, project, library and optionally a reel node in the parent path")
	}
	return ShotPath{Host: host, Parent: parent, Clip: clip}, nil
}
