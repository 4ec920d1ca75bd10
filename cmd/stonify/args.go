package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/marmos91/stonify/internal/ratelimiter"
	"github.com/marmos91/stonify/pkg/config"
	"github.com/marmos91/stonify/pkg/nodepath"
	"github.com/marmos91/stonify/pkg/transfer"
	"github.com/marmos91/stonify/pkg/wiretap"
)

const usage = `Usage:
  stonify [flags] SOURCE DESTINATION CLIP
  stonify [flags] --shot SOURCE HOST/VOLUME/PROJECT/LIBRARY[/REEL]/CLIP

SOURCE is the node path of the source clip ("host:Product/node/id").
DESTINATION is the node path of the destination library or reel, or its
display path ("host:Product/VOLUME/PROJECT/LIBRARY[/REEL]") with
--display-name.

Flags:
`

// options holds the parsed command line.
type options struct {
	configPath string
	initConfig bool
	force      bool
	logLevel   string

	displayName  bool
	shot         bool
	createParent bool
	overwrite    bool
	frameRate    float64
	start, end   int
	hasRange     bool
	dropMode     string
	timecode     string
	fps          float64
	bandwidth    string
	dashboard    bool

	args []string
}

func newFlagSet(o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("stonify", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}

	fs.StringVarP(&o.configPath, "config", "c", "", "path to the configuration file")
	fs.BoolVar(&o.initConfig, "init-config", false, "write a sample configuration file and exit")
	fs.BoolVar(&o.force, "force", false, "overwrite an existing configuration file with --init-config")
	fs.StringVar(&o.logLevel, "log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")

	fs.BoolVar(&o.displayName, "display-name", false, "DESTINATION is a display path")
	fs.BoolVar(&o.shot, "shot", false, "the second argument is a shot path ending in the clip name")
	fs.BoolVar(&o.createParent, "create-parent", false, "create a missing library or reel on the display path")
	fs.BoolVar(&o.overwrite, "overwrite", false, "delete clips with the same name before copying")
	fs.Float64Var(&o.frameRate, "frame-rate", 0, "frame rate of the new clip (0 keeps the source rate)")
	fs.IntVar(&o.start, "start", 0, "first source frame to copy (requires --end)")
	fs.IntVar(&o.end, "end", 0, "last source frame to copy (requires --start)")
	fs.StringVar(&o.dropMode, "drop-mode", "", "timecode mode written to the clip metadata (DF or NDF)")
	fs.StringVar(&o.timecode, "timecode", "", "source start timecode written to the clip metadata (hh:mm:ss:ff)")
	fs.Float64Var(&o.fps, "fps", 0, "maximum frames copied per second (0 = unlimited)")
	fs.StringVar(&o.bandwidth, "bandwidth", "", "maximum bytes copied per second, e.g. 200MB (empty = unlimited)")
	fs.BoolVar(&o.dashboard, "dashboard", false, "show a terminal dashboard instead of progress lines")

	return fs
}

// parseArgs parses argv (without the program name).
func parseArgs(argv []string) (*options, *flag.FlagSet, error) {
	o := &options{}
	fs := newFlagSet(o)
	if err := fs.Parse(argv); err != nil {
		return nil, fs, err
	}
	o.args = fs.Args()

	// Both ends or neither: a single bound is ambiguous.
	if fs.Changed("start") != fs.Changed("end") {
		fs.Usage()
		return nil, fs, fmt.Errorf("when specifying a frame range, both --start and --end are required")
	}
	o.hasRange = fs.Changed("start")

	if o.initConfig {
		return o, fs, nil
	}

	want := 3
	if o.shot {
		want = 2
	}
	if len(o.args) != want {
		fs.Usage()
		return nil, fs, fmt.Errorf("expected %d arguments, got %d", want, len(o.args))
	}
	return o, fs, nil
}

// buildRequest turns the command line and configuration into a transfer
// request. The hostnames are returned as typed, without case correction.
func buildRequest(o *options, fs *flag.FlagSet, cfg *config.Config) (transfer.Request, error) {
	req := transfer.Request{
		CreateParent:  cfg.Transfer.CreateParent,
		Overwrite:     cfg.Transfer.Overwrite,
		StartTimecode: cfg.Transfer.StartTimecode,
		FrameRate:     o.frameRate,
	}

	dropMode := cfg.Transfer.DropMode
	if fs.Changed("drop-mode") {
		dropMode = o.dropMode
	}
	mode, err := transfer.ParseDropMode(dropMode)
	if err != nil {
		return req, wiretap.NewError(wiretap.ErrFormat, "invalid drop mode", "", err)
	}
	req.DropMode = mode

	if fs.Changed("timecode") {
		req.StartTimecode = o.timecode
	}
	if fs.Changed("create-parent") {
		req.CreateParent = o.createParent
	}
	if fs.Changed("overwrite") {
		req.Overwrite = o.overwrite
	}
	if o.hasRange {
		r := transfer.NewFrameRange(o.start, o.end)
		req.Range = &r
	}

	srcHost, srcID := nodepath.SplitNodePath(o.args[0])
	if _, product := wiretap.SplitHostname(srcHost); product == wiretap.ProductGateway.Label() {
		// Gateway clip IDs are file paths on the gateway host.
		srcID = nodepath.GatewayNodeID(srcID, nodepath.MountMap(cfg.Mounts))
	}
	req.SourceHost, req.SourceClipID = srcHost, srcID

	if o.shot {
		shot, err := nodepath.SplitShotPath(o.args[1])
		if err != nil {
			return req, err
		}
		req.DestinationHost = wiretap.ServerInfo{DisplayName: shot.Host, Product: wiretap.ProductIFFFS}.Hostname()
		req.DestinationParent = shot.Parent
		req.ClipName = shot.Clip
		req.UseDisplayName = true
	} else {
		req.DestinationHost, req.DestinationParent = nodepath.SplitNodePath(o.args[1])
		req.ClipName = o.args[2]
		req.UseDisplayName = o.displayName
	}

	return req, req.Validate()
}

// limits merges the throttle flags over the configured limits.
func limits(o *options, fs *flag.FlagSet, cfg *config.Config) (ratelimiter.Limits, error) {
	l := cfg.Transfer.Limits
	if fs.Changed("fps") {
		if o.fps < 0 {
			return l, fmt.Errorf("--fps must not be negative")
		}
		l.FramesPerSecond = o.fps
	}
	if fs.Changed("bandwidth") {
		if o.bandwidth == "" {
			l.BytesPerSecond = 0
		} else {
			n, err := humanize.ParseBytes(o.bandwidth)
			if err != nil {
				return l, fmt.Errorf("failed to parse --bandwidth: %w", err)
			}
			l.BytesPerSecond = int64(n)
		}
	}
	return l, nil
}
