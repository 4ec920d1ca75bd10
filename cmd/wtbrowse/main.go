// Command wtbrowse browses the node trees of the configured Wiretap servers.
//
//	wtbrowse hosts
//	wtbrowse ls mars:IFFFS/stonefs/show
//	wtbrowse tree --depth 3 mars:IFFFS/stonefs
//	wtbrowse resolve mars:IFFFS/stonefs/show/dailies
//	wtbrowse mkdir mars:IFFFS/stonefs/show/dailies/reel_1
//	wtbrowse probe
//	wtbrowse normalize 'C:\media\shot_010'
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/pkg/config"
	"github.com/marmos91/stonify/pkg/directory"
	"github.com/marmos91/stonify/pkg/nodepath"
	"github.com/marmos91/stonify/pkg/servers"
	"github.com/marmos91/stonify/pkg/wiretap"
	"github.com/marmos91/stonify/pkg/wiretap/local"
)

const usage = `Usage: wtbrowse [flags] COMMAND [PATH...]

Commands:
  hosts             list the servers passing the product filter
  ls PATH           list the children of a node
  tree PATH         print the subtree under a node (see --depth)
  resolve PATH      check that a display path names a library or reel
  mkdir PATH        create a missing library and reel on a display path
  probe             check that every server answers
  normalize PATH... print paths in canonical form, applying mounts

PATH starts with a hostname ("name:Product"). Segments are display names
unless --node-id is given.

Flags:
`

var (
	configPath     = flag.StringP("config", "c", "", "path to the configuration file")
	logLevel       = flag.String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")
	products       = flag.StringSlice("products", nil, "only show servers of these products (default from config)")
	excludeContent = flag.Bool("exclude-content", false, "hide clips and other non-container nodes")
	byNodeID       = flag.Bool("node-id", false, "match path segments against node IDs")
	depth          = flag.Int("depth", 2, "levels printed by tree")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}
	cmd, paths := args[0], args[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	mounts := nodepath.MountMap(cfg.Mounts)
	if cmd == "normalize" {
		(&browser{mounts: mounts, out: os.Stdout}).normalize(paths)
		return nil
	}

	names := cfg.Browser.Products
	if flag.CommandLine.Changed("products") {
		names = *products
	}
	set, err := wiretap.ParseProductSet(names)
	if err != nil {
		return err
	}

	opts := directory.Options{ExcludeContent: cfg.Browser.ExcludeContent}
	if flag.CommandLine.Changed("exclude-content") {
		opts.ExcludeContent = *excludeContent
	}
	mode := directory.ByDisplayName
	if *byNodeID {
		mode = directory.ByNodeID
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := config.InitializeRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	mgr, err := servers.NewManager(ctx, local.NewClient(reg), set)
	if err != nil {
		return err
	}
	b := newBrowser(mgr, opts, mode, mounts, os.Stdout)

	switch cmd {
	case "hosts":
		return b.hosts()
	case "probe":
		return b.probe(ctx)
	case "ls", "tree", "resolve", "mkdir":
		if len(paths) != 1 {
			return fmt.Errorf("%s takes exactly one path", cmd)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	switch cmd {
	case "ls":
		return b.list(ctx, paths[0])
	case "tree":
		return b.tree(ctx, paths[0], *depth)
	case "resolve":
		return b.resolve(ctx, paths[0])
	default:
		return b.mkdir(ctx, paths[0])
	}
}
