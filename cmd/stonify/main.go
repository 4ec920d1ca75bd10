// Command stonify copies frames from a Wiretap clip into a new clip on a
// Wiretap server, usually a stone filesystem (IFFFS).
//
// The servers are served in-process from the stores named in the
// configuration file. Progress is printed as "Wrote frame N of M." lines,
// one per frame, unless --dashboard is given.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/marmos91/stonify/internal/dashboard"
	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/internal/ratelimiter"
	"github.com/marmos91/stonify/pkg/config"
	"github.com/marmos91/stonify/pkg/servers"
	"github.com/marmos91/stonify/pkg/transfer"
	"github.com/marmos91/stonify/pkg/wiretap"
	"github.com/marmos91/stonify/pkg/wiretap/local"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, transfer.ErrCancelled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}

func run(argv []string) error {
	opts, fs, err := parseArgs(argv)
	if err != nil {
		return err
	}

	if opts.initConfig {
		return initConfig(opts)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.dashboard && cfg.Logging.Output == "stderr" {
		// The dashboard owns the terminal.
		cfg.Logging.Level = "ERROR"
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	req, err := buildRequest(opts, fs, cfg)
	if err != nil {
		return err
	}
	lim, err := limits(opts, fs, cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := config.InitializeMetrics(cfg)
	if m.Server != nil {
		go func() {
			if err := m.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	reg, err := config.InitializeRegistry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = reg.Close() }()

	client := local.NewClient(reg)

	mgr, err := servers.NewManager(ctx, client, wiretap.ProductSet{})
	if err != nil {
		return err
	}
	if req.SourceHost, err = mgr.FixHostnameCase(req.SourceHost); err != nil {
		return err
	}
	if req.DestinationHost, err = mgr.FixHostnameCase(req.DestinationHost); err != nil {
		return err
	}

	jobOpts := transfer.Options{Metrics: m.Transfer}
	if !lim.IsZero() {
		jobOpts.Limiter = ratelimiter.New(lim)
	}
	if !opts.dashboard {
		jobOpts.OnFrame = func(p transfer.Progress) {
			fmt.Printf("Wrote frame %d of %d.\n", p.Written, p.Total)
		}
	}

	job, err := transfer.NewJob(client, req, jobOpts)
	if err != nil {
		return err
	}
	if err := job.Start(ctx); err != nil {
		return err
	}

	if opts.dashboard {
		if err := watch(ctx, job, req); err != nil {
			job.Cancel()
			logger.Error("Dashboard error: %v", err)
		}
	}

	res, err := job.Wait()
	report(res, req.ClipName)
	return err
}

func watch(ctx context.Context, job *transfer.Job, req transfer.Request) error {
	title := fmt.Sprintf("%s%s -> %s%s/%s", req.SourceHost, req.SourceClipID,
		req.DestinationHost, req.DestinationParent, req.ClipName)
	d, err := dashboard.New(title)
	if err != nil {
		return err
	}
	return d.Run(ctx, job, dashboard.DefaultRefresh)
}

// report prints the outcome of a finished job.
func report(res *transfer.Result, clipName string) {
	if res == nil {
		return
	}

	for _, id := range res.Deleted {
		fmt.Printf("Deleted duplicate clip node %q: %s\n", clipName, id)
	}
	if res.Cleanup != nil {
		for _, f := range res.Cleanup.Failed {
			fmt.Fprintf(os.Stderr, "Unable to delete duplicate clip node %q: %s: %v\n", clipName, f.NodeID, f.Err)
		}
	}

	if res.State != transfer.StateCompleted {
		fmt.Fprintf(os.Stderr, "Transfer %s after %d frame(s).\n", res.State, res.Written)
		return
	}

	rate := ""
	if secs := res.Duration.Seconds(); secs > 0 {
		rate = fmt.Sprintf(", %s/s", humanize.Bytes(uint64(float64(res.Bytes)/secs)))
	}
	fmt.Printf("Copied %d frames %s (%s%s) in %s to %s\n",
		res.Written, res.Range, humanize.Bytes(uint64(res.Bytes)), rate,
		res.Duration.Round(time.Millisecond), res.Clip.ID)
}

func initConfig(opts *options) error {
	if opts.configPath != "" {
		if err := config.InitConfigToPath(opts.configPath, opts.force); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", opts.configPath)
		return nil
	}

	path, err := config.InitConfig(opts.force)
	if err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", path)
	return nil
}
