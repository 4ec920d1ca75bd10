// Package dashboard draws a terminal view of a running transfer: a progress
// gauge, a sparkline of frames copied per tick and a rolling event log.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mum4k/termdash"
	"github.com/mum4k/termdash/cell"
	"github.com/mum4k/termdash/container"
	"github.com/mum4k/termdash/keyboard"
	"github.com/mum4k/termdash/linestyle"
	"github.com/mum4k/termdash/terminal/tcell"
	"github.com/mum4k/termdash/terminal/terminalapi"
	"github.com/mum4k/termdash/widgets/gauge"
	"github.com/mum4k/termdash/widgets/sparkline"
	"github.com/mum4k/termdash/widgets/text"

	"github.com/marmos91/stonify/pkg/transfer"
)

// DefaultRefresh is how often the dashboard polls the job.
const DefaultRefresh = 250 * time.Millisecond

// Job is the part of a transfer.Job the dashboard watches.
type Job interface {
	PollProgress() (transfer.Progress, bool)
	Done() <-chan struct{}
	Cancel()
}

// Dashboard holds the widgets. Update and Logf may be used without a
// terminal, which is how Run feeds them.
type Dashboard struct {
	title string

	gauge  *gauge.Gauge
	rate   *sparkline.SparkLine
	events *text.Text
	status *text.Text

	last    transfer.Progress
	started time.Time
}

// New creates the widgets for a transfer labelled title.
func New(title string) (*Dashboard, error) {
	g, err := gauge.New(
		gauge.Height(1),
		gauge.Color(cell.ColorGreen),
		gauge.Border(linestyle.Light),
		gauge.BorderTitle(" Frames "),
	)
	if err != nil {
		return nil, err
	}

	sl, err := sparkline.New(
		sparkline.Label("frames/tick"),
		sparkline.Color(cell.ColorBlue),
	)
	if err != nil {
		return nil, err
	}

	events, err := text.New(text.RollContent(), text.WrapAtWords())
	if err != nil {
		return nil, err
	}

	status, err := text.New()
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		title:   title,
		gauge:   g,
		rate:    sl,
		events:  events,
		status:  status,
		started: time.Now(),
	}, nil
}

// Update applies a progress snapshot to the widgets.
func (d *Dashboard) Update(p transfer.Progress) error {
	if p.State != d.last.State && p.State != "" {
		d.Logf("%s", p.State)
	}

	if p.Total > 0 {
		if err := d.gauge.Absolute(min(p.Written, p.Total), p.Total); err != nil {
			return err
		}
	}

	if delta := p.Written - d.last.Written; delta >= 0 {
		if err := d.rate.Add([]int{delta}); err != nil {
			return err
		}
	}

	d.status.Reset()
	if err := d.status.Write(d.statusLine(p)); err != nil {
		return err
	}

	d.last = p
	return nil
}

func (d *Dashboard) statusLine(p transfer.Progress) string {
	elapsed := time.Since(d.started)
	line := fmt.Sprintf("%s  %d/%d frames  %s", p.State, p.Written, p.Total, humanize.Bytes(uint64(p.Bytes)))
	if secs := elapsed.Seconds(); secs > 0 && p.Bytes > 0 {
		line += fmt.Sprintf("  %s/s", humanize.Bytes(uint64(float64(p.Bytes)/secs)))
	}
	return line
}

// Logf appends a timestamped line to the event log.
func (d *Dashboard) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_ = d.events.Write(fmt.Sprintf("%s %s\n", time.Now().Format("15:04:05"), msg))
}

// Last returns the most recent snapshot passed to Update.
func (d *Dashboard) Last() transfer.Progress {
	return d.last
}

func (d *Dashboard) layout(t terminalapi.Terminal) (*container.Container, error) {
	return container.New(
		t,
		container.Border(linestyle.Light),
		container.BorderTitle(" "+d.title+" (q to cancel) "),
		container.SplitHorizontal(
			container.Top(
				container.SplitHorizontal(
					container.Top(container.PlaceWidget(d.gauge)),
					container.Bottom(
						container.Border(linestyle.Light),
						container.PlaceWidget(d.status),
					),
					container.SplitPercent(60),
				),
			),
			container.Bottom(
				container.SplitVertical(
					container.Left(
						container.Border(linestyle.Light),
						container.BorderTitle(" Rate "),
						container.PlaceWidget(d.rate),
					),
					container.Right(
						container.Border(linestyle.Light),
						container.BorderTitle(" Events "),
						container.PlaceWidget(d.events),
					),
				),
			),
			container.SplitPercent(35),
		),
	)
}

// Run takes over the terminal until job ends or ctx is done. Pressing q or
// Esc cancels the job; the dashboard stays up until the job has stopped.
func (d *Dashboard) Run(ctx context.Context, job Job, refresh time.Duration) error {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}

	t, err := tcell.New()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	defer t.Close()

	c, err := d.layout(t)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	quit := func(k *terminalapi.Keyboard) {
		if k.Key == 'q' || k.Key == 'Q' || k.Key == keyboard.KeyEsc {
			d.Logf("cancelling")
			job.Cancel()
		}
	}

	go func() {
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-job.Done():
				if p, ok := job.PollProgress(); ok {
					_ = d.Update(p)
				}
				// Leave the final state on screen for one redraw.
				time.Sleep(refresh)
				cancel()
				return
			case <-ticker.C:
				p, ok := job.PollProgress()
				if !ok {
					p = d.last
				}
				_ = d.Update(p)
			}
		}
	}()

	return termdash.Run(ctx, t, c, termdash.KeyboardSubscriber(quit), termdash.RedrawInterval(refresh))
}
