// Package transfer copies a range of frames from one Wiretap clip into a new
// clip on another server.
//
// A Job moves through Initializing, FormatResolved, DestinationReady and
// Transferring before ending Completed, Failed or Cancelled. Frames are
// copied one at a time: reads and writes share one network channel per
// server, so concurrent requests would not go faster. A frame error fails
// the whole job; frames already written stay in place. Cancel is checked
// between frames and never interrupts one in flight.
//
// Overwriting deletes same-named clips before the new clip is created. The
// Wiretap API has no transactions, so a job that dies between the two can
// leave the destination without a clip of that name.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/stonify/internal/logger"
	"github.com/marmos91/stonify/internal/ratelimiter"
	"github.com/marmos91/stonify/pkg/metrics"
	"github.com/marmos91/stonify/pkg/wiretap"
)

// ErrCancelled is returned by Wait for a cancelled job.
var ErrCancelled = errors.New("transfer cancelled")

// Connector opens server connections. wiretap.Client implements it.
type Connector interface {
	Connect(ctx context.Context, hostname string) (wiretap.Server, error)
}

// FrameRange is an inclusive, zero-based frame range.
type FrameRange struct {
	Start int
	End   int
}

// NewFrameRange orders a and b so that Start <= End.
func NewFrameRange(a, b int) FrameRange {
	return FrameRange{Start: min(a, b), End: max(a, b)}
}

// Len returns the number of frames in the range.
func (r FrameRange) Len() int {
	return r.End - r.Start + 1
}

func (r FrameRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// Request describes one copy.
type Request struct {
	SourceHost   string
	SourceClipID string

	DestinationHost string

	// DestinationParent is a node ID, or a VOLUME/PROJECT/LIBRARY[/REEL]
	// display path when UseDisplayName is set.
	DestinationParent string
	ClipName          string
	UseDisplayName    bool

	// CreateParent creates a missing LIBRARY or REEL on the display path.
	CreateParent bool

	// Overwrite deletes existing clips named ClipName under the parent.
	Overwrite bool

	// Range limits the copy. Nil copies every source frame.
	Range *FrameRange

	FrameRate     float64
	DropMode      DropMode
	StartTimecode string
}

// Validate checks the request before any server is contacted.
func (r *Request) Validate() error {
	switch {
	case r.SourceHost == "" || r.SourceClipID == "":
		return wiretap.Errorf(wiretap.ErrInvalidPath, r.SourceHost+r.SourceClipID, "source host and clip are required")
	case r.DestinationHost == "" || r.DestinationParent == "":
		return wiretap.Errorf(wiretap.ErrInvalidPath, r.DestinationHost+r.DestinationParent, "destination host and parent are required")
	case r.Range != nil && (r.Range.Start < 0 || r.Range.End < 0):
		return wiretap.Errorf(wiretap.ErrEmptyRange, "", "negative frame range %s", r.Range)
	case r.FrameRate < 0:
		return wiretap.Errorf(wiretap.ErrFormat, "", "invalid frame rate %g", r.FrameRate)
	}
	if r.StartTimecode != "" {
		if err := ValidateTimecode(r.StartTimecode); err != nil {
			return wiretap.NewError(wiretap.ErrFormat, "invalid start timecode", "", err)
		}
	}
	return nil
}

// Progress is a snapshot of a running job. Written reaches Total only
// together with StateCompleted: the last frame is published with the state
// change.
type Progress struct {
	State   State
	Written int // frames written so far
	Total   int
	Bytes   int64
}

// Fraction returns Written/Total, or 0 before the total is known.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Written) / float64(p.Total)
}

// Result is the outcome of a finished job.
type Result struct {
	State    State
	Range    FrameRange
	Written  int
	Bytes    int64
	Duration time.Duration

	// Parent is the resolved destination parent ID and Clip the created
	// clip. Clip is zero if the job failed before creating it.
	Parent string
	Clip   wiretap.NodeInfo

	// Deleted lists the duplicate clips removed by an overwrite. Cleanup
	// reports the ones that could not be removed; it does not fail the job.
	Deleted []string
	Cleanup *wiretap.PartialCleanupError

	Err error
}

// Options configures a Job. Every field is optional.
type Options struct {
	Metrics metrics.TransferMetrics

	// Limiter throttles frame copies. Nil copies as fast as possible.
	Limiter *ratelimiter.RateLimiter

	// OnStateChange is called on every transition from the job goroutine.
	OnStateChange func(from, to State)

	// OnFrame is called after each written frame from the job goroutine.
	// Calling Cancel from it stops the job before the next frame.
	OnFrame func(Progress)
}

// Job is one frame copy.
type Job struct {
	req     Request
	client  Connector
	opts    Options
	metrics metrics.TransferMetrics

	mu       sync.Mutex
	state    State
	progress Progress
	result   *Result
	started  bool

	updates chan Progress
	cancel  context.CancelFunc
	stop    chan struct{}
	stopped sync.Once
	done    chan struct{}
}

// NewJob validates req and returns a job ready to Start.
func NewJob(client Connector, req Request, opts Options) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Range != nil {
		r := NewFrameRange(req.Range.Start, req.Range.End)
		req.Range = &r
	}

	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoopTransferMetrics()
	}

	return &Job{
		req:     req,
		client:  client,
		opts:    opts,
		metrics: m,
		state:   StateInitializing,
		updates: make(chan Progress, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Start runs the job in its own goroutine. ctx bounds the job: cancelling
// it has the same effect as Cancel.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.started {
		j.mu.Unlock()
		return fmt.Errorf("transfer already started")
	}
	j.started = true
	ctx, j.cancel = context.WithCancel(ctx)
	j.mu.Unlock()

	j.metrics.SetActiveJobs(1)
	go j.run(ctx)
	return nil
}

// Cancel asks the job to stop at the next frame boundary. It does not wait.
func (j *Job) Cancel() {
	j.stopped.Do(func() { close(j.stop) })
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Progress returns the latest progress snapshot.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// PollProgress returns the newest update published since the last poll
// without blocking. ok is false if there is none.
func (j *Job) PollProgress() (p Progress, ok bool) {
	select {
	case p = <-j.updates:
		return p, true
	default:
		return p, false
	}
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job ends. The error is nil for a completed job,
// ErrCancelled for a cancelled one and the failure for a failed one.
func (j *Job) Wait() (*Result, error) {
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()

	res := *j.result
	switch res.State {
	case StateCompleted:
		return &res, nil
	case StateCancelled:
		return &res, ErrCancelled
	default:
		return &res, res.Err
	}
}

// Run starts a job and waits for it.
func Run(ctx context.Context, client Connector, req Request, opts Options) (*Result, error) {
	job, err := NewJob(client, req, opts)
	if err != nil {
		return nil, err
	}
	if err := job.Start(ctx); err != nil {
		return nil, err
	}
	return job.Wait()
}

// setState changes the state if the transition is allowed.
func (j *Job) setState(state State) error {
	return j.transition(state, nil)
}

// transition changes the state and applies update to the progress under the
// same lock, so pollers see both at once.
func (j *Job) transition(state State, update func(*Progress)) error {
	j.mu.Lock()
	prev := j.state
	if prev == state {
		j.mu.Unlock()
		return nil
	}
	if !canTransition(prev, state) {
		j.mu.Unlock()
		return fmt.Errorf("can't change from state %s to %s", prev, state)
	}
	j.state = state
	j.progress.State = state
	if update != nil {
		update(&j.progress)
	}
	j.mu.Unlock()

	logger.Debug("Transfer %s -> %s/%s: %s -> %s",
		j.req.SourceHost+j.req.SourceClipID, j.req.DestinationHost, j.req.ClipName, prev, state)
	if j.opts.OnStateChange != nil {
		j.opts.OnStateChange(prev, state)
	}
	j.publish()
	return nil
}

// publish replaces any unread update with the current progress.
func (j *Job) publish() {
	p := j.Progress()
	select {
	case j.updates <- p:
	default:
		select {
		case <-j.updates:
		default:
		}
		j.updates <- p
	}
}

// cancelled reports whether Cancel was called or ctx is done.
func (j *Job) cancelled(ctx context.Context) bool {
	select {
	case <-j.stop:
		return true
	default:
		return ctx.Err() != nil
	}
}

type session struct {
	src, dst     wiretap.Server
	srcFormat    wiretap.ClipFormat
	dstFormat    wiretap.ClipFormat
	frames       FrameRange
	parent       string
	clip         wiretap.NodeInfo
	deleted      []string
	cleanup      *wiretap.PartialCleanupError
	written      int
	bytesWritten int64
}

func (j *Job) run(ctx context.Context) {
	start := time.Now()
	s := &session{}

	// The stop channel cancels the job context so a throttled wait returns
	// promptly. Remote calls use a context that ignores it: a frame in
	// flight always finishes.
	go func() {
		select {
		case <-j.stop:
			j.cancel()
		case <-j.done:
		}
	}()
	callCtx := context.WithoutCancel(ctx)

	state, err := j.execute(ctx, callCtx, s)

	if s.src != nil {
		_ = s.src.Close()
	}
	if s.dst != nil {
		_ = s.dst.Close()
	}

	var final func(*Progress)
	if state == StateCompleted {
		final = func(p *Progress) {
			p.Written = s.written
			p.Bytes = s.bytesWritten
		}
	}
	if err := j.transition(state, final); err != nil {
		logger.Error("Transfer state: %v", err)
	}
	if state == StateCompleted && s.written > 0 && j.opts.OnFrame != nil {
		j.opts.OnFrame(j.Progress())
	}

	res := &Result{
		State:    state,
		Range:    s.frames,
		Written:  s.written,
		Bytes:    s.bytesWritten,
		Duration: time.Since(start),
		Parent:   s.parent,
		Clip:     s.clip,
		Deleted:  s.deleted,
		Cleanup:  s.cleanup,
		Err:      err,
	}
	if s.cleanup != nil {
		j.metrics.RecordCleanupFailures(len(s.cleanup.Failed))
	}
	j.metrics.RecordJob(string(state), res.Duration)
	j.metrics.SetActiveJobs(-1)

	switch state {
	case StateCompleted:
		logger.Info("Copied %d frames to %s%s in %s", s.written, j.req.DestinationHost, s.clip.ID, res.Duration.Round(time.Millisecond))
	case StateCancelled:
		logger.Warn("Transfer cancelled after %d of %d frames", s.written, s.frames.Len())
	default:
		logger.Error("Transfer failed after %d frames: %v", s.written, err)
	}

	j.mu.Lock()
	j.result = res
	j.mu.Unlock()
	j.cancel()
	close(j.done)
}

// execute runs the phases in order and returns the terminal state.
func (j *Job) execute(ctx, callCtx context.Context, s *session) (State, error) {
	phases := []struct {
		next State
		fn   func(context.Context, *session) error
	}{
		{StateFormatResolved, j.initialize},
		{StateDestinationReady, j.prepareDestination},
		{StateTransferring, nil},
	}

	for _, phase := range phases {
		if j.cancelled(ctx) {
			return StateCancelled, nil
		}
		if phase.fn != nil {
			if err := phase.fn(callCtx, s); err != nil {
				return StateFailed, err
			}
		}
		if err := j.setState(phase.next); err != nil {
			return StateFailed, err
		}
	}

	return j.copyFrames(ctx, callCtx, s)
}

// initialize connects to both servers, reads the source format and resolves
// the frame range.
func (j *Job) initialize(ctx context.Context, s *session) error {
	var err error
	if s.src, err = j.connect(ctx, j.req.SourceHost); err != nil {
		return err
	}
	if s.dst, err = j.connect(ctx, j.req.DestinationHost); err != nil {
		return err
	}

	s.srcFormat, err = s.src.ClipFormat(ctx, j.req.SourceClipID)
	if err != nil {
		return wrap(err, wiretap.ErrFormat, "unable to obtain clip format", j.req.SourceClipID)
	}

	if j.req.Range != nil {
		s.frames = *j.req.Range
	} else {
		n, err := s.src.NumFrames(ctx, j.req.SourceClipID)
		if err != nil {
			return wrap(err, wiretap.ErrNodeAccess, "unable to obtain number of frames", j.req.SourceClipID)
		}
		if n <= 0 {
			return wiretap.Errorf(wiretap.ErrEmptyRange, j.req.SourceHost+j.req.SourceClipID, "source clip has no frames")
		}
		s.frames = FrameRange{Start: 0, End: n - 1}
	}

	j.mu.Lock()
	j.progress.Total = s.frames.Len()
	j.mu.Unlock()
	return nil
}

func (j *Job) connect(ctx context.Context, hostname string) (wiretap.Server, error) {
	srv, err := j.client.Connect(ctx, hostname)
	if err != nil {
		return nil, wrap(err, wiretap.ErrConnection, "unable to connect", hostname)
	}
	return srv, nil
}

// prepareDestination resolves the parent, removes duplicates when
// overwriting and creates the destination clip.
func (j *Job) prepareDestination(ctx context.Context, s *session) error {
	s.parent = j.req.DestinationParent
	if j.req.UseDisplayName {
		info, err := ResolveDisplayPath(ctx, s.dst, j.req.DestinationParent, j.req.CreateParent)
		if err != nil {
			return err
		}
		s.parent = info.ID
	}

	if j.req.Overwrite {
		deleted, err := DeleteDuplicateClips(ctx, s.dst, s.parent, j.req.ClipName)
		s.deleted = deleted
		var partial *wiretap.PartialCleanupError
		switch {
		case errors.As(err, &partial):
			s.cleanup = partial
		case err != nil:
			return err
		}
	}

	format, err := DeriveClipFormat(s.srcFormat, MetadataOptions{
		FrameRate:     j.req.FrameRate,
		DropMode:      j.req.DropMode,
		StartTimecode: j.req.StartTimecode,
	})
	if err != nil {
		return err
	}

	s.clip, err = s.dst.CreateClip(ctx, s.parent, j.req.ClipName, format)
	if err != nil {
		return wrap(err, wiretap.ErrNodeAccess, "unable to create clip node", s.parent)
	}
	logger.Info("Created clip %q (%s) on %s", j.req.ClipName, s.clip.ID, j.req.DestinationHost)

	if err := s.dst.SetNumFrames(ctx, s.clip.ID, s.frames.Len()); err != nil {
		return wrap(err, wiretap.ErrNodeAccess, "unable to set the number of frames", s.clip.ID)
	}

	// The server fills in the frame buffer size.
	s.dstFormat, err = s.dst.ClipFormat(ctx, s.clip.ID)
	if err != nil {
		return wrap(err, wiretap.ErrFormat, "unable to obtain clip format", s.clip.ID)
	}
	return nil
}

// copyFrames copies each frame of the range in order.
func (j *Job) copyFrames(ctx, callCtx context.Context, s *session) (State, error) {
	total := s.frames.Len()
	buf := make([]byte, max(s.srcFormat.FrameBufferSize, s.dstFormat.FrameBufferSize))
	srcBuf := buf[:s.srcFormat.FrameBufferSize]
	dstBuf := buf[:s.dstFormat.FrameBufferSize]

	for i := 0; i < total; i++ {
		if j.cancelled(ctx) {
			return StateCancelled, nil
		}
		if err := j.opts.Limiter.WaitFrame(ctx, len(dstBuf)); err != nil {
			if j.cancelled(ctx) {
				return StateCancelled, nil
			}
			return StateFailed, fmt.Errorf("unable to throttle frame %d: %w", s.frames.Start+i, err)
		}

		srcIndex := s.frames.Start + i

		t := time.Now()
		n, err := s.src.ReadFrame(callCtx, j.req.SourceClipID, srcIndex, srcBuf)
		j.metrics.RecordFrame("read", n, time.Since(t), err)
		if err != nil {
			return StateFailed, frameError(err, fmt.Sprintf("unable to read frame %d", srcIndex), j.req.SourceClipID)
		}
		if n < len(srcBuf) {
			return StateFailed, wiretap.Errorf(wiretap.ErrFrameIO, j.req.SourceClipID,
				"short read of frame %d: %d of %d bytes", srcIndex, n, len(srcBuf))
		}

		t = time.Now()
		err = s.dst.WriteFrame(callCtx, s.clip.ID, i, dstBuf)
		j.metrics.RecordFrame("write", len(dstBuf), time.Since(t), err)
		if err != nil {
			return StateFailed, frameError(err, fmt.Sprintf("unable to write frame %d", i), s.clip.ID)
		}

		s.written++
		s.bytesWritten += int64(len(dstBuf))
		if s.written == total {
			// Published by run together with StateCompleted.
			break
		}

		j.mu.Lock()
		j.progress.Written = s.written
		j.progress.Bytes = s.bytesWritten
		p := j.progress
		j.mu.Unlock()

		j.publish()
		if j.opts.OnFrame != nil {
			j.opts.OnFrame(p)
		}
	}
	return StateCompleted, nil
}

// frameError reports a frame failure as ErrFrameIO whatever the server
// classified it as.
func frameError(err error, message, path string) error {
	if wiretap.IsCode(err, wiretap.ErrFrameIO) {
		return err
	}
	return wiretap.NewError(wiretap.ErrFrameIO, message, path, err)
}
