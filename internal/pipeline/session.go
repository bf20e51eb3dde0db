package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/banshee-data/traffic.count/internal/background"
	"github.com/banshee-data/traffic.count/internal/monitoring"
	"github.com/banshee-data/traffic.count/internal/timeutil"
	"github.com/banshee-data/traffic.count/internal/video"
)

// State is a step of the process lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateTraining
	StateLiveProcessing
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateTraining:
		return "training"
	case StateLiveProcessing:
		return "live"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SessionConfig wires a Session.
type SessionConfig struct {
	Open        video.Opener
	Model       background.Model
	TrainFrames int // frames fed to Model before live processing
	FrameStride int // process every Nth decoded frame; values <= 1 process all
	Clock       timeutil.Clock
}

// Summary describes a finished session.
type Summary struct {
	Info          video.Info
	TrainedFrames int
	DecodedFrames int // raw frames read during the live phase
	Frames        int // frames handed to the Runner
	Cancelled     bool
	Elapsed       time.Duration
}

// Session drives one video through training and live processing. It owns
// the decode handle and every resource registered with Manage, and releases
// them on every exit path.
type Session struct {
	cfg     SessionConfig
	state   State
	src     video.Source
	info    video.Info
	managed []io.Closer
	started time.Time
}

// NewSession validates cfg.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Open == nil {
		return nil, errors.New("session: Open is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("session: Model is required")
	}
	if cfg.TrainFrames < 0 {
		return nil, fmt.Errorf("session: TrainFrames must be non-negative, got %d", cfg.TrainFrames)
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Session{cfg: cfg}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Info returns the properties read when the source was opened.
func (s *Session) Info() video.Info { return s.info }

// Open acquires the source and reads its properties. Callers use the
// returned Info to configure the encoder and zone masks before Run. Open
// failures wrap video.ErrResourceUnavailable.
func (s *Session) Open() (video.Info, error) {
	if s.state != StateUninitialized || s.src != nil {
		return video.Info{}, fmt.Errorf("session: Open called in state %s", s.state)
	}
	src, err := s.cfg.Open()
	if err != nil {
		if !errors.Is(err, video.ErrResourceUnavailable) {
			err = fmt.Errorf("%w: %v", video.ErrResourceUnavailable, err)
		}
		return video.Info{}, err
	}
	s.src = src
	s.info = src.Info()
	s.started = s.cfg.Clock.Now()
	monitoring.Logf("[Session] opened source %dx%d @ %.2f fps, %d frames",
		s.info.Width, s.info.Height, s.info.FrameRate, s.info.FrameCount)
	return s.info, nil
}

// Manage registers a resource to be closed while draining, in reverse
// registration order.
func (s *Session) Manage(c io.Closer) {
	if c != nil {
		s.managed = append(s.managed, c)
	}
}

// Run trains the background model, reopens the source and feeds every
// frame through runner until the stream ends, ctx is cancelled or a stage
// fails. Cancellation is checked once per frame, before acquisition.
// Resources are always released before Run returns.
func (s *Session) Run(ctx context.Context, runner *Runner) (sum Summary, err error) {
	if s.src == nil || s.state != StateUninitialized {
		return sum, fmt.Errorf("session: Run requires an opened, unstarted session (state %s)", s.state)
	}
	defer func() {
		sum.Info = s.info
		sum.Elapsed = s.cfg.Clock.Since(s.started)
		if cerr := s.Close(); err == nil {
			err = cerr
		}
	}()

	s.state = StateTraining
	sum.TrainedFrames, err = background.Train(s.cfg.Model, s.src, s.cfg.TrainFrames)
	if err != nil {
		return sum, fmt.Errorf("training: %w", err)
	}
	if err := s.reopen(); err != nil {
		return sum, err
	}

	s.state = StateLiveProcessing
	stride := max(s.cfg.FrameStride, 1)
	frameNumber := -1
	for {
		if ctx.Err() != nil {
			monitoring.Logf("[Session] cancelled after %d frames", sum.Frames)
			sum.Cancelled = true
			return sum, nil
		}

		frame, rerr := s.src.Read()
		if rerr != nil {
			if !errors.Is(rerr, video.ErrEndOfStream) {
				monitoring.Logf("[Session] read failed, treating as end of stream: %v", rerr)
			}
			monitoring.Logf("[Session] end of stream after %d frames", sum.Frames)
			return sum, nil
		}
		sum.DecodedFrames++
		if (sum.DecodedFrames-1)%stride != 0 {
			continue
		}

		frameNumber++
		runner.SetContext(map[string]any{
			KeyFrame:       frame,
			KeyFrameNumber: frameNumber,
		})
		if err := runner.Run(); err != nil {
			return sum, fmt.Errorf("frame %d: %w", frameNumber, err)
		}
		sum.Frames++
		monitoring.Debugf("[Session] frame %d (decoded %d) done", frameNumber, frame.Index)
		if sum.Frames%500 == 0 {
			monitoring.Logf("[Session] processed %d/%d frames", sum.Frames, s.info.FrameCount)
		}
	}
}

// reopen closes the training handle and opens a fresh one at frame zero.
func (s *Session) reopen() error {
	if err := s.src.Close(); err != nil {
		monitoring.Logf("[Session] closing training source: %v", err)
	}
	s.src = nil

	src, err := s.cfg.Open()
	if err != nil {
		if !errors.Is(err, video.ErrResourceUnavailable) {
			err = fmt.Errorf("%w: %v", video.ErrResourceUnavailable, err)
		}
		return fmt.Errorf("reopen after training: %w", err)
	}
	s.src = src
	return nil
}

// Close drains the session: the source and all managed resources are
// closed. It is idempotent and safe to defer right after NewSession.
func (s *Session) Close() error {
	if s.state == StateTerminated {
		return nil
	}
	s.state = StateDraining

	var errs []error
	if s.src != nil {
		if err := s.src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close source: %w", err))
		}
		s.src = nil
	}
	for i := len(s.managed) - 1; i >= 0; i-- {
		if err := s.managed[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.managed = nil
	s.state = StateTerminated
	return errors.Join(errs...)
}
