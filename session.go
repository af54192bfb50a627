package megapixels

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/kevmo314/go-megapixels/pkg/decode"
	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/dng"
	"github.com/kevmo314/go-megapixels/pkg/media"
	"github.com/kevmo314/go-megapixels/pkg/subdev"
	"github.com/kevmo314/go-megapixels/pkg/transfers"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// State is the capture state of a Session.
type State int

const (
	StateIdle State = iota
	StatePreview
	StateBurst
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreview:
		return "preview"
	case StateBurst:
		return "burst"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// UI is what the session reports to. Calls are made from the goroutine
// running the session.
type UI interface {
	Preview(img image.Image)
	ShowError(msg string)
	LastCaptured(path string, thumb image.Image)
}

type nopUI struct{}

func (nopUI) Preview(image.Image)              {}
func (nopUI) ShowError(string)                 {}
func (nopUI) LastCaptured(string, image.Image) {}

// Settings are the runtime knobs that do not live in the configuration
// file.
type Settings struct {
	BurstLength  int
	Buffers      uint32
	AutoExposure bool
	AutoGain     bool
	// Exposure is the manual exposure in lines; zero means half the frame.
	Exposure    int32
	TempDir     string
	PicturesDir string
}

// DefaultSettings returns five frame bursts with automatic exposure and
// gain, written under the system temporary directory and ~/Pictures.
func DefaultSettings() Settings {
	pictures := "Pictures"
	if home, err := os.UserHomeDir(); err == nil {
		pictures = filepath.Join(home, "Pictures")
	}
	return Settings{
		BurstLength:  5,
		Buffers:      transfers.DefaultBufferCount,
		AutoExposure: true,
		AutoGain:     true,
		PicturesDir:  pictures,
	}
}

// Command is a request from the UI, executed by Run between frames.
type Command int

const (
	CommandShutter Command = iota
	CommandSwitchCamera
)

func (c Command) String() string {
	switch c {
	case CommandShutter:
		return "shutter"
	case CommandSwitchCamera:
		return "switch camera"
	}
	return fmt.Sprintf("Command(%d)", int(c))
}

type Option func(*Session)

func WithLogger(logger *zap.Logger) Option { return func(s *Session) { s.logger = logger } }

func WithUI(ui UI) Option { return func(s *Session) { s.ui = ui } }

func WithSettings(settings Settings) Option { return func(s *Session) { s.settings = settings } }

func WithPostProcessor(p PostProcessor) Option { return func(s *Session) { s.post = p } }

// WithDevices replaces how device nodes are found and opened.
func WithDevices(devDir string, open device.Opener, list func(dir, prefix string) ([]string, error), lookup media.Lookup) Option {
	return func(s *Session) {
		s.devDir, s.open, s.list, s.lookup = devDir, open, list, lookup
	}
}

func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// Session owns the camera pipeline. It is not safe for concurrent use; UIs
// running on other goroutines talk to it through Post.
type Session struct {
	cfg      *Config
	settings Settings
	logger   *zap.Logger
	ui       UI
	post     PostProcessor
	now      func() time.Time

	devDir string
	open   device.Opener
	list   func(dir, prefix string) ([]string, error)
	lookup media.Lookup

	graph    *media.Graph
	topology *media.Topology
	active   *ActiveCamera
	state    State
	ready    bool
	burst    *BurstJob
	last     string
	commands chan Command
}

func New(cfg *Config, opts ...Option) *Session {
	s := &Session{
		cfg:      cfg,
		settings: DefaultSettings(),
		logger:   zap.NewNop(),
		ui:       nopUI{},
		now:      time.Now,
		devDir:   media.DefaultDevDir,
		open:     device.Open,
		list:     device.Glob,
		commands: make(chan Command, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.settings.BurstLength < 1 {
		s.settings.BurstLength = 1
	}
	return s
}

func (s *Session) State() State { return s.state }

// Ready reports whether frames are streaming.
func (s *Session) Ready() bool { return s.ready }

// Active returns the profile of the camera currently routed to the capture
// interface.
func (s *Session) Active() (CameraProfile, bool) {
	if s.active == nil {
		return CameraProfile{}, false
	}
	return s.active.Profile, true
}

func (s *Session) Topology() *media.Topology { return s.topology }

// Burst returns the burst in progress, if any.
func (s *Session) Burst() *BurstJob { return s.burst }

// LastCapture is the path of the final frame of the most recent burst.
func (s *Session) LastCapture() string { return s.last }

// userError reports err to the UI when it is user visible and returns it.
func (s *Session) userError(err error) error {
	if msg, ok := UserMessage(err); ok {
		s.ui.ShowError(msg)
	}
	return err
}

// Open finds the media node of the configured driver and resolves the
// configured cameras in its graph.
func (s *Session) Open() error {
	g, err := media.Find(s.cfg.Device.CSI, media.Options{
		DevDir: s.devDir,
		Open:   s.open,
		List:   s.list,
		Logger: s.logger,
	})
	if err != nil {
		s.logger.Error("could not find the media node", zap.String("driver", s.cfg.Device.CSI), zap.Error(err))
		return s.userError(fmt.Errorf("%w: %w", ErrMediaNodeNotFound, err))
	}
	names := make([]string, len(s.cfg.Cameras))
	for i, p := range s.cfg.Cameras {
		if p.Valid {
			names[i] = p.Name
		}
	}
	top, err := g.Discover(names, s.lookup)
	if err != nil {
		g.Close()
		s.logger.Error("could not find the cameras", zap.Error(err))
		return s.userError(fmt.Errorf("%w: %w", ErrCamerasNotFound, err))
	}
	for _, c := range top.Cameras {
		p := &s.cfg.Cameras[c.Index]
		p.EntityID = c.Entity
		p.DevPath = c.Path
	}
	s.graph, s.topology = g, top
	return nil
}

// selectable reports whether camera index is configured and present.
func (s *Session) selectable(index int) bool {
	if _, ok := s.cfg.Camera(index); !ok || s.topology == nil {
		return false
	}
	_, ok := s.topology.Camera(index)
	return ok
}

func (s *Session) firstCamera() (int, bool) {
	for i := range s.cfg.Cameras {
		if s.selectable(i) {
			return i, true
		}
	}
	return 0, false
}

// nextCamera picks the camera after current, wrapping around, and falls back
// to the first selectable camera.
func (s *Session) nextCamera(current int) int {
	n := len(s.cfg.Cameras)
	for step := 1; step <= n; step++ {
		if i := (current + step) % n; s.selectable(i) {
			return i
		}
	}
	first, _ := s.firstCamera()
	return first
}

// StartCapture routes the first camera to the capture interface and starts
// streaming preview frames.
func (s *Session) StartCapture() error {
	if s.graph == nil {
		return ErrNotOpen
	}
	index, ok := s.firstCamera()
	if !ok {
		return s.userError(ErrCamerasNotFound)
	}
	return s.activate(index)
}

// SelectCamera switches to camera index. Selecting the active camera
// restarts it.
func (s *Session) SelectCamera(index int) error {
	if s.graph == nil {
		return ErrNotOpen
	}
	if !s.selectable(index) {
		return fmt.Errorf("%w: %d", ErrInvalidCamera, index)
	}
	if err := s.stopCapture(); err != nil {
		return err
	}
	return s.activate(index)
}

// SwitchCamera moves on to the next configured camera.
func (s *Session) SwitchCamera() error {
	if s.active == nil {
		return ErrNotStreaming
	}
	next := s.nextCamera(s.active.Profile.Index)
	s.logger.Info("switching camera", zap.Int("from", s.active.Profile.Index), zap.Int("to", next))
	return s.SelectCamera(next)
}

func (s *Session) exposure() subdev.Exposure {
	return subdev.Exposure{
		Auto:     s.settings.AutoExposure,
		AutoGain: s.settings.AutoGain,
		Manual:   s.settings.Exposure,
	}
}

func (s *Session) activate(index int) error {
	profile, _ := s.cfg.Camera(index)
	logger := s.logger.With(zap.Int("camera", index), zap.String("sensor", profile.Name))

	if err := s.graph.Select(s.topology, index); err != nil {
		return fatal("select camera", err)
	}
	sensor, err := subdev.Negotiate(profile.DevPath, profile.sensorMode(), s.exposure(), s.open, logger)
	if err != nil {
		return fatal("configure sensor", err)
	}
	if s.active != nil && s.active.Sensor != nil {
		if err := s.active.Sensor.Close(); err != nil {
			logger.Warn("closing previous sensor", zap.Error(err))
		}
	}
	active := &ActiveCamera{Profile: *profile, Sensor: sensor}
	s.active = active

	video, err := s.open(s.topology.InterfacePath, unix.O_RDWR|unix.O_NONBLOCK)
	if err != nil {
		logger.Error("error opening the video device", zap.String("device", s.topology.InterfacePath), zap.Error(err))
		return s.userError(fmt.Errorf("%w: %w", ErrDeviceOpen, err))
	}
	active.Video = video

	pix, err := transfers.InitDevice(video, profile.captureMode(), logger)
	if err != nil {
		if errors.Is(err, transfers.ErrModeRejected) {
			return s.userError(fmt.Errorf("%w: %w", ErrModeRejected, err))
		}
		return fatal("init capture device", err)
	}
	active.Format = pix

	pool := transfers.NewBufferPool(video, logger)
	if err := pool.InitMmap(s.settings.Buffers); err != nil {
		return fatal("map buffers", err)
	}
	active.Pool = pool
	if err := pool.Start(); err != nil {
		return fatal("start capture", err)
	}

	s.ready = true
	if s.burst == nil {
		s.state = StatePreview
	} else {
		s.state = StateBurst
	}
	logger.Info("capture started", zap.Stringer("profile", profile), zap.Int("buffers", pool.Len()))
	return nil
}

// stopCapture leaves the session idle. activate restores preview, or burst
// when one is in flight.
func (s *Session) stopCapture() error {
	s.ready = false
	s.state = StateIdle
	if s.active == nil {
		return nil
	}
	if err := s.active.stopCapture(); err != nil {
		return fatal("stop capture", err)
	}
	return nil
}

// TriggerShutter starts a burst. It is ignored while a burst is running.
func (s *Session) TriggerShutter() error {
	if !s.ready {
		return ErrNotStreaming
	}
	if s.burst != nil {
		s.logger.Debug("shutter ignored during burst", zap.Stringer("burst", s.burst.ID))
		return nil
	}
	b, err := newBurst(s.settings.BurstLength, s.settings.TempDir, s.now())
	if err != nil {
		s.logger.Error("shutter", zap.Error(err))
		return err
	}
	s.burst = b
	s.state = StateBurst
	s.logger.Info("burst started", zap.Stringer("burst", b.ID), zap.Int("frames", b.Length), zap.String("dir", b.Dir))
	return nil
}

// ProcessFrame waits for one frame, hands it to the preview or the running
// burst and gives the buffer back to the driver.
func (s *Session) ProcessFrame() error {
	if !s.ready {
		return nil
	}
	pool := s.active.Pool
	buf, err := pool.Next(transfers.DefaultWait)
	if err != nil {
		return fatal("read frame", err)
	}
	switch s.state {
	case StateBurst:
		s.capture(buf.Data)
	case StatePreview:
		s.preview(buf.Data)
	}
	if err := pool.Queue(buf); err != nil {
		return fatal("requeue buffer", err)
	}
	return nil
}

func (s *Session) debayer(data []byte) (*decode.RGB, error) {
	f := s.active.Format
	img, err := decode.QuickDebayerBGGR8(data, int(f.Width), int(f.Height), int(f.BytesPerLine), decode.PreviewSkip(int(f.Width)))
	if err != nil {
		return nil, err
	}
	return decode.Rotate(img, s.active.Profile.Rotate)
}

func (s *Session) preview(data []byte) {
	img, err := s.debayer(data)
	if err != nil {
		s.logger.Warn("preview frame dropped", zap.Error(err))
		return
	}
	s.ui.Preview(img)
}

func (s *Session) capture(data []byte) {
	b := s.burst
	now := s.now()
	seq, path := b.next()
	logger := s.logger.With(zap.Stringer("burst", b.ID), zap.Int("frame", seq))

	written := true
	if err := dng.WriteFile(path, s.active.frame(data), s.active.Profile.metadata(s.cfg.Device, now)); err != nil {
		logger.Error("could not write frame", zap.String("path", path), zap.Error(err))
		written = false
	} else {
		logger.Info("wrote frame", zap.String("path", path))
	}
	if !b.Done() {
		return
	}

	if img, err := s.debayer(data); err != nil {
		logger.Warn("thumbnail skipped", zap.Error(err))
	} else if written {
		s.last = path
		s.ui.LastCaptured(path, decode.Thumbnail(img, decode.ThumbnailSize))
	}

	b.Target = targetPath(s.settings.PicturesDir, now)
	if s.post != nil {
		logger.Info("post-processing burst", zap.String("dir", b.Dir), zap.String("target", b.Target))
		if err := s.post.PostProcess(b.Dir, b.Target); err != nil {
			logger.Error("could not start post-processing", zap.Error(err))
		}
	}
	s.burst = nil
	s.state = StatePreview
}

// Post queues a command for Run. It never blocks; commands arriving while
// the queue is full are dropped.
func (s *Session) Post(c Command) bool {
	select {
	case s.commands <- c:
		return true
	default:
		s.logger.Warn("command dropped", zap.Stringer("command", c))
		return false
	}
}

func (s *Session) execute(c Command) error {
	var err error
	switch c {
	case CommandShutter:
		err = s.TriggerShutter()
	case CommandSwitchCamera:
		err = s.SwitchCamera()
	}
	if err != nil && !IsFatal(err) {
		s.logger.Warn("command failed", zap.Stringer("command", c), zap.Error(err))
		return nil
	}
	return err
}

// Run processes frames and posted commands until ctx is done or a fatal
// error occurs.
func (s *Session) Run(ctx context.Context) error {
	for {
		if !s.ready {
			select {
			case <-ctx.Done():
				return nil
			case c := <-s.commands:
				if err := s.execute(c); err != nil {
					return err
				}
			}
			continue
		}
	drain:
		for {
			select {
			case <-ctx.Done():
				return nil
			case c := <-s.commands:
				if err := s.execute(c); err != nil {
					return err
				}
			default:
				break drain
			}
		}
		if err := s.ProcessFrame(); err != nil {
			return err
		}
	}
}

// Close stops capture and releases every device handle.
func (s *Session) Close() error {
	s.ready = false
	s.state = StateIdle
	var err error
	if s.active != nil {
		err = s.active.close()
		s.active = nil
	}
	if s.graph != nil {
		if e := s.graph.Close(); e != nil && err == nil {
			err = e
		}
		s.graph = nil
	}
	return err
}
