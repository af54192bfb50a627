package megapixels

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kevmo314/go-megapixels/pkg/device/devicetest"
	"github.com/kevmo314/go-megapixels/pkg/dng"
	"github.com/kevmo314/go-megapixels/pkg/formats"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"github.com/kevmo314/go-megapixels/pkg/transfers"
)

type recordingUI struct {
	mu       sync.Mutex
	previews []image.Image
	errors   []string
	captured []string
	thumbs   []image.Image
}

func (u *recordingUI) Preview(img image.Image) {
	u.mu.Lock()
	defer u.mu.Unlock()
	// Run streams previews as fast as the simulated kernel delivers them.
	if len(u.previews) < 64 {
		u.previews = append(u.previews, img)
	}
}

func (u *recordingUI) ShowError(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errors = append(u.errors, msg)
}

func (u *recordingUI) LastCaptured(path string, thumb image.Image) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.captured = append(u.captured, path)
	u.thumbs = append(u.thumbs, thumb)
}

func (u *recordingUI) capturedCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.captured)
}

type postCall struct{ dir, target string }

type recordingPost struct {
	calls []postCall
	err   error
}

func (p *recordingPost) PostProcess(dir, target string) error {
	p.calls = append(p.calls, postCall{dir, target})
	return p.err
}

var shutterTime = time.Date(2026, 10, 14, 9, 30, 5, 0, time.UTC)

// testConfig has the rear and front sensor of the simulated phone at 0 and
// 2, an empty slot at 1 and a sensor at 3 that is not in the media graph.
func testConfig() *Config {
	return &Config{
		Device: DeviceInfo{CSI: "sun6i-csi", Make: "PINE64", Model: "PinePhone"},
		Cameras: []CameraProfile{
			{
				Index: 0, Name: "ov5640", Width: 1280, Height: 720, Rate: 30, Rotate: 270,
				Format: formats.BGGR8, BlackLevel: 3, WhiteLevel: 255,
				FocalLength: 3.33, CropFactor: 10.81, FNumber: 3.0, Valid: true,
			},
			{Index: 1},
			{Index: 2, Name: "gc2145", Width: 640, Height: 480, Rate: 30, Format: formats.BGGR8, Valid: true},
			{Index: 3, Name: "imx258", Width: 640, Height: 480, Rate: 30, Format: formats.BGGR8, Valid: true},
		},
	}
}

type fixture struct {
	k    *devicetest.Kernel
	ui   *recordingUI
	post *recordingPost
	s    *Session
	// pictures is where post-processing is told to write.
	pictures string
}

func newFixture(t *testing.T, k *devicetest.Kernel) *fixture {
	t.Helper()
	f := &fixture{k: k, ui: &recordingUI{}, post: &recordingPost{}, pictures: t.TempDir()}
	settings := DefaultSettings()
	settings.BurstLength = 3
	settings.TempDir = t.TempDir()
	settings.PicturesDir = f.pictures
	f.s = New(testConfig(),
		WithDevices("/dev", k.Open, k.List, k.Lookup),
		WithUI(f.ui),
		WithPostProcessor(f.post),
		WithSettings(settings),
		WithClock(func() time.Time { return shutterTime }))
	t.Cleanup(func() { f.s.Close() })
	return f
}

func startedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, devicetest.NewKernel("sun6i-csi", "ov5640", "gc2145"))
	if err := f.s.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := f.s.StartCapture(); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	return f
}

func assertLinks(t *testing.T, k *devicetest.Kernel, want ...uint32) {
	t.Helper()
	got := k.EnabledLinks()
	if len(got) != len(want) {
		t.Fatalf("enabled links = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("enabled links = %v, want %v", got, want)
		}
	}
}

func activeIndex(t *testing.T, s *Session) int {
	t.Helper()
	p, ok := s.Active()
	if !ok {
		t.Fatal("no active camera")
	}
	return p.Index
}

func TestOpenResolvesCameras(t *testing.T) {
	f := newFixture(t, devicetest.NewKernel("sun6i-csi", "ov5640", "gc2145"))
	if err := f.s.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	top := f.s.Topology()
	if len(top.Cameras) != 2 {
		t.Fatalf("resolved %d cameras, want 2", len(top.Cameras))
	}
	if p := f.s.cfg.Cameras[2]; p.EntityID != 2 || p.DevPath != "/dev/v4l-subdev1" {
		t.Errorf("camera 2 resolved to entity %d at %s", p.EntityID, p.DevPath)
	}
	if top.InterfacePath != "/dev/video0" {
		t.Errorf("InterfacePath = %s, want /dev/video0", top.InterfacePath)
	}
	if f.s.State() != StateIdle {
		t.Errorf("State = %v, want idle", f.s.State())
	}
}

func TestStartCapture(t *testing.T) {
	f := startedFixture(t)
	if f.s.State() != StatePreview || !f.s.Ready() {
		t.Fatalf("State = %v ready=%t, want preview and ready", f.s.State(), f.s.Ready())
	}
	if activeIndex(t, f.s) != 0 {
		t.Errorf("active camera = %d, want 0", activeIndex(t, f.s))
	}
	assertLinks(t, f.k, 1)
	if !f.k.Streaming() {
		t.Error("capture interface not streaming")
	}
	if f.k.Buffers() != transfers.DefaultBufferCount {
		t.Errorf("kernel buffers = %d, want %d", f.k.Buffers(), transfers.DefaultBufferCount)
	}
	sensor := f.k.Sensor(1)
	if sensor.Format.Width != 1280 || sensor.Format.Height != 720 || sensor.Format.Code != formats.BGGR8.MediaBus {
		t.Errorf("sensor format = %+v", sensor.Format)
	}
	if sensor.Interval.Numerator != 1 || sensor.Interval.Denominator != 30 {
		t.Errorf("sensor interval = %+v, want 1/30", sensor.Interval)
	}
	if sensor.Controls[requests.CIDExposureAuto] != requests.ExposureAuto {
		t.Errorf("exposure mode = %d, want auto", sensor.Controls[requests.CIDExposureAuto])
	}
}

func TestManualExposure(t *testing.T) {
	f := newFixture(t, devicetest.NewKernel("sun6i-csi", "ov5640", "gc2145"))
	f.s.settings.AutoExposure = false
	f.s.settings.AutoGain = false
	if err := f.s.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := f.s.StartCapture(); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	c := f.k.Sensor(1).Controls
	if c[requests.CIDExposureAuto] != requests.ExposureManual || c[requests.CIDExposure] != 360 {
		t.Errorf("exposure controls = %v, want manual at 360 lines", c)
	}
	if c[requests.CIDAutoGain] != 0 {
		t.Errorf("auto gain = %d, want 0", c[requests.CIDAutoGain])
	}
}

func TestPreviewFrame(t *testing.T) {
	f := startedFixture(t)
	if err := f.s.ProcessFrame(); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if len(f.ui.previews) != 1 {
		t.Fatalf("got %d previews, want 1", len(f.ui.previews))
	}
	// 1280x720 subsampled by 4 and rotated by 270 degrees.
	img := f.ui.previews[0]
	if b := img.Bounds(); b.Dx() != 180 || b.Dy() != 320 {
		t.Errorf("preview is %dx%d, want 180x320", b.Dx(), b.Dy())
	}
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 1 || g>>8 != 1 || b>>8 != 1 {
		t.Errorf("preview pixel = %d,%d,%d, want 1,1,1", r>>8, g>>8, b>>8)
	}
}

func TestSwitchCameraCycles(t *testing.T) {
	f := startedFixture(t)
	want := []int{2, 0, 2, 0}
	for _, w := range want {
		if err := f.s.SwitchCamera(); err != nil {
			t.Fatalf("SwitchCamera failed: %v", err)
		}
		if got := activeIndex(t, f.s); got != w {
			t.Fatalf("active camera = %d, want %d", got, w)
		}
		assertLinks(t, f.k, uint32(w/2+1))
		if err := f.s.ProcessFrame(); err != nil {
			t.Fatalf("ProcessFrame after switch failed: %v", err)
		}
	}
	open := 0
	for _, h := range f.k.Handles() {
		if h.Path != "/dev/media0" && !h.Closed() {
			open++
		}
	}
	if open != 2 {
		t.Errorf("%d sensor and video handles open, want 2", open)
	}
	// The front camera preview is 640x480 subsampled by 4, unrotated.
	last := f.ui.previews[len(f.ui.previews)-2]
	if b := last.Bounds(); b.Dx() != 160 || b.Dy() != 120 {
		t.Errorf("front preview is %dx%d, want 160x120", b.Dx(), b.Dy())
	}
}

func TestSelectCamera(t *testing.T) {
	f := startedFixture(t)
	for i := 0; i < 2; i++ {
		if err := f.s.SelectCamera(0); err != nil {
			t.Fatalf("SelectCamera(0) failed: %v", err)
		}
		assertLinks(t, f.k, 1)
		if f.s.State() != StatePreview || !f.k.Streaming() {
			t.Fatalf("State = %v streaming=%t after reselect", f.s.State(), f.k.Streaming())
		}
	}
	for _, index := range []int{1, 3, 4, -1} {
		if err := f.s.SelectCamera(index); !errors.Is(err, ErrInvalidCamera) {
			t.Errorf("SelectCamera(%d) error = %v, want %v", index, err, ErrInvalidCamera)
		}
	}
	assertLinks(t, f.k, 1)
}

func TestBurst(t *testing.T) {
	f := startedFixture(t)
	if err := f.s.TriggerShutter(); err != nil {
		t.Fatalf("TriggerShutter failed: %v", err)
	}
	burst := f.s.Burst()
	if burst == nil || f.s.State() != StateBurst {
		t.Fatalf("State = %v, want burst", f.s.State())
	}
	for i := 0; i < 3; i++ {
		if err := f.s.ProcessFrame(); err != nil {
			t.Fatalf("ProcessFrame %d failed: %v", i, err)
		}
	}
	if f.s.State() != StatePreview || f.s.Burst() != nil {
		t.Fatalf("State = %v after burst, want preview", f.s.State())
	}
	if len(f.ui.previews) != 0 {
		t.Errorf("got %d previews during burst, want 0", len(f.ui.previews))
	}

	for seq := 1; seq <= 3; seq++ {
		path := filepath.Join(burst.Dir, []string{"", "1.dng", "2.dng", "3.dng"}[seq])
		checkFrame(t, path, byte(seq))
	}
	if _, err := os.Stat(filepath.Join(burst.Dir, "4.dng")); !os.IsNotExist(err) {
		t.Errorf("4.dng exists: %v", err)
	}

	last := filepath.Join(burst.Dir, "3.dng")
	if f.s.LastCapture() != last {
		t.Errorf("LastCapture = %s, want %s", f.s.LastCapture(), last)
	}
	if len(f.ui.captured) != 1 || f.ui.captured[0] != last {
		t.Fatalf("LastCaptured calls = %v", f.ui.captured)
	}
	if b := f.ui.thumbs[0].Bounds(); b.Dx() != 24 || b.Dy() != 24 {
		t.Errorf("thumbnail is %dx%d, want 24x24", b.Dx(), b.Dy())
	}
	wantTarget := filepath.Join(f.pictures, "IMG20261014093005")
	if len(f.post.calls) != 1 || f.post.calls[0] != (postCall{burst.Dir, wantTarget}) {
		t.Errorf("post-process calls = %v, want %s -> %s", f.post.calls, burst.Dir, wantTarget)
	}

	if err := f.s.ProcessFrame(); err != nil {
		t.Fatalf("ProcessFrame failed: %v", err)
	}
	if len(f.ui.previews) != 1 {
		t.Errorf("preview did not resume after burst")
	}
}

func checkFrame(t *testing.T, path string, value byte) {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()
	d, err := dng.Decode(file)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	if m, _ := d.IFD0.Text(dng.TagModel); m != "PinePhone" {
		t.Errorf("%s: Model = %q, want PinePhone", path, m)
	}
	raw, ok := d.Raw()
	if !ok {
		t.Fatalf("%s: no raw image", path)
	}
	if w, _ := raw.Uint(dng.TagImageWidth); w != 1280 {
		t.Errorf("%s: raw width = %d, want 1280", path, w)
	}
	if bl, _ := raw.Uint(dng.TagBlackLevel); bl != 3 {
		t.Errorf("%s: black level = %d, want 3", path, bl)
	}
	pix, err := raw.Pixels(file)
	if err != nil {
		t.Fatalf("%s: pixels: %v", path, err)
	}
	if len(pix) != 1280*720 {
		t.Fatalf("%s: %d pixel bytes, want %d", path, len(pix), 1280*720)
	}
	if pix[0] != value || pix[len(pix)-1] != value {
		t.Errorf("%s: pixel = %d, want %d", path, pix[0], value)
	}
}

func TestShutterIgnoredDuringBurst(t *testing.T) {
	f := startedFixture(t)
	if err := f.s.TriggerShutter(); err != nil {
		t.Fatalf("TriggerShutter failed: %v", err)
	}
	first := f.s.Burst()
	if err := f.s.ProcessFrame(); err != nil {
		t.Fatal(err)
	}
	if err := f.s.TriggerShutter(); err != nil {
		t.Fatalf("second TriggerShutter failed: %v", err)
	}
	if f.s.Burst() != first || first.Remaining != 2 {
		t.Errorf("second shutter restarted the burst")
	}
}

func TestShutterNotStreaming(t *testing.T) {
	f := newFixture(t, devicetest.NewKernel("sun6i-csi", "ov5640", "gc2145"))
	if err := f.s.TriggerShutter(); !errors.Is(err, ErrNotStreaming) {
		t.Fatalf("TriggerShutter error = %v, want %v", err, ErrNotStreaming)
	}
	if err := f.s.ProcessFrame(); err != nil {
		t.Errorf("ProcessFrame while idle = %v, want nil", err)
	}
}

func TestBurstContinuesAcrossSwitch(t *testing.T) {
	f := startedFixture(t)
	if err := f.s.TriggerShutter(); err != nil {
		t.Fatal(err)
	}
	burst := f.s.Burst()
	if err := f.s.ProcessFrame(); err != nil {
		t.Fatal(err)
	}
	if err := f.s.SwitchCamera(); err != nil {
		t.Fatalf("SwitchCamera failed: %v", err)
	}
	if f.s.State() != StateBurst || f.s.Burst() != burst {
		t.Fatalf("State = %v after switch, want burst to continue", f.s.State())
	}
	for i := 0; i < 2; i++ {
		if err := f.s.ProcessFrame(); err != nil {
			t.Fatal(err)
		}
	}
	if f.s.State() != StatePreview {
		t.Errorf("State = %v, want preview", f.s.State())
	}
	for _, name := range []string{"1.dng", "2.dng", "3.dng"} {
		if _, err := os.Stat(filepath.Join(burst.Dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestPostProcessFailureFinishesBurst(t *testing.T) {
	f := startedFixture(t)
	f.post.err = errors.New("exec: not found")
	if err := f.s.TriggerShutter(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := f.s.ProcessFrame(); err != nil {
			t.Fatalf("ProcessFrame failed: %v", err)
		}
	}
	if f.s.State() != StatePreview || f.s.Burst() != nil {
		t.Errorf("State = %v, want preview", f.s.State())
	}
}

func TestOpenErrors(t *testing.T) {
	tests := []struct {
		name   string
		kernel *devicetest.Kernel
		err    error
		msg    string
	}{
		{"no media node", devicetest.NewKernel("rkisp1", "ov5640"), ErrMediaNodeNotFound, "Could not find the media node"},
		{"no cameras", devicetest.NewKernel("sun6i-csi", "hm5065"), ErrCamerasNotFound, "Could not find the cameras"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.kernel)
			err := f.s.Open()
			if !errors.Is(err, tt.err) {
				t.Fatalf("Open error = %v, want %v", err, tt.err)
			}
			if IsFatal(err) {
				t.Errorf("Open error %v is fatal", err)
			}
			if len(f.ui.errors) != 1 || f.ui.errors[0] != tt.msg {
				t.Errorf("ShowError calls = %q, want %q", f.ui.errors, tt.msg)
			}
		})
	}
}

func TestStartCaptureErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(k *devicetest.Kernel)
		err   error
		fatal bool
		msg   string
	}{
		{"mode rejected", func(k *devicetest.Kernel) { k.RejectSFmt = true }, ErrModeRejected, false, "Could not set camera mode"},
		{"sensor format rejected", func(k *devicetest.Kernel) { k.Sensors[0].RejectFormat = true }, nil, true, ""},
		{"link setup fails", func(k *devicetest.Kernel) { k.LinkErr = errors.New("busy") }, nil, true, ""},
		{"one buffer granted", func(k *devicetest.Kernel) { k.GrantBuffers = 1 }, transfers.ErrInsufficientBuffers, true, ""},
		{"no mmap", func(k *devicetest.Kernel) { k.RejectMmapIO = true }, transfers.ErrNoMmap, true, ""},
		{"not a capture node", func(k *devicetest.Kernel) { k.Caps = requests.CapStreaming }, transfers.ErrNotCaptureDevice, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := devicetest.NewKernel("sun6i-csi", "ov5640", "gc2145")
			tt.setup(k)
			f := newFixture(t, k)
			if err := f.s.Open(); err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			err := f.s.StartCapture()
			if err == nil {
				t.Fatal("StartCapture succeeded")
			}
			if tt.err != nil && !errors.Is(err, tt.err) {
				t.Errorf("StartCapture error = %v, want %v", err, tt.err)
			}
			if IsFatal(err) != tt.fatal {
				t.Errorf("IsFatal(%v) = %t, want %t", err, IsFatal(err), tt.fatal)
			}
			if tt.msg != "" && (len(f.ui.errors) != 1 || f.ui.errors[0] != tt.msg) {
				t.Errorf("ShowError calls = %q, want %q", f.ui.errors, tt.msg)
			}
			if f.s.Ready() {
				t.Error("session ready after failed start")
			}
		})
	}
}

func TestStalledCapture(t *testing.T) {
	f := startedFixture(t)
	f.k.Stalled = true
	err := f.s.ProcessFrame()
	if !IsFatal(err) || !errors.Is(err, transfers.ErrTimeout) {
		t.Fatalf("ProcessFrame error = %v, want fatal timeout", err)
	}
}

func TestRun(t *testing.T) {
	f := startedFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.s.Run(ctx) }()

	if !f.s.Post(CommandShutter) {
		t.Fatal("Post dropped the shutter")
	}
	deadline := time.After(5 * time.Second)
	for f.ui.capturedCount() == 0 {
		select {
		case err := <-done:
			t.Fatalf("Run returned early: %v", err)
		case <-deadline:
			cancel()
			t.Fatal("burst did not finish")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if len(f.post.calls) != 1 {
		t.Errorf("got %d post-process calls, want 1", len(f.post.calls))
	}
}

func TestRunFatal(t *testing.T) {
	f := startedFixture(t)
	f.k.Stalled = true
	err := f.s.Run(context.Background())
	if !IsFatal(err) {
		t.Fatalf("Run error = %v, want fatal", err)
	}
}

func TestRunIdle(t *testing.T) {
	f := newFixture(t, devicetest.NewKernel("sun6i-csi", "ov5640", "gc2145"))
	ctx, cancel := context.WithCancel(context.Background())
	f.s.Post(CommandShutter)
	f.s.Post(CommandSwitchCamera)
	done := make(chan error, 1)
	go func() { done <- f.s.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestClose(t *testing.T) {
	f := startedFixture(t)
	if err := f.s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if f.k.Streaming() {
		t.Error("still streaming after Close")
	}
	for _, h := range f.k.Handles() {
		if !h.Closed() {
			t.Errorf("handle %s left open", h.Path)
		}
	}
	if f.s.State() != StateIdle {
		t.Errorf("State = %v, want idle", f.s.State())
	}
	if err := f.s.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestBurstTagsBGGR(t *testing.T) {
	f := newFixture(t, devicetest.NewKernel("sun6i-csi", "ov5640", "gc2145"))
	f.s.cfg.Cameras[0].Format = formats.RGGB8
	if err := f.s.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := f.s.StartCapture(); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	if err := f.s.TriggerShutter(); err != nil {
		t.Fatal(err)
	}
	dir := f.s.Burst().Dir
	if err := f.s.ProcessFrame(); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(filepath.Join(dir, "1.dng"))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	d, err := dng.Decode(file)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	raw, ok := d.Raw()
	if !ok {
		t.Fatal("no raw image")
	}
	e, ok := raw.Entry(dng.TagCFAPattern)
	if !ok {
		t.Fatal("no CFAPattern")
	}
	if want := dng.BGGR[:]; string(e.Raw) != string(want) {
		t.Errorf("CFAPattern = %v, want %v", e.Raw, want)
	}
}

func TestSwitchRejectedModeGoesIdle(t *testing.T) {
	f := startedFixture(t)
	f.k.RejectSFmt = true
	err := f.s.SwitchCamera()
	if !errors.Is(err, ErrModeRejected) || IsFatal(err) {
		t.Fatalf("SwitchCamera error = %v, want recoverable %v", err, ErrModeRejected)
	}
	if f.s.State() != StateIdle || f.s.Ready() {
		t.Errorf("State = %v ready=%t after rejected switch, want idle", f.s.State(), f.s.Ready())
	}

	f.k.RejectSFmt = false
	if err := f.s.SelectCamera(0); err != nil {
		t.Fatalf("SelectCamera(0) failed: %v", err)
	}
	if f.s.State() != StatePreview || !f.s.Ready() {
		t.Errorf("State = %v ready=%t after recovery, want preview", f.s.State(), f.s.Ready())
	}
}

func TestSwitchRejectedModeDuringBurst(t *testing.T) {
	f := startedFixture(t)
	if err := f.s.TriggerShutter(); err != nil {
		t.Fatal(err)
	}
	f.k.RejectSFmt = true
	if err := f.s.SwitchCamera(); !errors.Is(err, ErrModeRejected) {
		t.Fatalf("SwitchCamera error = %v, want %v", err, ErrModeRejected)
	}
	if f.s.State() != StateIdle {
		t.Errorf("State = %v, want idle", f.s.State())
	}
	f.k.RejectSFmt = false
	if err := f.s.SelectCamera(2); err != nil {
		t.Fatal(err)
	}
	if f.s.State() != StateBurst {
		t.Errorf("State = %v, want the burst to resume", f.s.State())
	}
}

func TestSwitchCameraWrapsPastInvalidSlots(t *testing.T) {
	f := newFixture(t, devicetest.NewKernel("sun6i-csi", "ov5640", "gc2145"))
	// Two valid and two invalid slots out of four.
	f.s.cfg.Cameras[3] = CameraProfile{Index: 3}
	if err := f.s.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := f.s.StartCapture(); err != nil {
		t.Fatalf("StartCapture failed: %v", err)
	}
	for _, want := range []int{2, 0, 2, 0} {
		if err := f.s.SwitchCamera(); err != nil {
			t.Fatalf("SwitchCamera failed: %v", err)
		}
		if got := activeIndex(t, f.s); got != want {
			t.Fatalf("active camera = %d, want %d", got, want)
		}
		assertLinks(t, f.k, uint32(want/2+1))
	}
}
