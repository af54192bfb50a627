package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/kevmo314/go-megapixels"
	"github.com/kevmo314/go-megapixels/pkg/decode"
	"github.com/rivo/tview"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Display shows preview frames in a window. Frames arrive on the capture
// goroutine through pending; only the game goroutine touches frame.
type Display struct {
	pending atomic.Pointer[image.Image]
	frame   *ebiten.Image
}

func (g *Display) Update() error {
	img := g.pending.Swap(nil)
	if img == nil {
		return nil
	}
	prev := g.frame
	g.frame = ebiten.NewImageFromImage(*img)
	prev.Dispose()
	return nil
}

func (g *Display) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.frame, &ebiten.DrawImageOptions{})
}

func (g *Display) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.frame.Bounds().Dx(), g.frame.Bounds().Dy()
}

// ui implements megapixels.UI on top of the terminal application. It is called
// from the capture goroutine, so every widget update goes through
// QueueUpdateDraw.
type ui struct {
	app     *tview.Application
	preview *tview.Image
	thumb   *tview.Image
	status  *tview.TextView
	display *Display
	running bool
	last    atomic.Value
	t0      time.Time
}

func (u *ui) Preview(img image.Image) {
	if u.display != nil {
		if !u.running {
			// The window starts with the first frame.
			u.running = true
			u.display.frame = ebiten.NewImageFromImage(img)
			go func() {
				if err := ebiten.RunGame(u.display); err != nil {
					u.ShowError(fmt.Sprintf("ebiten error: %s", err))
				}
			}()
			return
		}
		u.display.pending.Store(&img)
		return
	}
	t1 := time.Now()
	if t1.Sub(u.t0) < 50*time.Millisecond {
		return
	}
	u.t0 = t1
	scaled := decode.Fit(img, 64, 64)
	u.app.QueueUpdateDraw(func() { u.preview.SetImage(scaled) })
}

func (u *ui) ShowError(msg string) {
	u.app.QueueUpdateDraw(func() {
		u.status.SetTextColor(tcell.ColorRed).SetText(msg)
	})
}

func (u *ui) LastCaptured(path string, thumb image.Image) {
	u.last.Store(path)
	u.app.QueueUpdateDraw(func() {
		u.thumb.SetImage(thumb)
		u.status.SetTextColor(tcell.ColorGreen).SetText("Saved " + path)
	})
}

func (u *ui) lastCapture() string {
	path, _ := u.last.Load().(string)
	return path
}

func main() {
	configPath := flag.String("config", "", "device config file (default: search by device tree name)")
	burst := flag.Int("burst", 5, "number of frames per shutter press")
	exposure := flag.Int("exposure", 0, "manual exposure in lines; 0 keeps auto exposure")
	manualGain := flag.Bool("manual-gain", false, "disable auto gain")
	pictures := flag.String("pictures", "", "directory post-processed images are written to (default ~/Pictures)")
	render := flag.Bool("render", false, "render the preview to a window (higher performance but requires a display)")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	app := tview.NewApplication()

	logText := tview.NewTextView()
	logText.SetMaxLines(10).SetBorder(true).SetTitle("Log")

	level := zapcore.InfoLevel
	if *debug {
		level = zapcore.DebugLevel
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	logger := zap.New(zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(logText)), level))
	defer logger.Sync()

	sp := megapixels.DefaultSearchPaths()
	if *configPath == "" {
		path, err := megapixels.FindConfig(sp)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		*configPath = path
	}
	cfg, err := megapixels.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	settings := megapixels.DefaultSettings()
	settings.BurstLength = *burst
	settings.AutoExposure = *exposure == 0
	settings.Exposure = int32(*exposure)
	settings.AutoGain = !*manualGain
	if *pictures != "" {
		settings.PicturesDir = *pictures
	}

	launcher := &megapixels.ExecLauncher{Logger: logger}
	opts := []megapixels.Option{
		megapixels.WithLogger(logger),
		megapixels.WithSettings(settings),
	}
	if script, err := megapixels.FindProcessor(sp); err == nil {
		opts = append(opts, megapixels.WithPostProcessor(&megapixels.Script{Path: script, Launcher: launcher}))
	} else {
		logger.Warn("bursts will not be post-processed", zap.Error(err))
	}

	cameras := tview.NewList().ShowSecondaryText(false)
	cameras.SetBorder(true).SetTitle("Cameras")
	for i := range cfg.Cameras {
		if p, ok := cfg.Camera(i); ok {
			cameras.AddItem(p.String(), "", 0, nil)
		}
	}

	preview := tview.NewImage()
	preview.SetColors(256).SetDithering(tview.DitheringNone).SetBorder(true).SetTitle("Preview")

	thumb := tview.NewImage()
	thumb.SetColors(256).SetBorder(true).SetTitle("Last capture")

	status := tview.NewTextView()
	status.SetBorder(true).SetTitle("Status")

	help := tview.NewTextView().SetText("space: shutter  s: switch camera  o: open last  p: open pictures  q: quit")

	u := &ui{app: app, preview: preview, thumb: thumb, status: status}
	if *render {
		u.display = &Display{}
	}
	opts = append(opts, megapixels.WithUI(u))
	session := megapixels.New(cfg, opts...)

	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyCtrlC {
			app.Stop()
			return nil
		}
		switch ev.Rune() {
		case ' ':
			session.Post(megapixels.CommandShutter)
		case 's':
			session.Post(megapixels.CommandSwitchCamera)
		case 'o':
			if path := u.lastCapture(); path != "" {
				if err := megapixels.OpenURI(launcher, "file://"+path); err != nil {
					logger.Error("could not open last capture", zap.Error(err))
				}
			}
		case 'p':
			if err := megapixels.OpenURI(launcher, "file://"+settings.PicturesDir); err != nil {
				logger.Error("could not open pictures directory", zap.Error(err))
			}
		case 'q':
			app.Stop()
		default:
			return ev
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		defer session.Close()
		if err := session.Open(); err != nil {
			runErr <- err
			return
		}
		if err := session.StartCapture(); err != nil && megapixels.IsFatal(err) {
			runErr <- err
			app.Stop()
			return
		}
		err := session.Run(ctx)
		if err != nil {
			app.Stop()
		}
		runErr <- err
	}()

	side := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(cameras, 0, 1, true).
		AddItem(thumb, 0, 1, false).
		AddItem(status, 3, 0, false)

	flex := tview.NewFlex().AddItem(side, 0, 1, true)
	if !*render {
		flex.AddItem(preview, 0, 3, false)
	}

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(flex, 0, 1, true).
		AddItem(logText, 10, 0, false).
		AddItem(help, 1, 0, false)
	if err := app.SetRoot(root, true).Run(); err != nil {
		panic(err)
	}
	cancel()

	select {
	case err := <-runErr:
		if megapixels.IsFatal(err) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case <-time.After(3 * time.Second):
	}
}
