package main

import (
	"flag"
	"image"
	"image/png"
	"os"

	"github.com/kevmo314/go-megapixels"
	"go.uber.org/zap"
)

// headless records the last preview and capture so they can be saved once
// the burst is done.
type headless struct {
	logger  *zap.Logger
	preview image.Image
	last    string
}

func (h *headless) Preview(img image.Image) { h.preview = img }

func (h *headless) ShowError(msg string) { h.logger.Error(msg) }

func (h *headless) LastCaptured(path string, _ image.Image) { h.last = path }

func main() {
	configPath := flag.String("config", "", "device config file (default: search by device tree name)")
	camera := flag.Int("camera", -1, "camera index to use (default: first configured)")
	count := flag.Int("count", 5, "number of frames in the burst")
	warmup := flag.Int("warmup", 10, "preview frames to skip before the shutter, for exposure to settle")
	output := flag.String("output", "", "create burst directories under this directory instead of the system temporary directory")
	preview := flag.String("preview", "", "save the last preview frame to this PNG file")
	debug := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	var logger *zap.Logger
	if *debug {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	sp := megapixels.DefaultSearchPaths()
	if *configPath == "" {
		path, err := megapixels.FindConfig(sp)
		if err != nil {
			logger.Fatal("no config", zap.Error(err))
		}
		*configPath = path
	}
	cfg, err := megapixels.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}
	logger.Info("loaded config", zap.String("path", *configPath), zap.String("csi", cfg.Device.CSI))

	settings := megapixels.DefaultSettings()
	settings.BurstLength = *count
	if *output != "" {
		if err := os.MkdirAll(*output, 0o755); err != nil {
			logger.Fatal("could not create output directory", zap.Error(err))
		}
		settings.TempDir = *output
	}

	ui := &headless{logger: logger}
	opts := []megapixels.Option{
		megapixels.WithLogger(logger),
		megapixels.WithSettings(settings),
		megapixels.WithUI(ui),
	}
	if script, err := megapixels.FindProcessor(sp); err == nil {
		opts = append(opts, megapixels.WithPostProcessor(&megapixels.Script{Path: script, Launcher: &megapixels.ExecLauncher{Logger: logger}}))
	}
	session := megapixels.New(cfg, opts...)
	defer session.Close()

	if err := session.Open(); err != nil {
		logger.Fatal("could not open cameras", zap.Error(err))
	}
	if *camera >= 0 {
		err = session.SelectCamera(*camera)
	} else {
		err = session.StartCapture()
	}
	if err != nil {
		logger.Fatal("could not start capture", zap.Error(err))
	}

	for i := 0; i < *warmup; i++ {
		if err := session.ProcessFrame(); err != nil {
			logger.Fatal("error reading frame", zap.Int("frame", i), zap.Error(err))
		}
	}

	if err := session.TriggerShutter(); err != nil {
		logger.Fatal("shutter failed", zap.Error(err))
	}
	dir := session.Burst().Dir
	for session.Burst() != nil {
		if err := session.ProcessFrame(); err != nil {
			logger.Fatal("error reading frame", zap.Error(err))
		}
	}
	logger.Info("burst complete", zap.String("dir", dir), zap.String("last", ui.last))

	if *preview != "" && ui.preview != nil {
		f, err := os.Create(*preview)
		if err != nil {
			logger.Fatal("could not create preview file", zap.Error(err))
		}
		defer f.Close()
		if err := png.Encode(f, ui.preview); err != nil {
			logger.Error("could not encode preview", zap.Error(err))
		}
	}
}
