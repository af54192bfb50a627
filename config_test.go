package megapixels

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kevmo314/go-megapixels/pkg/formats"
)

const pinephone = `
[device]
csi=sun6i-csi
make=PINE64
model=PinePhone

[0]
driver=ov5640
width=2592
height=1944
rate=15
fmt=BGGR8
rotate=270
colormatrix=1.384,-0.3203,-0.0124,-0.2728,1.049,0.1556,-0.0506,0.2577,0.8050
forwardmatrix=0.7331,0.1294,0.1018,0.3039,0.6698,0.0263,0.0002,0.0556,0.7693
blacklevel=3
whitelevel=255
focallength=3.33
cropfactor=10.81
fnumber=3.0

[1]
driver=gc2145
width=1280
height=960
rate=30
fmt=BGGR8
rotate=90
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(pinephone))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.Device != (DeviceInfo{CSI: "sun6i-csi", Make: "PINE64", Model: "PinePhone"}) {
		t.Errorf("Device = %+v", cfg.Device)
	}
	if len(cfg.Cameras) != 2 {
		t.Fatalf("len(Cameras) = %d, want 2", len(cfg.Cameras))
	}
	rear := cfg.Cameras[0]
	if !rear.Valid || rear.Name != "ov5640" || rear.Width != 2592 || rear.Height != 1944 || rear.Rate != 15 {
		t.Errorf("camera 0 = %v", &rear)
	}
	if rear.Rotate != 270 {
		t.Errorf("Rotate = %d, want 270", rear.Rotate)
	}
	if rear.Format != formats.BGGR8 {
		t.Errorf("Format = %v, want BGGR8", rear.Format)
	}
	if rear.ColorMatrix[0] != 1.384 || rear.ColorMatrix[8] != 0.8050 {
		t.Errorf("ColorMatrix = %v", rear.ColorMatrix)
	}
	if rear.ForwardMatrix[1] != 0.1294 {
		t.Errorf("ForwardMatrix = %v", rear.ForwardMatrix)
	}
	if rear.BlackLevel != 3 || rear.WhiteLevel != 255 {
		t.Errorf("levels = %d/%d, want 3/255", rear.BlackLevel, rear.WhiteLevel)
	}
	if rear.FocalLength != 3.33 || rear.CropFactor != 10.81 || rear.FNumber != 3.0 {
		t.Errorf("optics = %v %v %v", rear.FocalLength, rear.CropFactor, rear.FNumber)
	}
	front, ok := cfg.Camera(1)
	if !ok || front.Name != "gc2145" || front.Rotate != 90 {
		t.Errorf("Camera(1) = %v, %t", front, ok)
	}
	if _, ok := cfg.Camera(2); ok {
		t.Error("Camera(2) reported as configured")
	}
}

func TestParseConfigGaps(t *testing.T) {
	cfg, err := ParseConfig([]byte("[device]\ncsi=sun6i-csi\n\n[2]\ndriver=gc2145\nfmt=BGGR8\n"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if len(cfg.Cameras) != 3 {
		t.Fatalf("len(Cameras) = %d, want 3", len(cfg.Cameras))
	}
	for i := 0; i < 2; i++ {
		if cfg.Cameras[i].Valid {
			t.Errorf("camera %d should be an invalid placeholder", i)
		}
		if cfg.Cameras[i].Index != i {
			t.Errorf("camera %d has index %d", i, cfg.Cameras[i].Index)
		}
		if _, ok := cfg.Camera(i); ok {
			t.Errorf("Camera(%d) reported as configured", i)
		}
	}
	if p, ok := cfg.Camera(2); !ok || p.Name != "gc2145" || p.Index != 2 {
		t.Errorf("Camera(2) = %v, %t", p, ok)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown section", "[sensor]\nwidth=1\n", "unknown section"},
		{"negative section", "[-1]\nwidth=1\n", "unknown section"},
		{"unknown device key", "[device]\nbus=i2c\n", "unknown key"},
		{"unknown camera key", "[0]\ngain=4\n", "unknown key"},
		{"key outside section", "width=1\n[0]\n", "outside of any section"},
		{"bad width", "[0]\nwidth=wide\n", "width"},
		{"bad rotation", "[0]\nrotate=45\n", "rotation"},
		{"short matrix", "[0]\ncolormatrix=1,0,0,0,1,0,0,0\n", "9 comma separated"},
		{"bad matrix value", "[0]\ncolormatrix=1,0,0,0,x,0,0,0,1\n", "colormatrix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseConfig succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestParseConfigFormat(t *testing.T) {
	_, err := ParseConfig([]byte("[0]\nfmt=YUYV\n"))
	if !errors.Is(err, formats.ErrUnknownFormat) {
		t.Fatalf("error = %v, want %v", err, formats.ErrUnknownFormat)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pine64,pinephone-1.2.ini")
	if err := os.WriteFile(path, []byte(pinephone), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Path != path {
		t.Errorf("Path = %s, want %s", cfg.Path, path)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.ini")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) error = %v, want not exist", err)
	}
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDeviceTreeName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compatible")
	writeFile(t, path, "pine64,pinephone-1.2\x00pine64,pinephone\x00allwinner,sun50i-a64\x00")
	name, err := DeviceTreeName(path)
	if err != nil {
		t.Fatalf("DeviceTreeName failed: %v", err)
	}
	if name != "pine64,pinephone-1.2" {
		t.Errorf("DeviceTreeName = %q", name)
	}

	writeFile(t, path, "")
	if _, err := DeviceTreeName(path); err == nil {
		t.Error("DeviceTreeName accepted an empty file")
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	sp := SearchPaths{
		WorkDir:    filepath.Join(root, "work"),
		ConfigHome: filepath.Join(root, "home"),
		System:     []string{filepath.Join(root, "etc"), filepath.Join(root, "usr")},
		DeviceTree: filepath.Join(root, "compatible"),
		Fallback:   filepath.Join(root, "megapixels.ini"),
	}
	writeFile(t, sp.DeviceTree, "pine64,pinephone-1.2\x00")

	if _, err := FindConfig(sp); !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("FindConfig error = %v, want %v", err, ErrConfigNotFound)
	}

	writeFile(t, sp.Fallback, pinephone)
	if got, _ := FindConfig(sp); got != sp.Fallback {
		t.Errorf("FindConfig = %s, want fallback %s", got, sp.Fallback)
	}

	system := filepath.Join(root, "usr", "config", "pine64,pinephone-1.2.ini")
	writeFile(t, system, pinephone)
	if got, _ := FindConfig(sp); got != system {
		t.Errorf("FindConfig = %s, want %s", got, system)
	}

	user := filepath.Join(root, "home", "megapixels", "config", "pine64,pinephone-1.2.ini")
	writeFile(t, user, pinephone)
	if got, _ := FindConfig(sp); got != user {
		t.Errorf("FindConfig = %s, want %s", got, user)
	}

	work := filepath.Join(root, "work", "config", "pine64,pinephone-1.2.ini")
	writeFile(t, work, pinephone)
	if got, _ := FindConfig(sp); got != work {
		t.Errorf("FindConfig = %s, want %s", got, work)
	}
}

func TestFindProcessor(t *testing.T) {
	root := t.TempDir()
	sp := SearchPaths{System: []string{filepath.Join(root, "etc"), filepath.Join(root, "usr")}}
	if _, err := FindProcessor(sp); !errors.Is(err, ErrProcessorNotFound) {
		t.Fatalf("FindProcessor error = %v, want %v", err, ErrProcessorNotFound)
	}
	script := filepath.Join(root, "usr", "postprocess.sh")
	writeFile(t, script, "#!/bin/sh\n")
	if got, _ := FindProcessor(sp); got != script {
		t.Errorf("FindProcessor = %s, want %s", got, script)
	}
	if err := os.Mkdir(filepath.Join(root, "etc"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "etc", "postprocess.sh"), 0o755); err != nil {
		t.Fatal(err)
	}
	if got, _ := FindProcessor(sp); got != script {
		t.Errorf("FindProcessor = %s, want %s; directories must be skipped", got, script)
	}
}
