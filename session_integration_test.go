//go:build integration

package megapixels

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func openHardware(t *testing.T) *Session {
	path, err := FindConfig(DefaultSearchPaths())
	if err != nil {
		t.Skip(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	settings := DefaultSettings()
	settings.BurstLength = 2
	settings.TempDir = t.TempDir()
	settings.PicturesDir = t.TempDir()
	s := New(cfg, WithLogger(zaptest.NewLogger(t)), WithSettings(settings))
	if err := s.Open(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.StartCapture(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestHardwarePreview(t *testing.T) {
	s := openHardware(t)
	for i := 0; i < 10; i++ {
		if err := s.ProcessFrame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
}

func TestHardwareSwitchAndBurst(t *testing.T) {
	s := openHardware(t)
	n := len(s.Topology().Cameras)
	for i := 0; i < n; i++ {
		if err := s.SwitchCamera(); err != nil {
			t.Fatal(err)
		}
		if err := s.ProcessFrame(); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.TriggerShutter(); err != nil {
		t.Fatal(err)
	}
	dir := s.Burst().Dir
	deadline := time.Now().Add(10 * time.Second)
	for s.Burst() != nil && time.Now().Before(deadline) {
		if err := s.ProcessFrame(); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"1.dng", "2.dng"} {
		st, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		t.Logf("%s: %d bytes", name, st.Size())
	}
}
