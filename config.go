package megapixels

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kevmo314/go-megapixels/pkg/formats"
	"gopkg.in/ini.v1"
)

var (
	ErrConfigNotFound    = errors.New("could not find any config file")
	ErrProcessorNotFound = errors.New("could not find any post-process script")
)

// DeviceInfo is the [device] section: the media driver the cameras hang off
// and the make and model recorded in every file.
type DeviceInfo struct {
	CSI   string
	Make  string
	Model string
}

// Config is a parsed device configuration file.
type Config struct {
	Path    string
	Device  DeviceInfo
	Cameras []CameraProfile
}

// Camera returns the profile at index if it exists and is valid.
func (c *Config) Camera(index int) (*CameraProfile, bool) {
	if index < 0 || index >= len(c.Cameras) || !c.Cameras[index].Valid {
		return nil, false
	}
	return &c.Cameras[index], true
}

// LoadConfig reads and parses the configuration file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// ParseConfig parses a configuration file. Any section or key it does not
// know, and any value it cannot parse, is an error.
func ParseConfig(data []byte) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{}, data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg := &Config{}
	for _, sec := range f.Sections() {
		name := sec.Name()
		switch {
		case name == ini.DefaultSection:
			if len(sec.Keys()) > 0 {
				return nil, fmt.Errorf("key %q outside of any section", sec.Keys()[0].Name())
			}
		case name == "device":
			if err := parseDevice(sec, &cfg.Device); err != nil {
				return nil, err
			}
		default:
			index, err := strconv.Atoi(name)
			if err != nil || index < 0 {
				return nil, fmt.Errorf("unknown section [%s] in config file", name)
			}
			for len(cfg.Cameras) <= index {
				cfg.Cameras = append(cfg.Cameras, CameraProfile{Index: len(cfg.Cameras)})
			}
			if err := parseCamera(sec, &cfg.Cameras[index]); err != nil {
				return nil, err
			}
		}
	}
	return cfg, nil
}

func parseDevice(sec *ini.Section, d *DeviceInfo) error {
	for _, key := range sec.Keys() {
		switch key.Name() {
		case "csi":
			d.CSI = key.String()
		case "make":
			d.Make = key.String()
		case "model":
			d.Model = key.String()
		default:
			return fmt.Errorf("unknown key %q in [device]", key.Name())
		}
	}
	return nil
}

func parseCamera(sec *ini.Section, p *CameraProfile) error {
	p.Valid = true
	for _, key := range sec.Keys() {
		var err error
		switch key.Name() {
		case "width":
			p.Width, err = parseUint32(key)
		case "height":
			p.Height, err = parseUint32(key)
		case "rate":
			p.Rate, err = parseUint32(key)
		case "rotate":
			p.Rotate, err = key.Int()
			if err == nil && p.Rotate != 0 && p.Rotate != 90 && p.Rotate != 180 && p.Rotate != 270 {
				err = fmt.Errorf("rotation must be 0, 90, 180 or 270")
			}
		case "fmt":
			p.Format, err = formats.Parse(key.String())
		case "driver":
			p.Name = key.String()
		case "colormatrix":
			p.ColorMatrix, err = parseMatrix(key.String())
		case "forwardmatrix":
			p.ForwardMatrix, err = parseMatrix(key.String())
		case "whitelevel":
			p.WhiteLevel, err = parseUint32(key)
		case "blacklevel":
			p.BlackLevel, err = parseUint32(key)
		case "focallength":
			p.FocalLength, err = key.Float64()
		case "cropfactor":
			p.CropFactor, err = key.Float64()
		case "fnumber":
			p.FNumber, err = key.Float64()
		default:
			return fmt.Errorf("unknown key %q in [%s]", key.Name(), sec.Name())
		}
		if err != nil {
			return fmt.Errorf("[%s] %s = %q: %w", sec.Name(), key.Name(), key.String(), err)
		}
	}
	return nil
}

func parseUint32(key *ini.Key) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(key.String()), 10, 32)
	return uint32(v), err
}

func parseMatrix(s string) ([9]float64, error) {
	var m [9]float64
	parts := strings.Split(s, ",")
	if len(parts) != len(m) {
		return m, fmt.Errorf("want %d comma separated values, got %d", len(m), len(parts))
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return m, err
		}
		m[i] = v
	}
	return m, nil
}

// SearchPaths lists where configuration files and the post-processing
// script are looked for.
type SearchPaths struct {
	// WorkDir is checked first, for running from a source checkout.
	WorkDir string
	// ConfigHome is $XDG_CONFIG_HOME or ~/.config.
	ConfigHome string
	// System directories, most specific first.
	System []string
	// DeviceTree is the compatible file naming the board.
	DeviceTree string
	// Fallback is the single config file used when no board file exists.
	Fallback string
}

// DefaultSearchPaths returns the standard locations.
func DefaultSearchPaths() SearchPaths {
	configHome, err := os.UserConfigDir()
	if err != nil {
		configHome = ""
	}
	return SearchPaths{
		WorkDir:    ".",
		ConfigHome: configHome,
		System:     []string{"/etc/megapixels", "/usr/share/megapixels"},
		DeviceTree: "/proc/device-tree/compatible",
		Fallback:   "/etc/megapixels.ini",
	}
}

func (sp SearchPaths) dirs() []string {
	var dirs []string
	if sp.WorkDir != "" {
		dirs = append(dirs, sp.WorkDir)
	}
	if sp.ConfigHome != "" {
		dirs = append(dirs, filepath.Join(sp.ConfigHome, "megapixels"))
	}
	return append(dirs, sp.System...)
}

// DeviceTreeName returns the first compatible string of the board, e.g.
// "pine64,pinephone-1.2".
func DeviceTreeName(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read device name from device tree: %w", err)
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty device tree compatible in %s", path)
	}
	return string(data), nil
}

// FindConfig looks for config/<board>.ini in every search directory, then
// falls back to the single system-wide file.
func FindConfig(sp SearchPaths) (string, error) {
	if sp.DeviceTree != "" {
		if name, err := DeviceTreeName(sp.DeviceTree); err == nil {
			for _, dir := range sp.dirs() {
				path := filepath.Join(dir, "config", name+".ini")
				if isFile(path) {
					return path, nil
				}
			}
		}
	}
	if sp.Fallback != "" && isFile(sp.Fallback) {
		return sp.Fallback, nil
	}
	return "", ErrConfigNotFound
}

// FindProcessor looks for postprocess.sh in every search directory.
func FindProcessor(sp SearchPaths) (string, error) {
	for _, dir := range sp.dirs() {
		path := filepath.Join(dir, "postprocess.sh")
		if isFile(path) {
			return path, nil
		}
	}
	return "", ErrProcessorNotFound
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
