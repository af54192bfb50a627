// Package media resolves the Media Controller graph of a camera pipeline: it
// finds the media node of a driver, enumerates its entities, matches sensor
// entities against configured names and routes one sensor to the capture
// interface.
package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kevmo314/go-megapixels/pkg/descriptors"
	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var (
	ErrNotFound          = errors.New("could not find media node matching driver")
	ErrCamerasNotFound   = errors.New("could not find any cameras")
	ErrInterfaceNotFound = errors.New("could not find capture interface entity")
	ErrUnknownCamera     = errors.New("camera not resolved in topology")
)

const DefaultDevDir = "/dev"

type Options struct {
	// DevDir is scanned for media nodes and entity device nodes.
	DevDir string
	Open   device.Opener
	// List returns the entries of a directory matching a name prefix.
	List   func(dir, prefix string) ([]string, error)
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.DevDir == "" {
		o.DevDir = DefaultDevDir
	}
	if o.Open == nil {
		o.Open = device.Open
	}
	if o.List == nil {
		o.List = device.Glob
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Graph is an open media node.
type Graph struct {
	h      device.Handle
	path   string
	info   descriptors.MediaDeviceInfo
	devDir string
	logger *zap.Logger
}

// Find opens the first media node, in lexical order, whose driver name is
// exactly driver.
func Find(driver string, opts Options) (*Graph, error) {
	opts = opts.withDefaults()
	paths, err := opts.List(opts.DevDir, "media")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", opts.DevDir, err)
	}
	for _, path := range paths {
		h, err := opts.Open(path, unix.O_RDWR)
		if err != nil {
			opts.Logger.Debug("skipping media node", zap.String("device", path), zap.Error(err))
			continue
		}
		var info descriptors.MediaDeviceInfo
		if err := device.Do(h, requests.MediaIocDeviceInfo, &info); err != nil {
			opts.Logger.Debug("media device info failed", zap.String("device", path), zap.Error(err))
			h.Close()
			continue
		}
		if info.Driver != driver {
			h.Close()
			continue
		}
		opts.Logger.Info("found media node",
			zap.String("device", path),
			zap.String("driver", info.Driver),
			zap.String("model", info.Model))
		return &Graph{h: h, path: path, info: info, devDir: opts.DevDir, logger: opts.Logger}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, driver)
}

// Open wraps an already open media node handle. Entity nodes are looked up in
// the directory holding path.
func Open(h device.Handle, path string, logger *zap.Logger) (*Graph, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Graph{h: h, path: path, devDir: filepath.Dir(path), logger: logger}
	if err := device.Do(h, requests.MediaIocDeviceInfo, &g.info); err != nil {
		return nil, fmt.Errorf("media device info %s: %w", path, err)
	}
	return g, nil
}

func (g *Graph) Path() string { return g.path }

func (g *Graph) Info() descriptors.MediaDeviceInfo { return g.info }

func (g *Graph) Close() error { return g.h.Close() }

// Entities enumerates every entity of the graph in id order.
func (g *Graph) Entities() ([]descriptors.MediaEntityDesc, error) {
	var entities []descriptors.MediaEntityDesc
	var id uint32
	for {
		ed := descriptors.MediaEntityDesc{ID: id | requests.MediaEntIDFlagNext}
		if err := device.Do(g.h, requests.MediaIocEnumEntities, &ed); err != nil {
			if errors.Is(err, unix.EINVAL) {
				return entities, nil
			}
			return entities, fmt.Errorf("enumerate entities of %s: %w", g.path, err)
		}
		entities = append(entities, ed)
		id = ed.ID
	}
}

// Lookup maps an entity's device numbers to its node path.
type Lookup func(major, minor uint32) (string, error)

// DevLookup resolves device numbers by scanning the graph's device directory.
func (g *Graph) DevLookup() Lookup {
	return func(major, minor uint32) (string, error) {
		return device.FindCharDevice(g.devDir, major, minor)
	}
}

// Camera is a configured sensor that was found in the graph.
type Camera struct {
	Index  int
	Entity uint32
	Name   string
	Path   string
}

// Topology is the result of matching configured sensor names against the
// graph. Interface is the capture interface entity all sensors link to.
type Topology struct {
	Cameras       []Camera
	Interface     uint32
	InterfaceName string
	InterfacePath string
}

// Camera returns the resolved camera with the given configuration index.
func (t *Topology) Camera(index int) (Camera, bool) {
	for _, c := range t.Cameras {
		if c.Index == index {
			return c, true
		}
	}
	return Camera{}, false
}

// Discover matches names, indexed by profile index, against entity names by
// prefix. Empty names belong to invalid profiles and never match. A nil
// lookup scans the device directory.
func (g *Graph) Discover(names []string, lookup Lookup) (*Topology, error) {
	if lookup == nil {
		lookup = g.DevLookup()
	}
	entities, err := g.Entities()
	if err != nil {
		return nil, err
	}
	top := &Topology{}
	found := false
	for _, ed := range entities {
		if ed.Type == requests.MediaEntFIOV4L && !found {
			path, err := lookup(ed.Major, ed.Minor)
			if err != nil {
				return nil, fmt.Errorf("capture interface %q: %w", ed.Name, err)
			}
			top.Interface, top.InterfaceName, top.InterfacePath = ed.ID, ed.Name, path
			found = true
			g.logger.Debug("found capture interface", zap.String("entity", ed.Name), zap.String("device", path))
			continue
		}
		for i, name := range names {
			if name == "" || !strings.HasPrefix(ed.Name, name) {
				continue
			}
			if _, dup := top.Camera(i); dup {
				g.logger.Warn("ignoring duplicate sensor match", zap.Int("camera", i), zap.String("entity", ed.Name))
				continue
			}
			path, err := lookup(ed.Major, ed.Minor)
			if err != nil {
				return nil, fmt.Errorf("sensor %q: %w", ed.Name, err)
			}
			top.Cameras = append(top.Cameras, Camera{Index: i, Entity: ed.ID, Name: ed.Name, Path: path})
			g.logger.Info("found camera",
				zap.Int("camera", i),
				zap.String("entity", ed.Name),
				zap.Uint32("id", ed.ID),
				zap.String("device", path))
		}
	}
	if len(top.Cameras) == 0 {
		return nil, ErrCamerasNotFound
	}
	if !found {
		return nil, ErrInterfaceNotFound
	}
	return top, nil
}

// SetupLink enables or disables the link from pad 0 of source to pad 0 of
// sink.
func (g *Graph) SetupLink(source, sink uint32, enabled bool) error {
	ld := descriptors.MediaLinkDesc{
		Source: descriptors.MediaPadDesc{Entity: source},
		Sink:   descriptors.MediaPadDesc{Entity: sink},
	}
	if enabled {
		ld.Flags = requests.MediaLnkFlEnabled
	}
	if err := device.Do(g.h, requests.MediaIocSetupLink, &ld); err != nil {
		return fmt.Errorf("setup link %d -> %d (enabled=%t): %w", source, sink, enabled, err)
	}
	return nil
}

// Select routes camera index to the capture interface. Links of every other
// resolved camera are disabled first so that at most one sensor feeds the
// interface at any time.
func (g *Graph) Select(top *Topology, index int) error {
	selected, ok := top.Camera(index)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCamera, index)
	}
	for _, c := range top.Cameras {
		if c.Index == index {
			continue
		}
		if err := g.SetupLink(c.Entity, top.Interface, false); err != nil {
			return err
		}
	}
	if err := g.SetupLink(selected.Entity, top.Interface, true); err != nil {
		return err
	}
	g.logger.Debug("selected camera", zap.Int("camera", index), zap.String("entity", selected.Name))
	return nil
}
