package devicetest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kevmo314/go-megapixels/pkg/descriptors"
	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"golang.org/x/sys/unix"
)

const pageShift = 12

// Sensor is a simulated sensor sub-device.
type Sensor struct {
	Entity   descriptors.MediaEntityDesc
	Path     string
	Format   descriptors.MbusFrameFormat
	Interval descriptors.Fract
	Controls map[requests.ControlID]int32

	// RejectFormat makes VIDIOC_SUBDEV_S_FMT fail with EINVAL.
	RejectFormat bool
	// RejectControls makes every VIDIOC_S_CTRL fail with EINVAL.
	RejectControls bool
}

// Kernel simulates one media controller with its sensors and a single
// capture interface. The zero value is not usable; use NewKernel.
type Kernel struct {
	Driver    string
	MediaPath string
	VideoPath string
	Interface descriptors.MediaEntityDesc
	Sensors   []*Sensor

	// Caps is returned from VIDIOC_QUERYCAP.
	Caps uint32
	// GrantBuffers caps the number of buffers REQBUFS hands out; 0 grants
	// whatever was asked for.
	GrantBuffers uint32
	// RejectMmapIO makes REQBUFS fail with EINVAL.
	RejectMmapIO bool
	// RejectSFmt makes VIDIOC_S_FMT fail with EINVAL.
	RejectSFmt bool
	// LinkErr, when set, fails MEDIA_IOC_SETUP_LINK.
	LinkErr error
	// Fill writes frame seq into a dequeued buffer. The default fills it
	// with the low byte of seq.
	Fill func(seq uint32, b []byte)
	// EAGAIN is the number of DQBUF calls that report EAGAIN before a
	// frame is delivered.
	EAGAIN int
	// Stalled makes the capture node never become readable.
	Stalled bool

	mu        sync.Mutex
	links     map[uint32]bool
	pix       descriptors.PixFormat
	bufs      [][]byte
	queued    []uint32
	streaming bool
	seq       uint32
	opened    map[string]int
	handles   []*Fake
}

// NewKernel builds a media graph whose sensors are named after names. Sensor
// i gets entity id i+1 and node /dev/v4l-subdev<i>; the capture interface is
// /dev/video0.
func NewKernel(driver string, names ...string) *Kernel {
	k := &Kernel{
		Driver:    driver,
		MediaPath: "/dev/media0",
		VideoPath: "/dev/video0",
		Caps:      requests.CapVideoCapture | requests.CapStreaming,
		links:     make(map[uint32]bool),
		opened:    make(map[string]int),
	}
	for i, name := range names {
		k.Sensors = append(k.Sensors, &Sensor{
			Entity: descriptors.MediaEntityDesc{
				ID:    uint32(i + 1),
				Name:  name,
				Type:  requests.MediaEntFCamSensor,
				Pads:  1,
				Links: 1,
				Major: 81,
				Minor: uint32(10 + i),
			},
			Path:     fmt.Sprintf("/dev/v4l-subdev%d", i),
			Controls: make(map[requests.ControlID]int32),
		})
	}
	k.Interface = descriptors.MediaEntityDesc{
		ID:    uint32(len(names) + 1),
		Name:  driver,
		Type:  requests.MediaEntFIOV4L,
		Pads:  1,
		Major: 81,
		Minor: 0,
	}
	return k
}

// Open is a device.Opener over the simulated nodes.
func (k *Kernel) Open(path string, flags int) (device.StreamHandle, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	var handler func(requests.Request, []byte) error
	switch {
	case path == k.MediaPath:
		handler = k.media
	case path == k.VideoPath:
		handler = k.video
	default:
		s := k.sensorByPath(path)
		if s == nil {
			return nil, &os.PathError{Op: "open", Path: path, Err: unix.ENOENT}
		}
		handler = func(req requests.Request, arg []byte) error { return k.subdev(s, req, arg) }
	}
	f := &Fake{Path: path, Handler: handler}
	if path == k.VideoPath {
		f.MmapFunc = k.mmap
		f.Readable = k.readable
	}
	k.opened[path]++
	k.handles = append(k.handles, f)
	return f, nil
}

// List lists simulated nodes in dir whose names start with prefix.
func (k *Kernel) List(dir, prefix string) ([]string, error) {
	var paths []string
	for _, p := range k.nodes() {
		if filepath.Dir(p) == dir && strings.HasPrefix(filepath.Base(p), prefix) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Lookup resolves a major:minor pair to its simulated node.
func (k *Kernel) Lookup(major, minor uint32) (string, error) {
	if k.Interface.Major == major && k.Interface.Minor == minor {
		return k.VideoPath, nil
	}
	for _, s := range k.Sensors {
		if s.Entity.Major == major && s.Entity.Minor == minor {
			return s.Path, nil
		}
	}
	return "", fmt.Errorf("%w: %d:%d", device.ErrNodeNotFound, major, minor)
}

func (k *Kernel) nodes() []string {
	paths := []string{k.MediaPath, k.VideoPath}
	for _, s := range k.Sensors {
		paths = append(paths, s.Path)
	}
	return paths
}

// EnabledLinks returns the entity ids of sensors whose link to the capture
// interface is enabled.
func (k *Kernel) EnabledLinks() []uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	var ids []uint32
	for id, on := range k.links {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Handles returns every handle opened so far.
func (k *Kernel) Handles() []*Fake {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]*Fake(nil), k.handles...)
}

// OpenCount reports how many times path was opened.
func (k *Kernel) OpenCount(path string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.opened[path]
}

// Streaming reports whether the capture interface is streaming.
func (k *Kernel) Streaming() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.streaming
}

// Buffers reports the size of the kernel buffer pool.
func (k *Kernel) Buffers() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.bufs)
}

func (k *Kernel) sensorByPath(path string) *Sensor {
	for _, s := range k.Sensors {
		if s.Path == path {
			return s
		}
	}
	return nil
}

// Sensor returns the simulated sensor with the given entity id.
func (k *Kernel) Sensor(id uint32) *Sensor {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, s := range k.Sensors {
		if s.Entity.ID == id {
			return s
		}
	}
	return nil
}

func (k *Kernel) entities() []descriptors.MediaEntityDesc {
	ents := make([]descriptors.MediaEntityDesc, 0, len(k.Sensors)+1)
	for _, s := range k.Sensors {
		ents = append(ents, s.Entity)
	}
	return append(ents, k.Interface)
}

func (k *Kernel) media(req requests.Request, arg []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch req {
	case requests.MediaIocDeviceInfo:
		di := descriptors.MediaDeviceInfo{Driver: k.Driver, Model: k.Driver, MediaVersion: 0x050a00}
		return di.MarshalInto(arg)
	case requests.MediaIocEnumEntities:
		var ed descriptors.MediaEntityDesc
		if err := ed.UnmarshalBinary(arg); err != nil {
			return unix.EINVAL
		}
		for _, e := range k.entities() {
			if ed.ID&requests.MediaEntIDFlagNext != 0 {
				if e.ID > ed.ID&^requests.MediaEntIDFlagNext {
					return e.MarshalInto(arg)
				}
			} else if e.ID == ed.ID {
				return e.MarshalInto(arg)
			}
		}
		return unix.EINVAL
	case requests.MediaIocSetupLink:
		if k.LinkErr != nil {
			return k.LinkErr
		}
		var ld descriptors.MediaLinkDesc
		if err := ld.UnmarshalBinary(arg); err != nil {
			return unix.EINVAL
		}
		if ld.Sink.Entity != k.Interface.ID {
			return unix.EINVAL
		}
		known := false
		for _, s := range k.Sensors {
			known = known || s.Entity.ID == ld.Source.Entity
		}
		if !known {
			return unix.EINVAL
		}
		k.links[ld.Source.Entity] = ld.Flags&requests.MediaLnkFlEnabled != 0
		return nil
	}
	return unix.ENOTTY
}

func (k *Kernel) subdev(s *Sensor, req requests.Request, arg []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch req {
	case requests.VidiocSubdevSFrameInterval:
		var fi descriptors.SubdevFrameInterval
		if err := fi.UnmarshalBinary(arg); err != nil || fi.Interval.Denominator == 0 {
			return unix.EINVAL
		}
		s.Interval = fi.Interval
		return nil
	case requests.VidiocSubdevSFmt:
		if s.RejectFormat {
			return unix.EINVAL
		}
		var sf descriptors.SubdevFormat
		if err := sf.UnmarshalBinary(arg); err != nil {
			return unix.EINVAL
		}
		s.Format = sf.Format
		return nil
	case requests.VidiocSCtrl:
		if s.RejectControls {
			return unix.EINVAL
		}
		var c descriptors.Control
		if err := c.UnmarshalBinary(arg); err != nil {
			return unix.EINVAL
		}
		s.Controls[c.ID] = c.Value
		return nil
	}
	return unix.ENOTTY
}

func (k *Kernel) video(req requests.Request, arg []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch req {
	case requests.VidiocQueryCap:
		c := descriptors.Capability{Driver: k.Driver, Card: k.Driver, BusInfo: "platform:" + k.Driver, Capabilities: k.Caps}
		return c.MarshalInto(arg)
	case requests.VidiocCropCap:
		return unix.EINVAL
	case requests.VidiocSCrop:
		return nil
	case requests.VidiocSFmt:
		if k.RejectSFmt {
			return unix.EINVAL
		}
		var f descriptors.Format
		if err := f.UnmarshalBinary(arg); err != nil {
			return unix.EINVAL
		}
		f.Pix.BytesPerLine = f.Pix.Width
		f.Pix.SizeImage = f.Pix.Width * f.Pix.Height
		k.pix = f.Pix
		return f.MarshalInto(arg)
	case requests.VidiocGFmt:
		f := descriptors.Format{Type: requests.BufTypeVideoCapture, Pix: k.pix}
		return f.MarshalInto(arg)
	case requests.VidiocReqBufs:
		if k.RejectMmapIO {
			return unix.EINVAL
		}
		var rb descriptors.RequestBuffers
		if err := rb.UnmarshalBinary(arg); err != nil {
			return unix.EINVAL
		}
		if k.streaming {
			return unix.EBUSY
		}
		if k.GrantBuffers > 0 && rb.Count > k.GrantBuffers {
			rb.Count = k.GrantBuffers
		}
		k.bufs = make([][]byte, rb.Count)
		size := int(k.pix.SizeImage)
		for i := range k.bufs {
			k.bufs[i] = make([]byte, size)
		}
		k.queued = nil
		return rb.MarshalInto(arg)
	case requests.VidiocQueryBuf:
		var b descriptors.Buffer
		if err := b.UnmarshalBinary(arg); err != nil || int(b.Index) >= len(k.bufs) {
			return unix.EINVAL
		}
		b.Offset = b.Index << pageShift
		b.Length = uint32(len(k.bufs[b.Index]))
		return b.MarshalInto(arg)
	case requests.VidiocQBuf:
		var b descriptors.Buffer
		if err := b.UnmarshalBinary(arg); err != nil || int(b.Index) >= len(k.bufs) {
			return unix.EINVAL
		}
		for _, q := range k.queued {
			if q == b.Index {
				return unix.EINVAL
			}
		}
		k.queued = append(k.queued, b.Index)
		return nil
	case requests.VidiocDQBuf:
		if !k.streaming {
			return unix.EINVAL
		}
		if k.EAGAIN > 0 {
			k.EAGAIN--
			return unix.EAGAIN
		}
		if len(k.queued) == 0 {
			return unix.EAGAIN
		}
		var b descriptors.Buffer
		if err := b.UnmarshalBinary(arg); err != nil {
			return unix.EINVAL
		}
		index := k.queued[0]
		k.queued = k.queued[1:]
		k.seq++
		data := k.bufs[index]
		if k.Fill != nil {
			k.Fill(k.seq, data)
		} else {
			for i := range data {
				data[i] = byte(k.seq)
			}
		}
		b.Index = index
		b.BytesUsed = uint32(len(data))
		b.Sequence = k.seq
		b.Offset = index << pageShift
		b.Length = uint32(len(data))
		return b.MarshalInto(arg)
	case requests.VidiocStreamOn:
		k.streaming = true
		return nil
	case requests.VidiocStreamOff:
		k.streaming = false
		k.queued = nil
		return nil
	}
	return unix.ENOTTY
}

func (k *Kernel) readable(time.Duration) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return !k.Stalled, nil
}

func (k *Kernel) mmap(offset int64, length int) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	index := int(offset >> pageShift)
	if index >= len(k.bufs) || length > len(k.bufs[index]) {
		return nil, unix.EINVAL
	}
	return k.bufs[index][:length], nil
}
