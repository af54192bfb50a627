package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/kevmo314/go-megapixels/pkg/descriptors"
	"github.com/kevmo314/go-megapixels/pkg/device"
	"github.com/kevmo314/go-megapixels/pkg/media"
	"github.com/kevmo314/go-megapixels/pkg/requests"
	"golang.org/x/sys/unix"
)

func entityType(t uint32) string {
	switch t {
	case requests.MediaEntFIOV4L:
		return "V4L2 I/O"
	case requests.MediaEntFCamSensor:
		return "camera sensor"
	default:
		return fmt.Sprintf("type %#x", t)
	}
}

func main() {
	dir := flag.String("dir", media.DefaultDevDir, "device directory to scan")
	flag.Parse()

	paths, err := device.Glob(*dir, "media")
	if err != nil {
		log.Fatalf("Failed to scan %s: %v", *dir, err)
	}
	if len(paths) == 0 {
		fmt.Println("No media devices found")
		return
	}

	fmt.Printf("Found %d media device(s):\n\n", len(paths))

	for _, path := range paths {
		h, err := device.Open(path, unix.O_RDWR)
		if err != nil {
			fmt.Printf("%s: (Could not open: %v)\n\n", path, err)
			continue
		}
		g, err := media.Open(h, path, nil)
		if err != nil {
			fmt.Printf("%s: %v\n\n", path, err)
			h.Close()
			continue
		}
		info := g.Info()
		fmt.Printf("%s:\n", path)
		fmt.Printf("  Driver: %s\n", info.Driver)
		fmt.Printf("  Model: %s\n", info.Model)
		if info.BusInfo != "" {
			fmt.Printf("  Bus: %s\n", info.BusInfo)
		}
		fmt.Printf("  Media API: %d.%d.%d\n", info.MediaVersion>>16, (info.MediaVersion>>8)&0xff, info.MediaVersion&0xff)

		entities, err := g.Entities()
		if err != nil {
			fmt.Printf("  (Could not enumerate entities: %v)\n", err)
		}
		lookup := g.DevLookup()
		for _, e := range entities {
			node, err := lookup(e.Major, e.Minor)
			if err != nil {
				node = "-"
			}
			fmt.Printf("  Entity %d: %s (%s, %d pads, %d links) %s\n", e.ID, e.Name, entityType(e.Type), e.Pads, e.Links, node)
			if e.Type == requests.MediaEntFIOV4L && node != "-" {
				printCapture(node)
			}
		}
		g.Close()
		fmt.Println()
	}
}

func printCapture(path string) {
	h, err := device.Open(path, unix.O_RDWR|unix.O_NONBLOCK)
	if err != nil {
		fmt.Printf("    (Could not open: %v)\n", err)
		return
	}
	defer h.Close()
	var c descriptors.Capability
	if err := device.Do(h, requests.VidiocQueryCap, &c); err != nil {
		fmt.Printf("    (QUERYCAP failed: %v)\n", err)
		return
	}
	fmt.Printf("    Card: %s, Bus: %s\n", c.Card, c.BusInfo)
	fmt.Printf("    Capture: %t, Streaming: %t\n", c.Has(requests.CapVideoCapture), c.Has(requests.CapStreaming))
	var f descriptors.Format
	f.Type = requests.BufTypeVideoCapture
	if err := device.Do(h, requests.VidiocGFmt, &f); err == nil {
		fmt.Printf("    Format: %dx%d %s, %d bytes/line\n", f.Pix.Width, f.Pix.Height, fourcc(f.Pix.PixelFormat), f.Pix.BytesPerLine)
	}
}

func fourcc(code uint32) string {
	return string([]byte{byte(code), byte(code >> 8), byte(code >> 16), byte(code >> 24)})
}
