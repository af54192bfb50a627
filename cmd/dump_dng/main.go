package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kevmo314/go-megapixels/pkg/dng"
)

func dumpDirectory(name string, d *dng.Directory) {
	fmt.Printf("\n%s (offset %d, %d entries):\n", name, d.Offset, len(d.Entries))
	for _, e := range d.Entries {
		fmt.Printf("  %s\n", e)
	}
}

func main() {
	pixels := flag.Bool("pixels", false, "also read back the raw strip and print its size")
	flag.Parse()
	if flag.NArg() == 0 {
		log.Fatal("usage: dump_dng [-pixels] <file.dng>...")
	}

	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("Failed to open file: %v", err)
		}

		file, err := dng.Decode(f)
		if err != nil {
			f.Close()
			log.Fatalf("Failed to decode %s: %v", path, err)
		}

		fmt.Printf("=== %s ===\n", path)
		dumpDirectory("IFD0", file.IFD0)
		for i, d := range file.SubIFDs {
			dumpDirectory(fmt.Sprintf("SubIFD %d", i), d)
		}
		if file.Exif != nil {
			dumpDirectory("EXIF", file.Exif)
		}

		if *pixels {
			if raw, ok := file.Raw(); ok {
				data, err := raw.Pixels(f)
				if err != nil {
					log.Printf("Failed to read raw pixels: %v", err)
				} else {
					w, _ := raw.Uint(dng.TagImageWidth)
					h, _ := raw.Uint(dng.TagImageLength)
					fmt.Printf("\nRaw: %dx%d, %d bytes\n", w, h, len(data))
				}
			}
		}
		f.Close()
		fmt.Println()
	}
}
