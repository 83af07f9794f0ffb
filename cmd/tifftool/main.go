package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/nfnt/resize"
	"golang.org/x/image/bmp"

	tiff "github.com/finn-no/TwelveMonkeys"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "info":
		if err := runInfo(os.Args[2:]); err != nil {
			fail(err)
		}
	case "decode":
		if err := runDecode(os.Args[2:]); err != nil {
			fail(err)
		}
	case "thumbnail":
		if err := runThumbnail(os.Args[2:]); err != nil {
			fail(err)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: tifftool <command> [args]")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  info      -in input.tif")
	fmt.Fprintln(os.Stderr, "  decode    -in input.tif -out output.png [-image 0] [-format png|bmp]")
	fmt.Fprintln(os.Stderr, "  thumbnail -in input.tif -out thumb.png -w 256 [-h 0] [-image 0]")
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	inPath := fs.String("in", "", "input TIFF")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" {
		return errors.New("missing required arguments")
	}

	d, closeFn, err := openDecoder(*inPath)
	if err != nil {
		return err
	}
	defer closeFn()

	ifds, err := d.Directories()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Number of images: %d\n", ifds.Count())

	for i := 0; i < ifds.Count(); i++ {
		fmt.Fprintf(os.Stdout, "IFD %d:\n", i)
		for _, e := range ifds.Directory(i).Entries() {
			fmt.Fprintf(os.Stdout, "  %s\n", e.String())
		}
		if it, err := d.RawImageType(i); err == nil {
			fmt.Fprintf(os.Stdout, "  -> %s\n", it)
		} else {
			fmt.Fprintf(os.Stdout, "  -> not decodable: %v\n", err)
		}
	}
	return nil
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	inPath := fs.String("in", "", "input TIFF")
	outPath := fs.String("out", "", "output image")
	imageNo := fs.Int("image", 0, "image index")
	format := fs.String("format", "png", "output format (png or bmp)")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}

	img, err := decodeImage(*inPath, *imageNo)
	if err != nil {
		return err
	}
	return writeImage(*outPath, *format, img)
}

func runThumbnail(args []string) error {
	fs := flag.NewFlagSet("thumbnail", flag.ContinueOnError)
	inPath := fs.String("in", "", "input TIFF")
	outPath := fs.String("out", "", "output PNG")
	width := fs.Uint("w", 256, "thumbnail width")
	height := fs.Uint("h", 0, "thumbnail height (0 keeps aspect ratio)")
	imageNo := fs.Int("image", 0, "image index")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *inPath == "" || *outPath == "" {
		return errors.New("missing required arguments")
	}

	img, err := decodeImage(*inPath, *imageNo)
	if err != nil {
		return err
	}
	thumb := resize.Resize(*width, *height, img, resize.Lanczos3)
	return writeImage(*outPath, "png", thumb)
}

func openDecoder(path string) (*tiff.Decoder, func(), error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	d, err := tiff.Open(f, func(opt *tiff.Options) {
		opt.OnWarning = func(msg string) {
			fmt.Fprintln(os.Stderr, "warning:", msg)
		}
	})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return d, func() { f.Close() }, nil
}

func decodeImage(path string, imageNo int) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	const progressWidth = 64
	lastProgress := 0

	d, err := tiff.Open(f, func(opt *tiff.Options) {
		opt.OnWarning = func(msg string) {
			fmt.Fprintln(os.Stderr, "warning:", msg)
		}
		opt.OnProgress = func(pct float64) {
			steps := int(pct) * progressWidth / 100
			for i := lastProgress; i < steps; i++ {
				fmt.Fprint(os.Stderr, ".")
			}
			lastProgress = steps
		}
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprint(os.Stderr, "[")
	raster, err := d.Decode(imageNo)
	if err != nil {
		fmt.Fprintln(os.Stderr, "]")
		return nil, err
	}
	fmt.Fprintln(os.Stderr, "]")

	return raster.Image()
}

func writeImage(path, format string, img image.Image) error {
	out, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer out.Close()

	switch format {
	case "png":
		return png.Encode(out, img)
	case "bmp":
		return bmp.Encode(out, img)
	}
	return fmt.Errorf("unknown output format: %s", format)
}
