// Package inpaint implements the background-removal and region-replacement
// pipeline used when editing slide images: pixels close to a background color
// become transparent, and rectangular regions can be replaced with new
// content (e.g. an AI-generated patch).
//
// The pipeline is pure image-in/image-out; callers own staging and caching of
// the results.
package inpaint

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// DefaultTolerance is the color-distance threshold (CIE Lab) below which a
// pixel counts as background. Lab distances around 0.1 correspond to "same
// color under compression artifacts".
const DefaultTolerance = 0.12

// Options controls background removal.
type Options struct {
	// TargetHex is the background color as "#RRGGBB". Empty means sample
	// the image border.
	TargetHex string

	// Tolerance is the Lab color distance below which a pixel is treated
	// as background. Zero selects DefaultTolerance.
	Tolerance float64

	// Feather is the Gaussian blur radius applied to the transparency
	// mask, softening the cutout edge. Zero means a hard edge.
	Feather float64
}

// RemoveBackground returns a copy of img in which pixels matching the
// background color are transparent. The input image is not modified.
func RemoveBackground(img image.Image, opts Options) (*image.NRGBA, error) {
	tolerance := opts.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var target colorful.Color
	if opts.TargetHex != "" {
		c, err := colorful.Hex(opts.TargetHex)
		if err != nil {
			return nil, fmt.Errorf("invalid target color %q: %w", opts.TargetHex, err)
		}
		target = c
	} else {
		target = sampleBorderColor(img)
	}

	src := imaging.Clone(img)
	bounds := src.Bounds()
	mask := buildMask(src, target, tolerance)

	if opts.Feather > 0 {
		mask = blur.Gaussian(mask, opts.Feather)
	}

	out := image.NewNRGBA(bounds)
	copy(out.Pix, src.Pix)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			keep := mask.RGBAAt(x, y).R
			i := out.PixOffset(x, y)
			// Scale existing alpha by the mask so already-transparent
			// pixels stay transparent.
			out.Pix[i+3] = uint8(uint16(out.Pix[i+3]) * uint16(keep) / 255)
		}
	}
	return out, nil
}

// buildMask marks foreground pixels white and background pixels black.
func buildMask(src *image.NRGBA, target colorful.Color, tolerance float64) *image.RGBA {
	bounds := src.Bounds()
	mask := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px, ok := colorful.MakeColor(src.NRGBAAt(x, y))
			v := uint8(255)
			if ok && px.DistanceLab(target) <= tolerance {
				v = 0
			}
			mask.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return mask
}

// sampleBorderColor averages the outermost ring of pixels; slide exports
// almost always have a uniform background touching the border.
func sampleBorderColor(img image.Image) colorful.Color {
	bounds := img.Bounds()
	var rSum, gSum, bSum float64
	var n float64

	add := func(x, y int) {
		c, ok := colorful.MakeColor(img.At(x, y))
		if !ok {
			return
		}
		rSum += c.R
		gSum += c.G
		bSum += c.B
		n++
	}

	for x := bounds.Min.X; x < bounds.Max.X; x++ {
		add(x, bounds.Min.Y)
		add(x, bounds.Max.Y-1)
	}
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		add(bounds.Min.X, y)
		add(bounds.Max.X-1, y)
	}

	if n == 0 {
		return colorful.Color{R: 1, G: 1, B: 1} // fully transparent border, assume white
	}
	return colorful.Color{R: rSum / n, G: gSum / n, B: bSum / n}
}

// ReplaceRegion composites patch over the given region of img, scaling the
// patch to fill the region exactly. Used to splice AI-generated replacements
// back into a page.
func ReplaceRegion(img image.Image, region image.Rectangle, patch image.Image) (*image.NRGBA, error) {
	bounds := img.Bounds()
	if !region.In(bounds) {
		return nil, fmt.Errorf("region %v outside image bounds %v", region, bounds)
	}
	if region.Empty() {
		return nil, fmt.Errorf("empty replacement region %v", region)
	}

	scaled := imaging.Resize(patch, region.Dx(), region.Dy(), imaging.Lanczos)
	return imaging.Paste(img, scaled, region.Min), nil
}
