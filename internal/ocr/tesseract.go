// Package ocr wraps the Tesseract OCR engine (via gosseract/v2) and provides
// the batch runner that recognizes text across many page images in parallel.
//
// Tesseract must be installed on the system, along with the language data for
// each language used (e.g. the tesseract-ocr-eng package for English). OCR is
// CPU-intensive; batch work goes through the worker pool rather than spawning
// a goroutine per page.
package ocr

import (
	"fmt"
	"image"

	"github.com/otiai10/gosseract/v2"

	"github.com/slidetools/slidekit/internal/imaging"
	"github.com/slidetools/slidekit/internal/tempfiles"
)

// DefaultLanguage is the Tesseract language code used when none is configured.
const DefaultLanguage = "eng"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a recognized word with its location and confidence.
type TextRegion struct {
	// Text is the recognized text content.
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Bounds is the bounding box around this text in the image.
	Bounds Bounds `json:"bounds"`
}

// Result contains the complete output of text extraction from one image.
type Result struct {
	// FullText is all recognized text with original spacing and newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words with bounding boxes and confidence.
	// May be empty if bounding box extraction fails; FullText still holds
	// the recognized text in that case.
	Regions []TextRegion `json:"regions"`
}

// Engine recognizes text in an image file. The batch runner and feature code
// depend on this interface so tests can substitute a fake without a Tesseract
// installation.
type Engine interface {
	ExtractText(imagePath, language string) (*Result, error)
}

// Tesseract is the gosseract-backed Engine. A fresh client is created per
// call: gosseract clients are not safe for concurrent use, and per-call
// clients let pool workers run recognition in parallel.
type Tesseract struct{}

// ExtractText performs OCR on an entire image file.
//
// If word-level bounding box extraction fails (possible with some Tesseract
// configurations), the full text is still returned with empty Regions.
func (Tesseract) ExtractText(imagePath, language string) (*Result, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &Result{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
		})
	}

	return &Result{FullText: text, Regions: regions}, nil
}

// ExtractTextFromRegion performs OCR on a rectangular region of an already
// decoded image. The crop is staged through the temp-file manager (Tesseract
// needs a file path) and cleaned up on every exit path. Returned bounding
// boxes are adjusted back to original-image coordinates.
func ExtractTextFromRegion(engine Engine, temps *tempfiles.Manager, img image.Image, x1, y1, x2, y2 int, language string) (*Result, error) {
	cropped, err := imaging.Crop(img, x1, y1, x2, y2)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = temps.WithFile(".png", func(path string) error {
		if err := imaging.SavePNG(path, cropped); err != nil {
			return err
		}
		r, err := engine.ExtractText(path, language)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range result.Regions {
		result.Regions[i].Bounds.X1 += x1
		result.Regions[i].Bounds.Y1 += y1
		result.Regions[i].Bounds.X2 += x1
		result.Regions[i].Bounds.Y2 += y1
	}
	return result, nil
}
