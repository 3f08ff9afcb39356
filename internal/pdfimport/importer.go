// Package pdfimport brings PDF documents into the editor: the source file is
// staged in a managed temp directory (the original may sit on removable media
// or be held open by another application) and per-page text is extracted in
// parallel on the shared worker pool.
//
// Rendering pages to images and rebuilding layout are out of scope here; this
// package produces the text content that seeds editable text boxes.
package pdfimport

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/slidetools/slidekit/internal/pool"
	"github.com/slidetools/slidekit/internal/tempfiles"
)

// PageText is the extracted text of one page. Pages are 1-based, matching
// PDF conventions. A page that could not be parsed carries its own error;
// sibling pages are unaffected.
type PageText struct {
	Number int
	Text   string
	Err    error
}

// Importer extracts content from PDF files using the shared pool and
// temp-file manager.
type Importer struct {
	workers *pool.Pool
	temps   *tempfiles.Manager
	log     zerolog.Logger
}

// NewImporter wires an importer to the shared worker pool and temp manager.
func NewImporter(workers *pool.Pool, temps *tempfiles.Manager, log zerolog.Logger) *Importer {
	return &Importer{workers: workers, temps: temps, log: log}
}

// ImportText extracts the text of every page in the document at path.
// Results come back in page order, one entry per page. ImportText fails as a
// whole only when the document cannot be staged or opened, or when tasks can
// no longer be submitted; individual page failures are recorded per page.
func (im *Importer) ImportText(ctx context.Context, path string) ([]PageText, error) {
	var pages []PageText
	err := im.temps.WithDir("pdf-import-", func(stage string) error {
		staged := filepath.Join(stage, filepath.Base(path))
		if err := copyFile(path, staged); err != nil {
			return err
		}

		f, reader, err := pdf.Open(staged)
		if err != nil {
			return fmt.Errorf("failed to open pdf %s: %w", path, err)
		}
		defer f.Close()

		total := reader.NumPage()
		im.log.Info().Str("path", path).Int("pages", total).Msg("importing pdf text")

		futures := make([]*pool.Future, 0, total)
		for i := 1; i <= total; i++ {
			pageNum := i
			fut, err := im.workers.Submit(func(context.Context) (any, error) {
				return extractPage(reader, pageNum)
			})
			if err != nil {
				return fmt.Errorf("failed to submit page %d: %w", pageNum, err)
			}
			futures = append(futures, fut)
		}

		pages = make([]PageText, 0, total)
		for i, fut := range futures {
			pageNum := i + 1
			v, err := fut.Wait(ctx)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				im.log.Warn().Err(err).Int("page", pageNum).Msg("page text extraction failed")
				pages = append(pages, PageText{Number: pageNum, Err: err})
				continue
			}
			pages = append(pages, PageText{Number: pageNum, Text: v.(string)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// PageCount returns the number of pages in the document at path.
func PageCount(path string) (int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

func extractPage(reader *pdf.Reader, pageNum int) (string, error) {
	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d missing from page tree", pageNum)
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract page %d text: %w", pageNum, err)
	}
	return text, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Sync()
}
