package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/slidetools/slidekit/internal/aireplace"
	"github.com/slidetools/slidekit/internal/config"
	"github.com/slidetools/slidekit/internal/imaging"
	"github.com/slidetools/slidekit/internal/inpaint"
	"github.com/slidetools/slidekit/internal/logging"
	"github.com/slidetools/slidekit/internal/ocr"
	"github.com/slidetools/slidekit/internal/pdfimport"
	"github.com/slidetools/slidekit/internal/pool"
	"github.com/slidetools/slidekit/internal/tempfiles"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Printf("slidekit %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	case "--help", "-h", "help":
		printHelp()
		return
	}

	level := zerolog.InfoLevel
	if os.Getenv("SLIDEKIT_LOG_LEVEL") == "debug" {
		level = zerolog.DebugLevel
	}
	log := logging.Setup(level)

	cfgPath := os.Getenv("SLIDEKIT_CONFIG")
	if cfgPath == "" {
		cfgPath = filepath.Join(baseDir(), config.DefaultFileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Warn().Err(err).Msg("config unreadable, using defaults")
	}

	if err := run(os.Args[1], os.Args[2:], cfg, log); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// run builds the shared resource managers, executes one subcommand, and
// releases everything on the way out.
func run(command string, args []string, cfg config.Config, log zerolog.Logger) error {
	temps, err := tempfiles.NewManager(cfg.TempRoot, log)
	if err != nil {
		return err
	}
	defer func() {
		if removed := temps.CleanupAll(); removed > 0 {
			log.Info().Int("removed", removed).Msg("temp files cleaned up")
		}
	}()

	workers := pool.New("slidekit", cfg.PoolWorkers, pool.WithLogger(log))
	defer workers.Shutdown(true)

	images := imaging.NewImageCache(cfg.CacheCapacity, log)
	defer images.Clear()

	ctx := context.Background()

	switch command {
	case "ocr":
		if len(args) < 1 {
			return fmt.Errorf("usage: slidekit ocr <image-dir>")
		}
		return runOCR(ctx, args[0], cfg, workers, images, log)
	case "import":
		if len(args) < 1 {
			return fmt.Errorf("usage: slidekit import <file.pdf>")
		}
		return runImport(ctx, args[0], workers, temps, log)
	case "cutout":
		if len(args) < 2 {
			return fmt.Errorf("usage: slidekit cutout <image> <out.png> [#rrggbb]")
		}
		target := ""
		if len(args) > 2 {
			target = args[2]
		}
		return runCutout(args[0], args[1], target, images)
	case "replace":
		if len(args) < 3 {
			return fmt.Errorf("usage: slidekit replace <image> <out.png> <prompt>")
		}
		return runReplace(ctx, args[0], args[1], strings.Join(args[2:], " "), cfg, images, temps, log)
	case "info":
		return runInfo(cfg, workers, images)
	default:
		return fmt.Errorf("unknown command %q, see 'slidekit help'", command)
	}
}

// runOCR extracts text from every image in dir, one pooled task per image.
func runOCR(ctx context.Context, dir string, cfg config.Config, workers *pool.Pool, images *imaging.ImageCache, log zerolog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no images found in %s", dir)
	}

	runner := ocr.NewBatchRunner(&ocr.Tesseract{}, workers, images, cfg.OCRLanguage, log)
	results, err := runner.RunAll(ctx, paths)
	if err != nil {
		return err
	}
	writeOCRResults(os.Stdout, results)
	return nil
}

func writeOCRResults(w io.Writer, results []ocr.PageResult) {
	for _, page := range results {
		fmt.Fprintf(w, "=== %s ===\n", page.Path)
		if page.Err != nil {
			fmt.Fprintf(w, "error: %v\n\n", page.Err)
			continue
		}
		fmt.Fprintf(w, "%s\n\n", page.Result.FullText)
	}
}

// runImport prints the per-page text of a PDF document.
func runImport(ctx context.Context, path string, workers *pool.Pool, temps *tempfiles.Manager, log zerolog.Logger) error {
	importer := pdfimport.NewImporter(workers, temps, log)
	pages, err := importer.ImportText(ctx, path)
	if err != nil {
		return err
	}
	writeImportPages(os.Stdout, pages)
	return nil
}

func writeImportPages(w io.Writer, pages []pdfimport.PageText) {
	for _, page := range pages {
		fmt.Fprintf(w, "--- page %d ---\n", page.Number)
		if page.Err != nil {
			fmt.Fprintf(w, "error: %v\n\n", page.Err)
			continue
		}
		fmt.Fprintf(w, "%s\n\n", page.Text)
	}
}

// runCutout removes the background of an image and writes the cutout as PNG.
// An empty target color samples the image border.
func runCutout(src, dst, targetHex string, images *imaging.ImageCache) error {
	img, err := images.Load(src)
	if err != nil {
		return err
	}

	out, err := inpaint.RemoveBackground(img, inpaint.Options{TargetHex: targetHex, Feather: 1.5})
	if err != nil {
		return err
	}
	return imaging.SavePNG(dst, out)
}

// runReplace sends an image and prompt to the configured AI endpoint and
// writes the generated replacement.
func runReplace(ctx context.Context, src, dst, prompt string, cfg config.Config, images *imaging.ImageCache, temps *tempfiles.Manager, log zerolog.Logger) error {
	if !cfg.AIEnabled {
		return fmt.Errorf("ai replacement disabled in config")
	}

	img, err := images.Load(src)
	if err != nil {
		return err
	}

	client, err := aireplace.NewClient(cfg.AIAPIURL, temps, log)
	if err != nil {
		return err
	}
	out, err := client.Replace(ctx, img, prompt)
	if err != nil {
		return err
	}
	return imaging.SavePNG(dst, out)
}

// runInfo prints the effective configuration and resource state.
func runInfo(cfg config.Config, workers *pool.Pool, images *imaging.ImageCache) error {
	fmt.Printf("slidekit %s\n", Version)
	fmt.Printf("  cache capacity:  %d (holding %d)\n", images.Capacity(), images.Len())
	fmt.Printf("  pool workers:    %d\n", workers.Workers())
	fmt.Printf("  ocr language:    %s\n", cfg.OCRLanguage)
	fmt.Printf("  temp root:       %s\n", orDefault(cfg.TempRoot, os.TempDir()))
	fmt.Printf("  ai endpoint:     %s (enabled: %t)\n", cfg.AIAPIURL, cfg.AIEnabled)
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// baseDir is the directory the executable runs from; the config file lives
// next to the binary so portable installs keep their settings.
func baseDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

func printHelp() {
	fmt.Println("slidekit - resource and concurrency toolkit for slide editing")
	fmt.Println()
	fmt.Println("Usage: slidekit <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  ocr <image-dir>     Extract text from every image in a directory")
	fmt.Println("  import <file.pdf>   Extract per-page text from a PDF document")
	fmt.Println("  cutout <image> <out.png> [#rrggbb]")
	fmt.Println("                      Remove the image background, writing a transparent PNG")
	fmt.Println("  replace <image> <out.png> <prompt>")
	fmt.Println("                      Replace an image via the configured AI endpoint")
	fmt.Println("  info                Print effective configuration")
	fmt.Println("  version             Print version information")
	fmt.Println("  help                Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  SLIDEKIT_CONFIG               Path to the JSON config file")
	fmt.Println("  SLIDEKIT_LOG_LEVEL=debug      Enable debug logging")
}
