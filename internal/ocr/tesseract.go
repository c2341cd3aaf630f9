// Package ocr extracts text from chart screenshots with the tesseract CLI.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

var ErrNotInstalled = errors.New("tesseract binary not found")

// Extractor turns an image into text.
type Extractor interface {
	Extract(ctx context.Context, imagePath string) (string, error)
}

type Tesseract struct {
	path   string
	lang   string
	logger zerolog.Logger
}

// NewTesseract uses the binary at path, or "tesseract" on PATH when path is empty.
func NewTesseract(path string, logger zerolog.Logger) *Tesseract {
	if path == "" {
		path = "tesseract"
	}
	return &Tesseract{
		path:   path,
		lang:   "eng",
		logger: logger.With().Str("component", "ocr").Logger(),
	}
}

// Available reports whether the configured binary can be resolved.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.path)
	return err == nil
}

// Extract runs tesseract on imagePath and returns the recognised text.
func (t *Tesseract) Extract(ctx context.Context, imagePath string) (string, error) {
	if _, err := os.Stat(imagePath); err != nil {
		return "", fmt.Errorf("ocr input: %w", err)
	}
	bin, err := exec.LookPath(t.path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotInstalled, t.path)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, imagePath, "stdout", "-l", t.lang)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("tesseract: %w", err)
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, msg)
	}

	text := strings.TrimSpace(stdout.String())
	t.logger.Debug().Str("image", imagePath).Int("chars", len(text)).Msg("ocr complete")
	return text, nil
}
