package ocr

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMissingImage(t *testing.T) {
	tess := NewTesseract("", zerolog.Nop())
	_, err := tess.Extract(context.Background(), filepath.Join(t.TempDir(), "none.png"))
	assert.Error(t, err)
}

func TestExtractMissingBinary(t *testing.T) {
	img := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))

	tess := NewTesseract(filepath.Join(t.TempDir(), "no-such-tesseract"), zerolog.Nop())
	assert.False(t, tess.Available())

	_, err := tess.Extract(context.Background(), img)
	assert.ErrorIs(t, err, ErrNotInstalled)
}

func fakeTesseract(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	bin := filepath.Join(t.TempDir(), "tesseract")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script), 0o755))
	return bin
}

func TestExtractReadsStdout(t *testing.T) {
	img := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))

	tess := NewTesseract(fakeTesseract(t, "echo \"  SPY 530.25 EMA 20  \"\n"), zerolog.Nop())
	require.True(t, tess.Available())

	text, err := tess.Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "SPY 530.25 EMA 20", text)
}

func TestExtractReportsStderr(t *testing.T) {
	img := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(img, []byte("png"), 0o644))

	tess := NewTesseract(fakeTesseract(t, "echo 'read error' >&2\nexit 1\n"), zerolog.Nop())
	_, err := tess.Extract(context.Background(), img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read error")
}
