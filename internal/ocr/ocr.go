// Package ocr extracts text from images by shelling out to tesseract.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	seekderrors "github.com/seekd/seekd/internal/errors"
)

// Engine recognizes text in an image file.
type Engine interface {
	// Recognize returns the text found in the image at path. An image with no
	// recognizable text yields an empty string, not an error.
	Recognize(ctx context.Context, path string) (string, error)
}

// Tesseract runs the tesseract CLI.
type Tesseract struct {
	binary string
	lang   string
	psm    int
	dpi    int
}

var _ Engine = (*Tesseract)(nil)

// Options configures the tesseract invocation.
type Options struct {
	// Binary overrides the tesseract executable path.
	Binary string
	// Lang is the recognition language (default "eng").
	Lang string
	// PSM is the page segmentation mode (default 3, fully automatic).
	PSM int
	// DPI hints the source resolution for images without density metadata.
	DPI int
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Binary == "" {
		o.Binary = "tesseract"
	}
	if o.Lang == "" {
		o.Lang = "eng"
	}
	if o.PSM == 0 {
		o.PSM = 3
	}
	if o.DPI == 0 {
		o.DPI = 300
	}
	return o
}

// NewTesseract creates a tesseract-backed engine.
func NewTesseract(opts Options) *Tesseract {
	opts = opts.WithDefaults()
	return &Tesseract{
		binary: opts.Binary,
		lang:   opts.Lang,
		psm:    opts.PSM,
		dpi:    opts.DPI,
	}
}

// Available reports whether the tesseract binary can be found.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.binary)
	return err == nil
}

// Recognize runs tesseract on the image and returns whitespace-normalized text.
func (t *Tesseract) Recognize(ctx context.Context, path string) (string, error) {
	args := []string{
		path, "stdout",
		"-l", t.lang,
		"--psm", strconv.Itoa(t.psm),
		"--dpi", strconv.Itoa(t.dpi),
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		slog.Warn("ocr_failed",
			slog.String("path", path),
			slog.String("stderr", strings.TrimSpace(stderr.String())))
		return "", seekderrors.New(seekderrors.ErrCodeParseFailed,
			fmt.Sprintf("tesseract failed on %s", path), err)
	}

	return Normalize(stdout.String()), nil
}

// Normalize collapses whitespace runs inside lines and drops blank lines,
// keeping line breaks so downstream chunking sees word boundaries.
func Normalize(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}
