package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	seekderrors "github.com/seekd/seekd/internal/errors"
	"github.com/seekd/seekd/internal/ocr"
)

// parsePDF extracts the text layer page by page. Pages without a usable text
// layer (scanned pages) are rasterized and run through OCR, so mixed
// documents keep both halves. Page texts are joined with blank lines.
func (p *Parser) parsePDF(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", seekderrors.New(seekderrors.ErrCodeParseFailed,
			fmt.Sprintf("failed to open pdf: %s", path), err)
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text := ""
		page := reader.Page(i)
		if !page.V.IsNull() {
			if extracted, err := page.GetPlainText(nil); err == nil {
				text = ocr.Normalize(extracted)
			} else {
				slog.Debug("pdf_text_layer_failed",
					slog.String("path", path), slog.Int("page", i), slog.Any("error", err))
			}
		}

		if text == "" && p.ocr != nil {
			text, err = p.ocrPDFPage(ctx, path, i)
			if err != nil {
				slog.Warn("pdf_page_ocr_failed",
					slog.String("path", path), slog.Int("page", i), slog.Any("error", err))
				text = ""
			}
		}

		if text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}

// ocrPDFPage renders one page to a temporary PNG with pdftoppm and runs the
// OCR engine on it.
func (p *Parser) ocrPDFPage(ctx context.Context, path string, pageNum int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "seekd-pdf-ocr-*")
	if err != nil {
		return "", seekderrors.Wrap(seekderrors.ErrCodeParseFailed, err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-r", strconv.Itoa(p.pdfDPI),
		"-f", strconv.Itoa(pageNum),
		"-l", strconv.Itoa(pageNum),
		path, prefix)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", seekderrors.New(seekderrors.ErrCodeParseFailed,
			fmt.Sprintf("pdftoppm failed: %s", strings.TrimSpace(string(out))), err)
	}

	// pdftoppm names output page-<n>.png with zero padding that varies by
	// page count, so glob rather than guess.
	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(matches) == 0 {
		return "", seekderrors.New(seekderrors.ErrCodeParseFailed,
			fmt.Sprintf("no rendered page image for page %d of %s", pageNum, path), err)
	}

	return p.ocr.Recognize(ctx, matches[0])
}
