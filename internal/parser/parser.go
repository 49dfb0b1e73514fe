// Package parser extracts plain text from supported document formats:
// plain text and source files, DOCX, PDF (with OCR fallback for scanned
// pages), and images via OCR.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	seekderrors "github.com/seekd/seekd/internal/errors"
	"github.com/seekd/seekd/internal/ocr"
)

type kind int

const (
	kindText kind = iota
	kindPDF
	kindDocx
	kindImage
)

// extensions maps a lowercased extension to its parse strategy. Source and
// structured-text files go through the plain-text parser unchanged.
var extensions = map[string]kind{
	".txt":  kindText,
	".md":   kindText,
	".text": kindText,
	".py":   kindText,
	".js":   kindText,
	".ts":   kindText,
	".json": kindText,
	".csv":  kindText,
	".log":  kindText,
	".pdf":  kindPDF,
	".docx": kindDocx,
	".doc":  kindDocx,
	".png":  kindImage,
	".jpg":  kindImage,
	".jpeg": kindImage,
	".gif":  kindImage,
	".bmp":  kindImage,
	".tif":  kindImage,
	".tiff": kindImage,
}

// IsSupported reports whether files with this extension can be parsed.
// The extension comparison is case-insensitive and includes the dot.
func IsSupported(ext string) bool {
	_, ok := extensions[strings.ToLower(ext)]
	return ok
}

// SupportedExtensions returns the recognized extensions.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	return out
}

// Parser dispatches files to format-specific extractors.
type Parser struct {
	ocr          ocr.Engine
	maxFileBytes int64
	pdfDPI       int
}

// Options configures a Parser.
type Options struct {
	// OCR recognizes text in images and scanned PDF pages. Nil disables OCR:
	// images yield no text and scanned pages are skipped.
	OCR ocr.Engine
	// MaxFileSizeMB rejects larger files before reading them. 0 = 50MB.
	MaxFileSizeMB int
	// PDFRenderDPI is the resolution used to rasterize scanned PDF pages.
	PDFRenderDPI int
}

// New creates a Parser.
func New(opts Options) *Parser {
	if opts.MaxFileSizeMB <= 0 {
		opts.MaxFileSizeMB = 50
	}
	if opts.PDFRenderDPI <= 0 {
		opts.PDFRenderDPI = 300
	}
	return &Parser{
		ocr:          opts.OCR,
		maxFileBytes: int64(opts.MaxFileSizeMB) * 1024 * 1024,
		pdfDPI:       opts.PDFRenderDPI,
	}
}

// Parse extracts the text content of the file at path. Unsupported
// extensions return ErrCodeUnsupportedFormat; other failures return
// ErrCodeParseFailed or an IO code. An empty result is valid: a supported
// file may simply contain no recognizable text.
func (p *Parser) Parse(ctx context.Context, path string) (string, error) {
	k, ok := extensions[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", seekderrors.New(seekderrors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported file format: %s", filepath.Ext(path)), nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", seekderrors.NotFound(path)
		}
		if os.IsPermission(err) {
			return "", seekderrors.New(seekderrors.ErrCodeFilePermission,
				fmt.Sprintf("permission denied: %s", path), err)
		}
		return "", seekderrors.Wrap(seekderrors.ErrCodeParseFailed, err)
	}
	if info.Size() > p.maxFileBytes {
		return "", seekderrors.New(seekderrors.ErrCodeFileTooLarge,
			fmt.Sprintf("file exceeds size limit: %s (%d bytes)", path, info.Size()), nil)
	}

	switch k {
	case kindText:
		return p.parseText(path)
	case kindPDF:
		return p.parsePDF(ctx, path)
	case kindDocx:
		return p.parseDocx(path)
	case kindImage:
		return p.parseImage(ctx, path)
	default:
		return "", seekderrors.New(seekderrors.ErrCodeInternal, "unreachable parser kind", nil)
	}
}
