package parser

import (
	"context"
	"log/slog"
)

// parseImage runs OCR on an image file. An image with no recognizable text
// yields an empty string; an engine failure is a parse failure the caller
// handles per file.
func (p *Parser) parseImage(ctx context.Context, path string) (string, error) {
	if p.ocr == nil {
		slog.Debug("ocr_disabled_skipping_image", slog.String("path", path))
		return "", nil
	}
	return p.ocr.Recognize(ctx, path)
}
