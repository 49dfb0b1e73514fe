package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	seekderrors "github.com/seekd/seekd/internal/errors"
)

// DOCX is a zip archive whose word/document.xml holds the body as w:p
// paragraphs and w:tbl tables of w:tc cells, with text in w:t runs.

type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Blocks []docxBlock `xml:",any"`
}

type docxBlock struct {
	XMLName xml.Name
	Rows    []docxRow  `xml:"tr"`
	Texts   []docxText `xml:"r>t"`
}

type docxRow struct {
	Cells []docxCell `xml:"tc"`
}

type docxCell struct {
	Paragraphs []docxCellPara `xml:"p"`
}

type docxCellPara struct {
	Texts []docxText `xml:"r>t"`
}

type docxText struct {
	Value string `xml:",chardata"`
}

// parseDocx extracts paragraph text and table contents from a DOCX archive.
// Table rows are flattened with " | " between cells.
func (p *Parser) parseDocx(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", seekderrors.New(seekderrors.ErrCodeParseFailed,
			fmt.Sprintf("not a valid docx archive: %s", path), err)
	}
	defer zr.Close()

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", seekderrors.New(seekderrors.ErrCodeParseFailed,
			fmt.Sprintf("docx missing word/document.xml: %s", path), nil)
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", seekderrors.Wrap(seekderrors.ErrCodeParseFailed, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", seekderrors.Wrap(seekderrors.ErrCodeParseFailed, err)
	}

	var doc docxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", seekderrors.New(seekderrors.ErrCodeParseFailed,
			fmt.Sprintf("docx xml parse failed: %s", path), err)
	}

	var parts []string
	for _, block := range doc.Body.Blocks {
		switch block.XMLName.Local {
		case "p":
			text := joinTexts(block.Texts)
			if text != "" {
				parts = append(parts, text)
			}
		case "tbl":
			for _, row := range block.Rows {
				var cells []string
				for _, cell := range row.Cells {
					var cellParts []string
					for _, para := range cell.Paragraphs {
						if t := joinTexts(para.Texts); t != "" {
							cellParts = append(cellParts, t)
						}
					}
					if joined := strings.Join(cellParts, " "); joined != "" {
						cells = append(cells, joined)
					}
				}
				if len(cells) > 0 {
					parts = append(parts, strings.Join(cells, " | "))
				}
			}
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

func joinTexts(texts []docxText) string {
	var b strings.Builder
	for _, t := range texts {
		b.WriteString(t.Value)
	}
	return strings.TrimSpace(b.String())
}
