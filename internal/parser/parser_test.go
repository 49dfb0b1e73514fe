package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	seekderrors "github.com/seekd/seekd/internal/errors"
)

type fakeOCR struct {
	text  string
	err   error
	calls []string
}

func (f *fakeOCR) Recognize(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	return f.text, f.err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(".txt"))
	assert.True(t, IsSupported(".PDF"))
	assert.True(t, IsSupported(".Docx"))
	assert.True(t, IsSupported(".png"))
	assert.False(t, IsSupported(".exe"))
	assert.False(t, IsSupported(""))
}

func TestIsSupportedSourceAndStructuredText(t *testing.T) {
	for _, ext := range []string{".py", ".js", ".ts", ".json", ".csv", ".log", ".tif"} {
		assert.True(t, IsSupported(ext), ext)
	}
}

func TestParseSourceFileAsText(t *testing.T) {
	p := New(Options{})
	path := filepath.Join(t.TempDir(), "util.py")
	require.NoError(t, os.WriteFile(path, []byte("def add(a, b):\n    return a + b\n"), 0o644))

	text, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "def add(a, b)")
}

func TestParseUnsupportedExtension(t *testing.T) {
	p := New(Options{})
	_, err := p.Parse(context.Background(), "/tmp/app.exe")
	require.Error(t, err)
	assert.Equal(t, seekderrors.ErrCodeUnsupportedFormat, seekderrors.GetCode(err))
}

func TestParseMissingFile(t *testing.T) {
	p := New(Options{})
	_, err := p.Parse(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	require.Error(t, err)
	assert.Equal(t, seekderrors.ErrCodeFileNotFound, seekderrors.GetCode(err))
}

func TestParseFileTooLarge(t *testing.T) {
	p := New(Options{MaxFileSizeMB: 1})
	path := writeFile(t, t.TempDir(), "big.txt", make([]byte, 2*1024*1024))
	_, err := p.Parse(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, seekderrors.ErrCodeFileTooLarge, seekderrors.GetCode(err))
}

func TestParseTextUTF8(t *testing.T) {
	p := New(Options{})
	path := writeFile(t, t.TempDir(), "notes.txt", []byte("  hello world\n"))
	text, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}

func TestParseTextLatin1Fallback(t *testing.T) {
	p := New(Options{})
	// 0xE9 is é in Latin-1 and invalid as a UTF-8 start byte here.
	path := writeFile(t, t.TempDir(), "legacy.txt", []byte{'c', 'a', 'f', 0xE9})
	text, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestParseEmptyTextFile(t *testing.T) {
	p := New(Options{})
	path := writeFile(t, t.TempDir(), "empty.txt", nil)
	text, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestParseImageUsesOCR(t *testing.T) {
	engine := &fakeOCR{text: "MEETING 2024 BUDGET"}
	p := New(Options{OCR: engine})
	path := writeFile(t, t.TempDir(), "scan.png", []byte("not-a-real-png"))

	text, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "MEETING 2024 BUDGET", text)
	assert.Equal(t, []string{path}, engine.calls)
}

func TestParseImageWithoutEngine(t *testing.T) {
	p := New(Options{})
	path := writeFile(t, t.TempDir(), "scan.png", []byte("x"))
	text, err := p.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestParseImageEngineFailure(t *testing.T) {
	engine := &fakeOCR{err: errors.New("boom")}
	p := New(Options{OCR: engine})
	path := writeFile(t, t.TempDir(), "scan.jpg", []byte("x"))
	_, err := p.Parse(context.Background(), path)
	assert.Error(t, err)
}

func TestParseInvalidPDF(t *testing.T) {
	p := New(Options{})
	path := writeFile(t, t.TempDir(), "bad.pdf", []byte("this is not a pdf"))
	_, err := p.Parse(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, seekderrors.ErrCodeParseFailed, seekderrors.GetCode(err))
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const docxSample = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t></w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>alpha</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestParseDocx(t *testing.T) {
	p := New(Options{})
	path := writeFile(t, t.TempDir(), "doc.docx", buildDocx(t, docxSample))

	text, err := p.Parse(context.Background(), path)
	require.NoError(t, err)

	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
	assert.Contains(t, text, "Name | Value")
	assert.Contains(t, text, "alpha | 1")
}

func TestParseDocxNotAZip(t *testing.T) {
	p := New(Options{})
	path := writeFile(t, t.TempDir(), "bad.docx", []byte("plain bytes"))
	_, err := p.Parse(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, seekderrors.ErrCodeParseFailed, seekderrors.GetCode(err))
}

func TestParseDocxMissingDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/other.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<x/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	p := New(Options{})
	path := writeFile(t, t.TempDir(), "hollow.docx", buf.Bytes())
	_, err = p.Parse(context.Background(), path)
	require.Error(t, err)
	assert.Equal(t, seekderrors.ErrCodeParseFailed, seekderrors.GetCode(err))
}
