package extract

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDOCX(t *testing.T, dir, name, documentXML string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return path
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Field visit report</w:t></w:r></w:p>
    <w:p><w:r><w:t>Rampur PHC, </w:t></w:r><w:r><w:t>Sitapur district</w:t></w:r></w:p>
    <w:p></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Expected</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>40</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Attended</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>25</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestExtract_DOCX(t *testing.T) {
	dir := t.TempDir()
	path := writeDOCX(t, dir, "visit.docx", sampleDocumentXML)

	res, err := NewExtractor(nil).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "docx", res.Method)
	want := "Field visit report\nRampur PHC, Sitapur district\nExpected | 40\nAttended | 25"
	assert.Equal(t, want, res.Text)
}

func TestExtract_DOCXMissingDocumentXML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = NewExtractor(nil).Extract(context.Background(), path)
	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
}

func TestExtract_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("ANC clinic held.\n25 of 40 attended."), 0o644))

	res, err := NewExtractor(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "plain-text", res.Method)
	assert.Contains(t, res.Text, "25 of 40 attended")
}

func TestExtract_InvalidUTF8Replaced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.txt")
	require.NoError(t, os.WriteFile(path, []byte{'o', 'k', 0xff, 0xfe, '!'}, 0o644))

	res, err := NewExtractor(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "ok")
	assert.Contains(t, res.Text, "!")
}

func TestExtract_UnknownExtensionTreatedAsText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.log")
	require.NoError(t, os.WriteFile(path, []byte("free-form notes"), 0o644))

	res, err := NewExtractor(nil).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "plain-text", res.Method)
}

func TestExtract_NotFound(t *testing.T) {
	_, err := NewExtractor(nil).Extract(context.Background(), filepath.Join(t.TempDir(), "missing.docx"))
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestExtract_CorruptDOCX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip archive"), 0o644))

	_, err := NewExtractor(nil).Extract(context.Background(), path)
	var extractErr *ExtractionError
	require.True(t, errors.As(err, &extractErr))
}
