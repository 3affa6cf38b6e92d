package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfmind/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

// buildPDF assembles a minimal PDF with one line of Helvetica text per page.
// Page texts must not contain parentheses or backslashes.
func buildPDF(pages ...string) []byte {
	font := 3 + 2*len(pages)
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
	}
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", font, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return b.Bytes()
}

func TestLoadDir_PDFOneDocumentPerPage(t *testing.T) {
	dir := t.TempDir()
	pdf := buildPDF(
		"Attention   is all you need.",
		"The Transformer drops recurrence entirely.",
		"It reaches 28.4 BLEU on WMT 2014.",
	)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.pdf"), pdf, 0o600))

	docs, err := NewDirectoryLoader().LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, "Attention is all you need.", docs[0].Content)
	assert.Equal(t, "The Transformer drops recurrence entirely.", docs[1].Content)
	assert.Equal(t, "It reaches 28.4 BLEU on WMT 2014.", docs[2].Content)
	ids := map[string]bool{}
	for i, d := range docs {
		assert.Equal(t, strconv.Itoa(i+1), d.Metadata[domain.MetaPageLabel])
		assert.Equal(t, "doc.pdf", d.Metadata[domain.MetaFileName])
		ids[d.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestLoadDir_TextFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "# Title\n\nSecond   file.")
	writeFile(t, dir, "a.txt", "  First\nfile.  ")

	docs, err := NewDirectoryLoader().LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "First file.", docs[0].Content)
	assert.Equal(t, "a.txt", docs[0].Metadata[domain.MetaFileName])
	assert.Equal(t, "# Title Second file.", docs[1].Content)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)
}

func TestLoadDir_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{name: "empty directory", files: nil, wantErr: ErrEmptyDir},
		{name: "unsupported extension", files: map[string]string{"slides.pptx": "x"}, wantErr: ErrUnsupported},
		{name: "blank text", files: map[string]string{"blank.txt": " \n\t "}, wantErr: ErrNoText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for n, c := range tt.files {
				writeFile(t, dir, n, c)
			}
			_, err := NewDirectoryLoader().LoadDir(context.Background(), dir)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestLoadDir_CorruptPDF(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "doc.pdf", "this is not a pdf at all")

	docs, err := NewDirectoryLoader().LoadDir(context.Background(), dir)
	require.Error(t, err)
	assert.Nil(t, docs)
	assert.Contains(t, err.Error(), "doc.pdf")
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := NewDirectoryLoader().LoadDir(context.Background(), filepath.Join(t.TempDir(), "gone"))
	require.Error(t, err)
}

func TestLoadDir_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "hello")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDirectoryLoader().LoadDir(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)
}
