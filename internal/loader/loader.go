package loader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"pdfmind/internal/domain"
)

var (
	// ErrUnsupported is returned for files whose extension has no parser.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrNoText is returned when a file parses but yields no text.
	ErrNoText = errors.New("no text could be extracted")
	// ErrEmptyDir is returned when the input directory holds no files.
	ErrEmptyDir = errors.New("no files to load")
)

// DirectoryLoader reads every regular file of a directory into documents.
// PDFs produce one document per page, text files one document each.
type DirectoryLoader struct{}

func NewDirectoryLoader() *DirectoryLoader { return &DirectoryLoader{} }

func (l *DirectoryLoader) LoadDir(ctx context.Context, dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, ErrEmptyDir
	}
	sort.Strings(names)

	var docs []domain.Document
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, name)
		var loaded []domain.Document
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			loaded, err = loadPDF(path)
		case ".txt", ".md":
			loaded, err = loadText(path)
		default:
			err = fmt.Errorf("%s: %w", name, ErrUnsupported)
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

func loadText(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := normalize(string(data))
	if text == "" {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoText)
	}
	name := filepath.Base(path)
	return []domain.Document{{
		ID:       hashString(path),
		Path:     path,
		Content:  text,
		Metadata: map[string]string{domain.MetaFileName: name},
	}}, nil
}

func loadPDF(path string) (docs []domain.Document, err error) {
	name := filepath.Base(path)
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			docs = nil
			err = fmt.Errorf("%s: corrupt pdf: %v", name, r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: open pdf: %w", name, err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%s: page %d: %w", name, i, err)
		}
		text = normalize(text)
		if text == "" {
			continue
		}
		label := strconv.Itoa(i)
		docs = append(docs, domain.Document{
			ID:      hashString(path + "#" + label),
			Path:    path,
			Content: text,
			Metadata: map[string]string{
				domain.MetaFileName:  name,
				domain.MetaPageLabel: label,
			},
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoText)
	}
	return docs, nil
}

// normalize collapses whitespace runs and trims the result.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
