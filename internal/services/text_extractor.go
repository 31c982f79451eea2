package services

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/pkg/errors"
)

var ErrUnsupportedDocument = errors.New("unsupported document type")

var (
	xmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	blankLinePattern = regexp.MustCompile(`\n\s*\n+`)
)

type TextExtractor interface {
	ExtractText(filename string, data []byte) (string, error)
}

type textExtractor struct {
	maxChars int
}

func NewTextExtractor(maxChars int) TextExtractor {
	return &textExtractor{maxChars: maxChars}
}

// ExtractText picks the reader by file extension and returns a bounded
// prefix of the normalized text.
func (e *textExtractor) ExtractText(filename string, data []byte) (string, error) {
	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".txt", ".md":
		text = string(bytes.ToValidUTF8(data, []byte("�")))
	default:
		return "", errors.Wrap(ErrUnsupportedDocument, filepath.Ext(filename))
	}
	if err != nil {
		return "", err
	}

	text = normalizeText(text)
	if text == "" {
		return "", fmt.Errorf("no text content found in %s", filename)
	}

	if e.maxChars > 0 {
		text = truncateRunes(text, e.maxChars)
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// unreadable pages are skipped
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	return textBuilder.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = strings.ReplaceAll(content, "<w:tab/>", "\t")
	content = xmlTagPattern.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = blankLinePattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
