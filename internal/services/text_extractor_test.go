package services

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}

	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml":            `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`,
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestTextExtractor(t *testing.T) {
	extractor := NewTextExtractor(5000)

	t.Run(`plain text`, func(t *testing.T) {
		text, err := extractor.ExtractText("cv.txt", []byte("Go developer\r\n\r\n\r\n5 years"))
		require.NoError(t, err)
		require.Equal(t, "Go developer\n\n5 years", text)
	})

	t.Run(`docx paragraphs`, func(t *testing.T) {
		text, err := extractor.ExtractText("CV.DOCX", buildDocx(t, "Jane Doe", "Kubernetes &amp; Go"))
		require.NoError(t, err)
		require.Equal(t, "Jane Doe\nKubernetes & Go", text)
	})

	t.Run(`bounded prefix`, func(t *testing.T) {
		short := NewTextExtractor(4)
		text, err := short.ExtractText("cv.md", []byte("résumé text"))
		require.NoError(t, err)
		require.Equal(t, "résu", text)
	})

	t.Run(`unsupported extension`, func(t *testing.T) {
		_, err := extractor.ExtractText("cv.exe", []byte("MZ"))
		require.ErrorIs(t, err, ErrUnsupportedDocument)
	})

	t.Run(`empty content`, func(t *testing.T) {
		_, err := extractor.ExtractText("cv.txt", []byte("  \n "))
		require.Error(t, err)
	})

	t.Run(`corrupt pdf`, func(t *testing.T) {
		_, err := extractor.ExtractText("cv.pdf", []byte("not a pdf"))
		require.Error(t, err)
	})
}
