// Package extract turns uploaded file bytes into plain text before ingestion.
// It sits outside the retrieval core; the core never sees file formats.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"

	"docqa/internal/domain"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var textExtensions = map[string]struct{}{
	"":      {},
	".txt":  {},
	".text": {},
	".md":   {},
	".csv":  {},
	".log":  {},
}

// Text extracts plain text from data, dispatching on the filename extension.
func Text(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := textExtensions[ext]; ok {
		return DecodeText(data)
	}
	switch ext {
	case ".docx":
		return Docx(data)
	case ".pdf":
		return PDF(data)
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, ext)
	}
}

// DecodeText decodes UTF-8, falling back to Latin-1 when data is not valid UTF-8.
func DecodeText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}

// Docx extracts paragraph text from word/document.xml, one paragraph per line.
func Docx(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: not a %s archive: %v", domain.ErrInvalidInput, docxMIME, err)
	}
	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("%w: open document.xml: %v", domain.ErrInvalidInput, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("%w: read document.xml: %v", domain.ErrInvalidInput, err)
		}
		return parseDocumentXML(content)
	}
	return "", fmt.Errorf("%w: word/document.xml missing", domain.ErrInvalidInput)
}

// PDF extracts the plain text of every page, one page per line.
func PDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", domain.ErrInvalidInput, i, err)
		}
		pages = append(pages, strings.TrimSpace(content))
	}
	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("%w: parse document.xml: %v", domain.ErrInvalidInput, err)
	}
	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, t := range r.Text {
				result.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(result.String()), nil
}
