package triage

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// docxBody is the part of a .docx archive that holds the document text.
const docxBody = "word/document.xml"

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".log": {}, ".csv": {},
}

// ExtractText returns up to 2000 characters of an attachment's text. Plain
// text, PDF and DOCX files are read; anything else, or a file that cannot be
// parsed, yields NoAttachmentText.
func ExtractText(path string) string {
	if path == "" {
		return NoAttachmentText
	}
	var (
		text string
		err  error
	)
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		text, err = pdfText(path)
	case ext == ".docx":
		text, err = docxText(path)
	default:
		if _, ok := textExtensions[ext]; !ok {
			return NoAttachmentText
		}
		text, err = plainText(path)
	}
	if err != nil {
		return NoAttachmentText
	}
	return clip(text)
}

func clip(text string) string {
	text = strings.ToValidUTF8(text, "")
	if runes := []rune(text); len(runes) > maxAttachmentChars {
		text = string(runes[:maxAttachmentChars])
	}
	if strings.TrimSpace(text) == "" {
		return NoAttachmentText
	}
	return text
}

func plainText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	buf, err := io.ReadAll(io.LimitReader(f, maxAttachmentChars*utf8.UTFMax))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// pdfText concatenates the plain text of every page. The pdf package panics
// on some malformed inputs, so panics become errors.
func pdfText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	content, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	buf, err := io.ReadAll(io.LimitReader(content, maxAttachmentChars*utf8.UTFMax))
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// docxText walks word/document.xml, keeping w:t runs and breaking lines at
// the end of each w:p paragraph.
func docxText(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", err
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != docxBody {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return wordText(rc)
	}
	return "", fmt.Errorf("docx: %s not found", docxBody)
}

func wordText(r io.Reader) (string, error) {
	const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	var (
		sb     strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(r)
	for sb.Len() < maxAttachmentChars*utf8.UTFMax {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == wordNS {
				switch t.Name.Local {
				case "t":
					inText = true
				case "tab":
					sb.WriteByte('\t')
				case "br":
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if t.Name.Space == wordNS {
				switch t.Name.Local {
				case "t":
					inText = false
				case "p":
					sb.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
