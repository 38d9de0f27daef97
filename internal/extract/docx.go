package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"interviewprep/internal/errors"

	"github.com/nguyenthenguyen/docx"
)

var headerFooterPart = regexp.MustCompile(`^word/(header|footer)(\d*)\.xml$`)

// DOCXText returns the text of a .docx document: headers, then the body
// paragraphs, then footers, joined by newlines.
func DOCXText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeDocumentParse,
			fmt.Sprintf("failed to parse docx: %v", err), err)
	}
	defer func() { _ = doc.Close() }()

	body, err := documentText(doc.Editable().GetContent())
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeDocumentParse,
			fmt.Sprintf("failed to read docx body: %v", err), err)
	}

	headers, footers, err := headerFooterText(data)
	if err != nil {
		return "", errors.NewExtractionError(errors.ErrCodeDocumentParse,
			fmt.Sprintf("failed to read docx header or footer: %v", err), err)
	}

	var parts []string
	for _, part := range slices.Concat(headers, []string{body}, footers) {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, "\n"), nil
}

type numberedPart struct {
	n    int
	file *zip.File
}

// headerFooterText reads word/headerN.xml and word/footerN.xml in numeric order
func headerFooterText(data []byte) (headers, footers []string, err error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}

	var headerParts, footerParts []numberedPart
	for _, f := range zr.File {
		m := headerFooterPart.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[2])
		if m[1] == "header" {
			headerParts = append(headerParts, numberedPart{n, f})
		} else {
			footerParts = append(footerParts, numberedPart{n, f})
		}
	}

	if headers, err = partsText(headerParts); err != nil {
		return nil, nil, err
	}
	if footers, err = partsText(footerParts); err != nil {
		return nil, nil, err
	}
	return headers, footers, nil
}

func partsText(parts []numberedPart) ([]string, error) {
	slices.SortFunc(parts, func(a, b numberedPart) int { return a.n - b.n })

	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		rc, err := p.file.Open()
		if err != nil {
			return nil, err
		}
		raw, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		text, err := documentText(string(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.file.Name, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

// documentText walks WordprocessingML and keeps run text, tabs and breaks.
// A paragraph nested in another one, as in a text box, becomes its own line
// after the text of the enclosing paragraph that precedes it.
func documentText(body string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(body))

	var (
		paragraphs []string
		current    strings.Builder
		inText     bool
		// one entry per open paragraph, true once it has held a nested one
		open []bool
	)

	flush := func() {
		paragraphs = append(paragraphs, current.String())
		current.Reset()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if len(open) > 0 {
					if current.Len() > 0 {
						flush()
					}
					open[len(open)-1] = true
				}
				open = append(open, false)
			case "t":
				inText = true
			case "tab":
				current.WriteByte('\t')
			case "br", "cr":
				current.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				hadNested := len(open) > 0 && open[len(open)-1]
				if len(open) > 0 {
					open = open[:len(open)-1]
				}
				if !hadNested || current.Len() > 0 {
					flush()
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		}
	}
	if len(open) > 0 && current.Len() > 0 {
		flush()
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n")), nil
}
