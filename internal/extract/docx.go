package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// cellDelimiter joins table cells when a DOCX table is flattened to text,
// one row per line, appended after the body paragraphs.
const cellDelimiter = " | "

// Minimal WordprocessingML view of word/document.xml. Only the pieces we
// flatten to text are mapped; everything else is ignored by the decoder.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
	Tables     []docxTable     `xml:"tbl"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

type docxTable struct {
	Rows []docxTableRow `xml:"tr"`
}

type docxTableRow struct {
	Cells []docxTableCell `xml:"tc"`
}

type docxTableCell struct {
	Paragraphs []docxParagraph `xml:"p"`
}

// extractDOCX concatenates every non-empty body paragraph in document order,
// then every table serialized row-by-row.
func extractDOCX(path string) (TextExtractionResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return TextExtractionResult{}, &ExtractionError{Path: path, Cause: fmt.Errorf("open docx archive: %w", err)}
	}
	defer zr.Close()

	var docXML []byte
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				return TextExtractionResult{}, &ExtractionError{Path: path, Cause: fmt.Errorf("open document.xml: %w", err)}
			}
			docXML, err = io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return TextExtractionResult{}, &ExtractionError{Path: path, Cause: fmt.Errorf("read document.xml: %w", err)}
			}
			break
		}
	}
	if docXML == nil {
		return TextExtractionResult{}, &ExtractionError{Path: path, Cause: fmt.Errorf("word/document.xml missing")}
	}

	var doc docxDocument
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return TextExtractionResult{}, &ExtractionError{Path: path, Cause: fmt.Errorf("parse document.xml: %w", err)}
	}

	var parts []string
	for _, para := range doc.Body.Paragraphs {
		if text := paragraphText(para); strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}
	for _, table := range doc.Body.Tables {
		for _, row := range table.Rows {
			cells := make([]string, len(row.Cells))
			for i, cell := range row.Cells {
				var cellParts []string
				for _, para := range cell.Paragraphs {
					if text := paragraphText(para); strings.TrimSpace(text) != "" {
						cellParts = append(cellParts, text)
					}
				}
				cells[i] = strings.TrimSpace(strings.Join(cellParts, " "))
			}
			parts = append(parts, strings.Join(cells, cellDelimiter))
		}
	}

	return TextExtractionResult{
		Text:   strings.Join(parts, "\n"),
		Pages:  1,
		Method: "docx",
	}, nil
}

func paragraphText(p docxParagraph) string {
	var b strings.Builder
	for _, run := range p.Runs {
		for _, t := range run.Texts {
			b.WriteString(t)
		}
	}
	return b.String()
}
