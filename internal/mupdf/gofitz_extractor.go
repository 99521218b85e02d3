package mupdf

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"
)

// GoFitzExtractor uses go-fitz library for PDF text extraction (no external tools needed)
type GoFitzExtractor struct{}

// NewGoFitzExtractor creates a new go-fitz based extractor
func NewGoFitzExtractor() *GoFitzExtractor {
	return &GoFitzExtractor{}
}

// Extract joins the text of every page, separated by blank lines.
func (g *GoFitzExtractor) Extract(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return Document{}, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var result strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("Failed to extract text from page")
			continue
		}
		if i > 0 {
			result.WriteString("\n\n")
		}
		result.WriteString(text)
	}

	text := result.String()
	if strings.TrimSpace(text) == "" {
		return Document{}, ErrNoText
	}
	log.Debug().Int("chars", len(text)).Int("pages", doc.NumPage()).Msg("Extracted text from PDF")

	return Document{Text: text, PageCount: doc.NumPage(), Source: "mupdf"}, nil
}
