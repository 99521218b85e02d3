package mupdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// PureGoExtractor reads PDFs without cgo. It is less accurate than MuPDF and
// serves as a fallback for files MuPDF refuses.
type PureGoExtractor struct{}

func NewPureGoExtractor() *PureGoExtractor { return &PureGoExtractor{} }

func (p *PureGoExtractor) Extract(data []byte) (doc Document, err error) {
	// ledongthuc/pdf panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pure-go pdf reader: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("failed to open PDF: %w", err)
	}

	total := reader.NumPage()
	var result strings.Builder
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("Failed to extract text from page")
			continue
		}
		if i > 1 {
			result.WriteString("\n\n")
		}
		result.WriteString(text)
	}

	text := result.String()
	if strings.TrimSpace(text) == "" {
		return Document{}, ErrNoText
	}
	return Document{Text: text, PageCount: total, Source: "pdf"}, nil
}
