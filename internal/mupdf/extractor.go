// Package mupdf decodes uploaded PDF bytes into whole-document text.
package mupdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// ErrNoText is returned when a document decodes but carries no extractable text.
var ErrNoText = errors.New("no extractable text")

// Document is the decoded text of a PDF and its page count.
type Document struct {
	Text      string
	PageCount int
	// Source names the decoder that produced Text.
	Source string
}

// Extractor decodes PDF bytes.
type Extractor interface {
	Extract(data []byte) (Document, error)
}

// Chain tries each extractor in order and returns the first success.
type Chain []Extractor

// Default returns MuPDF (go-fitz) with the pure-Go reader as fallback.
func Default() Chain {
	return Chain{NewGoFitzExtractor(), NewPureGoExtractor()}
}

func (c Chain) Extract(data []byte) (Document, error) {
	if len(c) == 0 {
		return Document{}, errors.New("no extractors configured")
	}
	var errs []error
	for _, e := range c {
		doc, err := e.Extract(data)
		if err == nil {
			if doc.PageCount < 1 {
				doc.PageCount = pageCount(data)
			}
			return doc, nil
		}
		log.Debug().Err(err).Str("extractor", fmt.Sprintf("%T", e)).Msg("extractor failed, trying next")
		errs = append(errs, err)
	}
	return Document{}, fmt.Errorf("decode pdf: %w", errors.Join(errs...))
}

// pageCount asks pdfcpu for the page count. It never returns less than 1.
func pageCount(data []byte) int {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil || n < 1 {
		if err != nil {
			log.Debug().Err(err).Msg("pdfcpu page count failed; assuming one page")
		}
		return 1
	}
	return n
}

// PageCount returns the page count pdfcpu reports for data.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}
