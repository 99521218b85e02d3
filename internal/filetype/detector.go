package filetype

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// ErrNotPDF is returned by RequirePDF for any upload that is not a PDF.
var ErrNotPDF = errors.New("not a PDF document")

const pdfMIME = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Supported   bool
	Description string
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type using magic bytes, not filename.
// name is only used for logging and descriptions.
func (d *Detector) Detect(data []byte, name string) *FileTypeInfo {
	mtype := mimetype.Detect(data)
	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	if mtype.Is(pdfMIME) {
		info.MIMEType = pdfMIME
		info.Supported = true
		info.Description = "PDF document"
	} else {
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}

	// A .pdf name on something else is worth a warning; the bytes win.
	if !info.Supported && strings.EqualFold(filepath.Ext(name), ".pdf") {
		log.Warn().Str("file", name).Str("mime", info.MIMEType).Msg("file named .pdf is not a PDF")
	} else {
		log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", name).Msg("detected file type")
	}
	return info
}

// RequirePDF returns ErrNotPDF unless data is a PDF.
func (d *Detector) RequirePDF(data []byte, name string) error {
	info := d.Detect(data, name)
	if !info.Supported {
		return fmt.Errorf("%s: %w (%s)", name, ErrNotPDF, info.MIMEType)
	}
	return nil
}
