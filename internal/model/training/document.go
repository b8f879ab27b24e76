package training

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType is the origin of a training document.
type DocumentType string

const (
	TypePDF  DocumentType = "pdf"
	TypeText DocumentType = "text"
)

// ParseDocumentType accepts "pdf" or "text".
func ParseDocumentType(raw string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(raw))) {
	case TypePDF:
		return TypePDF, nil
	case TypeText:
		return TypeText, nil
	default:
		return "", fmt.Errorf("unknown document type %q", raw)
	}
}

// Document is knowledge fed to the simulated customer. PDF text is
// extracted by the client before upload.
type Document struct {
	ID        string       `json:"id"`
	Type      DocumentType `json:"type"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	DateAdded time.Time    `json:"dateAdded"`
}

// Status summarises the knowledge base.
type Status struct {
	TotalDocuments int        `json:"totalDocuments"`
	LastUpdated    *time.Time `json:"lastUpdated"`
}
