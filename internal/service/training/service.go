package training

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/callcoach/backend/internal/model/training"
)

var (
	ErrTitleRequired   = errors.New("document title is required")
	ErrContentRequired = errors.New("document content is required")
	ErrInvalidType     = errors.New("document type must be pdf or text")
)

var whitespace = regexp.MustCompile(`\s+`)

// Service keeps the training knowledge base in memory.
type Service struct {
	mu          sync.RWMutex
	documents   []training.Document
	currentPDF  string
	lastUpdated *time.Time
	now         func() time.Time
}

// NewService returns an empty knowledge base.
func NewService() *Service {
	return &Service{now: func() time.Time { return time.Now().UTC() }}
}

// Add normalises and stores a document. The most recent PDF becomes the
// current property document.
func (s *Service) Add(_ context.Context, doc training.Document) (training.Document, error) {
	doc.Title = strings.TrimSpace(doc.Title)
	if doc.Title == "" {
		return training.Document{}, ErrTitleRequired
	}

	if doc.Type == "" {
		doc.Type = training.TypeText
	}
	if _, err := training.ParseDocumentType(string(doc.Type)); err != nil {
		return training.Document{}, ErrInvalidType
	}

	doc.Content = NormalizeContent(doc.Content)
	if doc.Content == "" {
		return training.Document{}, ErrContentRequired
	}

	now := s.now()
	doc.ID = uuid.NewString()
	doc.DateAdded = now

	s.mu.Lock()
	s.documents = append(s.documents, doc)
	if doc.Type == training.TypePDF {
		s.currentPDF = doc.Content
	}
	s.lastUpdated = &now
	s.mu.Unlock()

	log.Printf("[training] stored document id=%s type=%s chars=%d", doc.ID, doc.Type, len(doc.Content))
	return doc, nil
}

// Status reports how many documents are loaded and when the last one arrived.
func (s *Service) Status() training.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := training.Status{TotalDocuments: len(s.documents)}
	if s.lastUpdated != nil {
		updated := *s.lastUpdated
		status.LastUpdated = &updated
	}
	return status
}

// CurrentPDFContent returns the text of the latest PDF document.
func (s *Service) CurrentPDFContent() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentPDF, s.currentPDF != ""
}

// List returns the stored documents, oldest first.
func (s *Service) List() []training.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]training.Document(nil), s.documents...)
}

// Clear drops every document.
func (s *Service) Clear() {
	s.mu.Lock()
	s.documents = nil
	s.currentPDF = ""
	s.lastUpdated = nil
	s.mu.Unlock()
	log.Printf("[training] knowledge base cleared")
}

// NormalizeContent collapses whitespace runs into single spaces.
func NormalizeContent(raw string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(raw, " "))
}
