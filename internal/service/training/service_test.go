package training_test

import (
	"context"
	"errors"
	"testing"

	model "github.com/zhouzirui/callcoach/backend/internal/model/training"
	"github.com/zhouzirui/callcoach/backend/internal/service/training"
)

func TestAddNormalizesWhitespace(t *testing.T) {
	svc := training.NewService()

	doc, err := svc.Add(context.Background(), model.Document{
		Type:    model.TypeText,
		Title:   " Objection handling ",
		Content: "  Listen first.\n\n\tThen   ask why.  ",
	})
	if err != nil {
		t.Fatalf("Add err: %v", err)
	}
	if doc.Content != "Listen first. Then ask why." {
		t.Fatalf("unexpected content: %q", doc.Content)
	}
	if doc.Title != "Objection handling" {
		t.Fatalf("unexpected title: %q", doc.Title)
	}
	if doc.ID == "" || doc.DateAdded.IsZero() {
		t.Fatalf("expected id and date, got %+v", doc)
	}
}

func TestAddRejectsInvalidDocuments(t *testing.T) {
	svc := training.NewService()
	ctx := context.Background()

	cases := []struct {
		name string
		doc  model.Document
		want error
	}{
		{"missing title", model.Document{Content: "x"}, training.ErrTitleRequired},
		{"blank content", model.Document{Title: "t", Content: " \n\t "}, training.ErrContentRequired},
		{"bad type", model.Document{Title: "t", Content: "x", Type: "docx"}, training.ErrInvalidType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Add(ctx, tc.doc); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if status := svc.Status(); status.TotalDocuments != 0 || status.LastUpdated != nil {
		t.Fatalf("rejected documents must not change status: %+v", status)
	}
}

func TestPDFBecomesCurrentProperty(t *testing.T) {
	svc := training.NewService()

	if _, ok := svc.CurrentPDFContent(); ok {
		t.Fatal("expected no property document initially")
	}

	mustAdd(t, svc, model.Document{Type: model.TypePDF, Title: "listing-1.pdf", Content: "3 bed ranch"})
	mustAdd(t, svc, model.Document{Type: model.TypeText, Title: "notes", Content: "be friendly"})
	mustAdd(t, svc, model.Document{Type: model.TypePDF, Title: "listing-2.pdf", Content: "duplex, needs roof"})

	content, ok := svc.CurrentPDFContent()
	if !ok || content != "duplex, needs roof" {
		t.Fatalf("unexpected current pdf: %q %t", content, ok)
	}

	status := svc.Status()
	if status.TotalDocuments != 3 || status.LastUpdated == nil {
		t.Fatalf("unexpected status: %+v", status)
	}
	if got := svc.List(); len(got) != 3 || got[0].Title != "listing-1.pdf" {
		t.Fatalf("unexpected list: %+v", got)
	}

	svc.Clear()
	if _, ok := svc.CurrentPDFContent(); ok {
		t.Fatal("expected property document cleared")
	}
	if status := svc.Status(); status.TotalDocuments != 0 || status.LastUpdated != nil {
		t.Fatalf("unexpected status after clear: %+v", status)
	}
}

func mustAdd(t *testing.T, svc *training.Service, doc model.Document) {
	t.Helper()
	if _, err := svc.Add(context.Background(), doc); err != nil {
		t.Fatalf("Add err: %v", err)
	}
}
