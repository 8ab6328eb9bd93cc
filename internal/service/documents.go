package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
	"github.com/yassinsws/microsoft-agent-hackathon/internal/knowledge"
	store "github.com/yassinsws/microsoft-agent-hackathon/internal/repository"
)

var allowedDocumentExtensions = map[string]string{
	".md":   "text/markdown",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// UploadDocumentInput describes an uploaded document.
type UploadDocumentInput struct {
	Filename  string
	Category  domain.DocumentCategory
	Body      io.Reader
	AutoIndex bool
}

// DocumentDetail is a document with its text, when requested and readable.
type DocumentDetail struct {
	domain.Document
	Content *string `json:"content,omitempty"`
}

func documentSource(id string) string {
	return "documents/" + id
}

// UploadDocument stores a document under DocumentsDir/<category>/ and
// optionally indexes it right away.
func (s *Service) UploadDocument(ctx context.Context, in UploadDocumentInput) (*domain.Document, error) {
	if !in.Category.Valid() {
		return nil, &domain.ValidationError{Message: "Invalid category. Must be one of: policy, regulation, reference"}
	}
	name := filepath.Base(in.Filename)
	ext := strings.ToLower(filepath.Ext(name))
	contentType, ok := allowedDocumentExtensions[ext]
	if name == "" || name == "." || !ok {
		return nil, &domain.ValidationError{Message: "File type not allowed. Allowed: .md, .txt, .pdf, .doc, .docx"}
	}

	id := "doc_" + uuid.New().String()[:8]
	dir := filepath.Join(s.config.DocumentsDir(), string(in.Category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create document directory")
	}
	path := filepath.Join(dir, id+ext)
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document file")
	}
	size, err := io.Copy(f, in.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "failed to write document")
	}

	doc := &domain.Document{
		ID:          id,
		Filename:    name,
		Category:    in.Category,
		Path:        path,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  time.Now(),
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		os.Remove(path)
		return nil, errors.Wrap(err, "failed to save document")
	}
	log.Info().Str("document_id", id).Str("filename", name).Str("category", string(in.Category)).Msg("document uploaded")

	if in.AutoIndex {
		indexed, err := s.indexDocument(ctx, doc)
		if err != nil {
			// The upload itself succeeded; indexing can be retried.
			log.Error().Err(err).Str("document_id", id).Msg("auto index failed")
		}
		doc.Indexed = indexed
	}
	return doc, nil
}

func (s *Service) ListDocuments(ctx context.Context, category domain.DocumentCategory, indexedOnly bool) ([]domain.Document, error) {
	if category != "" && !category.Valid() {
		return nil, &domain.ValidationError{Message: "Invalid category. Must be one of: policy, regulation, reference"}
	}
	docs, err := s.store.ListDocuments(ctx, store.DocumentFilter{Category: category, IndexedOnly: indexedOnly})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	return docs, nil
}

func (s *Service) getDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get document")
	}
	if doc == nil {
		return nil, errors.Wrapf(domain.ErrNotFound, "document %s", id)
	}
	return doc, nil
}

// GetDocument returns document metadata and, with includeContent, the text of
// text documents.
func (s *Service) GetDocument(ctx context.Context, id string, includeContent bool) (*DocumentDetail, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &DocumentDetail{Document: *doc}
	if includeContent && knowledge.Indexable(doc.Filename) {
		b, err := os.ReadFile(doc.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read document %s", id)
		}
		text := string(b)
		detail.Content = &text
	}
	return detail, nil
}

// DocumentFile returns the document and the path of its stored file.
func (s *Service) DocumentFile(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(doc.Path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(domain.ErrNotFound, "document file %s", id)
		}
		return nil, errors.Wrap(err, "failed to stat document")
	}
	return doc, nil
}

// DeleteDocument removes the file, its indexed chunks and the record.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete document file")
	}
	if s.index != nil {
		if err := s.index.Remove(ctx, documentSource(id)); err != nil {
			return err
		}
	}
	if _, err := s.store.DeleteDocument(ctx, id); err != nil {
		return errors.Wrap(err, "failed to delete document")
	}
	log.Info().Str("document_id", id).Msg("document deleted")
	return nil
}

// IndexDocument adds one uploaded document to the knowledge index. It
// reports false for formats whose text cannot be extracted.
func (s *Service) IndexDocument(ctx context.Context, id string) (bool, error) {
	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return false, err
	}
	return s.indexDocument(ctx, doc)
}

func (s *Service) indexDocument(ctx context.Context, doc *domain.Document) (bool, error) {
	if s.index == nil {
		return false, domain.ErrKnowledgeSourceUnavailable
	}
	if !knowledge.Indexable(doc.Filename) {
		log.Warn().Str("document_id", doc.ID).Str("filename", doc.Filename).Msg("document format is not indexable")
		return false, nil
	}
	kd, err := readKnowledgeDocument(doc)
	if err != nil {
		return false, err
	}
	added, err := s.index.Add(ctx, kd)
	if err != nil || !added {
		return false, err
	}
	if err := s.store.SetDocumentIndexed(ctx, doc.ID, true); err != nil {
		return true, errors.Wrap(err, "failed to mark document indexed")
	}
	return true, nil
}

func readKnowledgeDocument(doc *domain.Document) (knowledge.Document, error) {
	b, err := os.ReadFile(doc.Path)
	if err != nil {
		return knowledge.Document{}, errors.Wrapf(err, "failed to read document %s", doc.ID)
	}
	return knowledge.Document{
		Source:   documentSource(doc.ID),
		Filename: doc.Filename,
		Origin:   domain.ChunkOriginUploaded,
		Text:     string(b),
	}, nil
}

// uploadedDocuments feeds uploaded text documents into index rebuilds.
func (s *Service) uploadedDocuments(ctx context.Context) ([]knowledge.Document, error) {
	docs, err := s.store.ListDocuments(ctx, store.DocumentFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	var out []knowledge.Document
	for i := range docs {
		if !knowledge.Indexable(docs[i].Filename) {
			continue
		}
		kd, err := readKnowledgeDocument(&docs[i])
		if err != nil {
			log.Warn().Err(err).Str("document_id", docs[i].ID).Msg("skipping unreadable document")
			continue
		}
		out = append(out, kd)
	}
	return out, nil
}
