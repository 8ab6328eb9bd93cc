package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/yassinsws/microsoft-agent-hackathon/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func TestSQLiteStoreRunAndEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	run := &domain.Run{
		RunID:     "run_1",
		Kind:      domain.RunKindWorkflow,
		ClaimID:   "CLM-2024-001",
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	errPayload := json.RawMessage(`{"message":"boom"}`)
	if err := store.UpdateRunCompleted(ctx, "run_1", domain.RunStatusFailed, "", errPayload); err != nil {
		t.Fatalf("UpdateRunCompleted failed: %v", err)
	}

	gotRun, err := store.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if gotRun == nil || gotRun.Status != domain.RunStatusFailed || gotRun.EndedAt == nil {
		t.Fatalf("unexpected run: %+v", gotRun)
	}
	if gotRun.ClaimID != "CLM-2024-001" || string(gotRun.Error) != `{"message":"boom"}` {
		t.Fatalf("unexpected run fields: %+v", gotRun)
	}

	missing, err := store.GetRun(ctx, "run_missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil run, got %+v, %v", missing, err)
	}

	ts := time.Now().UnixMilli()
	for i, typ := range []domain.EventType{domain.EventTypeRunStarted, domain.EventTypeWorkerUpdate, domain.EventTypeRunFailed} {
		event := &domain.Event{
			EventID: "evt_" + string(rune('a'+i)),
			RunID:   "run_1",
			Ts:      ts,
			Type:    typ,
			Payload: json.RawMessage(`{}`),
		}
		if err := store.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	events, err := store.GetEvents(ctx, "run_1", 0, []string{}, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 3 || events[0].Type != domain.EventTypeRunStarted || events[2].Type != domain.EventTypeRunFailed {
		t.Fatalf("unexpected events: %+v", events)
	}

	filtered, err := store.GetEvents(ctx, "run_1", 0, []string{string(domain.EventTypeWorkerUpdate)}, 0)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(filtered) != 1 {
		t.Fatalf("expected 1 event, got %d", len(filtered))
	}
}

func TestSQLiteStoreTraceEntries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if err := store.CreateRun(ctx, &domain.Run{RunID: "run_1", Kind: domain.RunKindWorkflow, Status: domain.RunStatusRunning, StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	first := []domain.TraceEntry{{Role: domain.RoleHuman, Content: "claim"}}
	second := []domain.TraceEntry{
		{Role: domain.RoleWorker, Content: "VALID", Worker: "claim_assessor"},
		{Role: domain.RoleWorker, Content: "COVERED", Worker: "policy_checker"},
	}
	if err := store.AppendTraceEntries(ctx, "run_1", first); err != nil {
		t.Fatalf("AppendTraceEntries failed: %v", err)
	}
	if err := store.AppendTraceEntries(ctx, "run_1", second); err != nil {
		t.Fatalf("AppendTraceEntries failed: %v", err)
	}

	entries, err := store.GetTraceEntries(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetTraceEntries failed: %v", err)
	}
	if len(entries) != 3 || entries[0].Worker != "" || entries[2].Worker != "policy_checker" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	if err := store.DeleteTraceEntries(ctx, "run_1"); err != nil {
		t.Fatalf("DeleteTraceEntries failed: %v", err)
	}
	entries, _ = store.GetTraceEntries(ctx, "run_1")
	if len(entries) != 0 {
		t.Fatalf("expected empty trace, got %d", len(entries))
	}
}

func TestSQLiteStoreDocuments(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	base := time.Now().Add(-time.Hour)
	docs := []domain.Document{
		{ID: "d1", Filename: "a.md", Category: domain.DocumentCategoryPolicy, Path: "/x/a.md", Size: 10, UploadedAt: base},
		{ID: "d2", Filename: "b.pdf", Category: domain.DocumentCategoryRegulation, Path: "/x/b.pdf", Size: 20, UploadedAt: base.Add(time.Minute)},
		{ID: "d3", Filename: "c.txt", Category: domain.DocumentCategoryPolicy, Path: "/x/c.txt", Size: 30, UploadedAt: base.Add(2 * time.Minute)},
	}
	for i := range docs {
		if err := store.CreateDocument(ctx, &docs[i]); err != nil {
			t.Fatalf("CreateDocument failed: %v", err)
		}
	}

	all, err := store.ListDocuments(ctx, DocumentFilter{})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "d3" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	if err := store.SetDocumentIndexed(ctx, "d1", true); err != nil {
		t.Fatalf("SetDocumentIndexed failed: %v", err)
	}
	indexed, err := store.ListDocuments(ctx, DocumentFilter{Category: domain.DocumentCategoryPolicy, IndexedOnly: true})
	if err != nil {
		t.Fatalf("ListDocuments failed: %v", err)
	}
	if len(indexed) != 1 || indexed[0].ID != "d1" || !indexed[0].Indexed {
		t.Fatalf("unexpected filtered docs: %+v", indexed)
	}

	if err := store.ResetDocumentsIndexed(ctx); err != nil {
		t.Fatalf("ResetDocumentsIndexed failed: %v", err)
	}
	got, err := store.GetDocument(ctx, "d1")
	if err != nil || got == nil || got.Indexed {
		t.Fatalf("unexpected document: %+v, %v", got, err)
	}

	deleted, err := store.DeleteDocument(ctx, "d1")
	if err != nil || !deleted {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	deleted, _ = store.DeleteDocument(ctx, "d1")
	if deleted {
		t.Fatalf("expected second delete to report false")
	}
}

func TestSQLiteStoreChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	canonical := []domain.Chunk{
		{ID: "a-0", Source: "policies/a.md", Origin: domain.ChunkOriginCanonical, Section: "1", Content: "one", Embedding: []float32{0.1, 0.2}, EmbeddingModel: "feature-hash/2"},
		{ID: "a-1", Source: "policies/a.md", Origin: domain.ChunkOriginCanonical, Section: "2", Content: "two", Embedding: []float32{0.3, 0.4}},
	}
	if err := store.ReplaceChunks(ctx, canonical); err != nil {
		t.Fatalf("ReplaceChunks failed: %v", err)
	}

	uploaded := []domain.Chunk{{ID: "u-0", Source: "uploads/u.md", Origin: domain.ChunkOriginUploaded, Content: "up", Embedding: []float32{1, 0}}}
	if err := store.AddChunks(ctx, "uploads/u.md", uploaded); err != nil {
		t.Fatalf("AddChunks failed: %v", err)
	}
	if err := store.AddChunks(ctx, "uploads/u.md", uploaded); err != nil {
		t.Fatalf("AddChunks failed: %v", err)
	}

	chunks, err := store.ListChunks(ctx)
	if err != nil {
		t.Fatalf("ListChunks failed: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[1].Embedding[1] != 0.4 {
		t.Fatalf("embedding not preserved: %v", chunks[1].Embedding)
	}
	if chunks[0].EmbeddingModel != "feature-hash/2" || chunks[1].EmbeddingModel != "" {
		t.Fatalf("embedding model not preserved: %q %q", chunks[0].EmbeddingModel, chunks[1].EmbeddingModel)
	}

	if err := store.DeleteChunks(ctx, "policies/a.md"); err != nil {
		t.Fatalf("DeleteChunks failed: %v", err)
	}
	chunks, _ = store.ListChunks(ctx)
	if len(chunks) != 1 || chunks[0].Origin != domain.ChunkOriginUploaded {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}

func TestSQLiteStoreAddsEmbeddingModelToOldChunkTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	_, err = db.Exec(`CREATE TABLE knowledge_chunks (
		id TEXT PRIMARY KEY, source TEXT NOT NULL, origin TEXT NOT NULL,
		policy_type TEXT, section TEXT, content TEXT NOT NULL, embedding TEXT NOT NULL)`)
	if err == nil {
		_, err = db.Exec(`INSERT INTO knowledge_chunks (id, source, origin, content, embedding) VALUES ('a-0', 'policies/a.md', 'canonical', 'one', '[0.1]')`)
	}
	db.Close()
	if err != nil {
		t.Fatalf("seeding old schema failed: %v", err)
	}

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to open old database: %v", err)
	}
	defer store.Close()

	chunks, err := store.ListChunks(ctx)
	if err != nil {
		t.Fatalf("ListChunks failed: %v", err)
	}
	if len(chunks) != 1 || chunks[0].EmbeddingModel != "" {
		t.Fatalf("unexpected chunks: %+v", chunks)
	}
}
