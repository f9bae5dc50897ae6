package service

import (
	"context"
	"errors"
	"testing"

	"github.com/RigelNana/docvault/models"
	"github.com/google/uuid"
)

func TestPublishRequiresCommittedVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	doc, err := env.catalog.Create(ctx, owner)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if doc.Status != models.DocumentStatusDraft {
		t.Fatalf("new document should be DRAFT, got %s", doc.Status)
	}

	if _, err := env.catalog.Publish(ctx, doc.ID, owner); !errors.Is(err, ErrNoVersionsYet) {
		t.Fatalf("expected ErrNoVersionsYet, got %v", err)
	}

	env.uploadDocument(t, owner, &doc.ID, "now publishable")

	published, err := env.catalog.Publish(ctx, doc.ID, owner)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if published.Status != models.DocumentStatusPublished {
		t.Errorf("expected PUBLISHED, got %s", published.Status)
	}

	if _, err := env.catalog.Publish(ctx, doc.ID, owner); !errors.Is(err, ErrAlreadyPublished) {
		t.Errorf("expected ErrAlreadyPublished, got %v", err)
	}
}

func TestUnpublishThenRepublishKeepsVersions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	initiated, _ := env.uploadDocument(t, owner, nil, "v1")
	docID := initiated.DocumentID
	env.uploadDocument(t, owner, &docID, "v2")

	if _, err := env.catalog.Publish(ctx, docID, owner); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := env.catalog.Unpublish(ctx, docID, owner); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	if _, err := env.catalog.Unpublish(ctx, docID, owner); !errors.Is(err, ErrNotPublished) {
		t.Errorf("expected ErrNotPublished on double unpublish, got %v", err)
	}
	if _, err := env.catalog.Publish(ctx, docID, owner); err != nil {
		t.Fatalf("republish: %v", err)
	}

	versions, err := env.ledger.ListVersions(ctx, docID)
	if err != nil {
		t.Fatalf("list versions: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("version history must survive publish cycle, got %d versions", len(versions))
	}
}

func TestPublishRequiresWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	reader := uuid.New()

	initiated, _ := env.uploadDocument(t, owner, nil, "restricted")
	docID := initiated.DocumentID

	if _, err := env.permissions.Grant(ctx, docID, reader, models.CapabilityRead, owner); err != nil {
		t.Fatalf("grant read: %v", err)
	}

	if _, err := env.catalog.Publish(ctx, docID, reader); !errors.Is(err, ErrForbidden) {
		t.Fatalf("READ grantee must not publish, got %v", err)
	}
}

func TestDeleteIsTerminalAndRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	writer := uuid.New()

	initiated, _ := env.uploadDocument(t, owner, nil, "to be deleted")
	docID := initiated.DocumentID

	if _, err := env.permissions.Grant(ctx, docID, writer, models.CapabilityWrite, owner); err != nil {
		t.Fatalf("grant write: %v", err)
	}

	if err := env.catalog.Delete(ctx, docID, writer); !errors.Is(err, ErrForbidden) {
		t.Fatalf("WRITE grantee must not delete, got %v", err)
	}

	if err := env.catalog.Delete(ctx, docID, owner); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	// 终态:读取、再删、再发布都按不存在处理
	if _, err := env.catalog.Get(ctx, docID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("deleted document should be gone, got %v", err)
	}
	if err := env.catalog.Delete(ctx, docID, owner); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("double delete should report not found, got %v", err)
	}
	if _, err := env.catalog.Publish(ctx, docID, owner); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("publishing a deleted document should report not found, got %v", err)
	}
}

func TestListByOwnerSkipsDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()

	keep, _ := env.catalog.Create(ctx, owner)
	gone, _ := env.catalog.Create(ctx, owner)

	if err := env.catalog.Delete(ctx, gone.ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}

	docs, total, err := env.catalog.ListByOwner(ctx, owner, 1, 20)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if total != 1 || len(docs) != 1 || docs[0].ID != keep.ID {
		t.Errorf("deleted documents must not appear in listings")
	}
}
