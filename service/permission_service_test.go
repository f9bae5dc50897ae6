package service

import (
	"context"
	"errors"
	"testing"

	"github.com/RigelNana/docvault/models"
	"github.com/google/uuid"
)

func TestCapabilityOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	writer := uuid.New()
	reader := uuid.New()

	doc, err := env.catalog.Create(ctx, owner)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	if _, err := env.permissions.Grant(ctx, doc.ID, writer, models.CapabilityWrite, owner); err != nil {
		t.Fatalf("grant write: %v", err)
	}
	if _, err := env.permissions.Grant(ctx, doc.ID, reader, models.CapabilityRead, owner); err != nil {
		t.Fatalf("grant read: %v", err)
	}

	cases := []struct {
		name     string
		user     uuid.UUID
		required models.Capability
		want     bool
	}{
		{"write satisfies read", writer, models.CapabilityRead, true},
		{"write satisfies write", writer, models.CapabilityWrite, true},
		{"write does not satisfy admin", writer, models.CapabilityAdmin, false},
		{"read does not satisfy write", reader, models.CapabilityWrite, false},
		{"read satisfies read", reader, models.CapabilityRead, true},
		{"owner satisfies admin without grant row", owner, models.CapabilityAdmin, true},
		{"stranger satisfies nothing", uuid.New(), models.CapabilityRead, false},
	}
	for _, tc := range cases {
		got, err := env.permissions.Check(ctx, doc.ID, tc.user, tc.required)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestGrantRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	writer := uuid.New()

	doc, _ := env.catalog.Create(ctx, owner)
	if _, err := env.permissions.Grant(ctx, doc.ID, writer, models.CapabilityWrite, owner); err != nil {
		t.Fatalf("owner grant: %v", err)
	}

	// WRITE 不够,授权要求 ADMIN
	if _, err := env.permissions.Grant(ctx, doc.ID, uuid.New(), models.CapabilityRead, writer); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := env.permissions.Grant(ctx, doc.ID, uuid.New(), models.Capability("OWNER"), owner); !errors.Is(err, ErrInvalidCapability) {
		t.Fatalf("expected ErrInvalidCapability, got %v", err)
	}
}

func TestGrantUpsertsSingleRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	grantee := uuid.New()

	doc, _ := env.catalog.Create(ctx, owner)

	if _, err := env.permissions.Grant(ctx, doc.ID, grantee, models.CapabilityRead, owner); err != nil {
		t.Fatalf("grant read: %v", err)
	}
	if _, err := env.permissions.Grant(ctx, doc.ID, grantee, models.CapabilityAdmin, owner); err != nil {
		t.Fatalf("re-grant admin: %v", err)
	}

	permissions, total, err := env.permissions.ListForDocument(ctx, doc.ID, 1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(permissions) != 1 {
		t.Fatalf("expected single permission row after upsert, got %d", total)
	}
	if permissions[0].Capability != models.CapabilityAdmin {
		t.Errorf("upsert should replace capability, got %s", permissions[0].Capability)
	}
}

func TestRevokeIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	grantee := uuid.New()

	doc, _ := env.catalog.Create(ctx, owner)

	// 撤销不存在的授权,静默成功
	if err := env.permissions.Revoke(ctx, doc.ID, grantee, owner); err != nil {
		t.Fatalf("revoking nonexistent grant should succeed, got %v", err)
	}

	if _, err := env.permissions.Grant(ctx, doc.ID, grantee, models.CapabilityRead, owner); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := env.permissions.Revoke(ctx, doc.ID, grantee, owner); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := env.permissions.Revoke(ctx, doc.ID, grantee, owner); err != nil {
		t.Fatalf("repeated revoke should succeed, got %v", err)
	}

	allowed, err := env.permissions.Check(ctx, doc.ID, grantee, models.CapabilityRead)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if allowed {
		t.Errorf("revoked grantee should fail the check")
	}
}

func TestListForUserOrderedByGrantTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	grantee := uuid.New()

	var docs []uuid.UUID
	for i := 0; i < 3; i++ {
		doc, _ := env.catalog.Create(ctx, owner)
		if _, err := env.permissions.Grant(ctx, doc.ID, grantee, models.CapabilityRead, owner); err != nil {
			t.Fatalf("grant: %v", err)
		}
		docs = append(docs, doc.ID)
	}

	permissions, total, err := env.permissions.ListForUser(ctx, grantee, 1, 2)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(permissions) != 2 {
		t.Errorf("expected page of 2, got %d", len(permissions))
	}
	_ = docs
}
