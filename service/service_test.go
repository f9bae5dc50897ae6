package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/repository"
	"github.com/RigelNana/docvault/storage"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db          *gorm.DB
	documents   repository.DocumentRepository
	versions    repository.VersionRepository
	tokens      repository.TokenRepository
	ledger      LedgerService
	catalog     CatalogService
	permissions PermissionService
	tokenSvc    TokenService
	uploads     UploadService
	blobs       *fakeBlobStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Document{},
		&models.DocumentVersion{},
		&models.Permission{},
		&models.DownloadToken{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	documentRepo := repository.NewDocumentRepository(db)
	versionRepo := repository.NewVersionRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	permissionSvc := NewPermissionService(permissionRepo, documentRepo)
	ledgerSvc := NewLedgerService(versionRepo, documentRepo)
	catalogSvc := NewCatalogService(documentRepo, versionRepo, permissionSvc, nil)
	tokenSvc := NewTokenService(tokenRepo, versionRepo, catalogSvc, permissionSvc, 24*time.Hour, 30*time.Minute)
	blobs := newFakeBlobStore()
	uploadSvc := NewUploadService(ledgerSvc, catalogSvc, permissionSvc, versionRepo, blobs, nil)

	return &testEnv{
		db:          db,
		documents:   documentRepo,
		versions:    versionRepo,
		tokens:      tokenRepo,
		ledger:      ledgerSvc,
		catalog:     catalogSvc,
		permissions: permissionSvc,
		tokenSvc:    tokenSvc,
		uploads:     uploadSvc,
		blobs:       blobs,
	}
}

func sha256hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// uploadDocument 完整走一遍两阶段上传,返回提交结果
func (e *testEnv) uploadDocument(t *testing.T, owner uuid.UUID, documentID *uuid.UUID, content string) (*InitiateResult, *ConfirmResult) {
	t.Helper()
	ctx := context.Background()

	initiated, err := e.uploads.Initiate(ctx, documentID, "notes.txt", "text/plain", int64(len(content)), owner)
	if err != nil {
		t.Fatalf("initiate upload: %v", err)
	}

	confirmed, err := e.uploads.Confirm(ctx, initiated.VersionID, int64(len(content)), sha256hex(content), initiated.StagingPath, owner)
	if err != nil {
		t.Fatalf("confirm upload: %v", err)
	}
	return initiated, confirmed
}

// fakeBlobStore 内存字节存储,替代 MinIO 的测试替身
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(ctx context.Context, path string, data io.Reader, size int64, contentType string) (*storage.PutResult, error) {
	content, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.objects[path] = content
	f.mu.Unlock()
	sum := sha256.Sum256(content)
	return &storage.PutResult{
		Path:     path,
		Size:     int64(len(content)),
		Checksum: hex.EncodeToString(sum[:]),
	}, nil
}

func (f *fakeBlobStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s not found", path)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeBlobStore) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, path)
	return nil
}

func (f *fakeBlobStore) Exists(ctx context.Context, path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[path]
	return ok, nil
}

func (f *fakeBlobStore) PresignedPut(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return "memory://put/" + path, nil
}

func (f *fakeBlobStore) PresignedGet(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return "memory://get/" + path, nil
}
