package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RigelNana/docvault/handler"
	"github.com/RigelNana/docvault/models"
	"github.com/RigelNana/docvault/repository"
	"github.com/RigelNana/docvault/router"
	"github.com/RigelNana/docvault/service"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "handler-test-secret"

type routerEnv struct {
	engine      *gin.Engine
	catalog     service.CatalogService
	permissions service.PermissionService
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

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

	permissionSvc := service.NewPermissionService(permissionRepo, documentRepo)
	ledgerSvc := service.NewLedgerService(versionRepo, documentRepo)
	catalogSvc := service.NewCatalogService(documentRepo, versionRepo, permissionSvc, nil)
	tokenSvc := service.NewTokenService(tokenRepo, versionRepo, catalogSvc, permissionSvc, 24*time.Hour, 30*time.Minute)
	uploadSvc := service.NewUploadService(ledgerSvc, catalogSvc, permissionSvc, versionRepo, nil, nil)

	engine := router.Setup(
		handler.NewUploadHandler(uploadSvc),
		handler.NewDocumentHandler(catalogSvc, ledgerSvc, permissionSvc),
		handler.NewPermissionHandler(permissionSvc),
		handler.NewTokenHandler(tokenSvc, versionRepo, nil, "http://localhost:8080"),
		testJWTSecret,
	)
	return &routerEnv{engine: engine, catalog: catalogSvc, permissions: permissionSvc}
}

func bearerFor(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return "Bearer " + signed
}

func (e *routerEnv) do(t *testing.T, method, path, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// 文档元数据和版本历史是租户数据,没有 READ 的用户一律拒绝
func TestDocumentReadEndpointsRequireRead(t *testing.T) {
	env := newRouterEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	stranger := uuid.New()
	reader := uuid.New()

	doc, err := env.catalog.Create(ctx, owner)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	docPath := "/api/documents/" + doc.ID.String()

	if w := env.do(t, http.MethodGet, docPath, bearerFor(t, stranger, "")); w.Code != http.StatusForbidden {
		t.Errorf("stranger GET document: expected 403, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, docPath+"/versions", bearerFor(t, stranger, "")); w.Code != http.StatusForbidden {
		t.Errorf("stranger GET versions: expected 403, got %d", w.Code)
	}

	if w := env.do(t, http.MethodGet, docPath, bearerFor(t, owner, "")); w.Code != http.StatusOK {
		t.Errorf("owner GET document: expected 200, got %d", w.Code)
	}

	if _, err := env.permissions.Grant(ctx, doc.ID, reader, models.CapabilityRead, owner); err != nil {
		t.Fatalf("grant read: %v", err)
	}
	if w := env.do(t, http.MethodGet, docPath, bearerFor(t, reader, "")); w.Code != http.StatusOK {
		t.Errorf("READ grantee GET document: expected 200, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, docPath+"/versions", bearerFor(t, reader, "")); w.Code != http.StatusOK {
		t.Errorf("READ grantee GET versions: expected 200, got %d", w.Code)
	}
}

func TestPermissionListingRequiresAdmin(t *testing.T) {
	env := newRouterEnv(t)
	ctx := context.Background()
	owner := uuid.New()
	reader := uuid.New()

	doc, err := env.catalog.Create(ctx, owner)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if _, err := env.permissions.Grant(ctx, doc.ID, reader, models.CapabilityRead, owner); err != nil {
		t.Fatalf("grant read: %v", err)
	}
	permPath := "/api/documents/" + doc.ID.String() + "/permissions"

	if w := env.do(t, http.MethodGet, permPath, bearerFor(t, reader, "")); w.Code != http.StatusForbidden {
		t.Errorf("READ grantee listing permissions: expected 403, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, permPath, bearerFor(t, owner, "")); w.Code != http.StatusOK {
		t.Errorf("owner listing permissions: expected 200, got %d", w.Code)
	}
}

func TestTokenCleanupRequiresAdminRole(t *testing.T) {
	env := newRouterEnv(t)
	user := uuid.New()

	if w := env.do(t, http.MethodPost, "/api/admin/tokens/cleanup", bearerFor(t, user, "")); w.Code != http.StatusForbidden {
		t.Errorf("regular user triggering sweep: expected 403, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/admin/tokens/cleanup", bearerFor(t, user, "admin")); w.Code != http.StatusOK {
		t.Errorf("admin triggering sweep: expected 200, got %d", w.Code)
	}
}
