package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/pagination"
)

type stubProductsRepo struct {
	products map[uuid.UUID]*models.Product
	listArgs *listProductsParams
}

func newStubProductsRepo(list ...*models.Product) *stubProductsRepo {
	repo := &stubProductsRepo{products: map[uuid.UUID]*models.Product{}}
	for _, p := range list {
		repo.products[p.ID] = p
	}
	return repo
}

func (s *stubProductsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubProductsRepo) Create(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	s.products[product.ID] = product
	return nil
}

func (s *stubProductsRepo) Update(ctx context.Context, product *models.Product) error {
	s.products[product.ID] = product
	return nil
}

func (s *stubProductsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubProductsRepo) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.IsActive {
			rows = append(rows, *p)
		}
	}
	return rows, nil
}

func (s *stubProductsRepo) List(ctx context.Context, params listProductsParams) ([]models.Product, *pagination.Cursor, error) {
	s.listArgs = &params
	var rows []models.Product
	for _, p := range s.products {
		if params.ActiveOnly && !p.IsActive {
			continue
		}
		rows = append(rows, *p)
	}
	return rows, nil, nil
}

var (
	adminActor  = Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	clientActor = Actor{UserID: uuid.New(), Role: enums.RoleClient}
)

func TestCreateProductRequiresAdmin(t *testing.T) {
	svc, err := NewService(newStubProductsRepo())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	_, err = svc.Create(context.Background(), CreateProductInput{
		Actor:    clientActor,
		Name:     "Harina",
		PriceUSD: decimal.RequireFromString("3.50"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCreateProductRejectsNonPositivePrice(t *testing.T) {
	svc, _ := NewService(newStubProductsRepo())
	_, err := svc.Create(context.Background(), CreateProductInput{
		Actor:    adminActor,
		Name:     "Harina",
		PriceUSD: decimal.Zero,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCreateProductDefaultsActive(t *testing.T) {
	repo := newStubProductsRepo()
	svc, _ := NewService(repo)

	product, err := svc.Create(context.Background(), CreateProductInput{
		Actor:    adminActor,
		Name:     "  Harina  ",
		PriceUSD: decimal.RequireFromString("3.50"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !product.IsActive || product.Name != "Harina" {
		t.Fatalf("unexpected product %+v", product)
	}
}

func TestUpdateProductAppliesPartialChanges(t *testing.T) {
	existing := &models.Product{
		ID:       uuid.New(),
		Name:     "Harina",
		PriceUSD: decimal.RequireFromString("3.50"),
		IsActive: true,
	}
	repo := newStubProductsRepo(existing)
	svc, _ := NewService(repo)

	newPrice := decimal.RequireFromString("4.25")
	updated, err := svc.Update(context.Background(), UpdateProductInput{
		Actor:     adminActor,
		ProductID: existing.ID,
		PriceUSD:  &newPrice,
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.PriceUSD.Equal(newPrice) || updated.Name != "Harina" {
		t.Fatalf("unexpected product %+v", updated)
	}
}

func TestDeleteDeactivatesProduct(t *testing.T) {
	existing := &models.Product{
		ID:       uuid.New(),
		Name:     "Harina",
		PriceUSD: decimal.RequireFromString("3.50"),
		IsActive: true,
	}
	repo := newStubProductsRepo(existing)
	svc, _ := NewService(repo)

	if err := svc.Delete(context.Background(), DeleteProductInput{Actor: adminActor, ProductID: existing.ID}); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if repo.products[existing.ID].IsActive {
		t.Fatalf("product must be deactivated")
	}

	// Deactivated products stay resolvable for history but drop out of
	// order placement.
	rows, err := repo.FindActiveByIDs(context.Background(), []uuid.UUID{existing.ID})
	if err != nil {
		t.Fatalf("find active: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("deactivated product must not be orderable")
	}
}

func TestListClientsOnlySeeActiveProducts(t *testing.T) {
	repo := newStubProductsRepo()
	svc, _ := NewService(repo)

	if _, err := svc.List(context.Background(), ListProductsInput{Actor: clientActor, IncludeInactive: true}); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if repo.listArgs == nil || !repo.listArgs.ActiveOnly {
		t.Fatalf("client list must filter to active products")
	}

	if _, err := svc.List(context.Background(), ListProductsInput{Actor: adminActor, IncludeInactive: true}); err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if repo.listArgs.ActiveOnly {
		t.Fatalf("admin list may include inactive products")
	}
}

func TestGetMissingProductNotFound(t *testing.T) {
	svc, _ := NewService(newStubProductsRepo())
	_, err := svc.Get(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unexpected error %v", err)
	}
}
