package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
	"github.com/boddenberg/insurance-crm-web/internal/port"
	"github.com/boddenberg/insurance-crm-web/internal/query"
)

// CatalogService serves products, categories and product documents.
type CatalogService struct {
	products   port.ProductsAPI
	categories port.CategoriesAPI
	queries    *query.Client
	logger     *zap.Logger
}

func NewCatalogService(products port.ProductsAPI, categories port.CategoriesAPI, queries *query.Client, logger *zap.Logger) *CatalogService {
	return &CatalogService{products: products, categories: categories, queries: queries, logger: logger}
}

// Catalog is the product browser: every category plus the products of the
// selected one (all products when none is selected).
type Catalog struct {
	Categories []domain.Category
	Selected   int64
	Products   []domain.Product
}

// ============================================================
// Categories
// ============================================================

func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	return query.Fetch(ctx, s.queries, query.K(ResCategories, "list"), s.categories.List)
}

func (s *CatalogService) Category(ctx context.Context, id int64) (*domain.Category, error) {
	return query.Fetch(ctx, s.queries, query.K(ResCategories, "get", id), func(ctx context.Context) (*domain.Category, error) {
		return s.categories.Get(ctx, id)
	})
}

func (s *CatalogService) CreateCategory(ctx context.Context, req *domain.CategoryRequest) (*domain.Category, error) {
	if err := validateCategory(req); err != nil {
		return nil, err
	}
	c, err := s.categories.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResCategories)
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, req *domain.CategoryRequest) (*domain.Category, error) {
	if err := validateCategory(req); err != nil {
		return nil, err
	}
	c, err := s.categories.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResCategories, ResProducts)
	return c, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return err
	}
	s.queries.Invalidate(ResCategories, ResProducts)
	return nil
}

func validateCategory(req *domain.CategoryRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "Name is required"}
	}
	return nil
}

// ============================================================
// Products
// ============================================================

// Browse loads the categories and, depending on categoryID, the matching
// products.
func (s *CatalogService) Browse(ctx context.Context, categoryID int64) (*Catalog, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.Browse")
	defer span.End()

	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.Products(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	return &Catalog{Categories: cats, Selected: categoryID, Products: products}, nil
}

// Products lists products, optionally restricted to one category.
func (s *CatalogService) Products(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	if categoryID > 0 {
		return query.Fetch(ctx, s.queries, query.K(ResProducts, "category", categoryID), func(ctx context.Context) ([]domain.Product, error) {
			return s.products.ByCategory(ctx, categoryID)
		})
	}
	return query.Fetch(ctx, s.queries, query.K(ResProducts, "list"), func(ctx context.Context) ([]domain.Product, error) {
		return s.products.List(ctx, domain.ProductQuery{})
	})
}

func (s *CatalogService) Product(ctx context.Context, id int64) (*domain.Product, error) {
	return query.Fetch(ctx, s.queries, query.K(ResProducts, "get", id), func(ctx context.Context) (*domain.Product, error) {
		return s.products.Get(ctx, id)
	})
}

func (s *CatalogService) CreateProduct(ctx context.Context, req *domain.ProductRequest) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.CreateProduct")
	defer span.End()

	if err := validateProduct(req); err != nil {
		return nil, err
	}
	p, err := s.products.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResProducts)
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, req *domain.ProductRequest) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.UpdateProduct")
	defer span.End()

	if err := validateProduct(req); err != nil {
		return nil, err
	}
	p, err := s.products.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.queries.Invalidate(ResProducts)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.queries.Invalidate(ResProducts, ResDocuments)
	return nil
}

func validateProduct(req *domain.ProductRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Insurer = strings.TrimSpace(req.Insurer)
	req.PlanType = strings.TrimSpace(req.PlanType)
	if req.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "Name is required"}
	}
	if req.CategoryID <= 0 {
		return &domain.ErrValidation{Field: "categoryId", Message: "Select a category"}
	}
	return nil
}

// SplitTags turns the comma separated tags field into a clean list.
func SplitTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ============================================================
// Documents
// ============================================================

func (s *CatalogService) Documents(ctx context.Context, productID int64) ([]domain.ProductDocument, error) {
	return query.Fetch(ctx, s.queries, query.K(ResDocuments, productID), func(ctx context.Context) ([]domain.ProductDocument, error) {
		return s.products.Documents(ctx, productID)
	})
}

// UploadDocument attaches file to a product, filed under its category.
func (s *CatalogService) UploadDocument(ctx context.Context, productID int64, file *domain.Upload) (*domain.ProductDocument, error) {
	ctx, span := tracer.Start(ctx, "CatalogService.UploadDocument")
	defer span.End()

	if err := requireFile(file); err != nil {
		return nil, err
	}
	product, err := s.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	doc, err := s.products.UploadDocument(ctx, productID, product.CategoryID, file)
	if err != nil {
		return nil, err
	}
	s.logger.Info("document uploaded", zap.Int64("product_id", productID), zap.String("filename", doc.Filename))
	s.queries.Invalidate(ResDocuments)
	return doc, nil
}

// DownloadDocument fetches a document's file. Downloads bypass the query cache.
func (s *CatalogService) DownloadDocument(ctx context.Context, documentID int64) (*domain.Download, error) {
	return s.products.DownloadDocument(ctx, documentID)
}

func (s *CatalogService) DeleteDocument(ctx context.Context, documentID int64) error {
	if err := s.products.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	s.queries.Invalidate(ResDocuments)
	return nil
}
