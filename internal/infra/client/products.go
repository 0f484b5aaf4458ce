package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// ============================================================
// Products
// ============================================================

// ProductsClient manages the product catalog and attached documents.
type ProductsClient struct {
	b *Backend
}

// NewProductsClient creates a new ProductsClient.
func NewProductsClient(b *Backend) *ProductsClient {
	return &ProductsClient{b: b}
}

func (c *ProductsClient) List(ctx context.Context, q domain.ProductQuery) ([]domain.Product, error) {
	params := url.Values{}
	if q.CategoryID > 0 {
		params.Set("categoryId", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.Size > 0 {
		params.Set("size", strconv.Itoa(q.Size))
	}
	return getList[domain.Product](ctx, c.b, call{
		resource: "products", op: "list", path: "/products", query: params,
	})
}

func (c *ProductsClient) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return get[domain.Product](ctx, c.b, call{resource: "products", op: "get", path: idPath("/products/%d", id)})
}

func (c *ProductsClient) Create(ctx context.Context, req *domain.ProductRequest) (*domain.Product, error) {
	return send[domain.Product](ctx, c.b, call{
		resource: "products", op: "create",
		method: http.MethodPost, path: "/products", body: req,
	})
}

func (c *ProductsClient) Update(ctx context.Context, id int64, req *domain.ProductRequest) (*domain.Product, error) {
	return send[domain.Product](ctx, c.b, call{
		resource: "products", op: "update",
		method: http.MethodPut, path: idPath("/products/%d", id), body: req,
	})
}

func (c *ProductsClient) Delete(ctx context.Context, id int64) error {
	return c.b.do(ctx, call{
		resource: "products", op: "delete",
		method: http.MethodDelete, path: idPath("/products/%d", id),
	}, nil)
}

func (c *ProductsClient) ByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	return getList[domain.Product](ctx, c.b, call{
		resource: "products", op: "by_category", path: idPath("/products/category/%d", categoryID),
	})
}

func (c *ProductsClient) Documents(ctx context.Context, productID int64) ([]domain.ProductDocument, error) {
	return getList[domain.ProductDocument](ctx, c.b, call{
		resource: "products", op: "documents", path: idPath("/products/%d/documents", productID),
	})
}

// UploadDocument attaches a file to a product. The backend files it under
// the product's category.
func (c *ProductsClient) UploadDocument(ctx context.Context, productID, categoryID int64, file *domain.Upload) (*domain.ProductDocument, error) {
	params := url.Values{}
	params.Set("categoryId", strconv.FormatInt(categoryID, 10))
	return send[domain.ProductDocument](ctx, c.b, call{
		resource: "products", op: "upload_document",
		method: http.MethodPost, path: idPath("/products/%d/documents", productID), query: params, file: file,
	})
}

func (c *ProductsClient) DownloadDocument(ctx context.Context, documentID int64) (*domain.Download, error) {
	return c.b.download(ctx, call{
		resource: "products", op: "download_document",
		method: http.MethodGet, path: idPath("/products/documents/%d/download", documentID),
	})
}

func (c *ProductsClient) DeleteDocument(ctx context.Context, documentID int64) error {
	return c.b.do(ctx, call{
		resource: "products", op: "delete_document",
		method: http.MethodDelete, path: idPath("/products/documents/%d", documentID),
	}, nil)
}

// ============================================================
// Categories
// ============================================================

// CategoriesClient manages product categories.
type CategoriesClient struct {
	b *Backend
}

// NewCategoriesClient creates a new CategoriesClient.
func NewCategoriesClient(b *Backend) *CategoriesClient {
	return &CategoriesClient{b: b}
}

func (c *CategoriesClient) List(ctx context.Context) ([]domain.Category, error) {
	return getList[domain.Category](ctx, c.b, call{resource: "categories", op: "list", path: "/products/categories"})
}

func (c *CategoriesClient) Get(ctx context.Context, id int64) (*domain.Category, error) {
	return get[domain.Category](ctx, c.b, call{
		resource: "categories", op: "get", path: idPath("/products/categories/%d", id),
	})
}

func (c *CategoriesClient) Create(ctx context.Context, req *domain.CategoryRequest) (*domain.Category, error) {
	return send[domain.Category](ctx, c.b, call{
		resource: "categories", op: "create",
		method: http.MethodPost, path: "/products/categories", body: req,
	})
}

func (c *CategoriesClient) Update(ctx context.Context, id int64, req *domain.CategoryRequest) (*domain.Category, error) {
	return send[domain.Category](ctx, c.b, call{
		resource: "categories", op: "update",
		method: http.MethodPut, path: idPath("/products/categories/%d", id), body: req,
	})
}

func (c *CategoriesClient) Delete(ctx context.Context, id int64) error {
	return c.b.do(ctx, call{
		resource: "categories", op: "delete",
		method: http.MethodDelete, path: idPath("/products/categories/%d", id),
	}, nil)
}
