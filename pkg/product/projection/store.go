package projection

import (
	"context"
	"fmt"

	mongopkg "github.com/Sokol111/ecommerce-product-service/pkg/persistence/mongo"
	"github.com/Sokol111/ecommerce-product-service/pkg/product"
	"go.mongodb.org/mongo-driver/bson"
)

const collectionName = "products"

// Store is the product read model. Writes go through the version guard so a
// replayed or retried event can never roll the document back; rebuilds use
// Overwrite because the freshly replayed state is authoritative.
type Store interface {
	// Upsert applies a new aggregate state if it is newer than the stored
	// one. Returns false when the store already holds an equal or newer
	// version, which is fine on retries.
	Upsert(ctx context.Context, p *product.Product) (bool, error)
	// Overwrite unconditionally replaces the document, used by rebuilds.
	Overwrite(ctx context.Context, p *product.Product) error
	// Delete removes the document entirely. Rebuild uses it to drop an
	// orphan document whose aggregate has no event stream; soft deletes
	// keep the document with Active=false.
	Delete(ctx context.Context, id string) error

	// GetByID returns the product or persistence.ErrEntityNotFound.
	GetByID(ctx context.Context, id string) (*product.Product, error)
	// GetBySKU returns the product with the given SKU or persistence.ErrEntityNotFound.
	GetBySKU(ctx context.Context, sku string) (*product.Product, error)
	// SKUExists reports whether any product, active or not, holds the SKU.
	SKUExists(ctx context.Context, sku string) (bool, error)

	// FindByCategory lists active products of a category, paginated.
	FindByCategory(ctx context.Context, categoryID string, page, size int) (*mongopkg.PageResult[product.Product], error)
	// FindByPriceRange lists active products with min <= price <= max.
	FindByPriceRange(ctx context.Context, min, max float64, page, size int) (*mongopkg.PageResult[product.Product], error)
	// FindBelowStock lists active products with stock below the threshold.
	FindBelowStock(ctx context.Context, threshold int, page, size int) (*mongopkg.PageResult[product.Product], error)
	// Search runs a text search over name and description of active products.
	Search(ctx context.Context, query string, page, size int) (*mongopkg.PageResult[product.Product], error)
}

type store struct {
	repo *mongopkg.GenericRepository[product.Product, productEntity]
}

func NewStore(m mongopkg.Mongo) (Store, error) {
	repo, err := mongopkg.NewGenericRepository[product.Product, productEntity](
		m.GetCollection(collectionName), productMapper{})
	if err != nil {
		return nil, fmt.Errorf("failed to create product projection repository: %w", err)
	}
	return &store{repo: repo}, nil
}

func (s *store) Upsert(ctx context.Context, p *product.Product) (bool, error) {
	return s.repo.UpsertIfNewer(ctx, p)
}

func (s *store) Overwrite(ctx context.Context, p *product.Product) error {
	return s.repo.Replace(ctx, p)
}

func (s *store) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *store) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *store) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	return s.repo.FindOneWithFilter(ctx, bson.D{{Key: "sku", Value: sku}})
}

func (s *store) SKUExists(ctx context.Context, sku string) (bool, error) {
	return s.repo.ExistsWithFilter(ctx, bson.D{{Key: "sku", Value: sku}})
}

func activeFilter(extra bson.D) bson.D {
	filter := bson.D{{Key: "active", Value: true}}
	return append(filter, extra...)
}

func (s *store) FindByCategory(ctx context.Context, categoryID string, page, size int) (*mongopkg.PageResult[product.Product], error) {
	return s.repo.FindWithOptions(ctx, mongopkg.QueryOptions{
		Filter: activeFilter(bson.D{{Key: "categoryId", Value: categoryID}}),
		Page:   page,
		Size:   size,
		Sort:   bson.D{{Key: "createdAt", Value: -1}},
	})
}

func (s *store) FindByPriceRange(ctx context.Context, min, max float64, page, size int) (*mongopkg.PageResult[product.Product], error) {
	return s.repo.FindWithOptions(ctx, mongopkg.QueryOptions{
		Filter: activeFilter(bson.D{{Key: "price", Value: bson.M{"$gte": min, "$lte": max}}}),
		Page:   page,
		Size:   size,
		Sort:   bson.D{{Key: "price", Value: 1}},
	})
}

func (s *store) FindBelowStock(ctx context.Context, threshold int, page, size int) (*mongopkg.PageResult[product.Product], error) {
	return s.repo.FindWithOptions(ctx, mongopkg.QueryOptions{
		Filter: activeFilter(bson.D{{Key: "stock", Value: bson.M{"$lt": threshold}}}),
		Page:   page,
		Size:   size,
		Sort:   bson.D{{Key: "stock", Value: 1}},
	})
}

func (s *store) Search(ctx context.Context, query string, page, size int) (*mongopkg.PageResult[product.Product], error) {
	return s.repo.FindWithOptions(ctx, mongopkg.QueryOptions{
		Filter: activeFilter(bson.D{{Key: "$text", Value: bson.M{"$search": query}}}),
		Page:   page,
		Size:   size,
	})
}
