package projection

import (
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/product"
)

// productEntity is the read-model document. It is a derived artifact: every
// field is computable from the event stream, and the whole collection can be
// dropped and rebuilt.
type productEntity struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Description string            `bson:"description,omitempty"`
	Price       float64           `bson:"price"`
	CategoryID  string            `bson:"categoryId"`
	SKU         string            `bson:"sku"`
	Stock       int               `bson:"stock"`
	Attributes  map[string]string `bson:"attributes,omitempty"`
	Active      bool              `bson:"active"`
	Featured    bool              `bson:"featured"`
	Version     int               `bson:"version"`
	CreatedAt   time.Time         `bson:"createdAt"`
	UpdatedAt   time.Time         `bson:"updatedAt"`
}

type productMapper struct{}

func (productMapper) ToEntity(p *product.Product) *productEntity {
	return &productEntity{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		CategoryID:  p.CategoryID,
		SKU:         p.SKU,
		Stock:       p.Stock,
		Attributes:  p.Attributes,
		Active:      p.Active,
		Featured:    p.Featured,
		Version:     p.Version,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (productMapper) ToDomain(e *productEntity) *product.Product {
	return &product.Product{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Price:       e.Price,
		CategoryID:  e.CategoryID,
		SKU:         e.SKU,
		Stock:       e.Stock,
		Attributes:  e.Attributes,
		Active:      e.Active,
		Featured:    e.Featured,
		Version:     e.Version,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (productMapper) GetID(e *productEntity) string { return e.ID }

func (productMapper) GetVersion(e *productEntity) int { return e.Version }
