package projection

import (
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-product-service/pkg/product"
	"github.com/stretchr/testify/assert"
)

func TestProductMapperRoundTrip(t *testing.T) {
	mapper := productMapper{}

	domain := &product.Product{
		ID:          "p1",
		Name:        "Keyboard",
		Description: "mechanical",
		Price:       49.90,
		CategoryID:  "electronics",
		SKU:         "KB-1",
		Stock:       7,
		Attributes:  map[string]string{"layout": "iso"},
		Active:      true,
		Featured:    true,
		Version:     4,
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC),
	}

	entity := mapper.ToEntity(domain)
	assert.Equal(t, "p1", mapper.GetID(entity))
	assert.Equal(t, 4, mapper.GetVersion(entity))

	back := mapper.ToDomain(entity)
	assert.Equal(t, domain, back)
}
