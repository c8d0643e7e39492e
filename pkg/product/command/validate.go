package command

import (
	"context"
	"math"

	"github.com/Sokol111/ecommerce-product-service/pkg/product"
)

const maxNameLength = 200

func validPrice(price float64) bool {
	return price > 0 && !math.IsNaN(price) && !math.IsInf(price, 0)
}

func (s *service) validateCreate(ctx context.Context, cmd CreateProduct) error {
	v := &validation{}

	if cmd.Name == "" {
		v.add("name", "is required")
	} else if len(cmd.Name) > maxNameLength {
		v.add("name", "must be at most %d characters", maxNameLength)
	}
	if !validPrice(cmd.Price) {
		v.add("price", "must be a positive finite number")
	}
	if cmd.SKU == "" {
		v.add("sku", "is required")
	}
	if cmd.Stock < 0 {
		v.add("stock", "must not be negative")
	}

	if cmd.CategoryID == "" {
		v.add("categoryId", "is required")
	} else {
		exists, err := s.categories.Exists(ctx, cmd.CategoryID)
		if err != nil {
			return err
		}
		if !exists {
			v.add("categoryId", "category %q does not exist", cmd.CategoryID)
		}
	}

	if cmd.SKU != "" {
		taken, err := s.projections.SKUExists(ctx, cmd.SKU)
		if err != nil {
			return err
		}
		if taken {
			v.add("sku", "sku %q is already in use", cmd.SKU)
		}
	}

	return v.err()
}

func (s *service) validateUpdate(ctx context.Context, cmd UpdateProduct) error {
	v := &validation{}

	if cmd.Name == "" {
		v.add("name", "is required")
	} else if len(cmd.Name) > maxNameLength {
		v.add("name", "must be at most %d characters", maxNameLength)
	}

	if cmd.CategoryID == "" {
		v.add("categoryId", "is required")
	} else {
		exists, err := s.categories.Exists(ctx, cmd.CategoryID)
		if err != nil {
			return err
		}
		if !exists {
			v.add("categoryId", "category %q does not exist", cmd.CategoryID)
		}
	}

	return v.err()
}

func validateChangePrice(cmd ChangePrice, current product.Product) error {
	v := &validation{}
	if !validPrice(cmd.NewPrice) {
		v.add("newPrice", "must be a positive finite number")
	} else if cmd.NewPrice == current.Price {
		v.add("newPrice", "price is already %v", current.Price)
	}
	return v.err()
}

func validateChangeStock(cmd ChangeStock, current product.Product) error {
	v := &validation{}
	if cmd.NewStock < 0 {
		v.add("newStock", "must not be negative")
	} else if cmd.NewStock == current.Stock {
		v.add("newStock", "stock is already %d", current.Stock)
	}
	return v.err()
}
