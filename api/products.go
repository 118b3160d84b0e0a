/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package api

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// ProductInput is the body for creating a product.
type ProductInput struct {
	Name          string
	Category      string
	CostPrice     decimal.Decimal
	SalePrice     decimal.Decimal
	StockQuantity int
	Unit          string
}

func (in ProductInput) payload() map[string]any {
	unit := in.Unit
	if unit == "" {
		unit = "pcs"
	}
	return map[string]any{
		"productName":   in.Name,
		"category":      in.Category,
		"costPrice":     number(in.CostPrice),
		"salePrice":     number(in.SalePrice),
		"stockQuantity": in.StockQuantity,
		"unit":          unit,
	}
}

// ListProducts returns the product catalogue.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: "/products/"})
	if err != nil {
		return nil, err
	}
	products, err := mapList(raw, toProduct, "products")
	return products, decodeErr("/products/", err)
}

// CreateProduct adds a product.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	raw, err := c.do(ctx, request{method: http.MethodPost, path: "/products/", body: in.payload()})
	if err != nil {
		return nil, err
	}
	product, err := mapOne(raw, toProduct)
	return product, decodeErr("/products/", err)
}
