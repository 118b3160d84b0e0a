/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/shopspring/decimal"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/currency"
	"github.com/muhammadimranrafique/copy-app/utils"
)

type productForm struct {
	Name      string          `form:"name" validate:"required,max=200"`
	Category  string          `form:"category" validate:"max=100"`
	SalePrice decimal.Decimal `form:"sale_price" validate:"gt=0"`
	CostPrice decimal.Decimal `form:"cost_price" validate:"gte=0"`
	Unit      string          `form:"unit" validate:"max=20"`
}

// Products lists the catalogue with an add form.
func Products(c flamego.Context, s session.Session, b *Backend, t template.Template, data template.Data) {
	state := b.products(c.Request().Context())
	if loadFailed(c, s, b, data, state.Err, "Failed to load products") {
		return
	}

	search := strings.ToLower(strings.TrimSpace(c.Query("q")))
	products := make([]api.Product, 0, len(state.Data))
	for _, p := range state.Data {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Category), search) {
			continue
		}
		products = append(products, p)
	}

	data["Products"] = products
	data["Search"] = c.Query("q")
	data["IsProducts"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		{Name: "Products", URL: "/products", IsCurrent: true},
	}

	t.HTML(http.StatusOK, "products")
}

// CreateProduct adds a catalogue item.
func CreateProduct(c flamego.Context, s session.Session, b *Backend, money *currency.Formatter) {
	if err := c.Request().ParseForm(); err != nil {
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/products", http.StatusSeeOther)
		return
	}
	form := c.Request().Form

	salePrice, err := parseMoney(money, form.Get("sale_price"))
	if err != nil {
		SetErrorFlash(s, "Sale price must be a number")
		c.Redirect("/products", http.StatusSeeOther)
		return
	}
	costPrice, err := parseMoney(money, form.Get("cost_price"))
	if err != nil {
		SetErrorFlash(s, "Cost price must be a number")
		c.Redirect("/products", http.StatusSeeOther)
		return
	}
	stock, err := parseQuantity(form.Get("stock_quantity"))
	if err != nil {
		SetErrorFlash(s, "Stock quantity must be a whole number")
		c.Redirect("/products", http.StatusSeeOther)
		return
	}

	input := productForm{
		Name:      strings.TrimSpace(form.Get("name")),
		Category:  strings.TrimSpace(form.Get("category")),
		SalePrice: salePrice,
		CostPrice: costPrice,
		Unit:      strings.TrimSpace(form.Get("unit")),
	}
	if err := utils.ValidateStruct(input); err != nil {
		SetErrorFlash(s, utils.FirstValidationMessage(err))
		c.Redirect("/products", http.StatusSeeOther)
		return
	}

	_, err = b.API.CreateProduct(c.Request().Context(), api.ProductInput{
		Name:          input.Name,
		Category:      input.Category,
		CostPrice:     input.CostPrice,
		SalePrice:     input.SalePrice,
		StockQuantity: stock,
		Unit:          input.Unit,
	})
	if err != nil {
		redirectOnAPIError(c, s, b, err, "Failed to create product", "/products")
		return
	}

	b.invalidate(keyProducts)
	SetSuccessFlash(s, "Product created successfully")
	c.Redirect("/products", http.StatusSeeOther)
}
