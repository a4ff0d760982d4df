package service

import (
	"context"
	"testing"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	catalog CatalogService
	kettle  *domain.Product
	toaster *domain.Product
	lamp    *domain.Product
	kitchen *domain.Category
	hall    *domain.Category
}

func newSearchFixture(t *testing.T) *searchFixture {
	t.Helper()
	_, catalog := newCatalog()
	ctx := context.Background()
	f := &searchFixture{catalog: catalog}

	var err error
	f.kitchen, err = catalog.CreateCategory(ctx, "Kitchen", "")
	require.NoError(t, err)
	f.hall, err = catalog.CreateCategory(ctx, "Hall", "")
	require.NoError(t, err)

	product := func(name, brand string, featured bool, category uuid.UUID, prices ...int64) *domain.Product {
		p, err := catalog.CreateProduct(ctx, ProductInput{Name: name, Brand: brand, Featured: featured, CategoryIDs: []uuid.UUID{category}})
		require.NoError(t, err)
		for i, price := range prices {
			_, err := catalog.AddSku(ctx, p.ID, SkuInput{SkuCode: name + "-" + string(rune('A'+i)), Price: decimal.NewFromInt(price), Quantity: 3})
			require.NoError(t, err)
		}
		return p
	}
	f.kettle = product("Kettle", "Acme", true, f.kitchen.ID, 30, 45)
	f.toaster = product("Toaster", "Globex", false, f.kitchen.ID, 20)
	f.lamp = product("Lamp", "Acme", true, f.hall.ID, 60)
	return f
}

func productNames(page domain.Page[*domain.Product]) []string {
	out := []string{}
	for _, p := range page.Content {
		out = append(out, p.Name)
	}
	return out
}

func TestSearchByPriceRangeBrandAndFlag(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()
	dec := func(n int64) *decimal.Decimal {
		d := decimal.NewFromInt(n)
		return &d
	}
	featured := true

	cases := []struct {
		name   string
		filter repository.ProductFilter
		want   []string
	}{
		{"price range hits any sku", repository.ProductFilter{MinPrice: dec(40), MaxPrice: dec(50)}, []string{"Kettle"}},
		{"min only", repository.ProductFilter{MinPrice: dec(50)}, []string{"Lamp"}},
		{"brand ignores case", repository.ProductFilter{Brand: "acme"}, []string{"Kettle", "Lamp"}},
		{"featured", repository.ProductFilter{Featured: &featured}, []string{"Kettle", "Lamp"}},
		{"any of several categories", repository.ProductFilter{CategoryIDs: []uuid.UUID{f.hall.ID, f.kitchen.ID}}, []string{"Kettle", "Lamp", "Toaster"}},
		{"keyword matches brand", repository.ProductFilter{Search: "globex"}, []string{"Toaster"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := f.catalog.ListProducts(ctx, domain.PageQuery{SortBy: "name", SortDir: domain.SortAsc}, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, productNames(page))
		})
	}
}

func TestSearchRejectsInvertedPriceRange(t *testing.T) {
	f := newSearchFixture(t)
	low, high := decimal.NewFromInt(10), decimal.NewFromInt(5)
	negative := decimal.NewFromInt(-1)

	_, err := f.catalog.ListProducts(context.Background(), domain.PageQuery{}, repository.ProductFilter{MinPrice: &low, MaxPrice: &high})
	assert.ErrorContains(t, err, "min price must not exceed max price")

	_, err = f.catalog.ListProducts(context.Background(), domain.PageQuery{}, repository.ProductFilter{MaxPrice: &negative})
	assert.ErrorContains(t, err, "must not be negative")
}

func TestSortByPriceAndPopularity(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	page, err := f.catalog.ListProducts(ctx, domain.PageQuery{SortBy: "price", SortDir: domain.SortAsc}, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Toaster", "Kettle", "Lamp"}, productNames(page))

	page, err = f.catalog.ListProducts(ctx, domain.PageQuery{SortBy: "price"}, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lamp", "Kettle", "Toaster"}, productNames(page))

	for i := 0; i < 2; i++ {
		_, err := f.catalog.GetProduct(ctx, f.toaster.ID)
		require.NoError(t, err)
	}
	_, err = f.catalog.GetProduct(ctx, f.lamp.ID)
	require.NoError(t, err)

	page, err = f.catalog.ListProducts(ctx, domain.PageQuery{SortBy: "popularity"}, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Toaster", "Lamp", "Kettle"}, productNames(page))
}

func TestToggleFlagsAndBrands(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	toggled, err := f.catalog.ToggleFeatured(ctx, f.kettle.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Featured)

	hidden, err := f.catalog.ToggleActive(ctx, f.lamp.ID)
	require.NoError(t, err)
	assert.False(t, hidden.Active)

	featured := true
	page, err := f.catalog.ListProducts(ctx, domain.PageQuery{}, repository.ProductFilter{Featured: &featured})
	require.NoError(t, err)
	assert.Empty(t, page.Content)

	_, err = f.catalog.GetProduct(ctx, f.lamp.ID)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	// inactive products keep their brand listed until deleted
	brands, err := f.catalog.ListBrands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex"}, brands)

	require.NoError(t, f.catalog.DeleteProduct(ctx, f.toaster.ID))
	brands, err = f.catalog.ListBrands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme"}, brands)

	_, err = f.catalog.ToggleActive(ctx, f.toaster.ID)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestSkuReadsSkipDeletedRows(t *testing.T) {
	f := newSearchFixture(t)
	ctx := context.Background()

	skus, err := f.catalog.ListProductSkus(ctx, f.kettle.ID)
	require.NoError(t, err)
	require.Len(t, skus, 2)

	sku, err := f.catalog.GetSku(ctx, skus[0].ID)
	require.NoError(t, err)
	assert.Equal(t, skus[0].SkuCode, sku.SkuCode)

	require.NoError(t, f.catalog.DeleteSku(ctx, skus[0].ID))
	_, err = f.catalog.GetSku(ctx, skus[0].ID)
	assert.ErrorIs(t, err, repository.ErrSkuNotFound)

	require.NoError(t, f.catalog.DeleteProduct(ctx, f.kettle.ID))
	_, err = f.catalog.ListProductSkus(ctx, f.kettle.ID)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
	_, err = f.catalog.GetSku(ctx, skus[1].ID)
	assert.ErrorIs(t, err, repository.ErrSkuNotFound)

	_, err = f.catalog.GetSku(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrSkuNotFound)
}
