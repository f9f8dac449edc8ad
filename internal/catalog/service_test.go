package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ADI-2707/BillSwift/internal/common"
	"github.com/ADI-2707/BillSwift/internal/order"
	"github.com/ADI-2707/BillSwift/internal/store"
)

type fakeComponentStore struct {
	nextID   int64
	byID     map[int64]store.Component
	inUse    map[int64]bool
	listHits int
}

func newFakeComponentStore() *fakeComponentStore {
	return &fakeComponentStore{byID: map[int64]store.Component{}, inUse: map[int64]bool{}}
}

func (f *fakeComponentStore) List(_ context.Context, onlyActive bool) ([]store.Component, error) {
	f.listHits++
	var out []store.Component
	for _, c := range f.byID {
		if onlyActive && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeComponentStore) Search(_ context.Context, q string, limit int) ([]store.Component, error) {
	var out []store.Component
	for _, c := range f.byID {
		if len(out) == limit {
			break
		}
		if c.IsActive && strings.Contains(strings.ToLower(c.Name), strings.ToLower(q)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeComponentStore) Get(_ context.Context, id int64) (store.Component, error) {
	c, ok := f.byID[id]
	if !ok {
		return store.Component{}, pgx.ErrNoRows
	}
	return c, nil
}

func (f *fakeComponentStore) Create(_ context.Context, in store.ComponentInput) (store.Component, error) {
	for _, c := range f.byID {
		if c.Name == in.Name && c.Brand == in.Brand && c.Model == in.Model {
			return store.Component{}, store.ErrDuplicate
		}
	}
	f.nextID++
	c := store.Component{
		ID: f.nextID, Name: in.Name, Brand: in.Brand, Model: in.Model,
		Price: in.Price, IsActive: in.IsActive, CreatedAt: time.Now(),
	}
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeComponentStore) Update(_ context.Context, id int64, in store.ComponentInput) (store.Component, error) {
	if _, ok := f.byID[id]; !ok {
		return store.Component{}, pgx.ErrNoRows
	}
	c := f.byID[id]
	c.Name, c.Brand, c.Model, c.Price, c.IsActive = in.Name, in.Brand, in.Model, in.Price, in.IsActive
	f.byID[id] = c
	return c, nil
}

func (f *fakeComponentStore) Delete(_ context.Context, id int64) (bool, error) {
	if f.inUse[id] {
		return false, store.ErrReferenced
	}
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

type fakeProductStore struct {
	nextID int64
	byID   map[int64]store.Product
	billed map[int64]bool
}

func newFakeProductStore() *fakeProductStore {
	return &fakeProductStore{byID: map[int64]store.Product{}, billed: map[int64]bool{}}
}

func (f *fakeProductStore) List(_ context.Context, filter store.ProductFilter) ([]store.Product, error) {
	var out []store.Product
	for _, p := range f.byID {
		if filter.OnlyActive && !p.IsActive {
			continue
		}
		if filter.StarterType != "" && p.StarterType != filter.StarterType {
			continue
		}
		if filter.RatingKW != nil && !p.RatingKW.Equal(*filter.RatingKW) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductStore) Get(_ context.Context, id int64) (store.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return store.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeProductStore) Create(_ context.Context, in store.ProductInput) (store.Product, error) {
	for _, p := range f.byID {
		if p.StarterType == in.StarterType && p.RatingKW.Equal(in.RatingKW) {
			return store.Product{}, store.ErrDuplicate
		}
	}
	f.nextID++
	p := store.Product{
		ID: f.nextID, StarterType: in.StarterType, RatingKW: in.RatingKW,
		IsActive: in.IsActive, CreatedAt: time.Now(),
	}
	total := decimal.Zero
	for _, c := range in.Components {
		p.Components = append(p.Components, store.ProductComponent{
			ComponentID: c.ComponentID, Name: c.Name, Brand: c.Brand, Model: c.Model,
			Quantity: c.Quantity, UnitPrice: c.UnitPrice,
		})
		total = total.Add(c.UnitPrice.Mul(decimal.NewFromInt(int64(c.Quantity))))
	}
	p.Price = total
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProductStore) Update(_ context.Context, id int64, in store.ProductInput) (store.Product, error) {
	if _, ok := f.byID[id]; !ok {
		return store.Product{}, pgx.ErrNoRows
	}
	delete(f.byID, id)
	p, err := f.Create(context.Background(), in)
	if err != nil {
		return store.Product{}, err
	}
	return p, nil
}

func (f *fakeProductStore) Delete(_ context.Context, id int64) (bool, error) {
	if f.billed[id] {
		return false, store.ErrReferenced
	}
	if _, ok := f.byID[id]; !ok {
		return false, nil
	}
	delete(f.byID, id)
	return true, nil
}

func newCatalogService(t *testing.T, withCache bool) (*Service, *fakeComponentStore, *fakeProductStore, *miniredis.Miniredis) {
	t.Helper()
	components := newFakeComponentStore()
	products := newFakeProductStore()
	var cache *Cache
	var mr *miniredis.Miniredis
	if withCache {
		mr = miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cache = NewCache(client, time.Minute)
	}
	svc, err := NewService(ServiceConfig{Components: components, Products: products, Cache: cache})
	require.NoError(t, err)
	return svc, components, products, mr
}

func seedComponent(t *testing.T, f *fakeComponentStore, name, brand string, price string) store.Component {
	t.Helper()
	c, err := f.Create(context.Background(), store.ComponentInput{
		Name: name, Brand: brand, Price: decimal.RequireFromString(price), IsActive: true,
	})
	require.NoError(t, err)
	return c
}

func TestListComponentsUsesCache(t *testing.T) {
	svc, components, _, _ := newCatalogService(t, true)
	seedComponent(t, components, "Contactor", "Siemens", "560")

	first, err := svc.ListComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.ListComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, components.listHits, "second call must hit the cache")
}

func TestAdminMutationInvalidatesCache(t *testing.T) {
	svc, components, _, _ := newCatalogService(t, true)
	seedComponent(t, components, "Contactor", "Siemens", "560")

	_, err := svc.ListComponents(context.Background())
	require.NoError(t, err)

	_, err = svc.CreateComponent(context.Background(), ComponentForm{
		Name: "MCB", Brand: "Schneider", Price: decimal.NewFromInt(300),
	})
	require.NoError(t, err)

	listing, err := svc.ListComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, listing, 2)
}

func TestSearchComponentsMinLength(t *testing.T) {
	svc, components, _, _ := newCatalogService(t, false)
	seedComponent(t, components, "Contactor", "Siemens", "560")

	_, err := svc.SearchComponents(context.Background(), "co")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)

	found, err := svc.SearchComponents(context.Background(), "  contact ")
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestCreateComponentValidation(t *testing.T) {
	svc, _, _, _ := newCatalogService(t, false)

	_, err := svc.CreateComponent(context.Background(), ComponentForm{Brand: "Siemens"})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)

	_, err = svc.CreateComponent(context.Background(), ComponentForm{
		Name: "Contactor", Brand: "Siemens", Price: decimal.NewFromInt(-1),
	})
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.HTTPStatus)
}

func TestCreateComponentDuplicateConflict(t *testing.T) {
	svc, _, _, _ := newCatalogService(t, false)

	form := ComponentForm{Name: "Contactor", Brand: "Siemens", Model: "3TF30", Price: decimal.NewFromInt(560)}
	_, err := svc.CreateComponent(context.Background(), form)
	require.NoError(t, err)

	_, err = svc.CreateComponent(context.Background(), form)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)
}

func TestDeleteComponentBlockedWhileReferenced(t *testing.T) {
	svc, components, _, _ := newCatalogService(t, false)
	c := seedComponent(t, components, "Contactor", "Siemens", "560")
	components.inUse[c.ID] = true

	err := svc.DeleteComponent(context.Background(), c.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)

	err = svc.DeleteComponent(context.Background(), 999)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func TestDeleteProductBlockedWhileBilled(t *testing.T) {
	svc, components, products, _ := newCatalogService(t, false)
	c := seedComponent(t, components, "Contactor", "Siemens", "560")
	created, err := svc.CreateProduct(context.Background(), ProductForm{
		StarterType: order.StarterDOL,
		RatingKW:    decimal.RequireFromString("2.5"),
		Components:  []ProductComponentForm{{ComponentID: ptrInt64(c.ID), Quantity: 1}},
	})
	require.NoError(t, err)
	products.billed[created.ID] = true

	err = svc.DeleteProduct(context.Background(), created.ID)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.HTTPStatus)

	err = svc.DeleteProduct(context.Background(), 999)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func TestCreateProductRecomputesPrice(t *testing.T) {
	svc, components, _, _ := newCatalogService(t, false)
	contactor := seedComponent(t, components, "Contactor", "Siemens", "560")
	relay := seedComponent(t, components, "Overload Relay", "L&T", "110")

	product, err := svc.CreateProduct(context.Background(), ProductForm{
		StarterType: order.StarterDOL,
		RatingKW:    decimal.RequireFromString("2.5"),
		Components: []ProductComponentForm{
			{ComponentID: &contactor.ID, Quantity: 1},
			{ComponentID: &relay.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)
	// 560 + 2*110, regardless of any client-sent price
	require.True(t, product.Price.Equal(decimal.NewFromInt(780)), "price = %s", product.Price)
	require.Len(t, product.Components, 2)
	require.Equal(t, "Contactor", product.Components[0].Name)
}

func TestCreateProductValidation(t *testing.T) {
	svc, components, _, _ := newCatalogService(t, false)
	contactor := seedComponent(t, components, "Contactor", "Siemens", "560")

	cases := []struct {
		name string
		form ProductForm
	}{
		{"bad starter type", ProductForm{StarterType: "XL", RatingKW: decimal.NewFromInt(1),
			Components: []ProductComponentForm{{ComponentID: &contactor.ID, Quantity: 1}}}},
		{"zero rating", ProductForm{StarterType: order.StarterDOL, RatingKW: decimal.Zero,
			Components: []ProductComponentForm{{ComponentID: &contactor.ID, Quantity: 1}}}},
		{"empty composition", ProductForm{StarterType: order.StarterDOL, RatingKW: decimal.NewFromInt(1)}},
		{"unknown component", ProductForm{StarterType: order.StarterDOL, RatingKW: decimal.NewFromInt(1),
			Components: []ProductComponentForm{{ComponentID: ptrInt64(42), Quantity: 1}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.form)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, 400, appErr.HTTPStatus)
		})
	}
}

func TestTemplateUsesCurrentCatalogPrices(t *testing.T) {
	svc, components, _, _ := newCatalogService(t, false)
	contactor := seedComponent(t, components, "Contactor", "Siemens", "560")

	product, err := svc.CreateProduct(context.Background(), ProductForm{
		StarterType: order.StarterDOL,
		RatingKW:    decimal.RequireFromString("2.5"),
		Components:  []ProductComponentForm{{ComponentID: &contactor.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	tpl, err := svc.Template(context.Background(), product.ID)
	require.NoError(t, err)
	require.Equal(t, product.ID, tpl.ProductID)
	require.Equal(t, order.StarterDOL, tpl.StarterType)
	require.Len(t, tpl.Components, 1)
	require.True(t, tpl.Components[0].UnitPrice.Equal(decimal.NewFromInt(560)))

	_, err = svc.Template(context.Background(), 999)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 404, appErr.HTTPStatus)
}

func ptrInt64(v int64) *int64 { return &v }
