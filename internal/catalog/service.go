// Package catalog serves the component and starter bundle listings the order
// builder works from, plus the admin CRUD that maintains them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ADI-2707/BillSwift/internal/common"
	"github.com/ADI-2707/BillSwift/internal/order"
	"github.com/ADI-2707/BillSwift/internal/store"
)

const (
	searchMinLength = 3
	searchLimit     = 20
)

// ComponentStore is the component persistence surface the service needs.
type ComponentStore interface {
	List(ctx context.Context, onlyActive bool) ([]store.Component, error)
	Search(ctx context.Context, q string, limit int) ([]store.Component, error)
	Get(ctx context.Context, id int64) (store.Component, error)
	Create(ctx context.Context, in store.ComponentInput) (store.Component, error)
	Update(ctx context.Context, id int64, in store.ComponentInput) (store.Component, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// ProductStore is the bundle persistence surface the service needs.
type ProductStore interface {
	List(ctx context.Context, f store.ProductFilter) ([]store.Product, error)
	Get(ctx context.Context, id int64) (store.Product, error)
	Create(ctx context.Context, in store.ProductInput) (store.Product, error)
	Update(ctx context.Context, id int64, in store.ProductInput) (store.Product, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates catalog queries, validation and caching.
type Service struct {
	components ComponentStore
	products   ProductStore
	cache      *Cache
	validate   *validator.Validate
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Components ComponentStore
	Products   ProductStore
	Cache      *Cache
}

// ComponentForm carries the admin payload for component writes.
type ComponentForm struct {
	Name     string          `json:"name" validate:"required"`
	Brand    string          `json:"brand" validate:"required"`
	Model    string          `json:"model"`
	Price    decimal.Decimal `json:"price"`
	IsActive *bool           `json:"is_active"`
}

// ProductComponentForm is one composition entry on a bundle write. Either a
// component_id or an explicit name plus unit price must be given.
type ProductComponentForm struct {
	ComponentID *int64          `json:"component_id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Model       string          `json:"model"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// ProductForm carries the admin payload for bundle writes. The bundle price
// is always recomputed from the composition.
type ProductForm struct {
	StarterType string                 `json:"starter_type" validate:"required,oneof=DOL RDOL S/D"`
	RatingKW    decimal.Decimal        `json:"rating_kw"`
	IsActive    *bool                  `json:"is_active"`
	Components  []ProductComponentForm `json:"components" validate:"min=1"`
}

// ProductQuery narrows the public bundle listing.
type ProductQuery struct {
	StarterType string
	RatingKW    *decimal.Decimal
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Components == nil || cfg.Products == nil {
		return nil, errors.New("catalog: component and product stores are required")
	}
	return &Service{
		components: cfg.Components,
		products:   cfg.Products,
		cache:      cfg.Cache,
		validate:   validator.New(),
	}, nil
}

// ListComponents returns active components, served from cache when possible.
func (s *Service) ListComponents(ctx context.Context) ([]store.Component, error) {
	var cached []store.Component
	if ok, err := s.cache.GetJSON(ctx, componentsCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	components, err := s.components.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	_ = s.cache.SetJSON(ctx, componentsCacheKey, components)
	return components, nil
}

// SearchComponents matches active components once the query is long enough.
func (s *Service) SearchComponents(ctx context.Context, q string) ([]store.Component, error) {
	q = strings.TrimSpace(q)
	if len(q) < searchMinLength {
		return nil, common.ValidationError(fmt.Sprintf("search query must be at least %d characters", searchMinLength))
	}
	components, err := s.components.Search(ctx, q, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search components: %w", err)
	}
	return components, nil
}

// ListProducts returns active bundles, optionally filtered by starter type
// and rating. The unfiltered listing is cached.
func (s *Service) ListProducts(ctx context.Context, q ProductQuery) ([]store.Product, error) {
	unfiltered := q.StarterType == "" && q.RatingKW == nil
	if unfiltered {
		var cached []store.Product
		if ok, err := s.cache.GetJSON(ctx, productsCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	if q.StarterType != "" && !validStarterType(q.StarterType) {
		return nil, common.ValidationError("starter_type must be one of DOL, RDOL, S/D")
	}
	products, err := s.products.List(ctx, store.ProductFilter{
		StarterType: q.StarterType,
		RatingKW:    q.RatingKW,
		OnlyActive:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if unfiltered {
		_ = s.cache.SetJSON(ctx, productsCacheKey, products)
	}
	return products, nil
}

// GetProduct returns one bundle with its composition.
func (s *Service) GetProduct(ctx context.Context, id int64) (store.Product, error) {
	product, err := s.products.Get(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Product{}, common.NotFoundError("product not found")
		}
		return store.Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// Template converts an active bundle into the pricing model's template form,
// priced at the catalog's current rates.
func (s *Service) Template(ctx context.Context, productID int64) (order.Template, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return order.Template{}, err
	}
	if !product.IsActive {
		return order.Template{}, common.NotFoundError("product not found")
	}
	tpl := order.Template{
		ProductID:   product.ID,
		StarterType: product.StarterType,
		RatingKW:    product.RatingKW,
	}
	for _, c := range product.Components {
		tpl.Components = append(tpl.Components, order.TemplateComponent{
			ComponentID: c.ComponentID,
			Name:        c.Name,
			Brand:       c.Brand,
			Model:       c.Model,
			Quantity:    c.Quantity,
			UnitPrice:   c.UnitPrice,
		})
	}
	return tpl, nil
}

// CreateComponent adds a catalog component.
func (s *Service) CreateComponent(ctx context.Context, form ComponentForm) (store.Component, error) {
	in, err := s.componentInput(form)
	if err != nil {
		return store.Component{}, err
	}
	created, err := s.components.Create(ctx, in)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.Component{}, common.ConflictError("a component with this name, brand and model already exists")
		}
		return store.Component{}, fmt.Errorf("create component: %w", err)
	}
	s.cache.Invalidate(ctx)
	return created, nil
}

// UpdateComponent rewrites a catalog component.
func (s *Service) UpdateComponent(ctx context.Context, id int64, form ComponentForm) (store.Component, error) {
	in, err := s.componentInput(form)
	if err != nil {
		return store.Component{}, err
	}
	updated, err := s.components.Update(ctx, id, in)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return store.Component{}, common.NotFoundError("component not found")
		case errors.Is(err, store.ErrDuplicate):
			return store.Component{}, common.ConflictError("a component with this name, brand and model already exists")
		}
		return store.Component{}, fmt.Errorf("update component: %w", err)
	}
	s.cache.Invalidate(ctx)
	return updated, nil
}

// DeleteComponent removes a component unless a bundle still references it.
func (s *Service) DeleteComponent(ctx context.Context, id int64) error {
	deleted, err := s.components.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrReferenced) {
			return common.ConflictError("component is used by one or more bundles")
		}
		return fmt.Errorf("delete component: %w", err)
	}
	if !deleted {
		return common.NotFoundError("component not found")
	}
	s.cache.Invalidate(ctx)
	return nil
}

// CreateProduct adds a starter bundle from its composition.
func (s *Service) CreateProduct(ctx context.Context, form ProductForm) (store.Product, error) {
	in, err := s.productInput(ctx, form)
	if err != nil {
		return store.Product{}, err
	}
	created, err := s.products.Create(ctx, in)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.Product{}, common.ConflictError("a bundle for this starter type and rating already exists")
		}
		return store.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.cache.Invalidate(ctx)
	return created, nil
}

// UpdateProduct rewrites a bundle and its composition.
func (s *Service) UpdateProduct(ctx context.Context, id int64, form ProductForm) (store.Product, error) {
	in, err := s.productInput(ctx, form)
	if err != nil {
		return store.Product{}, err
	}
	updated, err := s.products.Update(ctx, id, in)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return store.Product{}, common.NotFoundError("product not found")
		case errors.Is(err, store.ErrDuplicate):
			return store.Product{}, common.ConflictError("a bundle for this starter type and rating already exists")
		}
		return store.Product{}, fmt.Errorf("update product: %w", err)
	}
	s.cache.Invalidate(ctx)
	return updated, nil
}

// DeleteProduct removes a bundle unless a bill still references it.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrReferenced) {
			return common.ConflictError("bundle is referenced by one or more bills")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if !deleted {
		return common.NotFoundError("product not found")
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *Service) componentInput(form ComponentForm) (store.ComponentInput, error) {
	if err := s.validate.Struct(form); err != nil {
		return store.ComponentInput{}, common.ValidationError(validationMessage(err))
	}
	if form.Price.IsNegative() {
		return store.ComponentInput{}, common.ValidationError("price cannot be negative")
	}
	active := true
	if form.IsActive != nil {
		active = *form.IsActive
	}
	return store.ComponentInput{
		Name:     strings.TrimSpace(form.Name),
		Brand:    strings.TrimSpace(form.Brand),
		Model:    strings.TrimSpace(form.Model),
		Price:    form.Price,
		IsActive: active,
	}, nil
}

// productInput validates a bundle form and resolves component references
// against the catalog so the stored composition carries current prices.
func (s *Service) productInput(ctx context.Context, form ProductForm) (store.ProductInput, error) {
	if err := s.validate.Struct(form); err != nil {
		return store.ProductInput{}, common.ValidationError(validationMessage(err))
	}
	if !form.RatingKW.IsPositive() {
		return store.ProductInput{}, common.ValidationError("rating_kw must be greater than zero")
	}
	active := true
	if form.IsActive != nil {
		active = *form.IsActive
	}
	in := store.ProductInput{
		StarterType: form.StarterType,
		RatingKW:    form.RatingKW,
		IsActive:    active,
	}
	for i, entry := range form.Components {
		qty := order.CoerceQuantity(entry.Quantity)
		if entry.ComponentID != nil {
			component, err := s.components.Get(ctx, *entry.ComponentID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return store.ProductInput{}, common.ValidationError(fmt.Sprintf("components[%d]: component %d does not exist", i, *entry.ComponentID))
				}
				return store.ProductInput{}, fmt.Errorf("resolve component: %w", err)
			}
			in.Components = append(in.Components, store.ProductComponentInput{
				ComponentID: entry.ComponentID,
				Name:        component.Name,
				Brand:       component.Brand,
				Model:       component.Model,
				Quantity:    qty,
				UnitPrice:   component.Price,
			})
			continue
		}
		if strings.TrimSpace(entry.Name) == "" {
			return store.ProductInput{}, common.ValidationError(fmt.Sprintf("components[%d]: component_id or name is required", i))
		}
		if entry.UnitPrice.IsNegative() {
			return store.ProductInput{}, common.ValidationError(fmt.Sprintf("components[%d]: unit_price cannot be negative", i))
		}
		in.Components = append(in.Components, store.ProductComponentInput{
			Name:      strings.TrimSpace(entry.Name),
			Brand:     strings.TrimSpace(entry.Brand),
			Model:     strings.TrimSpace(entry.Model),
			Quantity:  qty,
			UnitPrice: entry.UnitPrice,
		})
	}
	return in, nil
}

func validStarterType(t string) bool {
	switch t {
	case order.StarterDOL, order.StarterRDOL, order.StarterSD:
		return true
	}
	return false
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		switch first.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", strings.ToLower(first.Field()))
		case "oneof":
			return fmt.Sprintf("%s must be one of %s", strings.ToLower(first.Field()), first.Param())
		case "min":
			return fmt.Sprintf("%s must have at least %s entries", strings.ToLower(first.Field()), first.Param())
		}
		return fmt.Sprintf("%s is invalid", strings.ToLower(first.Field()))
	}
	return "invalid payload"
}
