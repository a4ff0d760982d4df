package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ecommerce-api/internal/domain"
	"ecommerce-api/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memUnitOfWork is a map-backed repository.UnitOfWork.
// WithinTx holds the store mutex for the whole callback and restores a snapshot when it fails.
type memUnitOfWork struct {
	mu   sync.Mutex
	data *memData
}

type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

type cartRow struct {
	domain.Cart
}

type cartItemRow struct {
	id        uuid.UUID
	cartID    uuid.UUID
	skuID     uuid.UUID
	quantity  int
	price     decimal.Decimal
	createdAt time.Time
	seq       int
}

type wishlistItemRow struct {
	wishlistID uuid.UUID
	productID  uuid.UUID
	addedAt    time.Time
	seq        int
}

type memData struct {
	seq               int
	users             map[uuid.UUID]domain.User
	tokens            map[string]domain.RefreshToken
	addresses         map[uuid.UUID]domain.Address
	categories        map[uuid.UUID]domain.Category
	subCategories     map[uuid.UUID]domain.SubCategory
	products          map[uuid.UUID]domain.Product
	skus              map[uuid.UUID]domain.ProductSku
	attributes        map[uuid.UUID]domain.ProductAttribute
	skuAttributes     map[uuid.UUID][]uuid.UUID
	images            map[uuid.UUID]domain.ProductImage
	carts             map[uuid.UUID]cartRow
	cartItems         map[uuid.UUID]cartItemRow
	orders            map[uuid.UUID]domain.Order
	reviews           map[uuid.UUID]domain.Review
	wishlists         map[uuid.UUID]domain.Wishlist
	wishlistItems     []wishlistItemRow
	skuLocks          []uuid.UUID
	adjustQuantityErr error
}

func newMemUnitOfWork() *memUnitOfWork {
	return &memUnitOfWork{data: &memData{
		users:         map[uuid.UUID]domain.User{},
		tokens:        map[string]domain.RefreshToken{},
		addresses:     map[uuid.UUID]domain.Address{},
		categories:    map[uuid.UUID]domain.Category{},
		subCategories: map[uuid.UUID]domain.SubCategory{},
		products:      map[uuid.UUID]domain.Product{},
		skus:          map[uuid.UUID]domain.ProductSku{},
		attributes:    map[uuid.UUID]domain.ProductAttribute{},
		skuAttributes: map[uuid.UUID][]uuid.UUID{},
		images:        map[uuid.UUID]domain.ProductImage{},
		carts:         map[uuid.UUID]cartRow{},
		cartItems:     map[uuid.UUID]cartItemRow{},
		orders:        map[uuid.UUID]domain.Order{},
		reviews:       map[uuid.UUID]domain.Review{},
		wishlists:     map[uuid.UUID]domain.Wishlist{},
	}}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *memData) clone() *memData {
	c := *d
	c.users = copyMap(d.users)
	c.tokens = copyMap(d.tokens)
	c.addresses = copyMap(d.addresses)
	c.categories = copyMap(d.categories)
	c.subCategories = copyMap(d.subCategories)
	c.products = copyMap(d.products)
	c.skus = copyMap(d.skus)
	c.attributes = copyMap(d.attributes)
	c.skuAttributes = copyMap(d.skuAttributes)
	c.images = copyMap(d.images)
	c.carts = copyMap(d.carts)
	c.cartItems = copyMap(d.cartItems)
	c.orders = copyMap(d.orders)
	c.reviews = copyMap(d.reviews)
	c.wishlists = copyMap(d.wishlists)
	c.wishlistItems = append([]wishlistItemRow(nil), d.wishlistItems...)
	return &c
}

func (d *memData) next() int {
	d.seq++
	return d.seq
}

func (u *memUnitOfWork) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	snapshot := u.data.clone()
	defer func() {
		if p := recover(); p != nil {
			u.data = snapshot
			panic(p)
		}
	}()

	if err := fn(&memStore{uow: u, lock: noopLocker{}}); err != nil {
		u.data = snapshot
		return err
	}
	return nil
}

func (u *memUnitOfWork) store() *memStore { return &memStore{uow: u, lock: &u.mu} }

func (u *memUnitOfWork) Users() repository.UserRepository { return u.store().Users() }
func (u *memUnitOfWork) RefreshTokens() repository.RefreshTokenRepository { return u.store().RefreshTokens() }
func (u *memUnitOfWork) Addresses() repository.AddressRepository { return u.store().Addresses() }
func (u *memUnitOfWork) Categories() repository.CategoryRepository { return u.store().Categories() }
func (u *memUnitOfWork) SubCategories() repository.SubCategoryRepository { return u.store().SubCategories() }
func (u *memUnitOfWork) Products() repository.ProductRepository { return u.store().Products() }
func (u *memUnitOfWork) Skus() repository.SkuRepository { return u.store().Skus() }
func (u *memUnitOfWork) Attributes() repository.AttributeRepository { return u.store().Attributes() }
func (u *memUnitOfWork) Images() repository.ImageRepository { return u.store().Images() }
func (u *memUnitOfWork) Carts() repository.CartRepository { return u.store().Carts() }
func (u *memUnitOfWork) Orders() repository.OrderRepository { return u.store().Orders() }
func (u *memUnitOfWork) Reviews() repository.ReviewRepository { return u.store().Reviews() }
func (u *memUnitOfWork) Wishlists() repository.WishlistRepository { return u.store().Wishlists() }

// memStore binds repositories to the current data; lock is a no-op inside WithinTx
type memStore struct {
	uow  *memUnitOfWork
	lock sync.Locker
}

func (s *memStore) Users() repository.UserRepository { return memUsers{s} }
func (s *memStore) RefreshTokens() repository.RefreshTokenRepository { return memTokens{s} }
func (s *memStore) Addresses() repository.AddressRepository { return memAddresses{s} }
func (s *memStore) Categories() repository.CategoryRepository { return memCategories{s} }
func (s *memStore) SubCategories() repository.SubCategoryRepository { return memSubCategories{s} }
func (s *memStore) Products() repository.ProductRepository { return memProducts{s} }
func (s *memStore) Skus() repository.SkuRepository { return memSkus{s} }
func (s *memStore) Attributes() repository.AttributeRepository { return memAttributes{s} }
func (s *memStore) Images() repository.ImageRepository { return memImages{s} }
func (s *memStore) Carts() repository.CartRepository { return memCarts{s} }
func (s *memStore) Orders() repository.OrderRepository { return memOrders{s} }
func (s *memStore) Reviews() repository.ReviewRepository { return memReviews{s} }
func (s *memStore) Wishlists() repository.WishlistRepository { return memWishlists{s} }

// with runs fn against the live data under the store's lock
func (s *memStore) with(fn func(d *memData) error) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return fn(s.uow.data)
}

func pageSlice[T any](items []T, page domain.PageQuery) []T {
	start := page.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := start + page.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// users

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, user *domain.User) error {
	return r.s.with(func(d *memData) error {
		for _, u := range d.users {
			if u.Email == user.Email {
				return repository.ErrUserAlreadyExists
			}
			if u.Username == user.Username {
				return repository.ErrUsernameTaken
			}
		}
		d.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) Update(ctx context.Context, user *domain.User) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.users[user.ID]; !ok {
			return repository.ErrUserNotFound
		}
		d.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) find(match func(domain.User) bool) (*domain.User, error) {
	var found *domain.User
	err := r.s.with(func(d *memData) error {
		for _, u := range d.users {
			if match(u) {
				u := u
				found = &u
				return nil
			}
		}
		return repository.ErrUserNotFound
	})
	return found, err
}

func (r memUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Email == email })
}

func (r memUsers) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r memUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.find(func(u domain.User) bool { return u.ID == id })
}

// refresh tokens

type memTokens struct{ s *memStore }

func (r memTokens) Create(ctx context.Context, token *domain.RefreshToken) error {
	return r.s.with(func(d *memData) error {
		d.tokens[token.Token] = *token
		return nil
	})
}

func (r memTokens) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var found *domain.RefreshToken
	err := r.s.with(func(d *memData) error {
		t, ok := d.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		if t.Revoked {
			return repository.ErrRefreshTokenRevoked
		}
		found = &t
		return nil
	})
	return found, err
}

func (r memTokens) Revoke(ctx context.Context, token string) error {
	return r.s.with(func(d *memData) error {
		t, ok := d.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		t.Revoked = true
		d.tokens[token] = t
		return nil
	})
}

func (r memTokens) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		for k, t := range d.tokens {
			if t.UserID == userID {
				t.Revoked = true
				d.tokens[k] = t
			}
		}
		return nil
	})
}

// addresses

type memAddresses struct{ s *memStore }

func (r memAddresses) Create(ctx context.Context, a *domain.Address) error {
	return r.s.with(func(d *memData) error {
		d.addresses[a.ID] = *a
		return nil
	})
}

func (r memAddresses) Update(ctx context.Context, a *domain.Address) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.addresses[a.ID]; !ok {
			return repository.ErrAddressNotFound
		}
		d.addresses[a.ID] = *a
		return nil
	})
}

func (r memAddresses) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.addresses[id]; !ok {
			return repository.ErrAddressNotFound
		}
		delete(d.addresses, id)
		return nil
	})
}

func (r memAddresses) FindByID(ctx context.Context, id uuid.UUID) (*domain.Address, error) {
	var found *domain.Address
	err := r.s.with(func(d *memData) error {
		a, ok := d.addresses[id]
		if !ok {
			return repository.ErrAddressNotFound
		}
		found = &a
		return nil
	})
	return found, err
}

func (r memAddresses) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Address, error) {
	out := []*domain.Address{}
	err := r.s.with(func(d *memData) error {
		for _, a := range d.addresses {
			if a.UserID == userID {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	return out, err
}

// categories

type memCategories struct{ s *memStore }

func (r memCategories) nameTaken(d *memData, name string, self uuid.UUID) bool {
	for _, existing := range d.categories {
		if existing.Name == name && existing.ID != self {
			return true
		}
	}
	return false
}

func (r memCategories) Create(ctx context.Context, c *domain.Category) error {
	return r.s.with(func(d *memData) error {
		if r.nameTaken(d, c.Name, c.ID) {
			return repository.ErrCategoryAlreadyExists
		}
		d.categories[c.ID] = *c
		return nil
	})
}

func (r memCategories) Update(ctx context.Context, c *domain.Category) error {
	return r.s.with(func(d *memData) error {
		stored, ok := d.categories[c.ID]
		if !ok || stored.Lifecycle.IsDeleted() {
			return repository.ErrCategoryNotFound
		}
		if r.nameTaken(d, c.Name, c.ID) {
			return repository.ErrCategoryAlreadyExists
		}
		stored.Name = c.Name
		stored.Description = c.Description
		stored.UpdatedAt = c.UpdatedAt
		d.categories[c.ID] = stored
		return nil
	})
}

func (r memCategories) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.with(func(d *memData) error {
		c, ok := d.categories[id]
		if !ok || c.Lifecycle.IsDeleted() {
			return repository.ErrCategoryNotFound
		}
		c.Lifecycle = domain.LifecycleDeleted
		c.DeletedAt = &at
		d.categories[id] = c
		for subID, sub := range d.subCategories {
			if sub.CategoryID == id && !sub.Lifecycle.IsDeleted() {
				sub.Lifecycle = domain.LifecycleDeleted
				sub.DeletedAt = &at
				d.subCategories[subID] = sub
			}
		}
		return nil
	})
}

func (r memCategories) List(ctx context.Context) ([]*domain.Category, error) {
	out := []*domain.Category{}
	err := r.s.with(func(d *memData) error {
		for _, c := range d.categories {
			if c.Lifecycle.IsDeleted() {
				continue
			}
			c := c
			c.SubCategories = []domain.SubCategory{}
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r memCategories) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	var found *domain.Category
	err := r.s.with(func(d *memData) error {
		c, ok := d.categories[id]
		if !ok || c.Lifecycle.IsDeleted() {
			return repository.ErrCategoryNotFound
		}
		c.SubCategories = []domain.SubCategory{}
		found = &c
		return nil
	})
	return found, err
}

// subcategories

type memSubCategories struct{ s *memStore }

func (r memSubCategories) nameTaken(d *memData, name string, self uuid.UUID) bool {
	for _, existing := range d.subCategories {
		if existing.Name == name && existing.ID != self {
			return true
		}
	}
	return false
}

func (r memSubCategories) Create(ctx context.Context, sub *domain.SubCategory) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.categories[sub.CategoryID]; !ok {
			return repository.ErrCategoryNotFound
		}
		if r.nameTaken(d, sub.Name, sub.ID) {
			return repository.ErrSubCategoryAlreadyExists
		}
		stored := *sub
		stored.CategoryName = ""
		d.subCategories[sub.ID] = stored
		return nil
	})
}

func (r memSubCategories) Update(ctx context.Context, sub *domain.SubCategory) error {
	return r.s.with(func(d *memData) error {
		stored, ok := d.subCategories[sub.ID]
		if !ok || stored.Lifecycle.IsDeleted() {
			return repository.ErrSubCategoryNotFound
		}
		if r.nameTaken(d, sub.Name, sub.ID) {
			return repository.ErrSubCategoryAlreadyExists
		}
		stored.Name = sub.Name
		stored.Description = sub.Description
		stored.UpdatedAt = sub.UpdatedAt
		d.subCategories[sub.ID] = stored
		return nil
	})
}

func (r memSubCategories) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.with(func(d *memData) error {
		sub, ok := d.subCategories[id]
		if !ok || sub.Lifecycle.IsDeleted() {
			return repository.ErrSubCategoryNotFound
		}
		sub.Lifecycle = domain.LifecycleDeleted
		sub.DeletedAt = &at
		d.subCategories[id] = sub
		return nil
	})
}

// joined fills CategoryName the way the SQL join does
func (r memSubCategories) joined(d *memData, sub domain.SubCategory) domain.SubCategory {
	sub.CategoryName = d.categories[sub.CategoryID].Name
	return sub
}

func (r memSubCategories) FindByID(ctx context.Context, id uuid.UUID) (*domain.SubCategory, error) {
	var found *domain.SubCategory
	err := r.s.with(func(d *memData) error {
		sub, ok := d.subCategories[id]
		if !ok || sub.Lifecycle.IsDeleted() {
			return repository.ErrSubCategoryNotFound
		}
		sub = r.joined(d, sub)
		found = &sub
		return nil
	})
	return found, err
}

func (r memSubCategories) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]domain.SubCategory, error) {
	out := []domain.SubCategory{}
	err := r.s.with(func(d *memData) error {
		for _, sub := range d.subCategories {
			if sub.CategoryID == categoryID && !sub.Lifecycle.IsDeleted() {
				out = append(out, r.joined(d, sub))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

// products

type memProducts struct{ s *memStore }

func (r memProducts) Create(ctx context.Context, p *domain.Product) error {
	return r.s.with(func(d *memData) error {
		for _, existing := range d.products {
			if existing.Slug == p.Slug {
				return repository.ErrSlugTaken
			}
		}
		stored := *p
		stored.Skus, stored.Images = nil, nil
		d.products[p.ID] = stored
		return nil
	})
}

func (r memProducts) Update(ctx context.Context, p *domain.Product) error {
	return r.s.with(func(d *memData) error {
		existing, ok := d.products[p.ID]
		if !ok {
			return repository.ErrProductNotFound
		}
		stored := *p
		stored.Skus, stored.Images = nil, nil
		stored.CategoryIDs = existing.CategoryIDs
		stored.ViewCount = existing.ViewCount
		d.products[p.ID] = stored
		return nil
	})
}

func (r memProducts) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.with(func(d *memData) error {
		p, ok := d.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		p.MarkDeleted(at)
		d.products[id] = p
		for skuID, sku := range d.skus {
			if sku.ProductID == id {
				sku.MarkDeleted(at)
				d.skus[skuID] = sku
			}
		}
		return nil
	})
}

func (r memProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var found *domain.Product
	err := r.s.with(func(d *memData) error {
		p, ok := d.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		found = &p
		return nil
	})
	return found, err
}

func (r memProducts) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	var found *domain.Product
	err := r.s.with(func(d *memData) error {
		for _, p := range d.products {
			if p.Slug == slug && !p.Lifecycle.IsDeleted() {
				p := p
				found = &p
				return nil
			}
		}
		return repository.ErrProductNotFound
	})
	return found, err
}

func (r memProducts) SlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	exists := false
	err := r.s.with(func(d *memData) error {
		for _, p := range d.products {
			if p.Slug == slug && p.ID != excludeID {
				exists = true
			}
		}
		return nil
	})
	return exists, err
}

func (r memProducts) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		p, ok := d.products[id]
		if !ok {
			return repository.ErrProductNotFound
		}
		p.ViewCount++
		d.products[id] = p
		return nil
	})
}

func (r memProducts) SetCategories(ctx context.Context, productID uuid.UUID, categoryIDs []uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		linked := []uuid.UUID{}
		for _, id := range categoryIDs {
			if c, ok := d.categories[id]; !ok || c.Lifecycle.IsDeleted() {
				return repository.ErrCategoryNotFound
			}
			if !containsID(linked, id) {
				linked = append(linked, id)
			}
		}
		p := d.products[productID]
		p.CategoryIDs = linked
		d.products[productID] = p
		return nil
	})
}

// minSkuPrice mirrors the SQL subquery: the cheapest live, active SKU
func (r memProducts) minSkuPrice(d *memData, productID uuid.UUID) (decimal.Decimal, bool) {
	var lowest decimal.Decimal
	found := false
	for _, sku := range d.skus {
		if sku.ProductID != productID || sku.Lifecycle.IsDeleted() || !sku.Active {
			continue
		}
		if !found || sku.Price.LessThan(lowest) {
			lowest, found = sku.Price, true
		}
	}
	return lowest, found
}

func (r memProducts) matches(d *memData, p domain.Product, filter repository.ProductFilter) bool {
	if !p.Available() {
		return false
	}
	if len(filter.CategoryIDs) > 0 {
		hit := false
		for _, id := range filter.CategoryIDs {
			hit = hit || containsID(p.CategoryIDs, id)
		}
		if !hit {
			return false
		}
	}
	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" &&
		!strings.Contains(strings.ToLower(p.Name), term) &&
		!strings.Contains(strings.ToLower(p.Description), term) &&
		!strings.Contains(strings.ToLower(p.Brand), term) {
		return false
	}
	if brand := strings.TrimSpace(filter.Brand); brand != "" && !strings.EqualFold(p.Brand, brand) {
		return false
	}
	if filter.Featured != nil && p.Featured != *filter.Featured {
		return false
	}
	if filter.MinPrice != nil || filter.MaxPrice != nil {
		inRange := false
		for _, sku := range d.skus {
			if sku.ProductID != p.ID || sku.Lifecycle.IsDeleted() || !sku.Active {
				continue
			}
			if filter.MinPrice != nil && sku.Price.LessThan(*filter.MinPrice) {
				continue
			}
			if filter.MaxPrice != nil && sku.Price.GreaterThan(*filter.MaxPrice) {
				continue
			}
			inRange = true
		}
		return inRange
	}
	return true
}

func (r memProducts) List(ctx context.Context, filter repository.ProductFilter, page domain.PageQuery) ([]*domain.Product, int64, error) {
	page = page.Normalize("createdAt")
	matched := []*domain.Product{}
	prices := map[uuid.UUID]decimal.Decimal{}
	priced := map[uuid.UUID]bool{}
	err := r.s.with(func(d *memData) error {
		for _, p := range d.products {
			if !r.matches(d, p, filter) {
				continue
			}
			p := p
			prices[p.ID], priced[p.ID] = r.minSkuPrice(d, p.ID)
			matched = append(matched, &p)
		}
		return nil
	})

	// less reports the ascending order for the requested column
	less := func(a, b *domain.Product) bool {
		switch page.SortBy {
		case "name":
			return a.Name < b.Name
		case "viewCount", "popularity":
			return a.ViewCount < b.ViewCount
		case "price":
			return prices[a.ID].LessThan(prices[b.ID])
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if page.SortBy == "price" && priced[a.ID] != priced[b.ID] {
			return priced[a.ID]
		}
		if page.SortDir == domain.SortAsc {
			return less(a, b)
		}
		return less(b, a)
	})
	return pageSlice(matched, page), int64(len(matched)), err
}

func (r memProducts) ListBrands(ctx context.Context) ([]string, error) {
	brands := []string{}
	err := r.s.with(func(d *memData) error {
		seen := map[string]bool{}
		for _, p := range d.products {
			if p.Lifecycle.IsDeleted() || p.Brand == "" || seen[p.Brand] {
				continue
			}
			seen[p.Brand] = true
			brands = append(brands, p.Brand)
		}
		return nil
	})
	sort.Strings(brands)
	return brands, err
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// skus

type memSkus struct{ s *memStore }

func (r memSkus) Create(ctx context.Context, sku *domain.ProductSku) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.products[sku.ProductID]; !ok {
			return repository.ErrProductNotFound
		}
		for _, existing := range d.skus {
			if existing.SkuCode == sku.SkuCode {
				return repository.ErrSkuCodeTaken
			}
		}
		d.skus[sku.ID] = *sku
		return nil
	})
}

func (r memSkus) Update(ctx context.Context, sku *domain.ProductSku) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.skus[sku.ID]; !ok {
			return repository.ErrSkuNotFound
		}
		if sku.Quantity < 0 {
			return domain.ErrNegativeStock
		}
		d.skus[sku.ID] = *sku
		return nil
	})
}

func (r memSkus) get(d *memData, id uuid.UUID) (*domain.ProductSku, error) {
	sku, ok := d.skus[id]
	if !ok {
		return nil, repository.ErrSkuNotFound
	}
	for _, attrID := range d.skuAttributes[id] {
		sku.Attributes = append(sku.Attributes, d.attributes[attrID])
	}
	return &sku, nil
}

func (r memSkus) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error) {
	var found *domain.ProductSku
	err := r.s.with(func(d *memData) (err error) {
		found, err = r.get(d, id)
		return err
	})
	return found, err
}

func (r memSkus) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.ProductSku, error) {
	var found *domain.ProductSku
	err := r.s.with(func(d *memData) (err error) {
		d.skuLocks = append(d.skuLocks, id)
		found, err = r.get(d, id)
		return err
	})
	return found, err
}

func (r memSkus) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	return r.s.with(func(d *memData) error {
		if d.adjustQuantityErr != nil {
			return d.adjustQuantityErr
		}
		sku, ok := d.skus[id]
		if !ok {
			return repository.ErrSkuNotFound
		}
		if sku.Quantity+delta < 0 {
			return repository.ErrStockTooLow
		}
		sku.Quantity += delta
		d.skus[id] = sku
		return nil
	})
}

func (r memSkus) SetQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity < 0 {
		return domain.ErrNegativeStock
	}
	return r.s.with(func(d *memData) error {
		sku, ok := d.skus[id]
		if !ok {
			return repository.ErrSkuNotFound
		}
		sku.Quantity = quantity
		d.skus[id] = sku
		return nil
	})
}

func (r memSkus) list(match func(domain.ProductSku) bool) ([]domain.ProductSku, error) {
	out := []domain.ProductSku{}
	err := r.s.with(func(d *memData) error {
		for _, sku := range d.skus {
			if !sku.Lifecycle.IsDeleted() && match(sku) {
				out = append(out, sku)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].SkuCode < out[j].SkuCode })
	return out, err
}

func (r memSkus) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductSku, error) {
	return r.list(func(s domain.ProductSku) bool { return s.ProductID == productID })
}

func (r memSkus) ListLowStock(ctx context.Context) ([]domain.ProductSku, error) {
	return r.list(func(s domain.ProductSku) bool { return s.Active && s.Quantity <= s.LowStockThreshold })
}

func (r memSkus) ListOutOfStock(ctx context.Context) ([]domain.ProductSku, error) {
	return r.list(func(s domain.ProductSku) bool { return s.Active && s.Quantity == 0 })
}

func (r memSkus) LinkAttributes(ctx context.Context, skuID uuid.UUID, attributeIDs []uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		for _, id := range attributeIDs {
			if _, ok := d.attributes[id]; !ok {
				return repository.ErrAttributeNotFound
			}
		}
		d.skuAttributes[skuID] = append(d.skuAttributes[skuID], attributeIDs...)
		return nil
	})
}

func (r memSkus) MarkDeleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.s.with(func(d *memData) error {
		sku, ok := d.skus[id]
		if !ok {
			return repository.ErrSkuNotFound
		}
		sku.MarkDeleted(at)
		d.skus[id] = sku
		return nil
	})
}

// attributes

type memAttributes struct{ s *memStore }

func (r memAttributes) Create(ctx context.Context, a *domain.ProductAttribute) error {
	return r.s.with(func(d *memData) error {
		for _, existing := range d.attributes {
			if existing.Type == a.Type && existing.Value == a.Value {
				return repository.ErrAttributeExists
			}
		}
		d.attributes[a.ID] = *a
		return nil
	})
}

func (r memAttributes) List(ctx context.Context) ([]domain.ProductAttribute, error) {
	out := []domain.ProductAttribute{}
	err := r.s.with(func(d *memData) error {
		for _, a := range d.attributes {
			out = append(out, a)
		}
		return nil
	})
	return out, err
}

// images

type memImages struct{ s *memStore }

func (r memImages) Create(ctx context.Context, img *domain.ProductImage) error {
	return r.s.with(func(d *memData) error {
		d.images[img.ID] = *img
		return nil
	})
}

func (r memImages) FindByID(ctx context.Context, id uuid.UUID) (*domain.ProductImage, error) {
	var found *domain.ProductImage
	err := r.s.with(func(d *memData) error {
		img, ok := d.images[id]
		if !ok {
			return repository.ErrImageNotFound
		}
		found = &img
		return nil
	})
	return found, err
}

func (r memImages) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductImage, error) {
	out := []domain.ProductImage{}
	err := r.s.with(func(d *memData) error {
		for _, img := range d.images {
			if img.ProductID == productID {
				out = append(out, img)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, err
}

func (r memImages) SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		if img, ok := d.images[imageID]; !ok || img.ProductID != productID {
			return repository.ErrImageNotFound
		}
		for id, img := range d.images {
			if img.ProductID == productID {
				img.Primary = id == imageID
				d.images[id] = img
			}
		}
		return nil
	})
}

func (r memImages) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.images[id]; !ok {
			return repository.ErrImageNotFound
		}
		delete(d.images, id)
		return nil
	})
}

// carts, keyed by user id

type memCarts struct{ s *memStore }

func (r memCarts) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	var found *domain.Cart
	err := r.s.with(func(d *memData) error {
		row, ok := d.carts[userID]
		if !ok {
			return repository.ErrCartNotFound
		}
		cart := row.Cart

		rows := []cartItemRow{}
		for _, item := range d.cartItems {
			if item.cartID == cart.ID {
				rows = append(rows, item)
			}
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })

		cart.Items = []domain.CartItem{}
		for _, item := range rows {
			sku := d.skus[item.skuID]
			product := d.products[sku.ProductID]
			cart.Items = append(cart.Items, domain.CartItem{
				ID:             item.id,
				SkuID:          item.skuID,
				ProductID:      product.ID,
				ProductName:    product.Name,
				SkuCode:        sku.SkuCode,
				Quantity:       item.quantity,
				Price:          item.price,
				CurrentPrice:   sku.Price,
				AvailableStock: sku.Quantity,
				SkuActive:      sku.Purchasable() && product.Available(),
				CreatedAt:      item.createdAt,
			})
		}
		found = &cart
		return nil
	})
	return found, err
}

func (r memCarts) Create(ctx context.Context, cart *domain.Cart) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.carts[cart.UserID]; !ok {
			d.carts[cart.UserID] = cartRow{Cart: *cart}
		}
		return nil
	})
}

func (r memCarts) AddItem(ctx context.Context, cartID uuid.UUID, item *domain.CartItem) error {
	return r.s.with(func(d *memData) error {
		for _, existing := range d.cartItems {
			if existing.cartID == cartID && existing.skuID == item.SkuID {
				return repository.ErrCartItemExists
			}
		}
		d.cartItems[item.ID] = cartItemRow{
			id:        item.ID,
			cartID:    cartID,
			skuID:     item.SkuID,
			quantity:  item.Quantity,
			price:     item.Price,
			createdAt: item.CreatedAt,
			seq:       d.next(),
		}
		return nil
	})
}

func (r memCarts) UpdateItem(ctx context.Context, itemID uuid.UUID, quantity int, price decimal.Decimal) error {
	return r.s.with(func(d *memData) error {
		item, ok := d.cartItems[itemID]
		if !ok {
			return repository.ErrCartItemNotFound
		}
		item.quantity = quantity
		item.price = price
		d.cartItems[itemID] = item
		return nil
	})
}

func (r memCarts) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.cartItems[itemID]; !ok {
			return repository.ErrCartItemNotFound
		}
		delete(d.cartItems, itemID)
		return nil
	})
}

func (r memCarts) Clear(ctx context.Context, cartID uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		for id, item := range d.cartItems {
			if item.cartID == cartID {
				delete(d.cartItems, id)
			}
		}
		return nil
	})
}

func (r memCarts) Touch(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	return r.s.with(func(d *memData) error {
		for userID, row := range d.carts {
			if row.ID == cartID {
				row.UpdatedAt = at
				d.carts[userID] = row
			}
		}
		return nil
	})
}

func (r memCarts) ItemOwner(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var owner uuid.UUID
	err := r.s.with(func(d *memData) error {
		item, ok := d.cartItems[itemID]
		if !ok {
			return repository.ErrCartItemNotFound
		}
		for userID, row := range d.carts {
			if row.ID == item.cartID {
				owner = userID
				return nil
			}
		}
		return repository.ErrCartItemNotFound
	})
	return owner, err
}

// orders

type memOrders struct{ s *memStore }

func (r memOrders) Create(ctx context.Context, o *domain.Order) error {
	return r.s.with(func(d *memData) error {
		stored := *o
		stored.Items = append([]domain.OrderItem(nil), o.Items...)
		d.orders[o.ID] = stored
		return nil
	})
}

func (r memOrders) get(d *memData, id uuid.UUID) (*domain.Order, error) {
	o, ok := d.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	o.Username = d.users[o.UserID].Username
	return &o, nil
}

func (r memOrders) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var found *domain.Order
	err := r.s.with(func(d *memData) (err error) {
		found, err = r.get(d, id)
		return err
	})
	return found, err
}

func (r memOrders) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r memOrders) list(match func(domain.Order) bool, page domain.PageQuery) ([]*domain.Order, int64, error) {
	page = page.Normalize("createdAt")
	out := []*domain.Order{}
	err := r.s.with(func(d *memData) error {
		for id, o := range d.orders {
			if match(o) {
				order, _ := r.get(d, id)
				out = append(out, order)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return pageSlice(out, page), int64(len(out)), err
}

func (r memOrders) ListByUser(ctx context.Context, userID uuid.UUID, page domain.PageQuery) ([]*domain.Order, int64, error) {
	return r.list(func(o domain.Order) bool { return o.UserID == userID }, page)
}

func (r memOrders) ListAll(ctx context.Context, page domain.PageQuery, status *domain.OrderStatus) ([]*domain.Order, int64, error) {
	return r.list(func(o domain.Order) bool { return status == nil || o.Status == *status }, page)
}

func (r memOrders) UpdateStatus(ctx context.Context, o *domain.Order) error {
	return r.s.with(func(d *memData) error {
		stored, ok := d.orders[o.ID]
		if !ok {
			return repository.ErrOrderNotFound
		}
		stored.Status = o.Status
		stored.PaymentStatus = o.PaymentStatus
		stored.DeliveredAt = o.DeliveredAt
		stored.UpdatedAt = o.UpdatedAt
		d.orders[o.ID] = stored
		return nil
	})
}

func (r memOrders) HasDeliveredPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	found := false
	err := r.s.with(func(d *memData) error {
		for _, o := range d.orders {
			if o.UserID != userID || o.Status != domain.OrderStatusDelivered {
				continue
			}
			for _, item := range o.Items {
				if d.skus[item.SkuID].ProductID == productID {
					found = true
				}
			}
		}
		return nil
	})
	return found, err
}

// reviews

type memReviews struct{ s *memStore }

func (r memReviews) Create(ctx context.Context, rv *domain.Review) error {
	return r.s.with(func(d *memData) error {
		for _, existing := range d.reviews {
			if existing.ProductID == rv.ProductID && existing.UserID == rv.UserID {
				return domain.ErrAlreadyReviewed
			}
		}
		d.reviews[rv.ID] = *rv
		return nil
	})
}

func (r memReviews) FindByID(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	var found *domain.Review
	err := r.s.with(func(d *memData) error {
		rv, ok := d.reviews[id]
		if !ok {
			return repository.ErrReviewNotFound
		}
		found = &rv
		return nil
	})
	return found, err
}

func (r memReviews) Exists(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	exists := false
	err := r.s.with(func(d *memData) error {
		for _, rv := range d.reviews {
			if rv.ProductID == productID && rv.UserID == userID {
				exists = true
			}
		}
		return nil
	})
	return exists, err
}

func (r memReviews) Approve(ctx context.Context, id uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		rv, ok := d.reviews[id]
		if !ok {
			return repository.ErrReviewNotFound
		}
		rv.Approved = true
		d.reviews[id] = rv
		return nil
	})
}

func (r memReviews) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.reviews[id]; !ok {
			return repository.ErrReviewNotFound
		}
		delete(d.reviews, id)
		return nil
	})
}

func (r memReviews) ListApprovedByProduct(ctx context.Context, productID uuid.UUID, page domain.PageQuery) ([]*domain.Review, int64, error) {
	page = page.Normalize("createdAt")
	out := []*domain.Review{}
	err := r.s.with(func(d *memData) error {
		for _, rv := range d.reviews {
			if rv.ProductID == productID && rv.Approved {
				rv := rv
				out = append(out, &rv)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return pageSlice(out, page), int64(len(out)), err
}

// wishlists, keyed by user id

type memWishlists struct{ s *memStore }

func (r memWishlists) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wishlist, error) {
	var found *domain.Wishlist
	err := r.s.with(func(d *memData) error {
		w, ok := d.wishlists[userID]
		if !ok {
			return repository.ErrWishlistNotFound
		}
		w.Items = []domain.WishlistItem{}
		for _, row := range d.wishlistItems {
			if row.wishlistID != w.ID {
				continue
			}
			p := d.products[row.productID]
			w.Items = append(w.Items, domain.WishlistItem{
				ID:          uuid.NewSHA1(w.ID, row.productID[:]),
				ProductID:   p.ID,
				ProductName: p.Name,
				ProductSlug: p.Slug,
				CoverImage:  p.CoverImage,
				Available:   p.Available(),
				AddedAt:     row.addedAt,
			})
		}
		found = &w
		return nil
	})
	return found, err
}

func (r memWishlists) Create(ctx context.Context, w *domain.Wishlist) error {
	return r.s.with(func(d *memData) error {
		if _, ok := d.wishlists[w.UserID]; !ok {
			d.wishlists[w.UserID] = *w
		}
		return nil
	})
}

func (r memWishlists) AddItem(ctx context.Context, wishlistID, productID uuid.UUID, at time.Time) error {
	return r.s.with(func(d *memData) error {
		for _, row := range d.wishlistItems {
			if row.wishlistID == wishlistID && row.productID == productID {
				return domain.ErrAlreadyInWishlist
			}
		}
		if _, ok := d.products[productID]; !ok {
			return repository.ErrProductNotFound
		}
		d.wishlistItems = append(d.wishlistItems, wishlistItemRow{
			wishlistID: wishlistID, productID: productID, addedAt: at, seq: d.next(),
		})
		return nil
	})
}

func (r memWishlists) RemoveItem(ctx context.Context, wishlistID, productID uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		for i, row := range d.wishlistItems {
			if row.wishlistID == wishlistID && row.productID == productID {
				d.wishlistItems = append(d.wishlistItems[:i:i], d.wishlistItems[i+1:]...)
				return nil
			}
		}
		return repository.ErrWishlistItemNotFound
	})
}

func (r memWishlists) Clear(ctx context.Context, wishlistID uuid.UUID) error {
	return r.s.with(func(d *memData) error {
		kept := d.wishlistItems[:0:0]
		for _, row := range d.wishlistItems {
			if row.wishlistID != wishlistID {
				kept = append(kept, row)
			}
		}
		d.wishlistItems = kept
		return nil
	})
}
