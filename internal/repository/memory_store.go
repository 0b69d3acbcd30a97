package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Lixing-Zhang/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is a single-process implementation of every repository.
// Transactions are serialized and stage their writes until commit, so
// readers never observe a checkout that later rolls back.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]models.Product
	coupons  map[int64]models.Coupon
	orders   map[int64]models.Order
	numbers  map[string]int64

	nextCouponID int64
	nextOrderID  int64
	nextItemID   int64

	txSlot chan struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[int64]models.Product),
		coupons:  make(map[int64]models.Coupon),
		orders:   make(map[int64]models.Order),
		numbers:  make(map[string]int64),
		txSlot:   make(chan struct{}, 1),
	}
}

// NewSeededMemoryStore creates a store holding the demo catalog.
func NewSeededMemoryStore() *MemoryStore {
	s := NewMemoryStore()
	for _, p := range SeedProducts() {
		s.PutProduct(p)
	}
	for _, c := range SeedCoupons() {
		_ = s.Create(context.Background(), &c)
	}
	return s
}

// SeedProducts is the demo catalog shared by the memory store and the
// database seeder.
func SeedProducts() []models.Product {
	price := decimal.RequireFromString
	return []models.Product{
		{ID: 1, Title: "Cordless Drill 18V", SKU: "FM-DRL-018", Category: "Tools", Price: price("349.90"), Stock: 12, IsActive: true},
		{ID: 2, Title: "Claw Hammer", SKU: "FM-HAM-001", Category: "Tools", Price: price("39.90"), Stock: 40, IsActive: true},
		{ID: 3, Title: "Tape Measure 5m", SKU: "FM-TAP-005", Category: "Tools", Price: price("19.90"), Stock: 75, IsActive: true},
		{ID: 4, Title: "Wood Screws (100)", SKU: "FM-SCR-100", Category: "Fasteners", Price: price("12.50"), Stock: 200, IsActive: true},
		{ID: 5, Title: "Safety Goggles", SKU: "FM-GOG-001", Category: "Safety", Price: price("24.00"), Stock: 3, IsActive: true},
		{ID: 6, Title: "Work Gloves", SKU: "FM-GLV-002", Category: "Safety", Price: price("15.00"), Stock: 0, IsActive: true},
		{ID: 7, Title: "Angle Grinder", SKU: "FM-GRD-115", Category: "Tools", Price: price("289.00"), Stock: 5, IsActive: false},
	}
}

// SeedCoupons is the demo coupon set.
func SeedCoupons() []models.Coupon {
	return []models.Coupon{
		{
			Code:        "WELCOME10",
			Description: "10% off first purchase",
			Type:        models.CouponTypePercent,
			Value:       decimal.NewFromInt(10),
			MinPurchase: decimal.RequireFromString("50.00"),
			IsActive:    true,
			ValidFrom:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

// PutProduct inserts or replaces a product. Restocking goes through here.
// It waits for any running transaction so a commit never applies staged
// decrements to stock it did not check.
func (s *MemoryStore) PutProduct(p models.Product) {
	s.txSlot <- struct{}{}
	defer func() { <-s.txSlot }()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// GetAll returns active products ordered by id.
func (s *MemoryStore) GetAll(ctx context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.IsActive {
			products = append(products, p)
		}
	}
	slices.SortFunc(products, func(a, b models.Product) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return products, nil
}

// GetByID returns a product by id.
func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

// FindByCode returns a coupon by case-insensitive code.
func (s *MemoryStore) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.coupons {
		if strings.EqualFold(c.Code, code) {
			return &c, nil
		}
	}
	return nil, ErrCouponNotFound
}

// Create inserts a coupon and assigns its id.
func (s *MemoryStore) Create(ctx context.Context, coupon *models.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.coupons {
		if strings.EqualFold(c.Code, coupon.Code) {
			return ErrDuplicateCoupon
		}
	}
	s.nextCouponID++
	coupon.ID = s.nextCouponID
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = time.Now().UTC()
	}
	s.coupons[coupon.ID] = *coupon
	return nil
}

// FindByNumber returns a committed order.
func (s *MemoryStore) FindByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.numbers[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order := cloneOrder(s.orders[id])
	return &order, nil
}

// OrderCount returns the number of committed orders.
func (s *MemoryStore) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func cloneOrder(o models.Order) models.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// WithinTx runs fn with exclusive access to the write path. Staged writes
// are applied only if fn returns nil and ctx is still live.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx CheckoutTx) error) error {
	select {
	case s.txSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.txSlot }()

	tx := &memoryTx{
		store:   s,
		stock:   make(map[int64]int),
		redeems: make(map[int64]int),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memoryTx struct {
	store   *MemoryStore
	orders  []models.Order
	stock   map[int64]int
	redeems map[int64]int
}

func (t *memoryTx) CreateOrder(ctx context.Context, order *models.Order) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.numbers[order.OrderNumber]; exists {
		return ErrDuplicateOrderNumber
	}
	for _, staged := range t.orders {
		if staged.OrderNumber == order.OrderNumber {
			return ErrDuplicateOrderNumber
		}
	}

	s.nextOrderID++
	order.ID = s.nextOrderID
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	for i := range order.Items {
		s.nextItemID++
		order.Items[i].ID = s.nextItemID
		order.Items[i].OrderID = order.ID
	}
	t.orders = append(t.orders, cloneOrder(*order))
	return nil
}

func (t *memoryTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok || !p.IsActive || p.Stock-t.stock[productID] < qty {
		return ErrStockConflict
	}
	t.stock[productID] += qty
	return nil
}

func (t *memoryTx) RedeemCoupon(ctx context.Context, couponID int64) error {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.coupons[couponID]
	if !ok || !c.IsActive {
		return ErrCouponConflict
	}
	if c.UsageLimit != nil && c.UsedCount+t.redeems[couponID] >= *c.UsageLimit {
		return ErrCouponConflict
	}
	t.redeems[couponID]++
	return nil
}

func (t *memoryTx) commit() {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range t.orders {
		s.orders[o.ID] = o
		s.numbers[o.OrderNumber] = o.ID
	}
	for id, qty := range t.stock {
		p := s.products[id]
		p.Stock -= qty
		s.products[id] = p
	}
	for id, n := range t.redeems {
		c := s.coupons[id]
		c.UsedCount += n
		s.coupons[id] = c
	}
}
