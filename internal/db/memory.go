package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"robux-bot/internal/cart"
	"robux-bot/internal/models"
)

// MemoryStore keeps everything in process memory. It is meant for local runs
// and tests; all methods are serialized by a single mutex.
type MemoryStore struct {
	mu sync.Mutex

	users   map[string]*models.User
	carts   map[int64]*models.Cart
	threads map[string]int64
	orders  map[int64]*models.Order
	reviews map[int64]*models.Review

	nextCart   int64
	nextOrder  int64
	nextReview int64

	now func() time.Time
}

var _ cart.Repository = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*models.User),
		carts:   make(map[int64]*models.Cart),
		threads: make(map[string]int64),
		orders:  make(map[int64]*models.Order),
		reviews: make(map[int64]*models.Review),
		now:     time.Now,
	}
}

func (m *MemoryStore) EnsureUser(_ context.Context, userID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ensureUser(userID, username)
	return nil
}

func (m *MemoryStore) ensureUser(userID, username string) *models.User {
	u, ok := m.users[userID]
	if !ok {
		now := m.now()
		u = &models.User{UserID: userID, TotalSpent: decimal.Zero, CreatedAt: now, UpdatedAt: now}
		m.users[userID] = u
	}
	if username != "" {
		u.Username = username
	}
	return u
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	out := *u
	if u.ActiveCartID != nil {
		id := *u.ActiveCartID
		out.ActiveCartID = &id
	}
	return &out, nil
}

func (m *MemoryStore) SetNickname(_ context.Context, userID, nickname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok {
		return cart.ErrNotFound
	}
	u.RobloxNickname = nickname
	u.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) FindActiveCartForUser(_ context.Context, userID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c := m.openCart(userID); c != nil {
		return copyCart(c), nil
	}
	return nil, cart.ErrNotFound
}

func (m *MemoryStore) openCart(userID string) *models.Cart {
	for _, c := range m.carts {
		if c.UserID == userID && !c.Status.IsTerminal() {
			return c
		}
	}
	return nil
}

func (m *MemoryStore) CreateCart(_ context.Context, c *models.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openCart(c.UserID) != nil {
		return cart.ErrActiveCartExists
	}

	m.nextCart++
	now := m.now()
	c.CartID = m.nextCart
	c.Version = 1
	c.CreatedAt = now
	c.UpdatedAt = now
	m.carts[c.CartID] = copyCart(c)

	u := m.ensureUser(c.UserID, "")
	id := c.CartID
	u.ActiveCartID = &id
	u.UpdatedAt = now
	return nil
}

func (m *MemoryStore) AttachThread(_ context.Context, cartID int64, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return cart.ErrNotFound
	}
	if owner, taken := m.threads[threadID]; taken && owner != cartID {
		return cart.ErrActiveCartExists
	}
	c.ThreadID = threadID
	c.UpdatedAt = m.now()
	m.threads[threadID] = cartID
	return nil
}

func (m *MemoryStore) GetCart(_ context.Context, cartID int64) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return copyCart(c), nil
}

func (m *MemoryStore) GetCartByThread(_ context.Context, threadID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.threads[threadID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return copyCart(m.carts[id]), nil
}

func (m *MemoryStore) Transition(_ context.Context, cartID int64, guard cart.Guard, to models.CartStatus, upd models.CartUpdate) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	if c.Status != guard.Status || c.Version != guard.Version {
		return nil, cart.ErrStaleTransition
	}

	upd.Apply(c)
	c.Status = to
	c.Version++
	c.UpdatedAt = m.now()
	if to.IsTerminal() {
		c.ExpiresAt = nil
		m.releaseUser(c)
	}
	return copyCart(c), nil
}

func (m *MemoryStore) releaseUser(c *models.Cart) {
	u, ok := m.users[c.UserID]
	if ok && u.ActiveCartID != nil && *u.ActiveCartID == c.CartID {
		u.ActiveCartID = nil
		u.UpdatedAt = m.now()
	}
}

func (m *MemoryStore) SetPromptMessage(_ context.Context, cartID int64, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return cart.ErrNotFound
	}
	c.PromptMessageID = messageID
	return nil
}

func (m *MemoryStore) Claim(_ context.Context, cartID int64, adminID string) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	if c.Status.IsTerminal() {
		return nil, cart.ErrStaleTransition
	}
	switch c.ClaimedBy {
	case adminID:
		return copyCart(c), nil
	case "":
		c.ClaimedBy = adminID
		c.Version++
		c.UpdatedAt = m.now()
		return copyCart(c), nil
	default:
		return nil, cart.ErrAlreadyClaimed
	}
}

func (m *MemoryStore) Complete(_ context.Context, cartID int64, guard cart.Guard, order *models.Order) (*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[cartID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	if c.Status != guard.Status || c.Version != guard.Version {
		return nil, cart.ErrStaleTransition
	}

	now := m.now()
	c.Status = models.StatusCompleted
	c.Version++
	c.ExpiresAt = nil
	c.UpdatedAt = now

	m.nextOrder++
	order.OrderID = m.nextOrder
	order.CompletedAt = now
	stored := *order
	m.orders[order.OrderID] = &stored

	u := m.ensureUser(c.UserID, "")
	u.PurchasesCount++
	u.TotalSpent = u.TotalSpent.Add(order.Price)
	m.releaseUser(c)

	return copyCart(c), nil
}

func (m *MemoryStore) DueForExpiry(_ context.Context, now time.Time) ([]*models.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*models.Cart
	for _, c := range m.carts {
		if c.Status.IsTerminal() || c.ExpiresAt == nil || c.ExpiresAt.After(now) {
			continue
		}
		due = append(due, copyCart(c))
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CartID < due[j].CartID })
	return due, nil
}

func (m *MemoryStore) GetOrder(_ context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	out := *o
	return &out, nil
}

func (m *MemoryStore) InsertReview(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[r.OrderID]; !ok {
		return cart.ErrNotFound
	}
	if _, ok := m.reviews[r.OrderID]; ok {
		return cart.ErrReviewExists
	}

	m.nextReview++
	r.ReviewID = m.nextReview
	r.CreatedAt = m.now()
	stored := *r
	m.reviews[r.OrderID] = &stored
	return nil
}

func copyCart(c *models.Cart) *models.Cart {
	out := *c
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	if c.ProofSubmittedAt != nil {
		t := *c.ProofSubmittedAt
		out.ProofSubmittedAt = &t
	}
	return &out
}
