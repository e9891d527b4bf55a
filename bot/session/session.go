// Package session holds per-chat conversational state: the active data-entry
// flow, the browse cursor and the tracked surface message. State lives in
// memory only and resets on restart.
package session

import (
	"sync"

	"github.com/m3rciful/jewelbot/bot/domain"
)

// Kind names a data-entry flow.
type Kind string

const (
	KindAddCategory  Kind = "add_category"
	KindEditCategory Kind = "edit_category"
	KindAddProduct   Kind = "add_product"
	KindEditField    Kind = "edit_field"
	KindEditPrice    Kind = "edit_price"
)

// Step is a position inside a flow. Step values are flow-local; each flow
// starts at its first step and advances linearly.
type Step int

const (
	StepCategoryName Step = iota + 1

	StepProductCategory
	StepProductName
	StepProductDescription
	StepProductPrice
	StepProductImage

	StepFieldValue

	StepPriceValue
)

// CategoryDraft accumulates input for category flows. ID is zero when
// creating.
type CategoryDraft struct {
	ID   int64
	Name string
}

// ProductDraft accumulates input across the add-product steps.
type ProductDraft struct {
	CategoryID  *int64
	Name        string
	Description *string
	Price       float64
	ImageFileID *string
}

// FieldEditDraft targets one editable product field.
type FieldEditDraft struct {
	ProductID int64
	Field     string
}

// PriceEditDraft targets a product whose price is being replaced.
type PriceEditDraft struct {
	ProductID int64
}

// Flow is the active data-entry flow of a chat. Exactly one draft matches
// Kind; starting a new flow replaces the whole struct.
type Flow struct {
	Kind Kind
	Step Step

	Category  CategoryDraft
	Product   ProductDraft
	FieldEdit FieldEditDraft
	PriceEdit PriceEditDraft
}

// Browse is a cursor over a category's product list. Products is a snapshot
// taken when the category was opened, so paging stays stable while the
// catalog changes underneath.
type Browse struct {
	CategoryID int64
	Products   []domain.Product
	Index      int
}

// Current returns the product under the cursor.
func (b *Browse) Current() (domain.Product, bool) {
	if b == nil || b.Index < 0 || b.Index >= len(b.Products) {
		return domain.Product{}, false
	}
	return b.Products[b.Index], true
}

// Move shifts the cursor by delta, clamped to the snapshot bounds. It
// reports whether the cursor actually moved.
func (b *Browse) Move(delta int) bool {
	next := b.Index + delta
	if next < 0 || next >= len(b.Products) {
		return false
	}
	b.Index = next
	return true
}

// Session is all conversational state of one chat.
type Session struct {
	// Flow is the active data-entry flow, nil when idle.
	Flow *Flow
	// Browse is the customer catalog cursor, nil until a category is opened.
	Browse *Browse
	// ViewingProductID is the product shown on the admin product card, used
	// to return there after a field edit.
	ViewingProductID int64
	// PendingPurchaseID is the product awaiting a phone number, zero when no
	// purchase is in progress.
	PendingPurchaseID int64
	// SurfaceMessageID is the tracked bot message the chat surface edits in
	// place, zero when nothing is tracked.
	SurfaceMessageID int
	// SurfaceIsPhoto remembers whether the tracked message is a media
	// message. A media/text mismatch forces a purge instead of an edit.
	SurfaceIsPhoto bool
}

// StartFlow replaces any active flow with a fresh one of the given kind.
// Abandoned drafts are dropped, not persisted.
func (s *Session) StartFlow(kind Kind, step Step) *Flow {
	s.Flow = &Flow{Kind: kind, Step: step}
	return s.Flow
}

// EndFlow clears the active flow, keeping the rest of the session.
func (s *Session) EndFlow() {
	s.Flow = nil
}

// Manager keeps sessions keyed by chat id. Handler execution is serialized
// per chat upstream, so returned sessions are mutated without further
// locking; the map itself is guarded.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewManager builds an empty session store.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*Session)}
}

// Get returns the chat's session, creating it on first use.
func (m *Manager) Get(chatID int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		s = &Session{}
		m.sessions[chatID] = s
	}
	return s
}

// Drop removes a chat's session entirely.
func (m *Manager) Drop(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}
