// Package flow implements the multi-step admin data-entry flows: category
// add/rename, product creation, single-field edits and price edits. Each
// chat runs at most one flow; starting another replaces it.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/jewelbot/bot/domain"
	"github.com/m3rciful/jewelbot/bot/session"
	"github.com/m3rciful/jewelbot/bot/store"
	"github.com/m3rciful/jewelbot/bot/ui"
	"github.com/m3rciful/jewelbot/core/logger"
	"github.com/m3rciful/jewelbot/core/telegram/surface"
)

// Editable product fields for the single-field edit flow.
const (
	FieldName        = "name"
	FieldDescription = "desc"
	FieldImage       = "image"
	FieldCategory    = "category"
)

const skipKeyword = "/skip"

// Catalog is the subset of store operations the flows commit through.
type Catalog interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, name string) (int64, error)
	RenameCategory(ctx context.Context, id int64, name string) error
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	CreateProduct(ctx context.Context, p domain.Product) (int64, error)
	UpdateProductName(ctx context.Context, id int64, name string) error
	UpdateProductDescription(ctx context.Context, id int64, description *string) error
	UpdateProductPrice(ctx context.Context, id int64, price float64) error
	UpdateProductImage(ctx context.Context, id int64, fileID *string) error
	UpdateProductCategory(ctx context.Context, id int64, categoryID *int64) error
}

// Engine drives the data-entry state machines. It is stateless; all flow
// state lives in the chat session.
type Engine struct {
	catalog Catalog
	render  ui.Renderer
}

// NewEngine builds a flow engine over the given catalog.
func NewEngine(catalog Catalog, render ui.Renderer) *Engine {
	return &Engine{catalog: catalog, render: render}
}

// Active reports whether the chat has a flow in progress.
func (e *Engine) Active(s *session.Session) bool {
	return s.Flow != nil
}

func prompt(text string) surface.Screen {
	return surface.Screen{Text: text}
}

// storeFailure logs the error and ends the flow on a safe screen. A failed
// write must never leave the session stuck mid-flow.
func (e *Engine) storeFailure(ctx context.Context, s *session.Session, err error) surface.Screen {
	logger.Error(ctx, "flow", "store.fail",
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	)
	s.EndFlow()
	return e.render.Notice(ui.TextStoreError, e.render.BackToAdmin())
}

// --- entry points ---

// StartAddCategory begins the category creation flow.
func (e *Engine) StartAddCategory(s *session.Session) surface.Screen {
	s.StartFlow(session.KindAddCategory, session.StepCategoryName)
	return prompt(ui.PromptCategoryName)
}

// StartEditCategory begins the rename flow for one category.
func (e *Engine) StartEditCategory(s *session.Session, categoryID int64) surface.Screen {
	f := s.StartFlow(session.KindEditCategory, session.StepCategoryName)
	f.Category.ID = categoryID
	return prompt(ui.PromptCategoryRename)
}

// StartAddProduct begins product creation with the category choice.
func (e *Engine) StartAddProduct(ctx context.Context, s *session.Session) surface.Screen {
	cats, err := e.catalog.ListCategories(ctx)
	if err != nil {
		return e.storeFailure(ctx, s, err)
	}
	s.StartFlow(session.KindAddProduct, session.StepProductCategory)
	return e.render.CategoryPicker(ui.PromptProductCategory, cats, "Kategoriyasiz qo'shish")
}

// StartEditField begins a single-field edit for the given product. The
// viewed product id stays in the session so the detail screen can come back
// after the flow ends.
func (e *Engine) StartEditField(ctx context.Context, s *session.Session, productID int64, field string) surface.Screen {
	p, err := e.catalog.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		s.EndFlow()
		return e.render.Notice(ui.TextProductGone, e.render.BackToAdmin())
	}
	if err != nil {
		return e.storeFailure(ctx, s, err)
	}

	s.ViewingProductID = productID
	f := s.StartFlow(session.KindEditField, session.StepFieldValue)
	f.FieldEdit = session.FieldEditDraft{ProductID: productID, Field: field}

	name := ui.Esc(p.Name)
	switch field {
	case FieldName:
		return prompt(fmt.Sprintf("'%s' uchun yangi nomni kiriting (/cancel):", name))
	case FieldDescription:
		return prompt(fmt.Sprintf("'%s' uchun yangi tavsifni kiriting (/skip, /cancel):", name))
	case FieldImage:
		return prompt(fmt.Sprintf("'%s' uchun yangi rasmni yuboring (/skip, /cancel):", name))
	case FieldCategory:
		cats, err := e.catalog.ListCategories(ctx)
		if err != nil {
			return e.storeFailure(ctx, s, err)
		}
		return e.render.CategoryPicker(
			fmt.Sprintf("'%s' uchun yangi kategoriyani tanlang:", name),
			cats, "Kategoriyasiz qoldirish")
	}
	s.EndFlow()
	return e.render.Notice(ui.TextStoreError, e.render.BackToAdmin())
}

// StartEditPrice begins the two-state price edit flow. It is distinct from
// the field editor and keeps its own draft so the two cannot collide.
func (e *Engine) StartEditPrice(ctx context.Context, s *session.Session, productID int64) surface.Screen {
	p, err := e.catalog.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		s.EndFlow()
		return e.render.Notice(ui.TextProductGone, e.render.BackToAdmin())
	}
	if err != nil {
		return e.storeFailure(ctx, s, err)
	}

	s.ViewingProductID = productID
	f := s.StartFlow(session.KindEditPrice, session.StepPriceValue)
	f.PriceEdit = session.PriceEditDraft{ProductID: productID}
	return prompt(fmt.Sprintf("'%s' uchun yangi narxni kiriting (hozirgi: %s, /cancel):",
		ui.Esc(p.Name), ui.FormatPrice(p.Price, e.render.Currency)))
}

// Cancel aborts any active flow. Field and price edits return to the viewed
// product's detail screen; everything else lands on the admin panel.
func (e *Engine) Cancel(ctx context.Context, s *session.Session) surface.Screen {
	wasEdit := s.Flow != nil &&
		(s.Flow.Kind == session.KindEditField || s.Flow.Kind == session.KindEditPrice)
	s.EndFlow()

	if wasEdit && s.ViewingProductID != 0 {
		if p, err := e.catalog.GetProduct(ctx, s.ViewingProductID); err == nil {
			return e.render.AdminProductCard(p)
		}
	}
	return e.render.AdminPanel(ui.TextCancelled)
}

// --- input handlers ---

// HandleText feeds a text message into the active flow. The second return
// reports whether a flow consumed the input.
func (e *Engine) HandleText(ctx context.Context, s *session.Session, text string) (surface.Screen, bool) {
	if s.Flow == nil {
		return surface.Screen{}, false
	}

	switch s.Flow.Kind {
	case session.KindAddCategory, session.KindEditCategory:
		return e.categoryName(ctx, s, text), true
	case session.KindAddProduct:
		return e.addProductText(ctx, s, text), true
	case session.KindEditField:
		return e.fieldEditText(ctx, s, text), true
	case session.KindEditPrice:
		return e.priceEditText(ctx, s, text), true
	}
	return surface.Screen{}, false
}

// HandleImage feeds an attached image into the active flow. A direct photo
// wins over an image document.
func (e *Engine) HandleImage(ctx context.Context, s *session.Session, photoID, docImageID string) (surface.Screen, bool) {
	if s.Flow == nil {
		return surface.Screen{}, false
	}
	fileID := photoID
	if fileID == "" {
		fileID = docImageID
	}

	switch {
	case s.Flow.Kind == session.KindAddProduct && s.Flow.Step == session.StepProductImage:
		if fileID == "" {
			return prompt(ui.ReplyImageOrSkip), true
		}
		s.Flow.Product.ImageFileID = &fileID
		return e.commitProduct(ctx, s), true
	case s.Flow.Kind == session.KindEditField && s.Flow.FieldEdit.Field == FieldImage:
		if fileID == "" {
			return prompt(ui.ReplyImageOrSkip), true
		}
		return e.commitFieldEdit(ctx, s, func(id int64) error {
			return e.catalog.UpdateProductImage(ctx, id, &fileID)
		}), true
	}
	return surface.Screen{}, false
}

// HandlePickCategory resolves a category choice button for whichever flow
// is waiting on one.
func (e *Engine) HandlePickCategory(ctx context.Context, s *session.Session, ref *int64) (surface.Screen, bool) {
	if s.Flow == nil {
		return surface.Screen{}, false
	}

	switch {
	case s.Flow.Kind == session.KindAddProduct && s.Flow.Step == session.StepProductCategory:
		s.Flow.Product.CategoryID = ref
		s.Flow.Step = session.StepProductName
		return prompt(ui.PromptProductName), true
	case s.Flow.Kind == session.KindEditField && s.Flow.FieldEdit.Field == FieldCategory:
		return e.commitFieldEdit(ctx, s, func(id int64) error {
			return e.catalog.UpdateProductCategory(ctx, id, ref)
		}), true
	}
	return surface.Screen{}, false
}

// --- category flows ---

func (e *Engine) categoryName(ctx context.Context, s *session.Session, text string) surface.Screen {
	name := strings.TrimSpace(text)
	if name == "" {
		return prompt(ui.ReplyNameEmpty + "\n" + ui.PromptCategoryName)
	}

	var err error
	var note string
	if s.Flow.Kind == session.KindAddCategory {
		_, err = e.catalog.CreateCategory(ctx, name)
		note = fmt.Sprintf("✅ '%s' kategoriyasi qo'shildi.", ui.Esc(name))
	} else {
		err = e.catalog.RenameCategory(ctx, s.Flow.Category.ID, name)
		note = fmt.Sprintf("✅ Kategoriya nomi '%s' ga o'zgartirildi.", ui.Esc(name))
	}

	switch {
	case errors.Is(err, store.ErrCategoryExists):
		// Conflict ends the flow; there is nothing sensible to retry with.
		s.EndFlow()
		return e.render.AdminPanel(ui.ReplyCategoryTaken)
	case errors.Is(err, store.ErrNotFound):
		s.EndFlow()
		return e.render.Notice(ui.TextCategoryGone, e.render.BackToAdmin())
	case err != nil:
		return e.storeFailure(ctx, s, err)
	}
	s.EndFlow()
	return e.render.AdminPanel(note)
}

// --- add product flow ---

func (e *Engine) addProductText(ctx context.Context, s *session.Session, text string) surface.Screen {
	f := s.Flow
	trimmed := strings.TrimSpace(text)
	skip := strings.EqualFold(trimmed, skipKeyword)

	switch f.Step {
	case session.StepProductCategory:
		// Still waiting on a button choice.
		cats, err := e.catalog.ListCategories(ctx)
		if err != nil {
			return e.storeFailure(ctx, s, err)
		}
		return e.render.CategoryPicker(ui.PromptProductCategory, cats, "Kategoriyasiz qo'shish")

	case session.StepProductName:
		if trimmed == "" {
			return prompt(ui.ReplyNameEmpty + "\n" + ui.PromptProductName)
		}
		f.Product.Name = trimmed
		f.Step = session.StepProductDescription
		return prompt(ui.PromptProductDesc)

	case session.StepProductDescription:
		if !skip {
			if trimmed == "" {
				return prompt(ui.PromptProductDesc)
			}
			f.Product.Description = &trimmed
		}
		f.Step = session.StepProductPrice
		return prompt(ui.PromptProductPrice)

	case session.StepProductPrice:
		price, ok := parsePrice(trimmed)
		if !ok {
			return prompt(ui.ReplyPriceInvalid + "\n" + ui.PromptProductPrice)
		}
		f.Product.Price = price
		f.Step = session.StepProductImage
		return prompt(ui.PromptProductImage)

	case session.StepProductImage:
		if skip {
			return e.commitProduct(ctx, s)
		}
		return prompt(ui.ReplyImageOrSkip)
	}
	return e.storeFailure(ctx, s, fmt.Errorf("flow: unexpected step %d", f.Step))
}

func (e *Engine) commitProduct(ctx context.Context, s *session.Session) surface.Screen {
	draft := s.Flow.Product
	_, err := e.catalog.CreateProduct(ctx, domain.Product{
		CategoryID:  draft.CategoryID,
		Name:        draft.Name,
		Description: draft.Description,
		Price:       draft.Price,
		ImageFileID: draft.ImageFileID,
	})
	if err != nil {
		return e.storeFailure(ctx, s, err)
	}
	s.EndFlow()
	return e.render.AdminPanel(fmt.Sprintf("✅ '%s' mahsuloti qo'shildi.", ui.Esc(draft.Name)))
}

// --- field edit flow ---

func (e *Engine) fieldEditText(ctx context.Context, s *session.Session, text string) surface.Screen {
	f := s.Flow
	trimmed := strings.TrimSpace(text)
	skip := strings.EqualFold(trimmed, skipKeyword)

	switch f.FieldEdit.Field {
	case FieldName:
		if trimmed == "" {
			return prompt(ui.ReplyNameEmpty)
		}
		return e.commitFieldEdit(ctx, s, func(id int64) error {
			return e.catalog.UpdateProductName(ctx, id, trimmed)
		})
	case FieldDescription:
		var desc *string
		if !skip {
			if trimmed == "" {
				return prompt(ui.PromptProductDesc)
			}
			desc = &trimmed
		}
		return e.commitFieldEdit(ctx, s, func(id int64) error {
			return e.catalog.UpdateProductDescription(ctx, id, desc)
		})
	case FieldImage:
		if skip {
			return e.commitFieldEdit(ctx, s, func(id int64) error {
				return e.catalog.UpdateProductImage(ctx, id, nil)
			})
		}
		return prompt(ui.ReplyImageOrSkip)
	case FieldCategory:
		// Waiting on a picker button.
		cats, err := e.catalog.ListCategories(ctx)
		if err != nil {
			return e.storeFailure(ctx, s, err)
		}
		return e.render.CategoryPicker(ui.PromptProductCategory, cats, "Kategoriyasiz qoldirish")
	}
	return e.storeFailure(ctx, s, fmt.Errorf("flow: unknown field %q", f.FieldEdit.Field))
}

// commitFieldEdit applies the update and redisplays the product card so the
// admin lands back on the entity they were editing.
func (e *Engine) commitFieldEdit(ctx context.Context, s *session.Session, update func(id int64) error) surface.Screen {
	id := s.Flow.FieldEdit.ProductID
	err := update(id)
	if errors.Is(err, store.ErrNotFound) {
		s.EndFlow()
		return e.render.Notice(ui.TextProductGone, e.render.BackToAdmin())
	}
	if err != nil {
		return e.storeFailure(ctx, s, err)
	}
	s.EndFlow()

	p, err := e.catalog.GetProduct(ctx, id)
	if err != nil {
		return e.render.AdminPanel("✅ Mahsulot yangilandi.")
	}
	return e.render.AdminProductCard(p)
}

// --- price edit flow ---

func (e *Engine) priceEditText(ctx context.Context, s *session.Session, text string) surface.Screen {
	price, ok := parsePrice(strings.TrimSpace(text))
	if !ok {
		return prompt(ui.ReplyPriceInvalid)
	}

	id := s.Flow.PriceEdit.ProductID
	err := e.catalog.UpdateProductPrice(ctx, id, price)
	if errors.Is(err, store.ErrNotFound) {
		s.EndFlow()
		return e.render.Notice(ui.TextProductGone, e.render.BackToAdmin())
	}
	if err != nil {
		return e.storeFailure(ctx, s, err)
	}
	s.EndFlow()

	p, err := e.catalog.GetProduct(ctx, id)
	if err != nil {
		return e.render.AdminPanel("✅ Narx yangilandi.")
	}
	return e.render.AdminProductCard(p)
}

// parsePrice accepts decimal comma or dot and requires a finite positive
// value.
func parsePrice(s string) (float64, bool) {
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
