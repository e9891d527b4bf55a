package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/jewelbot/bot/domain"
	"github.com/m3rciful/jewelbot/bot/session"
	"github.com/m3rciful/jewelbot/bot/store"
	"github.com/m3rciful/jewelbot/bot/ui"
)

// fakeCatalog is an in-memory Catalog tracking commits.
type fakeCatalog struct {
	categories []domain.Category
	products   map[int64]domain.Product
	nextID     int64

	created      []domain.Product
	renames      map[int64]string
	createErr    error
	renameErr    error
	priceUpdates map[int64]float64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:     make(map[int64]domain.Product),
		renames:      make(map[int64]string),
		priceUpdates: make(map[int64]float64),
		nextID:       100,
	}
}

func (f *fakeCatalog) ListCategories(context.Context) ([]domain.Category, error) {
	return f.categories, nil
}

func (f *fakeCatalog) CreateCategory(_ context.Context, name string) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.categories = append(f.categories, domain.Category{ID: f.nextID, Name: name})
	return f.nextID, nil
}

func (f *fakeCatalog) RenameCategory(_ context.Context, id int64, name string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renames[id] = name
	return nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) CreateProduct(_ context.Context, p domain.Product) (int64, error) {
	f.nextID++
	p.ID = f.nextID
	f.products[p.ID] = p
	f.created = append(f.created, p)
	return p.ID, nil
}

func (f *fakeCatalog) mutate(id int64, fn func(*domain.Product)) error {
	p, ok := f.products[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&p)
	f.products[id] = p
	return nil
}

func (f *fakeCatalog) UpdateProductName(_ context.Context, id int64, name string) error {
	return f.mutate(id, func(p *domain.Product) { p.Name = name })
}

func (f *fakeCatalog) UpdateProductDescription(_ context.Context, id int64, d *string) error {
	return f.mutate(id, func(p *domain.Product) { p.Description = d })
}

func (f *fakeCatalog) UpdateProductPrice(_ context.Context, id int64, price float64) error {
	err := f.mutate(id, func(p *domain.Product) { p.Price = price })
	if err == nil {
		f.priceUpdates[id] = price
	}
	return err
}

func (f *fakeCatalog) UpdateProductImage(_ context.Context, id int64, fileID *string) error {
	return f.mutate(id, func(p *domain.Product) { p.ImageFileID = fileID })
}

func (f *fakeCatalog) UpdateProductCategory(_ context.Context, id int64, categoryID *int64) error {
	return f.mutate(id, func(p *domain.Product) { p.CategoryID = categoryID })
}

func newEngine(c *fakeCatalog) *Engine {
	return NewEngine(c, ui.Renderer{Currency: "so'm"})
}

func runAddProduct(t *testing.T, e *Engine, s *session.Session, inputs ...string) {
	t.Helper()
	ctx := context.Background()
	e.StartAddProduct(ctx, s)
	_, handled := e.HandlePickCategory(ctx, s, nil)
	require.True(t, handled)
	for _, in := range inputs {
		_, handled := e.HandleText(ctx, s, in)
		require.True(t, handled)
	}
}

func TestAddCategoryCommits(t *testing.T) {
	c := newFakeCatalog()
	e := newEngine(c)
	s := &session.Session{}
	ctx := context.Background()

	e.StartAddCategory(s)
	scr, handled := e.HandleText(ctx, s, "  Uzuklar  ")
	require.True(t, handled)
	assert.Nil(t, s.Flow)
	require.Len(t, c.categories, 1)
	assert.Equal(t, "Uzuklar", c.categories[0].Name)
	assert.Contains(t, scr.Text, "qo'shildi")
}

func TestAddCategoryEmptyNameReprompts(t *testing.T) {
	c := newFakeCatalog()
	e := newEngine(c)
	s := &session.Session{}

	e.StartAddCategory(s)
	scr, _ := e.HandleText(context.Background(), s, "   ")
	require.NotNil(t, s.Flow)
	assert.Equal(t, session.StepCategoryName, s.Flow.Step)
	assert.Contains(t, scr.Text, "bo'sh")
	assert.Empty(t, c.categories)
}

func TestAddCategoryConflictEndsFlow(t *testing.T) {
	c := newFakeCatalog()
	c.createErr = store.ErrCategoryExists
	e := newEngine(c)
	s := &session.Session{}

	e.StartAddCategory(s)
	scr, _ := e.HandleText(context.Background(), s, "Uzuklar")
	// Conflict is terminal, not a re-prompt.
	assert.Nil(t, s.Flow)
	assert.Contains(t, scr.Text, "allaqachon mavjud")
}

func TestAddProductFullPath(t *testing.T) {
	c := newFakeCatalog()
	e := newEngine(c)
	s := &session.Session{}

	runAddProduct(t, e, s, "Oltin uzuk", "Chiroyli uzuk", "250000")
	scr, handled := e.HandleImage(context.Background(), s, "photo-1", "")
	require.True(t, handled)

	assert.Nil(t, s.Flow)
	require.Len(t, c.created, 1)
	p := c.created[0]
	assert.Equal(t, "Oltin uzuk", p.Name)
	require.NotNil(t, p.Description)
	assert.Equal(t, "Chiroyli uzuk", *p.Description)
	assert.Equal(t, 250000.0, p.Price)
	require.NotNil(t, p.ImageFileID)
	assert.Equal(t, "photo-1", *p.ImageFileID)
	assert.Nil(t, p.CategoryID)
	assert.Contains(t, scr.Text, "mahsuloti qo'shildi")
}

func TestAddProductSkipsOptionalFields(t *testing.T) {
	c := newFakeCatalog()
	e := newEngine(c)
	s := &session.Session{}

	runAddProduct(t, e, s, "Zirak", "/skip", "100000", "/skip")

	require.Len(t, c.created, 1)
	assert.Nil(t, c.created[0].Description)
	assert.Nil(t, c.created[0].ImageFileID)
}

func TestAddProductPriceValidation(t *testing.T) {
	for _, bad := range []string{"abc", "0", "-5", "Inf", "NaN"} {
		t.Run(bad, func(t *testing.T) {
			c := newFakeCatalog()
			e := newEngine(c)
			s := &session.Session{}

			runAddProduct(t, e, s, "Zirak", "/skip", bad)
			require.NotNil(t, s.Flow)
			assert.Equal(t, session.StepProductPrice, s.Flow.Step)
		})
	}
}

func TestAddProductPriceAcceptsDecimalComma(t *testing.T) {
	c := newFakeCatalog()
	e := newEngine(c)
	s := &session.Session{}

	runAddProduct(t, e, s, "Zirak", "/skip", "2500,50", "/skip")
	require.Len(t, c.created, 1)
	assert.Equal(t, 2500.5, c.created[0].Price)
}

func TestAddProductImagePrecedence(t *testing.T) {
	c := newFakeCatalog()
	e := newEngine(c)
	s := &session.Session{}

	runAddProduct(t, e, s, "Zirak", "/skip", "100")
	// A direct photo beats an image document in the same event.
	_, handled := e.HandleImage(context.Background(), s, "photo-9", "doc-1")
	require.True(t, handled)
	require.Len(t, c.created, 1)
	assert.Equal(t, "photo-9", *c.created[0].ImageFileID)
}

func TestCancelFromEveryAddProductState(t *testing.T) {
	steps := [][]string{
		{},
		{"Zirak"},
		{"Zirak", "/skip"},
		{"Zirak", "/skip", "100"},
	}
	for _, inputs := range steps {
		c := newFakeCatalog()
		e := newEngine(c)
		s := &session.Session{}

		runAddProduct(t, e, s, inputs...)
		scr := e.Cancel(context.Background(), s)
		assert.Nil(t, s.Flow)
		assert.Empty(t, c.created)
		assert.Contains(t, scr.Text, "Bekor qilindi")
	}
}

func TestReentryDiscardsOldDraft(t *testing.T) {
	c := newFakeCatalog()
	e := newEngine(c)
	s := &session.Session{}

	runAddProduct(t, e, s, "Birinchi", "/skip", "100")

	// Starting over mid-flow drops the first draft entirely.
	runAddProduct(t, e, s, "Ikkinchi", "/skip", "200", "/skip")

	require.Len(t, c.created, 1)
	assert.Equal(t, "Ikkinchi", c.created[0].Name)
	assert.Equal(t, 200.0, c.created[0].Price)
}

func TestEditFieldNameRedisplaysProduct(t *testing.T) {
	c := newFakeCatalog()
	c.products[5] = domain.Product{ID: 5, Name: "Eski nom", Price: 100}
	e := newEngine(c)
	s := &session.Session{}
	ctx := context.Background()

	e.StartEditField(ctx, s, 5, FieldName)
	scr, handled := e.HandleText(ctx, s, "Yangi nom")
	require.True(t, handled)
	assert.Nil(t, s.Flow)
	assert.Equal(t, "Yangi nom", c.products[5].Name)
	assert.Equal(t, int64(5), s.ViewingProductID)
	assert.Contains(t, scr.Text, "Yangi nom")
}

func TestEditFieldOnDeletedProduct(t *testing.T) {
	c := newFakeCatalog()
	e := newEngine(c)
	s := &session.Session{}

	scr := e.StartEditField(context.Background(), s, 404, FieldName)
	assert.Nil(t, s.Flow)
	assert.Contains(t, scr.Text, "topilmadi")
}

func TestEditCategoryOfProductViaPicker(t *testing.T) {
	c := newFakeCatalog()
	c.categories = []domain.Category{{ID: 2, Name: "Uzuklar"}}
	c.products[5] = domain.Product{ID: 5, Name: "Uzuk", Price: 100}
	e := newEngine(c)
	s := &session.Session{}
	ctx := context.Background()

	e.StartEditField(ctx, s, 5, FieldCategory)
	catID := int64(2)
	_, handled := e.HandlePickCategory(ctx, s, &catID)
	require.True(t, handled)
	require.NotNil(t, c.products[5].CategoryID)
	assert.Equal(t, int64(2), *c.products[5].CategoryID)
}

func TestEditPriceFlow(t *testing.T) {
	c := newFakeCatalog()
	c.products[5] = domain.Product{ID: 5, Name: "Uzuk", Price: 100}
	e := newEngine(c)
	s := &session.Session{}
	ctx := context.Background()

	scr := e.StartEditPrice(ctx, s, 5)
	assert.Contains(t, scr.Text, "hozirgi")

	_, handled := e.HandleText(ctx, s, "salom")
	require.True(t, handled)
	require.NotNil(t, s.Flow)

	_, handled = e.HandleText(ctx, s, "500000")
	require.True(t, handled)
	assert.Nil(t, s.Flow)
	assert.Equal(t, 500000.0, c.priceUpdates[5])
}

func TestPriceAndFieldEditDraftsDoNotCollide(t *testing.T) {
	c := newFakeCatalog()
	c.products[5] = domain.Product{ID: 5, Name: "Uzuk", Price: 100}
	c.products[6] = domain.Product{ID: 6, Name: "Zirak", Price: 200}
	e := newEngine(c)
	s := &session.Session{}
	ctx := context.Background()

	e.StartEditField(ctx, s, 5, FieldName)
	e.StartEditPrice(ctx, s, 6)

	_, handled := e.HandleText(ctx, s, "300000")
	require.True(t, handled)
	// The price edit targeted product 6; product 5 is untouched.
	assert.Equal(t, "Uzuk", c.products[5].Name)
	assert.Equal(t, 300000.0, c.products[6].Price)
}

func TestHandleTextWithoutFlow(t *testing.T) {
	e := newEngine(newFakeCatalog())
	_, handled := e.HandleText(context.Background(), &session.Session{}, "hello")
	assert.False(t, handled)
}
