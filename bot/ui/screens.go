package ui

import (
	"fmt"

	"github.com/m3rciful/jewelbot/bot/domain"
	"github.com/m3rciful/jewelbot/core/telegram/keyboard"
	"github.com/m3rciful/jewelbot/core/telegram/surface"
)

// Renderer builds screens from catalog entities. It is stateless apart from
// display configuration.
type Renderer struct {
	Currency string
}

func btn(text string, action Action, data string) keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: text, Unique: string(action), Data: data}
}

func backToMain() keyboard.InlineBtn {
	return btn("⬅️ Orqaga (Bosh menyu)", ActMainMenu, "")
}

func backToCategories() keyboard.InlineBtn {
	return btn("📜 Kategoriyalarga qaytish", ActViewCategories, "")
}

func backToAdmin() keyboard.InlineBtn {
	return btn("⬅️ Admin Panelga", ActAdminPanel, "")
}

// MainMenu is the greeting screen. Admins get an extra panel entry.
func (r Renderer) MainMenu(firstName string, isAdmin bool) surface.Screen {
	text := fmt.Sprintf("Assalomu alaykum, <b>%s</b>!\nZargarlik buyumlari do'konimizga xush kelibsiz!",
		Esc(firstName))
	rows := [][]keyboard.InlineBtn{
		{btn("🛍️ Mahsulotlarni ko'rish", ActViewCategories, "")},
	}
	if isAdmin {
		rows = append(rows, []keyboard.InlineBtn{btn("🛠️ Admin Panel", ActAdminPanel, "")})
	}
	return surface.Screen{Text: text, Markup: keyboard.Rows(rows...)}
}

// Categories lists the catalog categories for customers.
func (r Renderer) Categories(cats []domain.Category) surface.Screen {
	if len(cats) == 0 {
		return surface.Screen{Text: TextCategoriesEmpty, Markup: keyboard.Column(backToMain())}
	}
	rows := make([][]keyboard.InlineBtn, 0, len(cats)+1)
	for _, c := range cats {
		rows = append(rows, []keyboard.InlineBtn{btn(c.Name, ActOpenCategory, IDPayload(c.ID))})
	}
	rows = append(rows, []keyboard.InlineBtn{backToMain()})
	return surface.Screen{Text: TextChooseCategory, Markup: keyboard.Rows(rows...)}
}

// EmptyCategory is shown when an opened category has no products.
func (r Renderer) EmptyCategory() surface.Screen {
	return surface.Screen{Text: TextProductsEmpty, Markup: keyboard.Column(backToCategories())}
}

// ProductCard renders the browse detail view for the product at the cursor.
func (r Renderer) ProductCard(p domain.Product, index, total int) surface.Screen {
	caption := fmt.Sprintf("<b>%s</b>", Esc(p.Name))
	if p.Description != nil && *p.Description != "" {
		caption += "\n" + Esc(*p.Description)
	}
	caption += fmt.Sprintf("\nNarxi: <b>%s</b>", FormatPrice(p.Price, r.Currency))
	caption += fmt.Sprintf("\n\n(%d/%d)", index+1, total)

	var nav []keyboard.InlineBtn
	if index > 0 {
		nav = append(nav, btn("⬅️ Oldingisi", ActPrevProduct, ""))
	}
	if index < total-1 {
		nav = append(nav, btn("Keyingisi ➡️", ActNextProduct, ""))
	}
	rows := [][]keyboard.InlineBtn{}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows,
		[]keyboard.InlineBtn{btn("🛍️ Sotib olish", ActBuy, IDPayload(p.ID))},
		[]keyboard.InlineBtn{backToCategories()},
	)

	scr := surface.Screen{Text: caption, Markup: keyboard.Rows(rows...)}
	if p.ImageFileID != nil {
		scr.PhotoID = *p.ImageFileID
	}
	return scr
}

// AdminPanel is the admin entry screen. A non-empty note replaces the
// default heading, used to confirm a just-finished action.
func (r Renderer) AdminPanel(note string) surface.Screen {
	text := "🛠️ <b>Admin Panel</b>"
	if note != "" {
		text = note
	}
	rows := [][]keyboard.InlineBtn{
		{btn("🗂️ Kategoriyalarni boshqarish", ActManageCategories, "")},
		{btn("➕ Kategoriya qo'shish", ActAddCategory, "")},
		{btn("📦 Mahsulot qo'shish", ActAddProduct, "")},
		{btn("📝 Mahsulotlarni boshqarish", ActManageProducts, "")},
		{btn("📈 Buyurtmalarni ko'rish", ActViewOrders, "")},
		{backToMain()},
	}
	return surface.Screen{Text: text, Markup: keyboard.Rows(rows...)}
}

// ManageCategories lists categories with rename and delete controls.
func (r Renderer) ManageCategories(cats []domain.Category) surface.Screen {
	text := "Kategoriyalarni boshqarish:"
	rows := make([][]keyboard.InlineBtn, 0, len(cats)+2)
	if len(cats) == 0 {
		text += "\nHozircha kategoriyalar mavjud emas."
	}
	for _, c := range cats {
		rows = append(rows, []keyboard.InlineBtn{
			btn("✏️ "+Truncate(c.Name, 20), ActEditCategory, IDPayload(c.ID)),
			btn("🗑️", ActDeleteCategoryAsk, IDPayload(c.ID)),
		})
	}
	rows = append(rows,
		[]keyboard.InlineBtn{btn("➕ Yangi Kategoriya Qo'shish", ActAddCategory, "")},
		[]keyboard.InlineBtn{backToAdmin()},
	)
	return surface.Screen{Text: text, Markup: keyboard.Rows(rows...)}
}

// ConfirmDeleteCategory asks before removing a category.
func (r Renderer) ConfirmDeleteCategory(c domain.Category, productCount int) surface.Screen {
	text := fmt.Sprintf(
		"'%s' kategoriyasini o'chirishni tasdiqlaysizmi?\nUndagi %d ta mahsulot kategoriyasiz qoladi.",
		Esc(c.Name), productCount)
	rows := [][]keyboard.InlineBtn{
		{btn("✅ Ha, o'chirish", ActDeleteCategoryYes, IDPayload(c.ID))},
		{btn("❌ Yo'q, bekor qilish", ActManageCategories, "")},
	}
	return surface.Screen{Text: text, Markup: keyboard.Rows(rows...)}
}

// ManageProducts lists products for editing, labeled with their category.
func (r Renderer) ManageProducts(prods []domain.Product) surface.Screen {
	text := "Mahsulotlarni boshqarish:\n(Tahrirlash uchun mahsulot nomiga bosing)"
	rows := make([][]keyboard.InlineBtn, 0, len(prods)+2)
	if len(prods) == 0 {
		text += "\nHozircha mahsulotlar mavjud emas."
	}
	for _, p := range prods {
		catName := "Kategoriyasiz"
		if p.CategoryName != nil {
			catName = *p.CategoryName
		}
		label := fmt.Sprintf("%s (%s)", Truncate(p.Name, 20), catName)
		rows = append(rows, []keyboard.InlineBtn{btn(label, ActViewProduct, IDPayload(p.ID))})
	}
	rows = append(rows,
		[]keyboard.InlineBtn{btn("📦 Yangi Mahsulot Qo'shish", ActAddProduct, "")},
		[]keyboard.InlineBtn{backToAdmin()},
	)
	return surface.Screen{Text: text, Markup: keyboard.Rows(rows...)}
}

// AdminProductCard is the per-product admin view with field edit controls.
func (r Renderer) AdminProductCard(p domain.Product) surface.Screen {
	caption := fmt.Sprintf("<b>Mahsulot: %s</b>\n", Esc(p.Name))
	if p.CategoryName != nil {
		caption += fmt.Sprintf("Kategoriya: %s\n", Esc(*p.CategoryName))
	} else {
		caption += "Kategoriya: Belgilanmagan\n"
	}
	if p.Description != nil && *p.Description != "" {
		caption += Esc(*p.Description) + "\n"
	}
	caption += "Narxi: " + FormatPrice(p.Price, r.Currency)

	id := IDPayload(p.ID)
	rows := [][]keyboard.InlineBtn{
		{btn("✏️ Nomini", ActEditName, id), btn("✏️ Tavsifini", ActEditDescription, id)},
		{btn("✏️ Narxini", ActEditPrice, id), btn("✏️ Rasmini", ActEditImage, id)},
		{btn("✏️ Kategoriyasini", ActEditCategoryOf, id)},
		{btn("🗑️ O'chirish", ActDeleteProductAsk, id)},
		{btn("⬅️ Mahsulotlar ro'yxatiga", ActManageProducts, "")},
	}

	scr := surface.Screen{Text: caption, Markup: keyboard.Rows(rows...)}
	if p.ImageFileID != nil {
		scr.PhotoID = *p.ImageFileID
	}
	return scr
}

// ConfirmDeleteProduct asks before removing a product.
func (r Renderer) ConfirmDeleteProduct(p domain.Product) surface.Screen {
	text := fmt.Sprintf("'%s' mahsulotini o'chirishni tasdiqlaysizmi?", Esc(p.Name))
	rows := [][]keyboard.InlineBtn{
		{btn("✅ Ha, o'chirish", ActDeleteProductYes, IDPayload(p.ID))},
		{btn("❌ Yo'q, bekor qilish", ActViewProduct, IDPayload(p.ID))},
	}
	return surface.Screen{Text: text, Markup: keyboard.Rows(rows...)}
}

// CategoryPicker offers category choices during a flow. The noneLabel row
// encodes the explicit uncategorized choice.
func (r Renderer) CategoryPicker(prompt string, cats []domain.Category, noneLabel string) surface.Screen {
	rows := make([][]keyboard.InlineBtn, 0, len(cats)+2)
	for _, c := range cats {
		rows = append(rows, []keyboard.InlineBtn{btn(c.Name, ActPickCategory, IDPayload(c.ID))})
	}
	rows = append(rows,
		[]keyboard.InlineBtn{btn(noneLabel, ActPickCategory, CategoryPayload(nil))},
		[]keyboard.InlineBtn{btn("❌ Bekor qilish", ActCancelFlow, "")},
	)
	return surface.Screen{Text: prompt, Markup: keyboard.Rows(rows...)}
}

// Notice is a plain text screen with a single back control.
func (r Renderer) Notice(text string, back keyboard.InlineBtn) surface.Screen {
	return surface.Screen{Text: text, Markup: keyboard.Column(back)}
}

// BackToAdmin exposes the admin back control for Notice screens.
func (r Renderer) BackToAdmin() keyboard.InlineBtn { return backToAdmin() }

// BackToCategories exposes the customer back control for Notice screens.
func (r Renderer) BackToCategories() keyboard.InlineBtn { return backToCategories() }

// BackToMain exposes the main menu control for Notice screens.
func (r Renderer) BackToMain() keyboard.InlineBtn { return backToMain() }
