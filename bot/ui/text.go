package ui

import (
	"html"
	"strconv"
	"strings"
)

// Prompt and notice texts. All user-facing copy is Uzbek; messages are sent
// with HTML parse mode, so dynamic values must pass through Esc.
const (
	TextCategoriesEmpty = "Hozircha kategoriyalar mavjud emas."
	TextChooseCategory  = "Quyidagi kategoriyalardan birini tanlang:"
	TextProductsEmpty   = "Bu kategoriyada hozircha mahsulotlar mavjud emas."
	TextProductGone     = "Mahsulot topilmadi."
	TextCategoryGone    = "Kategoriya topilmadi."
	TextBoundaryToast   = "Ro'yxat oxiri."
	TextCancelled       = "Bekor qilindi."

	PromptCategoryName    = "Yangi kategoriya nomini kiriting (/cancel):"
	PromptCategoryRename  = "Kategoriya uchun yangi nomni kiriting (/cancel):"
	PromptProductCategory = "Mahsulot uchun kategoriyani tanlang:"
	PromptProductName     = "Mahsulot nomini kiriting (/cancel):"
	PromptProductDesc     = "Mahsulot tavsifini kiriting (ixtiyoriy, /skip, /cancel):"
	PromptProductPrice    = "Mahsulot narxini kiriting (masalan: 250000, /cancel):"
	PromptProductImage    = "Mahsulot rasmini yuboring (ixtiyoriy, /skip, /cancel):"

	ReplyNameEmpty     = "Nom bo'sh bo'lmasligi kerak."
	ReplyPriceInvalid  = "Narx noto'g'ri. Musbat son kiriting."
	ReplyImageOrSkip   = "Rasm yuboring yoki /skip."
	ReplyCategoryTaken = "Bunday nomli kategoriya allaqachon mavjud."

	TextPhonePrompt = "Buyurtmani rasmiylashtirish uchun telefon raqamingizni yuboring yoki pastdagi tugmani bosing."
	TextPhoneBad    = "Telefon raqam noto'g'ri formatda. Iltimos, (+998xxxxxxxxx) formatida kiriting yoki tugmani bosing."
	TextOrderDone   = "✅ Rahmat! Buyurtmangiz qabul qilindi. Tez orada siz bilan bog'lanamiz."
	TextOrderFailed = "❌ Buyurtmani qayta ishlashda xatolik yuz berdi. Iltimos, keyinroq qayta urinib ko'ring."

	TextStoreError = "Xatolik yuz berdi. Iltimos, keyinroq qayta urinib ko'ring."

	BtnContactLabel = "📱 Telefon raqamni yuborish"
)

// Esc escapes dynamic values for HTML parse mode.
func Esc(s string) string {
	return html.EscapeString(s)
}

// FormatPrice renders a price with thousands separators and the currency
// unit, e.g. "1,250,000 so'm".
func FormatPrice(price float64, currency string) string {
	n := strconv.FormatInt(int64(price+0.5), 10)
	neg := strings.HasPrefix(n, "-")
	if neg {
		n = n[1:]
	}
	var b strings.Builder
	lead := len(n) % 3
	if lead > 0 {
		b.WriteString(n[:lead])
	}
	for i := lead; i < len(n); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(n[i : i+3])
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out + " " + currency
}

// Truncate shortens a label for inline buttons, appending ".." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + ".."
}
