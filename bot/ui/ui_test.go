package ui

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/jewelbot/bot/domain"
)

func TestIDPayloadRoundTrip(t *testing.T) {
	id, err := ParseID(IDPayload(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseIDRejectsGarbage(t *testing.T) {
	_, err := ParseID("7x")
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestCategoryPayloadNone(t *testing.T) {
	ref, err := ParseCategoryRef(CategoryPayload(nil))
	require.NoError(t, err)
	assert.Nil(t, ref)

	id := int64(3)
	ref, err = ParseCategoryRef(CategoryPayload(&id))
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, int64(3), *ref)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1,250,000 so'm", FormatPrice(1250000, "so'm"))
	assert.Equal(t, "999 so'm", FormatPrice(999, "so'm"))
	assert.Equal(t, "250,000 so'm", FormatPrice(249999.6, "so'm"))
}

func TestProductCardNavButtonsAtBounds(t *testing.T) {
	r := Renderer{Currency: "so'm"}
	p := domain.Product{ID: 1, Name: "Uzuk", Price: 100000}

	first := r.ProductCard(p, 0, 3)
	var labels []string
	for _, row := range first.Markup.InlineKeyboard {
		for _, b := range row {
			labels = append(labels, b.Text)
		}
	}
	assert.NotContains(t, labels, "⬅️ Oldingisi")
	assert.Contains(t, labels, "Keyingisi ➡️")

	last := r.ProductCard(p, 2, 3)
	labels = labels[:0]
	for _, row := range last.Markup.InlineKeyboard {
		for _, b := range row {
			labels = append(labels, b.Text)
		}
	}
	assert.Contains(t, labels, "⬅️ Oldingisi")
	assert.NotContains(t, labels, "Keyingisi ➡️")
}

func TestProductCardCarriesPhoto(t *testing.T) {
	r := Renderer{Currency: "so'm"}
	img := "file-123"
	scr := r.ProductCard(domain.Product{ID: 1, Name: "Uzuk", Price: 1, ImageFileID: &img}, 0, 1)
	assert.True(t, scr.HasPhoto())
	assert.Equal(t, "file-123", scr.PhotoID)
}

func TestOrdersReportEmpty(t *testing.T) {
	parts := OrdersReport(nil, "so'm")
	require.Len(t, parts, 1)
	assert.Contains(t, parts[0], "mavjud emas")
}

func TestOrdersReportSplitsLongOutput(t *testing.T) {
	long := strings.Repeat("juda uzun mahsulot nomi ", 20)
	var reports []domain.OrderReport
	for i := 0; i < 30; i++ {
		reports = append(reports, domain.OrderReport{
			ID:        int64(i + 1),
			UserID:    int64(i + 100),
			FirstName: "Mijoz",
			Phone:     "+998901234567",
			Product:   long,
			Price:     100000,
			CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		})
	}

	parts := OrdersReport(reports, "so'm")
	require.Greater(t, len(parts), 1)
	for _, part := range parts {
		assert.LessOrEqual(t, len(part), messageBudget+len(reportSeparator))
	}
	assert.Contains(t, parts[1], "davomi")
	// Every order appears exactly once across parts.
	all := strings.Join(parts, "")
	assert.Equal(t, 30, strings.Count(all, "Buyurtma Raqami"))
}

func TestOrdersReportHardSplitsOversizedEntry(t *testing.T) {
	huge := strings.Repeat("ğ", 6000)
	parts := OrdersReport([]domain.OrderReport{{
		ID:        1,
		UserID:    9,
		FirstName: "Mijoz",
		Phone:     "+998901234567",
		Product:   huge,
		Price:     100000,
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}}, "so'm")

	require.Greater(t, len(parts), 1)
	for _, part := range parts {
		assert.LessOrEqual(t, len(part), messageBudget+len(reportSeparator))
		assert.True(t, utf8.ValidString(part))
	}
	// No payload is lost across the split.
	all := strings.Join(parts, "")
	assert.Equal(t, 6000, strings.Count(all, "ğ"))
}

func TestOrdersReportDisplayNameFallbacks(t *testing.T) {
	created := time.Now()
	username := "ali"

	withName := OrdersReport([]domain.OrderReport{{
		ID: 1, UserID: 9, FirstName: "Ali", Username: &username,
		Phone: "+998901234567", Product: "Uzuk", CreatedAt: created,
	}}, "so'm")
	assert.Contains(t, withName[0], "Ali (@ali)")

	bare := OrdersReport([]domain.OrderReport{{
		ID: 2, UserID: 9, Phone: "+998901234567", Product: "Uzuk", CreatedAt: created,
	}}, "so'm")
	assert.Contains(t, bare[0], "Mijoz ID: <code>9</code>")
}

func TestEscEscapesHTML(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;", Esc("<b>"))
}
