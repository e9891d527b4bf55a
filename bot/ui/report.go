package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/jewelbot/bot/domain"
)

// messageBudget is the per-message character budget for the orders report,
// kept under the transport's 4096 limit with headroom for the trailing
// separator.
const messageBudget = 4050

const reportSeparator = "\n➖➖➖➖➖➖➖➖➖➖➖\n"

// displayName resolves the buyer label: cached profile name first, then the
// order's username, then the bare id.
func displayName(r domain.OrderReport) string {
	name := strings.TrimSpace(r.FirstName + " " + r.LastName)
	username := ""
	if r.Username != nil && !strings.EqualFold(*r.Username, "n/a") {
		username = *r.Username
	}
	if name == "" {
		if username != "" {
			return "@" + Esc(username)
		}
		return fmt.Sprintf("Mijoz ID: <code>%d</code>", r.UserID)
	}
	name = Esc(name)
	if username != "" && !strings.Contains(name, "@"+username) {
		name += " (@" + Esc(username) + ")"
	}
	return name
}

func formatOrderEntry(r domain.OrderReport, currency string) string {
	return reportSeparator +
		fmt.Sprintf("🆔 Buyurtma Raqami: <b>%d</b>\n", r.ID) +
		fmt.Sprintf("👤 Mijoz: %s\n", displayName(r)) +
		fmt.Sprintf("📞 Telefon: <code>%s</code>\n", Esc(r.Phone)) +
		fmt.Sprintf("🛍️ Mahsulot: %s\n", Esc(r.Product)) +
		fmt.Sprintf("💰 Narxi: %s\n", FormatPrice(r.Price, currency)) +
		fmt.Sprintf("🕒 Vaqti: %s", r.CreatedAt.Format("2006-01-02 15:04:05"))
}

// OrdersReport renders recent orders into one or more message texts. Rows
// that would push a part past the character budget start a new part; data is
// never truncated.
func OrdersReport(reports []domain.OrderReport, currency string) []string {
	if len(reports) == 0 {
		return []string{"Hozircha buyurtmalar mavjud emas."}
	}

	var parts []string
	text := "<b>Oxirgi buyurtmalar:</b>\n"
	for _, r := range reports {
		entry := formatOrderEntry(r, currency)
		if len(text)+len(entry) > messageBudget {
			parts = append(parts, text)
			text = "<i>(davomi...)</i>\n"
		}
		// A single entry can outgrow the budget on its own; hard-split it
		// at rune boundaries rather than produce an oversized message.
		for len(text)+len(entry) > messageBudget {
			cut := messageBudget - len(text)
			for cut > 0 && !utf8.RuneStart(entry[cut]) {
				cut--
			}
			parts = append(parts, text+entry[:cut])
			text = "<i>(davomi...)</i>\n"
			entry = entry[cut:]
		}
		text += entry
	}
	text += reportSeparator
	return append(parts, text)
}

// OrderNotification formats the operator alert for a new order.
func OrderNotification(o domain.Order, buyerName, currency string) string {
	buyer := Esc(strings.TrimSpace(buyerName))
	if o.Username != nil && *o.Username != "" {
		buyer += " (@" + Esc(*o.Username) + ")"
	}
	return "🔔 <b>Yangi buyurtma!</b>\n" +
		fmt.Sprintf("👤 Mijoz: %s\n", buyer) +
		fmt.Sprintf("📞 Telefon: <code>%s</code>\n", Esc(o.Phone)) +
		fmt.Sprintf("🛍️ Mahsulot: %s\n", Esc(o.ProductName)) +
		fmt.Sprintf("💰 Narxi: %s", FormatPrice(o.ProductPrice, currency))
}
