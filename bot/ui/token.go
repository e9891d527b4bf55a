// Package ui renders logical screens and defines the button token grammar
// shared between the renderer and the callback dispatcher.
package ui

import (
	"errors"
	"strconv"
)

// Action is the unique half of a button token. The callback dispatcher
// routes on Action; the payload carries at most one entity id.
type Action string

// The full closed set of button actions. Routing matches these exactly;
// there is no positional splitting of payloads anywhere else.
const (
	ActMainMenu       Action = "main_menu"
	ActViewCategories Action = "view_cats"
	ActOpenCategory   Action = "open_cat"
	ActPrevProduct    Action = "prev_prod"
	ActNextProduct    Action = "next_prod"
	ActBuy            Action = "buy"

	ActAdminPanel        Action = "adm_panel"
	ActManageCategories  Action = "adm_cats"
	ActAddCategory       Action = "adm_cat_add"
	ActEditCategory      Action = "adm_cat_edit"
	ActDeleteCategoryAsk Action = "adm_cat_del"
	ActDeleteCategoryYes Action = "adm_cat_del_ok"

	ActManageProducts   Action = "adm_prods"
	ActAddProduct       Action = "adm_prod_add"
	ActViewProduct      Action = "adm_prod_view"
	ActEditName         Action = "adm_edit_name"
	ActEditDescription  Action = "adm_edit_desc"
	ActEditImage        Action = "adm_edit_img"
	ActEditCategoryOf   Action = "adm_edit_cat"
	ActEditPrice        Action = "adm_edit_price"
	ActDeleteProductAsk Action = "adm_prod_del"
	ActDeleteProductYes Action = "adm_prod_del_ok"

	// ActPickCategory carries a category id or the no-category marker and is
	// consumed by whichever flow is waiting on a category choice.
	ActPickCategory Action = "pick_cat"

	ActViewOrders Action = "adm_orders"
	ActCancelFlow Action = "flow_cancel"
)

// ErrBadToken is returned when a payload does not decode.
var ErrBadToken = errors.New("ui: malformed button payload")

// noCategory marks the explicit "without category" choice in a pick payload.
const noCategory = "none"

// IDPayload encodes an entity id for a button.
func IDPayload(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID decodes an entity id payload.
func ParseID(data string) (int64, error) {
	id, err := strconv.ParseInt(data, 10, 64)
	if err != nil {
		return 0, ErrBadToken
	}
	return id, nil
}

// CategoryPayload encodes an optional category reference; nil encodes the
// uncategorized choice.
func CategoryPayload(id *int64) string {
	if id == nil {
		return noCategory
	}
	return IDPayload(*id)
}

// ParseCategoryRef decodes an optional category reference.
func ParseCategoryRef(data string) (*int64, error) {
	if data == noCategory {
		return nil, nil
	}
	id, err := ParseID(data)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
