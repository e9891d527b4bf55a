// Package bot wires the storefront handlers: catalog browsing, order
// capture and the admin panel, all rendered onto a single tracked surface
// message per chat.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/jewelbot/bot/domain"
	"github.com/m3rciful/jewelbot/bot/flow"
	"github.com/m3rciful/jewelbot/bot/order"
	"github.com/m3rciful/jewelbot/bot/session"
	"github.com/m3rciful/jewelbot/bot/store"
	"github.com/m3rciful/jewelbot/bot/ui"
	"github.com/m3rciful/jewelbot/core/config"
	"github.com/m3rciful/jewelbot/core/logger"
	"github.com/m3rciful/jewelbot/core/telegram/keyboard"
	"github.com/m3rciful/jewelbot/core/telegram/middleware"
	"github.com/m3rciful/jewelbot/core/telegram/sender"
	"github.com/m3rciful/jewelbot/core/telegram/surface"
)

// App owns the handler graph and the per-chat conversational state.
type App struct {
	bot       *tele.Bot
	store     *store.Store
	sessions  *session.Manager
	engine    *flow.Engine
	render    ui.Renderer
	screens   *surface.Reconciler
	transport surface.Transport
	dispatch  *sender.Dispatcher
	cfg       *config.Config
}

// New assembles the application around an already-connected bot and store.
func New(b *tele.Bot, st *store.Store, cfg *config.Config, dispatch *sender.Dispatcher) *App {
	render := ui.Renderer{Currency: cfg.Shop.Currency}
	transport := surface.NewBotTransport(b)
	return &App{
		bot:       b,
		store:     st,
		sessions:  session.NewManager(),
		engine:    flow.NewEngine(st, render),
		render:    render,
		screens:   surface.NewReconciler(transport),
		transport: transport,
		dispatch:  dispatch,
		cfg:       cfg,
	}
}

// Register attaches middleware and all handlers to the bot.
func (a *App) Register() {
	serial := middleware.NewChatSerializer()
	a.bot.Use(middleware.Recover, middleware.Logger, serial.Middleware, a.trackUser)

	a.bot.Handle("/start", a.onStart)
	a.bot.Handle("/admin", a.cbAdminPanel, middleware.AdminOnly(a.cfg.Telegram.AdminID, nil))
	a.bot.Handle("/cancel", a.onCancel)
	a.bot.Handle("/skip", a.onSkip)
	a.bot.Handle(tele.OnText, a.onText)
	a.bot.Handle(tele.OnPhoto, a.onPhoto)
	a.bot.Handle(tele.OnDocument, a.onDocument)
	a.bot.Handle(tele.OnContact, a.onContact)

	a.btn(ui.ActMainMenu, a.cbMainMenu)
	a.btn(ui.ActViewCategories, a.cbViewCategories)
	a.btn(ui.ActOpenCategory, a.cbOpenCategory)
	a.btn(ui.ActPrevProduct, a.cbMove(-1))
	a.btn(ui.ActNextProduct, a.cbMove(+1))
	a.btn(ui.ActBuy, a.cbBuy)

	a.adminBtn(ui.ActAdminPanel, a.cbAdminPanel)
	a.adminBtn(ui.ActManageCategories, a.cbManageCategories)
	a.adminBtn(ui.ActAddCategory, a.cbAddCategory)
	a.adminBtn(ui.ActEditCategory, a.cbEditCategory)
	a.adminBtn(ui.ActDeleteCategoryAsk, a.cbDeleteCategoryAsk)
	a.adminBtn(ui.ActDeleteCategoryYes, a.cbDeleteCategoryYes)
	a.adminBtn(ui.ActManageProducts, a.cbManageProducts)
	a.adminBtn(ui.ActAddProduct, a.cbAddProduct)
	a.adminBtn(ui.ActViewProduct, a.cbViewProduct)
	a.adminBtn(ui.ActEditName, a.cbEditField(flow.FieldName))
	a.adminBtn(ui.ActEditDescription, a.cbEditField(flow.FieldDescription))
	a.adminBtn(ui.ActEditImage, a.cbEditField(flow.FieldImage))
	a.adminBtn(ui.ActEditCategoryOf, a.cbEditField(flow.FieldCategory))
	a.adminBtn(ui.ActEditPrice, a.cbEditPrice)
	a.adminBtn(ui.ActDeleteProductAsk, a.cbDeleteProductAsk)
	a.adminBtn(ui.ActDeleteProductYes, a.cbDeleteProductYes)
	a.adminBtn(ui.ActPickCategory, a.cbPickCategory)
	a.adminBtn(ui.ActViewOrders, a.cbViewOrders)
	a.adminBtn(ui.ActCancelFlow, a.cbCancelFlow)
}

func (a *App) btn(act ui.Action, h tele.HandlerFunc) {
	a.bot.Handle(&tele.Btn{Unique: string(act)}, h)
}

func (a *App) adminBtn(act ui.Action, h tele.HandlerFunc) {
	reject := func(c tele.Context) error { return c.Respond() }
	a.bot.Handle(&tele.Btn{Unique: string(act)}, h,
		middleware.AdminOnly(a.cfg.Telegram.AdminID, reject))
}

func (a *App) isAdmin(c tele.Context) bool {
	u := c.Sender()
	return u != nil && u.ID == a.cfg.Telegram.AdminID
}

// reqCtx rebuilds a request context carrying the correlation metadata set by
// the logging middleware.
func (a *App) reqCtx(c tele.Context) context.Context {
	chatID, userID := int64(0), int64(0)
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	ctx := logger.WithUpdateMeta(context.Background(), c.Update().ID, userID, chatID)
	if rid, ok := c.Get("rid").(string); ok {
		ctx = logger.WithRID(ctx, rid)
	}
	return ctx
}

func (a *App) chatSession(c tele.Context) *session.Session {
	return a.sessions.Get(c.Chat().ID)
}

// trackUser refreshes the profile cache on every inbound event. Failure is
// logged and never blocks handling.
func (a *App) trackUser(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if u := c.Sender(); u != nil {
			var username *string
			if u.Username != "" {
				uname := u.Username
				username = &uname
			}
			err := a.store.UpsertUser(a.reqCtx(c), domain.User{
				ID:        u.ID,
				FirstName: u.FirstName,
				LastName:  u.LastName,
				Username:  username,
			})
			if err != nil {
				logger.Warn(a.reqCtx(c), "bot", "user.upsert_fail",
					slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
				)
			}
		}
		return next(c)
	}
}

// --- surface helpers ---

func (a *App) show(c tele.Context, scr surface.Screen) error {
	return a.display(c, scr, false)
}

// showFresh purges the tracked message so the screen arrives as a new
// message at the bottom of the chat.
func (a *App) showFresh(c tele.Context, scr surface.Screen) error {
	return a.display(c, scr, true)
}

func (a *App) display(c tele.Context, scr surface.Screen, fresh bool) error {
	ctx := a.reqCtx(c)
	s := a.chatSession(c)
	// A media/text shape change cannot be edited in place.
	purge := fresh || (s.SurfaceMessageID != 0 && s.SurfaceIsPhoto != scr.HasPhoto())
	res, err := a.screens.Reconcile(ctx, c.Chat().ID, scr, s.SurfaceMessageID, purge)
	if err != nil {
		return err
	}
	s.SurfaceMessageID = res.MessageID
	s.SurfaceIsPhoto = scr.HasPhoto()
	return nil
}

// --- commands ---

func (a *App) onStart(c tele.Context) error {
	s := a.chatSession(c)
	s.EndFlow()
	s.PendingPurchaseID = 0
	name := ""
	if u := c.Sender(); u != nil {
		name = u.FirstName
	}
	return a.showFresh(c, a.render.MainMenu(name, a.isAdmin(c)))
}

func (a *App) onCancel(c tele.Context) error {
	s := a.chatSession(c)
	if a.engine.Active(s) {
		return a.show(c, a.engine.Cancel(a.reqCtx(c), s))
	}
	if s.PendingPurchaseID != 0 {
		s.PendingPurchaseID = 0
		return c.Send(ui.TextCancelled, keyboard.RemoveKeyboard())
	}
	return nil
}

func (a *App) onSkip(c tele.Context) error {
	s := a.chatSession(c)
	if scr, handled := a.engine.HandleText(a.reqCtx(c), s, "/skip"); handled {
		return a.show(c, scr)
	}
	return nil
}

// --- message handlers ---

func (a *App) onText(c tele.Context) error {
	s := a.chatSession(c)
	if scr, handled := a.engine.HandleText(a.reqCtx(c), s, c.Text()); handled {
		return a.show(c, scr)
	}
	if s.PendingPurchaseID != 0 {
		phone, err := order.NormalizePhone(c.Text())
		if err != nil {
			return c.Send(ui.TextPhoneBad, keyboard.ContactRequest(ui.BtnContactLabel))
		}
		return a.finishOrder(c, phone)
	}
	return nil
}

func (a *App) onPhoto(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Photo == nil {
		return nil
	}
	s := a.chatSession(c)
	if scr, handled := a.engine.HandleImage(a.reqCtx(c), s, msg.Photo.FileID, ""); handled {
		return a.show(c, scr)
	}
	return nil
}

func (a *App) onDocument(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Document == nil {
		return nil
	}
	docID := ""
	if strings.HasPrefix(msg.Document.MIME, "image/") {
		docID = msg.Document.FileID
	}
	s := a.chatSession(c)
	if scr, handled := a.engine.HandleImage(a.reqCtx(c), s, "", docID); handled {
		return a.show(c, scr)
	}
	return nil
}

func (a *App) onContact(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Contact == nil {
		return nil
	}
	s := a.chatSession(c)
	if s.PendingPurchaseID == 0 {
		return nil
	}
	// A shared contact is taken as-is; the free-text rules apply only to
	// typed numbers.
	phone := order.NormalizeContact(msg.Contact.PhoneNumber)
	if phone == "" {
		return c.Send(ui.TextPhoneBad, keyboard.ContactRequest(ui.BtnContactLabel))
	}
	return a.finishOrder(c, phone)
}

// --- customer callbacks ---

func (a *App) cbMainMenu(c tele.Context) error {
	_ = c.Respond()
	name := ""
	if u := c.Sender(); u != nil {
		name = u.FirstName
	}
	return a.show(c, a.render.MainMenu(name, a.isAdmin(c)))
}

func (a *App) cbViewCategories(c tele.Context) error {
	_ = c.Respond()
	cats, err := a.store.ListCategories(a.reqCtx(c))
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToMain()))
	}
	return a.show(c, a.render.Categories(cats))
}

func (a *App) cbOpenCategory(c tele.Context) error {
	_ = c.Respond()
	ctx := a.reqCtx(c)
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	prods, err := a.store.ListProductsByCategory(ctx, id)
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToMain()))
	}
	if len(prods) == 0 {
		return a.show(c, a.render.EmptyCategory())
	}
	s := a.chatSession(c)
	s.Browse = &session.Browse{CategoryID: id, Products: prods}
	return a.show(c, a.render.ProductCard(prods[0], 0, len(prods)))
}

// cbMove pages the browse cursor. An out-of-bounds move answers with a
// toast and leaves the screen alone.
func (a *App) cbMove(delta int) tele.HandlerFunc {
	return func(c tele.Context) error {
		s := a.chatSession(c)
		if s.Browse == nil {
			_ = c.Respond()
			return a.show(c, a.render.Notice(ui.TextProductGone, a.render.BackToCategories()))
		}
		if !s.Browse.Move(delta) {
			return c.Respond(&tele.CallbackResponse{Text: ui.TextBoundaryToast})
		}
		_ = c.Respond()
		p, _ := s.Browse.Current()
		return a.show(c, a.render.ProductCard(p, s.Browse.Index, len(s.Browse.Products)))
	}
}

func (a *App) cbBuy(c tele.Context) error {
	_ = c.Respond()
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	_, err = a.store.GetProduct(a.reqCtx(c), id)
	if errors.Is(err, store.ErrNotFound) {
		return a.show(c, a.render.Notice(ui.TextProductGone, a.render.BackToCategories()))
	}
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToCategories()))
	}
	s := a.chatSession(c)
	s.PendingPurchaseID = id
	return c.Send(ui.TextPhonePrompt, keyboard.ContactRequest(ui.BtnContactLabel))
}

// finishOrder records an order for an already-normalized phone number:
// snapshot, insert, notify.
func (a *App) finishOrder(c tele.Context, phone string) error {
	ctx := a.reqCtx(c)
	s := a.chatSession(c)

	p, err := a.store.GetProduct(ctx, s.PendingPurchaseID)
	if errors.Is(err, store.ErrNotFound) {
		// Never record an order whose product snapshot cannot be resolved.
		s.PendingPurchaseID = 0
		return c.Send(ui.TextProductGone, keyboard.RemoveKeyboard())
	}
	if err != nil {
		s.PendingPurchaseID = 0
		return c.Send(ui.TextOrderFailed, keyboard.RemoveKeyboard())
	}

	var username *string
	buyerName := ""
	if u := c.Sender(); u != nil {
		buyerName = strings.TrimSpace(u.FirstName + " " + u.LastName)
		if u.Username != "" {
			uname := u.Username
			username = &uname
		}
	}
	o := domain.Order{
		UserID:       c.Sender().ID,
		Username:     username,
		ProductID:    &p.ID,
		ProductName:  p.Name,
		ProductPrice: p.Price,
		Phone:        phone,
	}
	orderID, err := a.store.InsertOrder(ctx, o)
	if err != nil {
		s.PendingPurchaseID = 0
		return c.Send(ui.TextOrderFailed, keyboard.RemoveKeyboard())
	}
	s.PendingPurchaseID = 0

	logger.Info(ctx, "bot", "order.created",
		slog.Int64("order_id", orderID),
		slog.Int64("product_id", p.ID),
	)
	a.notifyOperator(ctx, o, buyerName)

	return c.Send(ui.TextOrderDone, keyboard.RemoveKeyboard())
}

// notifyOperator queues a fire-and-forget order alert to the admin chat.
func (a *App) notifyOperator(ctx context.Context, o domain.Order, buyerName string) {
	text := ui.OrderNotification(o, buyerName, a.cfg.Shop.Currency)
	adminID := a.cfg.Telegram.AdminID
	err := a.dispatch.Enqueue(ctx, "order.notify", func() error {
		_, err := a.bot.Send(tele.ChatID(adminID), text, &tele.SendOptions{ParseMode: tele.ModeHTML})
		return err
	})
	if err != nil {
		logger.Warn(ctx, "bot", "order.notify_drop",
			slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
		)
	}
}

// --- admin callbacks ---

func (a *App) cbAdminPanel(c tele.Context) error {
	_ = c.Respond()
	return a.show(c, a.render.AdminPanel(""))
}

func (a *App) cbManageCategories(c tele.Context) error {
	_ = c.Respond()
	cats, err := a.store.ListCategories(a.reqCtx(c))
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	return a.show(c, a.render.ManageCategories(cats))
}

func (a *App) cbAddCategory(c tele.Context) error {
	_ = c.Respond()
	return a.show(c, a.engine.StartAddCategory(a.chatSession(c)))
}

func (a *App) cbEditCategory(c tele.Context) error {
	_ = c.Respond()
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	if _, err := a.store.GetCategory(a.reqCtx(c), id); errors.Is(err, store.ErrNotFound) {
		return a.show(c, a.render.Notice(ui.TextCategoryGone, a.render.BackToAdmin()))
	}
	return a.show(c, a.engine.StartEditCategory(a.chatSession(c), id))
}

func (a *App) cbDeleteCategoryAsk(c tele.Context) error {
	_ = c.Respond()
	ctx := a.reqCtx(c)
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	cat, err := a.store.GetCategory(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return a.show(c, a.render.Notice(ui.TextCategoryGone, a.render.BackToAdmin()))
	}
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	count, err := a.store.CountProductsInCategory(ctx, id)
	if err != nil {
		count = 0
	}
	return a.show(c, a.render.ConfirmDeleteCategory(cat, count))
}

func (a *App) cbDeleteCategoryYes(c tele.Context) error {
	_ = c.Respond()
	ctx := a.reqCtx(c)
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	err = a.store.DeleteCategory(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	cats, err := a.store.ListCategories(ctx)
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	return a.show(c, a.render.ManageCategories(cats))
}

func (a *App) cbManageProducts(c tele.Context) error {
	_ = c.Respond()
	prods, err := a.store.ListProducts(a.reqCtx(c))
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	return a.show(c, a.render.ManageProducts(prods))
}

func (a *App) cbAddProduct(c tele.Context) error {
	_ = c.Respond()
	return a.show(c, a.engine.StartAddProduct(a.reqCtx(c), a.chatSession(c)))
}

func (a *App) cbViewProduct(c tele.Context) error {
	_ = c.Respond()
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	p, err := a.store.GetProduct(a.reqCtx(c), id)
	if errors.Is(err, store.ErrNotFound) {
		return a.show(c, a.render.Notice(ui.TextProductGone, a.render.BackToAdmin()))
	}
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	a.chatSession(c).ViewingProductID = id
	return a.show(c, a.render.AdminProductCard(p))
}

func (a *App) cbEditField(field string) tele.HandlerFunc {
	return func(c tele.Context) error {
		_ = c.Respond()
		id, err := ui.ParseID(c.Data())
		if err != nil {
			return nil
		}
		return a.show(c, a.engine.StartEditField(a.reqCtx(c), a.chatSession(c), id, field))
	}
}

func (a *App) cbEditPrice(c tele.Context) error {
	_ = c.Respond()
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	return a.show(c, a.engine.StartEditPrice(a.reqCtx(c), a.chatSession(c), id))
}

func (a *App) cbDeleteProductAsk(c tele.Context) error {
	_ = c.Respond()
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	p, err := a.store.GetProduct(a.reqCtx(c), id)
	if errors.Is(err, store.ErrNotFound) {
		return a.show(c, a.render.Notice(ui.TextProductGone, a.render.BackToAdmin()))
	}
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	return a.show(c, a.render.ConfirmDeleteProduct(p))
}

func (a *App) cbDeleteProductYes(c tele.Context) error {
	_ = c.Respond()
	ctx := a.reqCtx(c)
	id, err := ui.ParseID(c.Data())
	if err != nil {
		return nil
	}
	err = a.store.DeleteProduct(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	s := a.chatSession(c)
	if s.ViewingProductID == id {
		s.ViewingProductID = 0
	}
	prods, err := a.store.ListProducts(ctx)
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}
	return a.show(c, a.render.ManageProducts(prods))
}

func (a *App) cbPickCategory(c tele.Context) error {
	_ = c.Respond()
	ref, err := ui.ParseCategoryRef(c.Data())
	if err != nil {
		return nil
	}
	s := a.chatSession(c)
	if scr, handled := a.engine.HandlePickCategory(a.reqCtx(c), s, ref); handled {
		return a.show(c, scr)
	}
	return nil
}

func (a *App) cbCancelFlow(c tele.Context) error {
	_ = c.Respond()
	return a.show(c, a.engine.Cancel(a.reqCtx(c), a.chatSession(c)))
}

// cbViewOrders renders the recent orders report, splitting into multiple
// messages when a part would exceed the message budget. Only the last part
// carries the back control; it becomes the tracked surface.
func (a *App) cbViewOrders(c tele.Context) error {
	_ = c.Respond()
	ctx := a.reqCtx(c)
	reports, err := a.store.RecentOrders(ctx, a.cfg.Shop.OrdersPageLimit)
	if err != nil {
		return a.show(c, a.render.Notice(ui.TextStoreError, a.render.BackToAdmin()))
	}

	parts := ui.OrdersReport(reports, a.cfg.Shop.Currency)
	s := a.chatSession(c)
	for i, part := range parts {
		var markup *tele.ReplyMarkup
		if i == len(parts)-1 {
			markup = keyboard.Column(a.render.BackToAdmin())
		}
		if i == 0 {
			if err := a.show(c, surface.Screen{Text: part, Markup: markup}); err != nil {
				return err
			}
			continue
		}
		id, err := a.transport.SendText(ctx, c.Chat().ID, part, markup)
		if err != nil {
			return err
		}
		s.SurfaceMessageID = id
		s.SurfaceIsPhoto = false
	}
	return nil
}
