// Package surface keeps a chat's single bot message ("surface") in sync with
// the screen the bot currently wants to show, absorbing the Telegram API's
// edit/delete failure modes.
package surface

import (
	"context"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Screen is the logical content of a chat surface: text (or photo caption),
// an optional photo and an optional inline keyboard.
type Screen struct {
	Text    string
	PhotoID string
	Markup  *tele.ReplyMarkup
}

// HasPhoto reports whether the screen renders as a media message.
func (s Screen) HasPhoto() bool { return s.PhotoID != "" }

// Transport is the minimal outbound surface of the chat transport. Send
// calls return the new message id; edit and delete calls return a
// classifiable error on failure.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photoID, caption string, markup *tele.ReplyMarkup) (int, error)
	EditText(ctx context.Context, chatID int64, messageID int, text string, markup *tele.ReplyMarkup) error
	EditPhotoCaption(ctx context.Context, chatID int64, messageID int, photoID, caption string, markup *tele.ReplyMarkup) error
	Delete(ctx context.Context, chatID int64, messageID int) error
}

// FailKind classifies a transport failure.
type FailKind int

const (
	// FailNone means the call succeeded.
	FailNone FailKind = iota
	// FailNotFound means the target message no longer exists.
	FailNotFound
	// FailUnmodified means the new content is identical to the current one.
	FailUnmodified
	// FailUnsupported means the target message cannot take this operation,
	// e.g. editing text of a media message or a message sent by someone else.
	FailUnsupported
	// FailOther covers every remaining transport error.
	FailOther
)

// Classify maps a Telegram API error onto a FailKind. Matching is by
// description substring: the Bot API reports these conditions as plain
// BadRequest messages and telebot surfaces them verbatim.
func Classify(err error) FailKind {
	if err == nil {
		return FailNone
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "message is not modified"):
		return FailUnmodified
	case strings.Contains(msg, "message to edit not found"),
		strings.Contains(msg, "message to delete not found"),
		strings.Contains(msg, "chat not found"):
		return FailNotFound
	case strings.Contains(msg, "message can't be edited"),
		strings.Contains(msg, "message can't be deleted"),
		strings.Contains(msg, "no text in the message to edit"):
		return FailUnsupported
	}
	return FailOther
}

// BotTransport implements Transport on top of a telebot instance. All
// messages are sent with HTML parse mode.
type BotTransport struct {
	bot *tele.Bot
}

// NewBotTransport wraps a telebot instance.
func NewBotTransport(bot *tele.Bot) *BotTransport {
	return &BotTransport{bot: bot}
}

func sendOpts(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeHTML, ReplyMarkup: markup}
}

func stored(chatID int64, messageID int) tele.StoredMessage {
	return tele.StoredMessage{ChatID: chatID, MessageID: strconv.Itoa(messageID)}
}

// SendText sends a new text message and returns its id.
func (t *BotTransport) SendText(_ context.Context, chatID int64, text string, markup *tele.ReplyMarkup) (int, error) {
	msg, err := t.bot.Send(tele.ChatID(chatID), text, sendOpts(markup))
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// SendPhoto sends a new photo message with a caption and returns its id.
func (t *BotTransport) SendPhoto(_ context.Context, chatID int64, photoID, caption string, markup *tele.ReplyMarkup) (int, error) {
	photo := &tele.Photo{File: tele.File{FileID: photoID}, Caption: caption}
	msg, err := t.bot.Send(tele.ChatID(chatID), photo, sendOpts(markup))
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// EditText replaces the text of an existing message.
func (t *BotTransport) EditText(_ context.Context, chatID int64, messageID int, text string, markup *tele.ReplyMarkup) error {
	_, err := t.bot.Edit(stored(chatID, messageID), text, sendOpts(markup))
	return err
}

// EditPhotoCaption replaces the media and caption of an existing message.
func (t *BotTransport) EditPhotoCaption(_ context.Context, chatID int64, messageID int, photoID, caption string, markup *tele.ReplyMarkup) error {
	photo := &tele.Photo{File: tele.File{FileID: photoID}, Caption: caption}
	_, err := t.bot.EditMedia(stored(chatID, messageID), photo, sendOpts(markup))
	return err
}

// Delete removes an existing message.
func (t *BotTransport) Delete(_ context.Context, chatID int64, messageID int) error {
	return t.bot.Delete(stored(chatID, messageID))
}
