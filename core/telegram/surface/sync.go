package surface

import (
	"context"
	"log/slog"

	"github.com/m3rciful/jewelbot/core/logger"
)

// degradedNotice is appended to the screen text when an in-place edit failed
// for a reason other than the well-known recoverable ones.
const degradedNotice = "\n(Xabarni yangilashda muammo yuz berdi)"

// Result reports how a reconcile resolved.
type Result struct {
	// MessageID is the id of the message now showing the screen.
	MessageID int
	// Unchanged is set when the tracked message already displayed exactly
	// this content and no transport call modified anything.
	Unchanged bool
}

// Reconciler decides edit-vs-send for a chat's tracked surface message.
type Reconciler struct {
	transport Transport
}

// NewReconciler builds a Reconciler over the given transport.
func NewReconciler(t Transport) *Reconciler {
	return &Reconciler{transport: t}
}

// Reconcile brings the chat surface to the desired screen.
//
// With purgeFirst the tracked message is deleted best-effort and the screen
// is sent fresh; delete failures never abort the action. Otherwise an
// in-place edit is attempted and its failure decides the fallback: a missing
// or uneditable target falls back to sending a new message, identical
// content is reported as unchanged, and any other error produces a single
// degraded send with a short notice appended. At most two outbound calls are
// made; there are no retries beyond the single fallback.
func (r *Reconciler) Reconcile(ctx context.Context, chatID int64, scr Screen, trackedID int, purgeFirst bool) (Result, error) {
	if purgeFirst && trackedID != 0 {
		if err := r.transport.Delete(ctx, chatID, trackedID); err != nil {
			logger.Debug(ctx, "tg.surface", "purge.skip",
				slog.Int("message_id", trackedID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
			)
		}
		trackedID = 0
	}

	if trackedID != 0 {
		var err error
		if scr.HasPhoto() {
			err = r.transport.EditPhotoCaption(ctx, chatID, trackedID, scr.PhotoID, scr.Text, scr.Markup)
		} else {
			err = r.transport.EditText(ctx, chatID, trackedID, scr.Text, scr.Markup)
		}

		switch Classify(err) {
		case FailNone:
			return Result{MessageID: trackedID}, nil
		case FailUnmodified:
			logger.Debug(ctx, "tg.surface", "edit.unmodified",
				slog.Int("message_id", trackedID),
			)
			return Result{MessageID: trackedID, Unchanged: true}, nil
		case FailNotFound, FailUnsupported:
			logger.Warn(ctx, "tg.surface", "edit.fallback",
				slog.Int("message_id", trackedID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
			)
			// fall through to a fresh send
		default:
			logger.Error(ctx, "tg.surface", "edit.degraded",
				slog.Int("message_id", trackedID),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
			degraded := scr
			degraded.Text += degradedNotice
			id, sendErr := r.send(ctx, chatID, degraded)
			if sendErr != nil {
				logger.Error(ctx, "tg.surface", "degraded.send_fail",
					slog.String("err", logger.SanitizeLimit(sendErr.Error(), 256)),
				)
				return Result{MessageID: trackedID}, nil
			}
			return Result{MessageID: id}, nil
		}
	}

	id, err := r.send(ctx, chatID, scr)
	if err != nil {
		return Result{}, err
	}
	return Result{MessageID: id}, nil
}

func (r *Reconciler) send(ctx context.Context, chatID int64, scr Screen) (int, error) {
	if scr.HasPhoto() {
		return r.transport.SendPhoto(ctx, chatID, scr.PhotoID, scr.Text, scr.Markup)
	}
	return r.transport.SendText(ctx, chatID, scr.Text, scr.Markup)
}
