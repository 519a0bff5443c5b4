package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"papertrade/internal/logger"
	"papertrade/internal/store"
	"papertrade/internal/types"
)

// Dispatcher fans a trade confirmation out to the in-app inbox and, when
// configured, an external text channel. Both legs are best-effort; settlement
// never waits on or fails because of a notification.
type Dispatcher struct {
	store    store.Store
	external TextNotifier
}

func NewDispatcher(st store.Store, external TextNotifier) *Dispatcher {
	if external == nil {
		external = Noop{}
	}
	return &Dispatcher{store: st, external: external}
}

// TradeConfirmation stores an in-app notification for the order and pushes
// the same text externally.
func (d *Dispatcher) TradeConfirmation(ctx context.Context, user types.User, order *types.Order) {
	body := formatTradeConfirmation(user, order)
	if err := d.store.InsertNotification(ctx, types.Notification{
		Owner: order.Owner,
		Title: "Trade Confirmation",
		Body:  body,
	}); err != nil {
		logger.Warnf("notifier: storing confirmation for %s failed: %v", order.Owner, err)
	}
	if err := d.external.SendText(body); err != nil {
		if _, ok := d.external.(Noop); !ok {
			logger.Warnf("notifier: external push for %s failed: %v", order.Owner, err)
		}
	}
}

func formatTradeConfirmation(user types.User, order *types.Order) string {
	var b strings.Builder
	name := user.Name
	if name == "" {
		name = order.Owner
	}
	fmt.Fprintf(&b, "Hi %s, your trade has been executed:\n", name)
	fmt.Fprintf(&b, "- Side: %s\n", order.Side)
	fmt.Fprintf(&b, "- Symbol: %s\n", order.Symbol)
	fmt.Fprintf(&b, "- Quantity: %g\n", order.Quantity)
	fmt.Fprintf(&b, "- Price: $%.2f\n", order.Price)
	fmt.Fprintf(&b, "- Total: $%.2f\n", order.TotalAmount)
	fmt.Fprintf(&b, "- Date: %s", order.ExecutedAt.Format(time.RFC1123))
	return b.String()
}
