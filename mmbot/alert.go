// Copyright (c) 2025 BVK Chaitanya

package mmbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bvk/mmbot/exchange"
	"github.com/shopspring/decimal"
)

const alertFreezeDuration = time.Hour

func (b *Bot) checkLowBalances(ctx context.Context, base, quote exchange.Balance) {
	if b.opts.BaseAlertLimit.IsPositive() {
		b.alertOnLowBalance(ctx, b.market.Base, base.Available, b.opts.BaseAlertLimit)
	}
	if b.opts.QuoteAlertLimit.IsPositive() {
		b.alertOnLowBalance(ctx, b.market.Quote, quote.Available, b.opts.QuoteAlertLimit)
	}
}

// alertOnLowBalance notifies the operator once per currency per freeze
// interval so a persistently low balance does not flood the transport.
func (b *Bot) alertOnLowBalance(ctx context.Context, currency string, amount, limit decimal.Decimal) {
	if amount.GreaterThan(limit) {
		return
	}

	now := time.Now()
	key := fmt.Sprintf("alerts/low-balance-alert/%s/%s", b.uid, currency)
	if deadline, ok := b.alertFreezeDeadlineMap[key]; ok {
		if now.Before(deadline) {
			return
		}
		delete(b.alertFreezeDeadlineMap, key)
	}

	msg := fmt.Sprintf("Available balance %s for %q on market %s is below the limit %s.", amount.StringFixed(5), currency, b.market.Name, limit)
	slog.Warn("low balance", "bot", b.uid, "currency", currency, "amount", amount, "limit", limit)

	if b.notifier != nil {
		if err := b.notifier.SendMessage(ctx, now, msg); err != nil {
			slog.Error("could not send low balance alert (ignored)", "bot", b.uid, "currency", currency, "err", err)
			return
		}
	}
	b.alertFreezeDeadlineMap[key] = now.Add(alertFreezeDuration)
}
