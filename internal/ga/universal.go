package ga

import (
	"math"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// universalPage encodes a page view hit.
func universalPage(msg *event.Message, settings Settings, now time.Time) Payload {
	form := commonFields(msg, settings, false, now)
	pageURLFields(msg, form)
	if ref := msg.Referrer(); ref != "" {
		form.set("dr", ref)
	}
	if title := msg.FullName(); title != "" {
		form.set("dt", title)
	}
	form.set("t", "pageview")
	return form
}

// universalScreen encodes a screen view hit.
func universalScreen(msg *event.Message, settings Settings, now time.Time) Payload {
	form := commonFields(msg, settings, false, now)
	if msg.Name != "" {
		form.set("cd", msg.Name)
	}
	form.set("t", "screenview")
	return form
}

// universalTrack encodes a generic event hit. The event value prefers the
// explicit value property, then revenue, then zero; labels and categories
// carry protocol-mandated defaults rather than being omitted.
func universalTrack(msg *event.Message, settings Settings, now time.Time) Payload {
	form := commonFields(msg, settings, false, now)
	pageURLFields(msg, form)

	form.setInt("ev", eventValue(msg))
	form.set("el", labelOrDefault(msg))
	form.set("ec", categoryOrDefault(msg))
	form.set("ea", msg.Event)
	form.set("t", "event")
	if msg.NonInteraction() || settings.NonInteraction {
		form.set("ni", "1")
	}
	return form
}

// universalOrderCompleted expands one completed order into the standard
// e-commerce sequence: the event hit itself, one transaction hit, then one
// item hit per product, in product order.
func universalOrderCompleted(msg *event.Message, settings Settings, now time.Time) []Payload {
	currency := msg.Currency()
	orderID, hasOrderID := msg.OrderID()

	transaction := commonFields(msg, settings, false, now)
	pageURLFields(msg, transaction)
	if affiliation, ok := msg.PropertyString("affiliation"); ok {
		transaction.set("ta", affiliation)
	}
	if shipping, ok := msg.Shipping(); ok {
		transaction.setNumber("ts", shipping)
	}
	if revenue, ok := msg.Revenue(); ok {
		transaction.setNumber("tr", revenue)
	}
	if tax, ok := msg.Tax(); ok {
		transaction.setNumber("tt", tax)
	}
	transaction.set("t", "transaction")
	transaction.set("cu", currency)
	if hasOrderID {
		transaction.set("ti", orderID)
	}

	payloads := []Payload{universalTrack(msg, settings, now), transaction}

	for _, product := range msg.Products() {
		item := commonFields(msg, settings, false, now)
		item.setNumber("iq", product.Quantity())
		if category, ok := product.Category(); ok {
			item.setScalar("iv", category)
		}
		if price, ok := product.Price(); ok {
			item.setNumber("ip", price)
		}
		if name, ok := product.Name(); ok {
			item.setScalar("in", name)
		}
		if sku, ok := product.SKU(); ok {
			item.setScalar("ic", sku)
		}
		item.set("cu", currency)
		if hasOrderID {
			item.set("ti", orderID)
		}
		item.set("t", "item")
		payloads = append(payloads, item)
	}

	return payloads
}

// mobileCampaignEvent encodes the mobile attribution events (install
// attributed, push notification received/tapped/bounced). Campaign data is
// read from properties.campaign, and the label carries the notification
// action when the producer reported one.
func mobileCampaignEvent(msg *event.Message, settings Settings, now time.Time) Payload {
	form := commonFields(msg, settings, true, now)
	contextPageFields(msg, form)

	form.set("ea", msg.Event)
	form.set("ec", "All")
	form.set("el", "event")
	if action, ok := msg.PropertyString("action"); ok && action != "" {
		form.set("el", action)
	}
	form.set("t", "event")
	return form
}

// eventValue rounds the event's value (or revenue) to the nearest integer,
// defaulting to zero. Rounding matches the historical half-up behavior.
func eventValue(msg *event.Message) int64 {
	if v, ok := msg.Value(); ok && v != 0 {
		return roundHalfUp(v)
	}
	if r, ok := msg.Revenue(); ok {
		return roundHalfUp(r)
	}
	return 0
}

func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

func labelOrDefault(msg *event.Message) string {
	if label, ok := msg.Label(); ok && label != "" {
		return label
	}
	return "event"
}

func categoryOrDefault(msg *event.Message) string {
	if category, ok := msg.PropertyString("category"); ok && category != "" {
		return category
	}
	return "All"
}
