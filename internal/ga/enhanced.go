package ga

import (
	"strconv"
	"strings"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// Product action tags for enhanced e-commerce hits.
const (
	actionDetail         = "detail"
	actionClick          = "click"
	actionAdd            = "add"
	actionRemove         = "remove"
	actionCheckout       = "checkout"
	actionCheckoutOption = "checkout_option"
	actionPurchase       = "purchase"
	actionRefund         = "refund"
)

// enhancedEventFields sets the envelope every enhanced e-commerce hit
// shares: the product action, hit type, and the event action/category/label
// triple. The category is fixed to EnhancedEcommerce because
// properties.category on commerce calls classifies the product, not the
// event.
func enhancedEventFields(msg *event.Message, action string) Payload {
	form := Payload{}
	if action != "" {
		form.set("pa", action)
	}
	form.set("t", "event")
	form.set("ea", msg.Event)
	form.set("ec", "EnhancedEcommerce")
	form.set("el", labelOrDefault(msg))
	return form
}

// productAction encodes the single-product actions (viewed, clicked, added,
// removed). The product fields come from the event's own properties.
func productAction(msg *event.Message, settings Settings, action string, now time.Time) Payload {
	form := enhancedEventFields(msg, action)
	mergeFields(form, commonFields(msg, settings, false, now))
	contextPageFields(msg, form)
	productFields(event.NewProduct(msg.Properties), 1, "pr", nil, form)
	return form
}

// checkoutStep encodes checkout started / order updated / checkout step
// viewed hits: a checkout action with the full product list and the step and
// option properties renamed to their protocol slots.
func checkoutStep(msg *event.Message, settings Settings, now time.Time) Payload {
	form := enhancedEventFields(msg, actionCheckout)
	mergeFields(form, commonFields(msg, settings, false, now))
	productsFields(msg.Products(), "pr", nil, form)
	contextPageFields(msg, form)
	renameProperty(msg, "step", "cos", form)
	renameProperty(msg, "option", "col", form)
	return form
}

// checkoutStepCompleted encodes a checkout_option hit carrying only the
// step/option pair, no products, no page fields.
func checkoutStepCompleted(msg *event.Message, settings Settings, now time.Time) Payload {
	form := enhancedEventFields(msg, actionCheckoutOption)
	mergeFields(form, commonFields(msg, settings, false, now))
	renameProperty(msg, "option", "col", form)
	renameProperty(msg, "step", "cos", form)
	return form
}

// orderCompletedEnhanced encodes a completed order as a single purchase
// hit with transaction fields and every product embedded as indexed fields,
// superseding the standard transaction+items expansion.
func orderCompletedEnhanced(msg *event.Message, settings Settings, now time.Time) Payload {
	form := Payload{}
	if affiliation, ok := msg.PropertyString("affiliation"); ok {
		form.set("ta", affiliation)
	}
	if shipping, ok := msg.Shipping(); ok {
		form.setNumber("ts", shipping)
	}
	form.set("cu", msg.Currency())
	if revenue, ok := msg.Revenue(); ok {
		form.setNumber("tr", revenue)
	}
	if orderID, ok := msg.OrderID(); ok {
		form.set("ti", orderID)
	}
	if tax, ok := msg.Tax(); ok {
		form.setNumber("tt", tax)
	}

	mergeFields(form, enhancedEventFields(msg, actionPurchase))
	mergeFields(form, commonFields(msg, settings, false, now))
	contextPageFields(msg, form)
	productsFields(msg.Products(), "pr", nil, form)
	return form
}

// orderRefunded encodes a refund hit. Whole-order refunds carry just the
// transaction id; partial refunds also embed the refunded products.
func orderRefunded(msg *event.Message, settings Settings, now time.Time) Payload {
	form := enhancedEventFields(msg, actionRefund)
	mergeFields(form, commonFields(msg, settings, false, now))
	productsFields(msg.Products(), "pr", nil, form)
	if orderID, ok := msg.OrderID(); ok {
		form.set("ti", orderID)
	}
	form.set("ni", "1")
	return form
}

// promotionViewed encodes a promotion impression. Promotion hits are always
// non-interactive.
func promotionViewed(msg *event.Message, settings Settings, now time.Time) Payload {
	form := enhancedEventFields(msg, "")
	contextPageFields(msg, form)
	mergeFields(form, commonFields(msg, settings, false, now))
	promotionFields(msg, form)
	form.set("ni", "1")
	return form
}

// promotionClicked encodes a promotion click with the promoa action tag.
func promotionClicked(msg *event.Message, settings Settings, now time.Time) Payload {
	form := enhancedEventFields(msg, "")
	mergeFields(form, commonFields(msg, settings, false, now))
	promotionFields(msg, form)
	form.set("promoa", "click")
	form.set("ni", "1")
	return form
}

// productListViewed encodes a product impression list using the il1pi
// indexed prefix, which the protocol segregates from product-action fields.
func productListViewed(msg *event.Message, settings Settings, now time.Time) Payload {
	form := enhancedEventFields(msg, actionDetail)
	mergeFields(form, commonFields(msg, settings, false, now))
	contextPageFields(msg, form)
	productsFields(msg.Products(), "il1pi", nil, form)
	renameProperty(msg, "list_id", "il1nm", form)
	return form
}

// productListFiltered encodes a filtered impression list. The applied
// filters and sorts are folded into one descriptive string that replaces
// every product's variant field, so the dashboard retains filter context in
// the otherwise-unused variant dimension.
func productListFiltered(msg *event.Message, settings Settings, now time.Time) Payload {
	filterSort := formatFilters(msg)

	form := enhancedEventFields(msg, actionDetail)
	mergeFields(form, commonFields(msg, settings, false, now))
	contextPageFields(msg, form)
	productsFields(msg.Products(), "il1pi", &filterSort, form)
	renameProperty(msg, "list_id", "il1nm", form)
	return form
}

// productFields writes one product's indexed fields into form. prefix is
// "pr" for product actions and "il1pi" for impression lists (the list index
// is fixed at 1; the event model carries a single list per call). When
// variantOverride is non-nil it replaces the product's own variant.
func productFields(p event.Product, index int, prefix string, variantOverride *string, form Payload) {
	key := func(suffix string) string {
		return prefix + strconv.Itoa(index) + suffix
	}

	if brand, ok := p.Brand(); ok {
		form.setScalar(key("br"), brand)
	}
	if category, ok := p.Category(); ok {
		form.setScalar(key("ca"), category)
	}
	if id, ok := p.ID(); ok {
		form.setScalar(key("id"), id)
	}
	if name, ok := p.Name(); ok {
		form.setScalar(key("nm"), name)
	}
	if position, ok := p.Position(); ok {
		form.setScalar(key("ps"), position)
	}
	if price, ok := p.Price(); ok {
		form.setNumber(key("pr"), price)
	}
	if quantity, ok := p.Lookup("quantity"); ok {
		form.setScalar(key("qt"), quantity)
	}
	if variantOverride != nil {
		form.set(key("va"), *variantOverride)
	} else if variant, ok := p.Variant(); ok {
		form.setScalar(key("va"), variant)
	}
}

// productsFields writes indexed fields for every product, numbering from 1
// in list order.
func productsFields(products []event.Product, prefix string, variantOverride *string, form Payload) {
	for i, product := range products {
		productFields(product, i+1, prefix, variantOverride, form)
	}
}

// promotionFields renames the promotion properties onto their promo1 slots.
// A bare id is resolved first so the explicit promotion id spellings
// overwrite it when both are present.
func promotionFields(msg *event.Message, form Payload) {
	renameProperty(msg, "creative", "promo1cr", form)
	renameProperty(msg, "id", "promo1id", form)
	renameProperty(msg, "promotionId", "promo1id", form)
	renameProperty(msg, "name", "promo1nm", form)
	renameProperty(msg, "position", "promo1ps", form)
}

// renameProperty copies one property onto a protocol key when present.
func renameProperty(msg *event.Message, path, key string, form Payload) {
	if v, ok := msg.Property(path); ok {
		form.setScalar(key, v)
	}
}

// formatFilters serializes the filters and sorts of a product-list-filtered
// call into "type:value,type:value::type:value" form, filters before the
// double colon, sorts after. Malformed entries are skipped.
func formatFilters(msg *event.Message) string {
	var b strings.Builder
	writeRefinements(&b, msg, "filters")
	b.WriteString("::")
	writeRefinements(&b, msg, "sorts")
	return b.String()
}

func writeRefinements(b *strings.Builder, msg *event.Message, path string) {
	raw, ok := msg.Property(path)
	if !ok {
		return
	}
	list, ok := raw.([]any)
	if !ok {
		return
	}

	first := true
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		kind, _ := event.LookupString(obj, "type")
		value, _ := event.LookupString(obj, "value")
		if !first {
			b.WriteString(",")
		}
		b.WriteString(kind + ":" + value)
		first = false
	}
}

// mergeFields copies src into dst, overwriting on collision. Merge order
// follows each encoder's field precedence.
func mergeFields(dst, src Payload) {
	for k, v := range src {
		dst.set(k, v)
	}
}
