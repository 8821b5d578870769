package event

import (
	"strconv"
	"strings"
)

// Property resolves a dotted path against the message properties.
func (m *Message) Property(path string) (any, bool) {
	return Lookup(m.Properties, path)
}

// PropertyString resolves a property path to a string value.
func (m *Message) PropertyString(path string) (string, bool) {
	return LookupString(m.Properties, path)
}

// PropertyNumber resolves a property path to a numeric value.
func (m *Message) PropertyNumber(path string) (float64, bool) {
	return LookupNumber(m.Properties, path)
}

// Trait resolves a dotted path against the message traits.
func (m *Message) Trait(path string) (any, bool) {
	return Lookup(m.Traits, path)
}

// Value returns properties.value as a number.
func (m *Message) Value() (float64, bool) {
	return m.PropertyNumber("value")
}

// Revenue returns the monetary revenue of the event. It accepts numbers and
// currency-prefixed strings ("$24.75"). Order-completion events fall back to
// properties.total when no explicit revenue is present, since many commerce
// producers only report the order total.
func (m *Message) Revenue() (float64, bool) {
	if v, ok := m.Property("revenue"); ok {
		if n, ok := parseMoney(v); ok {
			return n, true
		}
	}
	if m.isOrderCompletion() {
		if v, ok := m.Property("total"); ok {
			return parseMoney(v)
		}
	}
	return 0, false
}

// Tax returns properties.tax.
func (m *Message) Tax() (float64, bool) {
	return m.PropertyNumber("tax")
}

// Shipping returns properties.shipping.
func (m *Message) Shipping() (float64, bool) {
	return m.PropertyNumber("shipping")
}

// Currency returns properties.currency, defaulting to USD. The collection
// protocol interprets transaction amounts in the hit's currency, so an
// explicit default beats omitting the key on commerce hits.
func (m *Message) Currency() string {
	if s, ok := m.PropertyString("currency"); ok && s != "" {
		return s
	}
	return "USD"
}

// OrderID returns the order identifier, checking orderId (and its casing
// variants) before the bare id property.
func (m *Message) OrderID() (string, bool) {
	for _, path := range []string{"orderId", "id"} {
		if v, ok := m.Property(path); ok {
			switch id := v.(type) {
			case string:
				if id != "" {
					return id, true
				}
			default:
				if n, ok := toNumber(v); ok {
					return strconv.FormatFloat(n, 'f', -1, 64), true
				}
			}
		}
	}
	return "", false
}

// Label returns properties.label.
func (m *Message) Label() (string, bool) {
	return m.PropertyString("label")
}

// NonInteraction reports whether the producer flagged the event as
// non-interactive. Both boolean true and any non-zero number count.
func (m *Message) NonInteraction() bool {
	v, ok := m.Property("nonInteraction")
	if !ok {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	if n, ok := toNumber(v); ok {
		return n != 0
	}
	return false
}

// FullName returns the page name prefixed with its category when both are
// present ("Docs Home" for category "Docs", name "Home").
func (m *Message) FullName() string {
	if m.Category != "" && m.Name != "" {
		return m.Category + " " + m.Name
	}
	return m.Name
}

// URL returns the page URL, preferring properties.url over context.page.url.
func (m *Message) URL() string {
	if s, ok := m.PropertyString("url"); ok {
		return s
	}
	return m.Context.Page.URL
}

// Referrer returns the referring URL from context.page or properties.
func (m *Message) Referrer() string {
	if m.Context.Page.Referrer != "" {
		return m.Context.Page.Referrer
	}
	if s, ok := m.PropertyString("referrer"); ok {
		return s
	}
	return ""
}

// Options returns the per-destination integration options for the named
// destination, matching the name case-insensitively. Returns nil when the
// producer supplied none.
func (m *Message) Options(destination string) map[string]any {
	if m.Integrations == nil {
		return nil
	}
	if opts, ok := m.Integrations[destination]; ok {
		return opts
	}
	want := strings.ToLower(destination)
	for name, opts := range m.Integrations {
		if strings.ToLower(name) == want {
			return opts
		}
	}
	return nil
}

// isOrderCompletion matches both the legacy and current order-completion
// event names ("Completed Order", "Order Completed").
func (m *Message) isOrderCompletion() bool {
	name := normalizeKey(m.Event)
	return name == "completedorder" || name == "ordercompleted"
}

// parseMoney coerces a revenue-like value to a float, tolerating a leading
// currency symbol on strings.
func parseMoney(v any) (float64, bool) {
	if n, ok := toNumber(v); ok {
		return n, true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
