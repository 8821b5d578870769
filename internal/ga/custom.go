package ga

import (
	"sort"
	"strings"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// customKind discriminates the two kinds of configurable slots.
type customKind int

const (
	customMetric customKind = iota
	customDimension
)

// customKey is a parsed custom metric/dimension target.
type customKey struct {
	kind  customKind
	index string
}

// shortKey renders the protocol short form: cm<N> for metrics, cd<N> for
// dimensions.
func (k customKey) shortKey() string {
	if k.kind == customMetric {
		return "cm" + k.index
	}
	return "cd" + k.index
}

// parseCustomKey parses a settings-declared target of the literal form
// metric<N> or dimension<N> (N = decimal digits, nothing else). Any other
// string is rejected; malformed configuration entries are tolerated and
// simply produce no output key.
func parseCustomKey(target string) (customKey, bool) {
	if index, ok := strings.CutPrefix(target, "metric"); ok && isDigits(index) {
		return customKey{kind: customMetric, index: index}, true
	}
	if index, ok := strings.CutPrefix(target, "dimension"); ok && isDigits(index) {
		return customKey{kind: customDimension, index: index}, true
	}
	return customKey{}, false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func sortedKeys(table map[string]string) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// customFields maps configured properties or traits onto their custom
// dimension/metric slots. Names declared in both tables resolve as metrics;
// absent or null values emit nothing.
func customFields(values map[string]any, settings Settings) Payload {
	if len(settings.Metrics) == 0 && len(settings.Dimensions) == 0 {
		return nil
	}

	fields := Payload{}
	resolve := func(name, target string) {
		key, ok := parseCustomKey(target)
		if !ok {
			return
		}

		v, found := event.Lookup(values, name)
		if !found {
			// Producers occasionally use literal dotted keys; honor an
			// exact match before giving up.
			if direct, exists := values[name]; exists && direct != nil {
				v = direct
				found = true
			}
		}
		if !found {
			return
		}
		fields.setScalar(key.shortKey(), v)
	}

	// Two names can be declared with the same target slot; resolving in
	// sorted order keeps the winner stable across calls.
	for _, name := range sortedKeys(settings.Metrics) {
		resolve(name, settings.Metrics[name])
	}
	for _, name := range sortedKeys(settings.Dimensions) {
		if _, shadowed := settings.Metrics[name]; shadowed {
			continue
		}
		resolve(name, settings.Dimensions[name])
	}
	return fields
}
