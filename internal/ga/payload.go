package ga

import (
	"net/url"
	"strconv"
)

// Encoding selects how a batch is serialized on the wire.
type Encoding string

// Wire encodings.
const (
	// FormEncoding posts payloads as an application/x-www-form-urlencoded
	// body (universal measurement protocol).
	FormEncoding Encoding = "form"

	// QueryEncoding sends payloads as GET query strings (classic GIF
	// beacon protocol).
	QueryEncoding Encoding = "querystring"
)

// Collection endpoint paths.
const (
	CollectPath = "/collect"
	BeaconPath  = "/__utm.gif"
)

// Payload is one flat protocol hit: short protocol keys mapped to their
// already-stringified values. Keys never hold empty placeholders; a field
// that did not resolve is simply absent.
type Payload map[string]string

// set stores a string value verbatim.
func (p Payload) set(key, value string) {
	p[key] = value
}

// setInt stores an integer value.
func (p Payload) setInt(key string, value int64) {
	p[key] = strconv.FormatInt(value, 10)
}

// setNumber stores a float with minimal formatting (24 not 24.000000,
// 1.9 not 1.90).
func (p Payload) setNumber(key string, value float64) {
	p[key] = strconv.FormatFloat(value, 'f', -1, 64)
}

// setScalar stores any scalar value a producer may have supplied for a
// loosely-typed field. Unsupported types are dropped, never stringified via
// reflection, because the protocol only understands scalars.
func (p Payload) setScalar(key string, value any) {
	if s, ok := formatScalar(value); ok {
		p[key] = s
	}
}

// Values converts the payload into url.Values for wire encoding.
func (p Payload) Values() url.Values {
	values := make(url.Values, len(p))
	for k, v := range p {
		values.Set(k, v)
	}
	return values
}

// formatScalar stringifies a scalar the way the collection API expects:
// numbers without trailing zeros, booleans as the literals "true"/"false".
func formatScalar(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	}
	return "", false
}

// Batch is the ordered sequence of hits produced for one inbound message,
// tagged with the wire format and endpoint path the transport must use.
// Order is significant: the transport delivers hits in sequence and a
// failure aborts the remainder of the batch.
type Batch struct {
	// Encoding is the wire serialization for every hit in the batch.
	Encoding Encoding

	// Path is the collection endpoint path.
	Path string

	// Hits are the payloads in delivery order.
	Hits []Payload

	// UserAgent, when non-empty, is sent as the User-Agent header of every
	// hit request. Only the classic dialect sets it; the universal dialect
	// carries the user agent inside the payload itself.
	UserAgent string
}

// Empty reports whether the batch carries no hits (an unsupported method
// resolved as a silent no-op).
func (b *Batch) Empty() bool {
	return b == nil || len(b.Hits) == 0
}
