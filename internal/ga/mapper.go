// Package ga translates normalized analytics messages into Google
// Analytics wire payloads. Two dialects are supported: the universal
// measurement protocol (form-encoded hits against /collect, optionally
// extended with enhanced e-commerce fields) and the legacy classic
// GIF-beacon protocol (querystring hits against /__utm.gif). Encoders are
// pure functions of the message, the destination settings, and an
// injected clock; a Mapper holds the settings and picks the right encoder
// per message type and event name.
package ga

import (
	"strings"
	"time"
	"unicode"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// Mapper maps messages for one configured destination instance. Safe for
// concurrent use.
type Mapper struct {
	settings Settings
	now      func() time.Time
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithClock overrides the wall clock used for queue-time and cookie
// timestamps. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) {
		m.now = now
	}
}

// New validates the settings and returns a Mapper for them.
func New(settings Settings, opts ...Option) (*Mapper, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	m := &Mapper{
		settings: settings,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Settings returns the destination settings the mapper was built with.
func (m *Mapper) Settings() Settings {
	return m.settings
}

// Map encodes one message into an ordered batch of wire payloads. Message
// types a dialect has no encoding for (identify, group, and alias
// everywhere; screen on classic) produce an empty batch, never an error:
// the destination simply has nothing to say about them.
func (m *Mapper) Map(msg *event.Message) (*Batch, error) {
	if m.settings.ServersideClassic {
		return m.mapClassic(msg), nil
	}
	return m.mapUniversal(msg), nil
}

func (m *Mapper) mapClassic(msg *event.Message) *Batch {
	batch := &Batch{
		Encoding:  QueryEncoding,
		Path:      BeaconPath,
		UserAgent: classicUserAgent(msg),
	}
	now := m.now()

	switch msg.Type {
	case event.TypeTrack:
		batch.Hits = []Payload{classicTrack(msg, m.settings, now)}
	case event.TypePage:
		batch.Hits = []Payload{classicPage(msg, m.settings, now)}
	}
	return batch
}

func (m *Mapper) mapUniversal(msg *event.Message) *Batch {
	batch := &Batch{
		Encoding: FormEncoding,
		Path:     CollectPath,
	}
	now := m.now()

	switch msg.Type {
	case event.TypePage:
		batch.Hits = []Payload{universalPage(msg, m.settings, now)}
	case event.TypeScreen:
		batch.Hits = []Payload{universalScreen(msg, m.settings, now)}
	case event.TypeTrack:
		batch.Hits = m.mapTrack(msg, now)
	}
	return batch
}

// mapTrack routes a track call by its normalized event name. Order
// completion always expands specially; the remaining named routes exist
// only when enhanced e-commerce is enabled, and everything else falls
// through to the generic event encoder.
func (m *Mapper) mapTrack(msg *event.Message, now time.Time) []Payload {
	name := normalizeEventName(msg.Event)

	if isOrderCompleted(name) {
		if m.settings.EnhancedEcommerce {
			return []Payload{orderCompletedEnhanced(msg, m.settings, now)}
		}
		return universalOrderCompleted(msg, m.settings, now)
	}

	if m.settings.EnhancedEcommerce {
		if encode, ok := enhancedRoutes[name]; ok {
			return []Payload{encode(msg, m.settings, now)}
		}
	}
	return []Payload{universalTrack(msg, m.settings, now)}
}

type encodeFunc func(*event.Message, Settings, time.Time) Payload

var enhancedRoutes = map[string]encodeFunc{
	"productviewed": func(msg *event.Message, s Settings, now time.Time) Payload {
		return productAction(msg, s, "detail", now)
	},
	"viewedproduct": func(msg *event.Message, s Settings, now time.Time) Payload {
		return productAction(msg, s, "detail", now)
	},
	"productclicked": func(msg *event.Message, s Settings, now time.Time) Payload {
		return productAction(msg, s, "click", now)
	},
	"clickedproduct": func(msg *event.Message, s Settings, now time.Time) Payload {
		return productAction(msg, s, "click", now)
	},
	"productadded": func(msg *event.Message, s Settings, now time.Time) Payload {
		return productAction(msg, s, "add", now)
	},
	"addedproduct": func(msg *event.Message, s Settings, now time.Time) Payload {
		return productAction(msg, s, "add", now)
	},
	"productremoved": func(msg *event.Message, s Settings, now time.Time) Payload {
		return productAction(msg, s, "remove", now)
	},
	"removedproduct": func(msg *event.Message, s Settings, now time.Time) Payload {
		return productAction(msg, s, "remove", now)
	},

	"checkoutstarted":       checkoutStep,
	"startedcheckout":       checkoutStep,
	"orderupdated":          checkoutStep,
	"updatedorder":          checkoutStep,
	"checkoutstepviewed":    checkoutStep,
	"viewedcheckoutstep":    checkoutStep,
	"checkoutstepcompleted": checkoutStepCompleted,
	"completedcheckoutstep": checkoutStepCompleted,

	"orderrefunded": orderRefunded,
	"refundedorder": orderRefunded,

	"promotionviewed":  promotionViewed,
	"viewedpromotion":  promotionViewed,
	"promotionclicked": promotionClicked,
	"clickedpromotion": promotionClicked,

	"productlistviewed":   productListViewed,
	"viewedproductlist":   productListViewed,
	"productlistfiltered": productListFiltered,
	"filteredproductlist": productListFiltered,

	"installattributed":        mobileCampaignEvent,
	"pushnotificationreceived": mobileCampaignEvent,
	"pushnotificationtapped":   mobileCampaignEvent,
	"pushnotificationbounced":  mobileCampaignEvent,
}

func isOrderCompleted(normalized string) bool {
	return normalized == "ordercompleted" || normalized == "completedorder"
}

// normalizeEventName lowercases an event name and strips everything but
// letters and digits, so "Product List Viewed", "product_list_viewed",
// and "Product List viewed" all route identically.
func normalizeEventName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
