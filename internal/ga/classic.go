package ga

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// classicVersion is the GA tracker version reported on GIF-beacon hits.
const classicVersion = "5.4.3"

// classicCampaign is the traffic-sources segment of a synthesized __utmz
// cookie. Server-side hits have no organic attribution to report.
const classicCampaign = "utmcsr=(none)|utmccn=(none)|utmcmd=(none)|utmcr=(none)"

// classicBase builds the querystring fields shared by every classic hit:
// domain, tracking id, tracker version, cookie, cache buster, and the
// placeholder language/referrer slots.
func classicBase(msg *event.Message, settings Settings, now time.Time) Payload {
	form := Payload{}
	form.set("utmhn", settings.Domain)
	form.set("utmac", settings.ServersideTrackingID)
	form.set("utmwv", classicVersion)
	form.set("utmcc", classicCookie(msg, now))
	form.set("utmn", strconv.FormatInt(now.Unix(), 10))
	form.set("utmcs", "-")
	form.set("utmr", "-")
	return form
}

// classicTrack encodes an event hit on the GIF-beacon protocol.
func classicTrack(msg *event.Message, settings Settings, now time.Time) Payload {
	form := classicBase(msg, settings, now)
	form.set("utmt", "event")
	form.set("utme", formatClassicEvent(msg))
	form.set("utmni", "1")
	return form
}

// classicPage encodes a page view hit. Title and path deliberately default
// to "" and "/" instead of being omitted; the beacon endpoint rejects hits
// without them.
func classicPage(msg *event.Message, settings Settings, now time.Time) Payload {
	form := classicBase(msg, settings, now)

	title, _ := msg.PropertyString("title")
	form.set("utmdt", title)

	path, ok := msg.PropertyString("path")
	if !ok || path == "" {
		path = "/"
	}
	form.set("utmp", path)
	return form
}

// formatClassicEvent packs category, event name, and label into the
// positional utme string 5(<category>*<event>*<label>), suffixed with the
// rounded value when the event carries one.
func formatClassicEvent(msg *event.Message) string {
	formatted := fmt.Sprintf("5(%s*%s*%s)",
		categoryOrDefault(msg), msg.Event, labelOrDefault(msg))

	if value, ok := classicEventValue(msg); ok {
		formatted += "(" + strconv.FormatInt(value, 10) + ")"
	}
	return formatted
}

// classicEventValue resolves the numeric event value (value before revenue)
// for the utme suffix. Unlike the universal ev field there is no zero
// default; valueless events carry no suffix.
func classicEventValue(msg *event.Message) (int64, bool) {
	if v, ok := msg.Value(); ok && v != 0 {
		return roundHalfUp(v), true
	}
	if r, ok := msg.Revenue(); ok {
		return roundHalfUp(r), true
	}
	return 0, false
}

// classicCookie returns the utmcc cookie string. Callers that captured a
// real browser cookie may pass it through the destination options (the
// cookie key, or utmcc for older producers; cookie wins when both are
// present); otherwise a synthetic one is built.
func classicCookie(msg *event.Message, now time.Time) string {
	if opts := msg.Options(destinationName); opts != nil {
		if cookie, ok := opts["cookie"].(string); ok {
			return cookie
		}
		if cookie, ok := opts["utmcc"].(string); ok {
			return cookie
		}
	}
	return buildClassicCookie(msg, now)
}

// buildClassicCookie synthesizes the two-cookie identity string the beacon
// endpoint expects. The __utma visitor cookie carries a constant domain
// hash of 1, the hashed user (or anonymous) id, the current timestamp in
// the first/previous/current-visit slots, and a session count of 1; the
// __utmz cookie carries matching placeholders for traffic sources.
func buildClassicCookie(msg *event.Message, now time.Time) string {
	id := msg.UserID
	if id == "" {
		id = msg.AnonymousID
	}
	visitorID := strconv.FormatUint(uint64(stringHash(id)), 10)
	ts := strconv.FormatInt(now.Unix(), 10)

	utma := strings.Join([]string{"1", visitorID, ts, ts, ts, "1"}, ".")
	utmz := strings.Join([]string{"1", ts, "1", "1", classicCampaign}, ".")

	return fmt.Sprintf("__utma=%s; __utmz=%s;", utma, utmz)
}

// classicUserAgent scrubs the message user agent down to printable ASCII
// for the beacon request header, substituting "not set" when absent.
func classicUserAgent(msg *event.Message) string {
	ua := msg.Context.UserAgent
	if ua == "" {
		return "not set"
	}

	var b strings.Builder
	b.Grow(len(ua))
	for _, r := range ua {
		if r <= 0x7F {
			b.WriteByte(byte(r))
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
