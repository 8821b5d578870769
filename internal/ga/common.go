package ga

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

// destinationName is the integrations key producers use to pass
// destination-specific options (explicit client id, classic cookie).
const destinationName = "Google Analytics"

// maxQueueTimeMS caps the qt field at 3h59m; the collection API discards
// hits that report a longer delivery delay.
const maxQueueTimeMS = 14_340_000

// mobileLibraries are the SDK name fragments that route hits to the mobile
// tracking id.
var mobileLibraries = []string{"ios", "android", "analytics.xamarin"}

// commonFields builds the envelope shared by every universal hit: identity,
// tracking id, protocol version, campaign, screen, locale, app info, user
// agent, queue time, and the configured custom dimensions/metrics.
//
// mobileEvent is set by the mobile campaign encoders, which read campaign
// attribution from properties.campaign instead of context.campaign.
func commonFields(msg *event.Message, settings Settings, mobileEvent bool, now time.Time) Payload {
	form := Payload{}

	// Custom slots resolve traits first, then properties; a property wins
	// on collision.
	for key, value := range customFields(msg.Traits, settings) {
		form.set(key, value)
	}
	for key, value := range customFields(msg.Properties, settings) {
		form.set(key, value)
	}

	form.set("cid", clientID(msg))
	form.set("tid", trackingID(msg, settings))
	form.set("v", "1")

	name, source, medium, keyword, content := campaignFields(msg, mobileEvent)
	if name != "" {
		form.set("cn", name)
	}
	if source != "" {
		form.set("cs", source)
	}
	if medium != "" {
		form.set("cm", medium)
	}
	if keyword != "" {
		form.set("ck", keyword)
	}
	if content != "" {
		form.set("cc", content)
	}

	screen := msg.Context.Screen
	if screen.Name != "" {
		form.set("cd", screen.Name)
	}
	if screen.Width != 0 && screen.Height != 0 {
		form.set("sr", fmt.Sprintf("%dx%d", screen.Width, screen.Height))
	}

	if msg.Context.Locale != "" {
		form.set("ul", msg.Context.Locale)
	}

	app := msg.Context.App
	if app.Name != "" {
		form.set("an", app.Name)
	}
	if app.Version != "" {
		form.set("av", app.Version)
	}
	if app.AppID != "" {
		form.set("aid", app.AppID)
	}
	if app.AppInstallerID != "" {
		form.set("aiid", app.AppInstallerID)
	}

	if settings.SendUserID && msg.UserID != "" {
		form.set("uid", msg.UserID)
	}
	if msg.Context.IP != "" {
		form.set("uip", msg.Context.IP)
	}

	if !msg.Timestamp.IsZero() {
		form.setInt("qt", queueTime(msg.Timestamp, now))
	}

	if ua := userAgent(msg); ua != "" {
		form.set("ua", ua)
	}

	return form
}

// clientID derives the cid field: a hash of the user id (falling back to the
// anonymous id), unless the producer passed an explicit clientId in the
// destination options.
func clientID(msg *event.Message) string {
	if opts := msg.Options(destinationName); opts != nil {
		if explicit, ok := opts["clientId"].(string); ok {
			return explicit
		}
	}

	id := msg.UserID
	if id == "" {
		id = msg.AnonymousID
	}
	return strconv.FormatUint(uint64(stringHash(id)), 10)
}

// trackingID selects the destination property id. Hits produced by a mobile
// SDK go to the mobile tracking id when one is configured, falling back to
// the server-side id.
func trackingID(msg *event.Message, settings Settings) string {
	if isMobileLibrary(msg.Context.Library.Name) && settings.MobileTrackingID != "" {
		return settings.MobileTrackingID
	}
	return settings.ServersideTrackingID
}

// ResolveTrackingID reports the property id hits for the given message are
// attributed to. Exposed for callers that tag delivered hits, it follows
// the same mobile fallback the encoders use.
func ResolveTrackingID(msg *event.Message, settings Settings) string {
	return trackingID(msg, settings)
}

// isMobileLibrary matches the producing SDK name against the known mobile
// libraries, case-insensitively and by substring.
func isMobileLibrary(library string) bool {
	if library == "" {
		return false
	}
	name := strings.ToLower(library)
	for _, fragment := range mobileLibraries {
		if strings.Contains(name, fragment) {
			return true
		}
	}
	return false
}

// campaignFields reads campaign attribution from the context tree, or from
// properties.campaign for mobile campaign events.
func campaignFields(msg *event.Message, mobileEvent bool) (name, source, medium, keyword, content string) {
	if !mobileEvent {
		c := msg.Context.Campaign
		return c.Name, c.Source, c.Medium, c.Keyword, c.Content
	}

	name, _ = msg.PropertyString("campaign.name")
	source, _ = msg.PropertyString("campaign.source")
	medium, _ = msg.PropertyString("campaign.medium")
	keyword, _ = msg.PropertyString("campaign.keyword")
	content, _ = msg.PropertyString("campaign.content")
	return name, source, medium, keyword, content
}

// queueTime computes the qt field: the delivery delay between event
// occurrence and hit transmission in milliseconds, clamped to
// [0, maxQueueTimeMS]. Future timestamps clamp to zero.
func queueTime(timestamp, now time.Time) int64 {
	qt := now.UnixMilli() - timestamp.UnixMilli()
	if qt > maxQueueTimeMS {
		return maxQueueTimeMS
	}
	if qt < 0 {
		return 0
	}
	return qt
}

// userAgent returns the message's own user agent, or a synthesized mobile
// one when the context carries enough device detail. The collection API
// parses the user agent to classify device type, so mobile hits without one
// would all land in the desktop bucket.
func userAgent(msg *event.Message) string {
	if msg.Context.UserAgent != "" {
		return msg.Context.UserAgent
	}

	osName := msg.Context.OS.Name
	osVersion := msg.Context.OS.Version
	model := msg.Context.Device.Model
	manufacturer := msg.Context.Device.Manufacturer
	locale := msg.Context.Locale
	if osName == "" || osVersion == "" || model == "" || manufacturer == "" || locale == "" {
		return ""
	}
	return syntheticUserAgent(model, osName, osVersion)
}

// syntheticUserAgent builds the fallback mobile user agent. The WebKit build
// and Mobile/10B329 token are frozen historical values; changing them would
// change how the vendor classifies existing properties' traffic, so they are
// preserved verbatim.
func syntheticUserAgent(model, osName, osVersion string) string {
	trimmed := ""
	if len(model) > 3 {
		trimmed = model[:len(model)-3]
	}
	return "Mozilla/5.0 (" + trimmed +
		"; CPU " + osName + " " + strings.ReplaceAll(osVersion, ".", "_") +
		" like Mac OS X) AppleWebKit/600.1.4 (KHTML, like Gecko) Version/" +
		osVersion[:1] + ".0 Mobile/10B329 Safari/8536.25"
}
