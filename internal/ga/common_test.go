package ga

import (
	"testing"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

var testNow = time.Date(2023, time.November, 14, 22, 13, 20, 0, time.UTC)

func testSettings() Settings {
	return Settings{ServersideTrackingID: "UA-12345-1"}
}

func TestCommonFields_Identity(t *testing.T) {
	msg := &event.Message{
		Type:   event.TypeTrack,
		UserID: "user-1234",
		Event:  "Signed Up",
	}

	form := commonFields(msg, testSettings(), false, testNow)

	if form["cid"] != "3726422781" {
		t.Errorf("cid = %q, want hash of the user id", form["cid"])
	}
	if form["tid"] != "UA-12345-1" {
		t.Errorf("tid = %q, want %q", form["tid"], "UA-12345-1")
	}
	if form["v"] != "1" {
		t.Errorf("v = %q, want %q", form["v"], "1")
	}
}

func TestCommonFields_AnonymousFallback(t *testing.T) {
	msg := &event.Message{Type: event.TypeTrack, AnonymousID: "anon-42"}

	form := commonFields(msg, testSettings(), false, testNow)
	if form["cid"] != "1395628032" {
		t.Errorf("cid = %q, want hash of the anonymous id", form["cid"])
	}
}

func TestCommonFields_ExplicitClientID(t *testing.T) {
	msg := &event.Message{
		Type:   event.TypeTrack,
		UserID: "user-1234",
		Integrations: map[string]map[string]any{
			"Google Analytics": {"clientId": "555.666"},
		},
	}

	form := commonFields(msg, testSettings(), false, testNow)
	if form["cid"] != "555.666" {
		t.Errorf("cid = %q, want the explicit client id", form["cid"])
	}
}

func TestTrackingID_MobileFallback(t *testing.T) {
	tests := []struct {
		name     string
		library  string
		settings Settings
		want     string
	}{
		{
			name:     "server library",
			library:  "analytics-go",
			settings: Settings{ServersideTrackingID: "UA-web", MobileTrackingID: "UA-mobile"},
			want:     "UA-web",
		},
		{
			name:     "ios library",
			library:  "analytics-ios",
			settings: Settings{ServersideTrackingID: "UA-web", MobileTrackingID: "UA-mobile"},
			want:     "UA-mobile",
		},
		{
			name:     "xamarin case insensitive",
			library:  "Analytics.Xamarin",
			settings: Settings{ServersideTrackingID: "UA-web", MobileTrackingID: "UA-mobile"},
			want:     "UA-mobile",
		},
		{
			name:     "xamarin without mobile id",
			library:  "analytics.xamarin",
			settings: Settings{ServersideTrackingID: "UA-web"},
			want:     "UA-web",
		},
		{
			name:     "android",
			library:  "analytics-android",
			settings: Settings{ServersideTrackingID: "UA-web", MobileTrackingID: "UA-mobile"},
			want:     "UA-mobile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &event.Message{Type: event.TypeTrack}
			msg.Context.Library.Name = tt.library
			if got := trackingID(msg, tt.settings); got != tt.want {
				t.Errorf("trackingID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestQueueTime(t *testing.T) {
	tests := []struct {
		name      string
		timestamp time.Time
		want      int64
	}{
		{name: "recent event", timestamp: testNow.Add(-1500 * time.Millisecond), want: 1500},
		{name: "future timestamp clamps to zero", timestamp: testNow.Add(time.Minute), want: 0},
		{name: "stale event clamps to the maximum", timestamp: testNow.Add(-5 * time.Hour), want: 14340000},
		{name: "exactly at the cap", timestamp: testNow.Add(-14340000 * time.Millisecond), want: 14340000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queueTime(tt.timestamp, testNow); got != tt.want {
				t.Errorf("queueTime() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommonFields_OmitsAbsentContext(t *testing.T) {
	msg := &event.Message{Type: event.TypeTrack, UserID: "user-1234"}

	form := commonFields(msg, testSettings(), false, testNow)
	for _, key := range []string{"cn", "cs", "cm", "ck", "cc", "sr", "ul", "an", "av", "aid", "aiid", "uid", "uip", "qt", "ua", "cd"} {
		if v, ok := form[key]; ok {
			t.Errorf("%s = %q, want it absent for a bare message", key, v)
		}
	}
}

func TestCommonFields_Context(t *testing.T) {
	msg := &event.Message{
		Type:      event.TypeTrack,
		UserID:    "user-1234",
		Timestamp: testNow.Add(-2 * time.Second),
	}
	msg.Context.Campaign = event.Campaign{Name: "fall", Source: "email", Medium: "cpc", Keyword: "shoes", Content: "ad-1"}
	msg.Context.Screen = event.Screen{Width: 320, Height: 568, Name: "Home"}
	msg.Context.App = event.App{Name: "Shop", Version: "2.1", AppID: "com.shop", AppInstallerID: "play"}
	msg.Context.Locale = "en-US"
	msg.Context.IP = "203.0.113.7"
	msg.Context.UserAgent = "Mozilla/5.0"

	settings := testSettings()
	settings.SendUserID = true

	form := commonFields(msg, settings, false, testNow)

	want := map[string]string{
		"cn":   "fall",
		"cs":   "email",
		"cm":   "cpc",
		"ck":   "shoes",
		"cc":   "ad-1",
		"cd":   "Home",
		"sr":   "320x568",
		"ul":   "en-US",
		"an":   "Shop",
		"av":   "2.1",
		"aid":  "com.shop",
		"aiid": "play",
		"uid":  "user-1234",
		"uip":  "203.0.113.7",
		"ua":   "Mozilla/5.0",
		"qt":   "2000",
	}
	for key, value := range want {
		if form[key] != value {
			t.Errorf("%s = %q, want %q", key, form[key], value)
		}
	}
}

func TestCommonFields_PropertyBeatsTraitOnCustomSlots(t *testing.T) {
	settings := testSettings()
	settings.Dimensions = map[string]string{"plan": "dimension1"}

	msg := &event.Message{
		Type:       event.TypeTrack,
		UserID:     "user-1234",
		Traits:     map[string]any{"plan": "free"},
		Properties: map[string]any{"plan": "paid"},
	}

	form := commonFields(msg, settings, false, testNow)
	if form["cd1"] != "paid" {
		t.Errorf("cd1 = %q, want the property value", form["cd1"])
	}
}

func TestUserAgent_Synthesis(t *testing.T) {
	msg := &event.Message{Type: event.TypeTrack}
	msg.Context.OS = event.OS{Name: "iPhone OS", Version: "8.1.3"}
	msg.Context.Device = event.Device{Model: "iPhone7,2", Manufacturer: "Apple"}
	msg.Context.Locale = "en-US"

	want := "Mozilla/5.0 (iPhone; CPU iPhone OS 8_1_3 like Mac OS X) AppleWebKit/600.1.4 (KHTML, like Gecko) Version/8.0 Mobile/10B329 Safari/8536.25"
	if got := userAgent(msg); got != want {
		t.Errorf("userAgent() = %q, want %q", got, want)
	}
}

func TestUserAgent_PrefersSupplied(t *testing.T) {
	msg := &event.Message{Type: event.TypeTrack}
	msg.Context.UserAgent = "curl/8.0"
	msg.Context.OS = event.OS{Name: "iPhone OS", Version: "8.1.3"}
	msg.Context.Device = event.Device{Model: "iPhone7,2", Manufacturer: "Apple"}
	msg.Context.Locale = "en-US"

	if got := userAgent(msg); got != "curl/8.0" {
		t.Errorf("userAgent() = %q, want the supplied agent", got)
	}
}

func TestUserAgent_IncompleteDeviceContext(t *testing.T) {
	msg := &event.Message{Type: event.TypeTrack}
	msg.Context.OS = event.OS{Name: "iPhone OS", Version: "8.1.3"}
	msg.Context.Device = event.Device{Model: "iPhone7,2"}

	if got := userAgent(msg); got != "" {
		t.Errorf("userAgent() = %q, want empty without full device context", got)
	}
}

func TestSyntheticUserAgent_ShortModel(t *testing.T) {
	got := syntheticUserAgent("X1", "Android", "4.4")
	want := "Mozilla/5.0 (; CPU Android 4_4 like Mac OS X) AppleWebKit/600.1.4 (KHTML, like Gecko) Version/4.0 Mobile/10B329 Safari/8536.25"
	if got != want {
		t.Errorf("syntheticUserAgent() = %q, want %q", got, want)
	}
}
