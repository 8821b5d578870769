package ga

import (
	"testing"
	"time"

	"github.com/segment-boneyard/integration-google-analytics/internal/event"
)

var classicNow = time.Unix(1700000000, 0)

func classicSettings() Settings {
	return Settings{
		ServersideTrackingID: "UA-12345-1",
		ServersideClassic:    true,
		Domain:               "example.com",
	}
}

func TestClassicTrack(t *testing.T) {
	msg := &event.Message{
		Type:   event.TypeTrack,
		UserID: "user-1234",
		Event:  "Purchased",
		Properties: map[string]any{
			"category": "Entertainment",
			"revenue":  "$24.75",
		},
	}

	form := classicTrack(msg, classicSettings(), classicNow)

	want := map[string]string{
		"utmhn": "example.com",
		"utmac": "UA-12345-1",
		"utmwv": "5.4.3",
		"utmn":  "1700000000",
		"utmcs": "-",
		"utmr":  "-",
		"utmt":  "event",
		"utmni": "1",
		"utme":  "5(Entertainment*Purchased*event)(25)",
	}
	for key, value := range want {
		if form[key] != value {
			t.Errorf("%s = %q, want %q", key, form[key], value)
		}
	}
}

func TestFormatClassicEvent(t *testing.T) {
	tests := []struct {
		name       string
		event      string
		properties map[string]any
		want       string
	}{
		{
			name:       "defaults",
			event:      "Played Song",
			properties: nil,
			want:       "5(All*Played Song*event)",
		},
		{
			name:  "category and label",
			event: "Played Song",
			properties: map[string]any{
				"category": "Music",
				"label":    "Bohemian Rhapsody",
			},
			want: "5(Music*Played Song*Bohemian Rhapsody)",
		},
		{
			name:       "value suffix",
			event:      "Donated",
			properties: map[string]any{"value": 24.6},
			want:       "5(All*Donated*event)(25)",
		},
		{
			name:       "zero value falls through to revenue",
			event:      "Donated",
			properties: map[string]any{"value": float64(0), "revenue": 8.2},
			want:       "5(All*Donated*event)(8)",
		},
		{
			name:       "zero value without revenue has no suffix",
			event:      "Donated",
			properties: map[string]any{"value": float64(0)},
			want:       "5(All*Donated*event)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &event.Message{Type: event.TypeTrack, Event: tt.event, Properties: tt.properties}
			if got := formatClassicEvent(msg); got != tt.want {
				t.Errorf("formatClassicEvent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassicPage(t *testing.T) {
	msg := &event.Message{
		Type:   event.TypePage,
		UserID: "user-1234",
		Properties: map[string]any{
			"title": "Welcome",
			"path":  "/welcome",
		},
	}

	form := classicPage(msg, classicSettings(), classicNow)
	if form["utmdt"] != "Welcome" {
		t.Errorf("utmdt = %q, want %q", form["utmdt"], "Welcome")
	}
	if form["utmp"] != "/welcome" {
		t.Errorf("utmp = %q, want %q", form["utmp"], "/welcome")
	}
}

func TestClassicPage_Defaults(t *testing.T) {
	msg := &event.Message{Type: event.TypePage, UserID: "user-1234"}

	form := classicPage(msg, classicSettings(), classicNow)
	if got, ok := form["utmdt"]; !ok || got != "" {
		t.Errorf("utmdt = %q (present=%v), want an explicit empty title", got, ok)
	}
	if form["utmp"] != "/" {
		t.Errorf("utmp = %q, want %q", form["utmp"], "/")
	}
}

func TestClassicCookie_Synthesized(t *testing.T) {
	msg := &event.Message{Type: event.TypeTrack, UserID: "user-1234"}

	want := "__utma=1.3726422781.1700000000.1700000000.1700000000.1; " +
		"__utmz=1.1700000000.1.1.utmcsr=(none)|utmccn=(none)|utmcmd=(none)|utmcr=(none);"
	if got := classicCookie(msg, classicNow); got != want {
		t.Errorf("classicCookie() = %q, want %q", got, want)
	}
}

func TestClassicCookie_SuppliedByProducer(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]any
		want    string
	}{
		{
			name:    "cookie key",
			options: map[string]any{"cookie": "__utma=real"},
			want:    "__utma=real",
		},
		{
			name:    "legacy utmcc key",
			options: map[string]any{"utmcc": "__utma=legacy"},
			want:    "__utma=legacy",
		},
		{
			name:    "cookie wins over utmcc",
			options: map[string]any{"cookie": "__utma=real", "utmcc": "__utma=legacy"},
			want:    "__utma=real",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &event.Message{
				Type:   event.TypeTrack,
				UserID: "user-1234",
				Integrations: map[string]map[string]any{
					"Google Analytics": tt.options,
				},
			}
			if got := classicCookie(msg, classicNow); got != tt.want {
				t.Errorf("classicCookie() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassicUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{name: "absent", ua: "", want: "not set"},
		{name: "plain ascii", ua: "Mozilla/5.0 (Macintosh)", want: "Mozilla/5.0 (Macintosh)"},
		{name: "non ascii scrubbed", ua: "Mözilla", want: "M?zilla"},
		{name: "all non ascii", ua: "日本語", want: "???"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &event.Message{Type: event.TypeTrack}
			msg.Context.UserAgent = tt.ua
			if got := classicUserAgent(msg); got != tt.want {
				t.Errorf("classicUserAgent(%q) = %q, want %q", tt.ua, got, tt.want)
			}
		})
	}
}
