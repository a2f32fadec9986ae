package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func i18nProbe(t *testing.T, lookup CountryLookup, decorate func(*http.Request)) (locale, country string) {
	t.Helper()
	handler := I18N("en", lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale = LocaleFromContext(r.Context())
		country = CountryFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.RemoteAddr = "203.0.113.10:51234"
	if decorate != nil {
		decorate(req)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)
	return locale, country
}

func TestI18NLocaleDetection(t *testing.T) {
	tests := []struct {
		name       string
		decorate   func(*http.Request)
		wantLocale string
	}{
		{name: "no hints falls back", decorate: nil, wantLocale: "en"},
		{
			name:       "accept-language indonesian",
			decorate:   func(r *http.Request) { r.Header.Set("Accept-Language", "id-ID,id;q=0.9,en;q=0.5") },
			wantLocale: "id",
		},
		{
			name:       "accept-language english",
			decorate:   func(r *http.Request) { r.Header.Set("Accept-Language", "en-US,en;q=0.9") },
			wantLocale: "en",
		},
		{
			name: "x-locale beats accept-language",
			decorate: func(r *http.Request) {
				r.Header.Set("Accept-Language", "en-US")
				r.Header.Set("X-Locale", "id")
			},
			wantLocale: "id",
		},
		{
			name:       "unsupported locale maps to fallback",
			decorate:   func(r *http.Request) { r.Header.Set("X-Locale", "fr") },
			wantLocale: "en",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locale, _ := i18nProbe(t, nil, tt.decorate)
			if locale != tt.wantLocale {
				t.Fatalf("locale = %s, want %s", locale, tt.wantLocale)
			}
		})
	}
}

func TestI18NCountryFromHeaderHint(t *testing.T) {
	locale, country := i18nProbe(t, nil, func(r *http.Request) {
		r.Header.Set("CF-IPCountry", "id")
	})
	if country != "ID" {
		t.Fatalf("country = %s, want ID", country)
	}
	// Country alone steers the locale when no language hints exist.
	if locale != "id" {
		t.Fatalf("locale = %s, want id", locale)
	}
}

func TestI18NCountryFromGeoIP(t *testing.T) {
	lookup := func(ip string) (string, error) {
		if ip != "203.0.113.10" {
			return "", errors.New("unexpected ip " + ip)
		}
		return "sg", nil
	}
	_, country := i18nProbe(t, lookup, nil)
	if country != "SG" {
		t.Fatalf("country = %s, want SG", country)
	}
}

func TestI18NGeoIPFailureIsSilent(t *testing.T) {
	lookup := func(string) (string, error) { return "", errors.New("db unavailable") }
	locale, country := i18nProbe(t, lookup, nil)
	if country != "" {
		t.Fatalf("country = %s, want empty", country)
	}
	if locale != "en" {
		t.Fatalf("locale = %s, want en", locale)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:4321"
	if got := ClientIP(req); got != "198.51.100.7" {
		t.Fatalf("ClientIP = %s", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.99, 10.0.0.1")
	if got := ClientIP(req); got != "203.0.113.99" {
		t.Fatalf("ClientIP with X-Forwarded-For = %s", got)
	}
}
