package uaparse_test

import (
	"testing"

	"github.com/harbourlane/foyer/pkg/uaparse"
	"github.com/stretchr/testify/require"
)

func TestParseBrowserPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ua      string
		browser string
	}{
		{
			name:    "edge wins over embedded chrome and safari tokens",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			browser: "Edge",
		},
		{
			name:    "opera wins over embedded chrome token",
			ua:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 OPR/105.0.0.0",
			browser: "Opera",
		},
		{
			name:    "chrome wins over embedded safari token",
			ua:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			browser: "Chrome",
		},
		{
			name:    "plain safari",
			ua:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			browser: "Safari",
		},
		{
			name:    "firefox",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			browser: "Firefox",
		},
		{
			name:    "samsung browser wins over chrome",
			ua:      "Mozilla/5.0 (Linux; Android 13; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/23.0 Chrome/115.0.0.0 Mobile Safari/537.36",
			browser: "Samsung Browser",
		},
		{
			name:    "internet explorer",
			ua:      "Mozilla/5.0 (Windows NT 6.1; Trident/7.0; rv:11.0) like Gecko",
			browser: "Internet Explorer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.browser, uaparse.Parse(tt.ua).Browser)
		})
	}
}

func TestParseDevicePrecedence(t *testing.T) {
	t.Parallel()

	// iPad descriptors also satisfy generic mobile heuristics; tablet
	// patterns must be checked first.
	ipad := uaparse.Parse("Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148")
	require.Equal(t, "Tablet", ipad.Device)

	phone := uaparse.Parse("Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36")
	require.Equal(t, "Mobile", phone.Device)

	desktop := uaparse.Parse("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	require.Equal(t, "Desktop", desktop.Device)
}

func TestParseOS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ua string
		os string
	}{
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "Windows 10/11"},
		{"Mozilla/5.0 (Windows NT 6.1; WOW64)", "Windows 7"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)", "macOS Catalina"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2)", "macOS Sonoma"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X)", "iOS 17.1"},
		{"Mozilla/5.0 (Linux; Android 14; Pixel 8)", "Android 14"},
		{"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:121.0)", "Ubuntu"},
		{"Mozilla/5.0 (X11; CrOS x86_64 14541.0.0)", "Chrome OS"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.os, uaparse.Parse(tt.ua).OS, "ua: %s", tt.ua)
	}
}

func TestParseEmptyInput(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   "} {
		info := uaparse.Parse(raw)
		require.Equal(t, uaparse.Info{Device: "Unknown", Browser: "Unknown", OS: "Unknown"}, info)
	}

	garbage := uaparse.Parse("curl/8.4.0")
	require.Equal(t, "Desktop", garbage.Device)
	require.Equal(t, "Unknown", garbage.Browser)
	require.Equal(t, "Unknown", garbage.OS)
}

func TestMaskAddress(t *testing.T) {
	t.Parallel()

	require.Equal(t, "192.xxx.xxx.xxx", uaparse.MaskAddress("192.168.1.50"))
	require.Equal(t, "2001:xxxx:xxxx:xxxx:xxxx:xxxx:xxxx:xxxx", uaparse.MaskAddress("2001:db8:85a3:0:0:8a2e:370:7334"))
	require.Equal(t, "Unknown", uaparse.MaskAddress(""))
	require.Equal(t, "Unknown", uaparse.MaskAddress("Unknown"))
	require.Equal(t, "xxx", uaparse.MaskAddress("localhost"))
}
