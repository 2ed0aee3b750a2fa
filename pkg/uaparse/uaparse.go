// Package uaparse classifies raw device descriptor (user-agent) strings into
// coarse device, browser and OS buckets for display in the sessions manager.
// It is intentionally a fixed substring-precedence table rather than a full
// user-agent database: the buckets are the product requirement, and precedence
// order is what keeps overlapping tokens honest (every Chromium UA contains
// "Safari", every Edge UA contains "Chrome").
package uaparse

import (
	"regexp"
	"strings"
)

// Info is the parsed classification of a device descriptor.
type Info struct {
	Device  string `json:"device"`
	Browser string `json:"browser"`
	OS      string `json:"os"`
}

const unknown = "Unknown"

var (
	reMacVersion     = regexp.MustCompile(`(?i)mac os x (\d+)[._](\d+)`)
	reIOSVersion     = regexp.MustCompile(`(?i)(?:iphone )?os (\d+)[._](\d+)`)
	reAndroidVersion = regexp.MustCompile(`(?i)android[/\s](\d+(?:\.\d+)?)`)
	reWinNT          = regexp.MustCompile(`(?i)windows nt (\d+\.\d+)`)
	reLegacyEdge     = regexp.MustCompile(`(?i)edge/[0-9]`)
)

// Parse classifies a raw descriptor. Absent or unrecognized input yields
// "Unknown" per field, never an error.
func Parse(raw string) Info {
	if strings.TrimSpace(raw) == "" {
		return Info{Device: unknown, Browser: unknown, OS: unknown}
	}

	ua := strings.ToLower(raw)

	return Info{
		Device:  parseDevice(ua),
		Browser: parseBrowser(ua),
		OS:      parseOS(ua, raw),
	}
}

// parseDevice checks tablet tokens before mobile ones: tablet UAs routinely
// match the generic mobile heuristics too.
func parseDevice(ua string) string {
	if containsAny(ua, "tablet", "ipad", "playbook", "silk") {
		return "Tablet"
	}
	if containsAny(ua, "iphone", "ipod", "blackberry", "iemobile", "opera mini") ||
		strings.Contains(ua, "mobile") {
		return "Mobile"
	}
	return "Desktop"
}

// parseBrowser resolves overlapping tokens by strict precedence, most
// specific first.
func parseBrowser(ua string) string {
	switch {
	case containsAny(ua, "edg/", "edge/", "edga/", "edgios/"):
		return "Edge"
	case containsAny(ua, "opr/", "opera"):
		return "Opera"
	case strings.Contains(ua, "samsungbrowser/"):
		return "Samsung Browser"
	case containsAny(ua, "ucbrowser", "ucweb"):
		return "UC Browser"
	case containsAny(ua, "chrome", "chromium", "crios"):
		return "Chrome"
	case strings.Contains(ua, "safari"):
		return "Safari"
	case containsAny(ua, "firefox", "fxios"):
		return "Firefox"
	case containsAny(ua, "trident", "msie") || reLegacyEdge.MatchString(ua):
		return "Internet Explorer"
	}
	return unknown
}

func parseOS(ua, raw string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return windowsName(ua)
	// iOS before macOS: iPhone/iPad UAs carry a trailing "like Mac OS X".
	case containsAny(ua, "iphone", "ipad", "ipod"):
		if m := reIOSVersion.FindStringSubmatch(raw); m != nil {
			return "iOS " + m[1] + "." + m[2]
		}
		return "iOS"
	case containsAny(ua, "macintosh", "mac os x"):
		return macName(raw)
	case strings.Contains(ua, "android"):
		if m := reAndroidVersion.FindStringSubmatch(raw); m != nil {
			return "Android " + m[1]
		}
		return "Android"
	case strings.Contains(ua, "cros"):
		return "Chrome OS"
	case strings.Contains(ua, "linux"):
		return linuxName(ua)
	}
	return unknown
}

func windowsName(ua string) string {
	m := reWinNT.FindStringSubmatch(ua)
	if m == nil {
		return "Windows"
	}
	switch m[1] {
	case "10.0":
		return "Windows 10/11"
	case "6.3":
		return "Windows 8.1"
	case "6.2":
		return "Windows 8"
	case "6.1":
		return "Windows 7"
	}
	return "Windows"
}

// macName maps Darwin version tokens to marketing names where known.
func macName(raw string) string {
	m := reMacVersion.FindStringSubmatch(raw)
	if m == nil {
		return "macOS"
	}

	major, minor := m[1], m[2]
	if major == "10" {
		switch minor {
		case "15":
			return "macOS Catalina"
		case "16":
			return "macOS Big Sur"
		}
		return "macOS 10." + minor
	}

	names := map[string]string{
		"11": "Big Sur",
		"12": "Monterey",
		"13": "Ventura",
		"14": "Sonoma",
		"15": "Sequoia",
	}
	if name, ok := names[major]; ok {
		return "macOS " + name
	}
	return "macOS " + major
}

func linuxName(ua string) string {
	switch {
	case strings.Contains(ua, "ubuntu"):
		return "Ubuntu"
	case strings.Contains(ua, "debian"):
		return "Debian"
	case strings.Contains(ua, "fedora"):
		return "Fedora"
	case strings.Contains(ua, "arch"):
		return "Arch Linux"
	}
	return "Linux"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// MaskAddress partially redacts a network address for display: the first
// segment is kept, the rest replaced with a fixed mask token. Works for IPv4
// dotted quads and IPv6 colon groups; anything else is returned fully masked.
func MaskAddress(addr string) string {
	if addr == "" || addr == unknown {
		return unknown
	}

	if strings.Contains(addr, ".") {
		parts := strings.Split(addr, ".")
		masked := make([]string, len(parts))
		masked[0] = parts[0]
		for i := 1; i < len(parts); i++ {
			masked[i] = "xxx"
		}
		return strings.Join(masked, ".")
	}

	if strings.Contains(addr, ":") {
		parts := strings.Split(addr, ":")
		masked := make([]string, len(parts))
		masked[0] = parts[0]
		for i := 1; i < len(parts); i++ {
			masked[i] = "xxxx"
		}
		return strings.Join(masked, ":")
	}

	return "xxx"
}
