package analytics

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/scmmishra/linkpulse/internal/models"
)

const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceBot     = "Bot"
	unknown       = "Unknown"
)

var tabletSignatures = []string{"ipad", "tablet", "kindle", "silk/", "playbook"}

// Classify parses a user-agent into browser, OS and form factor. It never
// fails; anything it can't place falls back to Unknown on a Desktop.
func Classify(rawUA string) models.DeviceInfo {
	info := models.DeviceInfo{Browser: unknown, OS: unknown, Device: DeviceDesktop}
	if strings.TrimSpace(rawUA) == "" {
		return info
	}

	ua := useragent.New(rawUA)
	if name, version := ua.Browser(); name != "" {
		info.Browser = name
		info.BrowserVersion = version
	}
	if osName := ua.OS(); osName != "" {
		info.OS = osName
	}

	lower := strings.ToLower(rawUA)
	switch {
	case IsBot(rawUA):
		info.Device = DeviceBot
	case isTablet(lower):
		info.Device = DeviceTablet
	case ua.Mobile():
		info.Device = DeviceMobile
	}
	return info
}

func isTablet(lowerUA string) bool {
	for _, sig := range tabletSignatures {
		if strings.Contains(lowerUA, sig) {
			return true
		}
	}
	// Android tablets omit the "Mobile" token.
	return strings.Contains(lowerUA, "android") && !strings.Contains(lowerUA, "mobile")
}
