package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// Lowercase substrings that mark automated clients. Visits from these still
// count as clicks; they are bucketed under the Bot device.
var botSignatures = []string{
	"bot",
	"spider",
	"crawl",
	"preview",

	// unfurlers
	"facebookexternalhit",
	"facebot",
	"whatsapp",
	"slackbot",
	"telegrambot",
	"discordbot",
	"applebot",
	"twitterbot",
	"linkedinbot",
	"skypeuripreview",

	"google web preview",
	"google favicon",
	"google-ad",
	"googlesecurityscanner",
	"chrome-lighthouse",
	"bingpreview/",

	// scanners
	"burpcollaborator.net/",
	"zgrab/",
	"netcraftsurveyagent/",
	"wappalyzer",
	"whatweb/",

	// http libraries
	"go-http-client/",
	"curl/",
	"wget/",
	"httpie/",
	"python-requests/",
	"python-urllib/",
	"aiohttp/",
	"axios/",
	"node-fetch/",
	"java/",
	"okhttp/",
	"libwww-perl/",
	"ruby",

	// headless renderers
	"headlesschrome/",
	"phantomjs",
	"slimerjs",
	"wkhtmltoimage",
	"wkhtmltopdf",
}

// IsBot returns true if the user-agent looks like a bot or link-preview fetcher.
func IsBot(rawUA string) bool {
	if rawUA == "" {
		return false
	}
	if useragent.New(rawUA).Bot() {
		return true
	}
	lower := strings.ToLower(rawUA)
	for _, sig := range botSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
