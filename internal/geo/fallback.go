package geo

import (
	"net/netip"

	"github.com/scmmishra/linkpulse/internal/models"
)

// Static table for well-known public ranges, used when neither the local
// database nor the API produced an answer.
var fallbackTable = []struct {
	prefix netip.Prefix
	info   models.GeoInfo
}{
	{netip.MustParsePrefix("8.8.8.0/24"), models.GeoInfo{Country: "United States", CountryCode: "US", City: "Mountain View", Region: "California"}},
	{netip.MustParsePrefix("8.8.4.0/24"), models.GeoInfo{Country: "United States", CountryCode: "US", City: "Mountain View", Region: "California"}},
	{netip.MustParsePrefix("1.1.1.0/24"), models.GeoInfo{Country: "Australia", CountryCode: "AU", City: "Sydney", Region: "New South Wales"}},
	{netip.MustParsePrefix("1.0.0.0/24"), models.GeoInfo{Country: "Australia", CountryCode: "AU", City: "Sydney", Region: "New South Wales"}},
	{netip.MustParsePrefix("9.9.9.0/24"), models.GeoInfo{Country: "Switzerland", CountryCode: "CH", City: "Zurich", Region: "Zurich"}},
	{netip.MustParsePrefix("208.67.222.0/24"), models.GeoInfo{Country: "United States", CountryCode: "US", City: "San Francisco", Region: "California"}},
	{netip.MustParsePrefix("2001:4860::/32"), models.GeoInfo{Country: "United States", CountryCode: "US", City: "Mountain View", Region: "California"}},
	{netip.MustParsePrefix("2606:4700::/32"), models.GeoInfo{Country: "United States", CountryCode: "US", City: "San Francisco", Region: "California"}},
}

func fallbackLookup(addr netip.Addr) (models.GeoInfo, bool) {
	for _, e := range fallbackTable {
		if e.prefix.Contains(addr) {
			return e.info, true
		}
	}
	return models.GeoInfo{}, false
}
