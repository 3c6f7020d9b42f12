package geo

import (
	"net"

	"github.com/oschwald/maxminddb-golang"

	"github.com/scmmishra/linkpulse/internal/models"
)

type Reader struct {
	db *maxminddb.Reader
}

// Open opens a MaxMind .mmdb file. Returns a no-op Reader if path is empty.
func Open(path string) (*Reader, error) {
	if path == "" {
		return &Reader{}, nil
	}
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{db: db}, nil
}

func (r *Reader) Close() {
	if r != nil && r.db != nil {
		r.db.Close()
	}
}

// Lookup resolves an IP from the local database. ok is false when the
// reader has no db or the record has no country.
func (r *Reader) Lookup(ipStr string) (models.GeoInfo, bool) {
	if r == nil || r.db == nil {
		return models.GeoInfo{}, false
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return models.GeoInfo{}, false
	}

	var record struct {
		Country struct {
			ISOCode string            `maxminddb:"iso_code"`
			Names   map[string]string `maxminddb:"names"`
		} `maxminddb:"country"`
		City struct {
			Names map[string]string `maxminddb:"names"`
		} `maxminddb:"city"`
		Subdivisions []struct {
			Names map[string]string `maxminddb:"names"`
		} `maxminddb:"subdivisions"`
	}

	if err := r.db.Lookup(ip, &record); err != nil {
		return models.GeoInfo{}, false
	}
	if record.Country.ISOCode == "" {
		return models.GeoInfo{}, false
	}

	res := models.GeoInfo{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.ISOCode,
		City:        record.City.Names["en"],
	}
	if res.Country == "" {
		res.Country = record.Country.ISOCode
	}
	if len(record.Subdivisions) > 0 {
		res.Region = record.Subdivisions[0].Names["en"]
	}
	return res, true
}
