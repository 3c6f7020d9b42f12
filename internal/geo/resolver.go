package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/scmmishra/linkpulse/internal/models"
)

const (
	MaxTimeout       = 2 * time.Second
	DefaultCacheTTL  = time.Hour
	DefaultCacheSize = 10000
)

var (
	Local   = models.GeoInfo{Country: "Local", CountryCode: "LOCAL", City: "Local", Region: "Local"}
	Unknown = models.GeoInfo{Country: "Unknown", CountryCode: "XX", City: "Unknown", Region: "Unknown"}
)

var cgnat = netip.MustParsePrefix("100.64.0.0/10")

type Options struct {
	Reader    *Reader
	APIURL    string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
	Client    *http.Client
	Logger    *zap.Logger
}

// Resolver looks up coarse geography for visitor IPs. It never fails:
// every path ends in a result, Unknown at worst.
type Resolver struct {
	reader  *Reader
	apiURL  string
	timeout time.Duration
	client  *http.Client
	cache   *expirable.LRU[string, models.GeoInfo]
	logger  *zap.Logger
}

func NewResolver(opts Options) *Resolver {
	if opts.Timeout <= 0 || opts.Timeout > MaxTimeout {
		opts.Timeout = MaxTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Resolver{
		reader:  opts.Reader,
		apiURL:  opts.APIURL,
		timeout: opts.Timeout,
		client:  opts.Client,
		cache:   expirable.NewLRU[string, models.GeoInfo](opts.CacheSize, nil, opts.CacheTTL),
		logger:  opts.Logger,
	}
}

func (r *Resolver) Resolve(ctx context.Context, ip string) models.GeoInfo {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return Unknown
	}
	addr = addr.Unmap()
	if isLocal(addr) {
		return Local
	}
	key := addr.String()

	if info, ok := r.cache.Get(key); ok {
		return info
	}

	if info, ok := r.reader.Lookup(key); ok {
		r.cache.Add(key, info)
		return info
	}

	if r.apiURL != "" {
		info, err := r.fetch(ctx, key)
		if err == nil {
			r.cache.Add(key, info)
			return info
		}
		r.logger.Warn("geo lookup failed", zap.String("ip", key), zap.Error(err))
	}

	if info, ok := fallbackLookup(addr); ok {
		return info
	}
	return Unknown
}

type apiResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	RegionName  string `json:"regionName"`
}

func (r *Resolver) fetch(ctx context.Context, ip string) (models.GeoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint(ip), nil)
	if err != nil {
		return models.GeoInfo{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return models.GeoInfo{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.GeoInfo{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.GeoInfo{}, fmt.Errorf("decode: %w", err)
	}
	if body.Status != "success" || body.CountryCode == "" {
		return models.GeoInfo{}, fmt.Errorf("lookup unsuccessful: %s", body.Message)
	}
	return models.GeoInfo{
		Country:     body.Country,
		CountryCode: body.CountryCode,
		City:        body.City,
		Region:      body.RegionName,
	}, nil
}

func (r *Resolver) endpoint(ip string) string {
	if strings.Contains(r.apiURL, "%s") {
		return fmt.Sprintf(r.apiURL, ip)
	}
	return strings.TrimSuffix(r.apiURL, "/") + "/" + ip
}

func isLocal(addr netip.Addr) bool {
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsUnspecified() ||
		cgnat.Contains(addr)
}
