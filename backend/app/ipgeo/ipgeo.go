// Package ipgeo resolves the network origin of a telemetry delivery to a
// location descriptor and an ASN. Lookups are cached: in Redis when a
// client is configured, otherwise in an in-process map.
package ipgeo

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"device-tracker/backend/global"

	"github.com/redis/go-redis/v9"
)

const (
	lookupURL = "http://ip-api.com/json/"
	cacheTTL  = 24 * time.Hour
)

// Location describes where an IP appears to be. The zero value means
// "unknown"; the Local sentinel marks loopback/private origins.
type Location struct {
	City    string   `json:"city,omitempty"`
	Region  string   `json:"region,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
	ASN     int      `json:"asn,omitempty"`
}

func localSentinel() Location {
	return Location{City: "Local", Region: "Local", Country: "Local"}
}

type Service struct {
	http *http.Client
	rdb  *redis.Client

	mu  sync.Mutex
	mem map[string]Location
}

// New builds a lookup service. rdb may be nil; the in-process map then
// backs the cache (unbounded, a known resource trade-off).
func New(rdb *redis.Client) *Service {
	return &Service{
		http: &http.Client{Timeout: 5 * time.Second},
		rdb:  rdb,
		mem:  map[string]Location{},
	}
}

// Lookup never fails the caller: unresolvable addresses yield an unknown
// Location and a log line.
func (s *Service) Lookup(ctx context.Context, ip string) Location {
	parsed := net.ParseIP(ip)
	if ip == "" || parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast() {
		return localSentinel()
	}

	if loc, ok := s.cached(ctx, ip); ok {
		return loc
	}
	loc, err := s.query(ctx, ip)
	if err != nil {
		global.Logger.Warn().Str("ip", ip).Err(err).Msg("ip geolocation failed")
		return Location{}
	}
	s.store(ctx, ip, loc)
	return loc
}

func (s *Service) cached(ctx context.Context, ip string) (Location, bool) {
	if s.rdb != nil {
		raw, err := s.rdb.Get(ctx, cacheKey(ip)).Bytes()
		if err == nil {
			var loc Location
			if json.Unmarshal(raw, &loc) == nil {
				return loc, true
			}
		}
		return Location{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.mem[ip]
	return loc, ok
}

func (s *Service) store(ctx context.Context, ip string, loc Location) {
	if s.rdb != nil {
		if raw, err := json.Marshal(loc); err == nil {
			_ = s.rdb.Set(ctx, cacheKey(ip), raw, cacheTTL).Err()
		}
		return
	}
	s.mu.Lock()
	s.mem[ip] = loc
	s.mu.Unlock()
}

func cacheKey(ip string) string { return "ipgeo:" + ip }

func (s *Service) query(ctx context.Context, ip string) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		lookupURL+ip+"?fields=status,city,regionName,country,lat,lon,as", nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return Location{}, err
	}
	defer resp.Body.Close()

	var body struct {
		Status     string  `json:"status"`
		City       string  `json:"city"`
		RegionName string  `json:"regionName"`
		Country    string  `json:"country"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
		AS         string  `json:"as"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, err
	}
	if body.Status != "success" {
		return Location{}, nil
	}
	lat, lon := body.Lat, body.Lon
	return Location{
		City:    body.City,
		Region:  body.RegionName,
		Country: body.Country,
		Lat:     &lat,
		Lon:     &lon,
		ASN:     parseASN(body.AS),
	}, nil
}

// parseASN extracts the number from an "AS15169 Google LLC" descriptor.
func parseASN(s string) int {
	field := strings.Fields(s)
	if len(field) == 0 || !strings.HasPrefix(field[0], "AS") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(field[0], "AS"))
	if err != nil {
		return 0
	}
	return n
}
