package util

import (
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oschwald/geoip2-golang"
	cache "github.com/patrickmn/go-cache"
)

const (
	geoCacheTTL     = 24 * time.Hour
	geoCacheCleanup = time.Hour
)

// geoLocator resolves client addresses for the security log.
type geoLocator struct {
	mu     sync.RWMutex
	reader *geoip2.Reader
	cache  *cache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

var geo geoLocator

// InitGeoIP opens a GeoLite2 city database. An empty path falls back to
// GEOIP_DB_PATH and, if that is empty too, leaves lookups disabled.
func InitGeoIP(dbPath string) error {
	if dbPath == "" {
		dbPath = os.Getenv("GEOIP_DB_PATH")
	}
	if dbPath == "" {
		return nil
	}
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return err
	}

	geo.mu.Lock()
	defer geo.mu.Unlock()
	if geo.reader != nil {
		_ = geo.reader.Close()
	}
	geo.reader = r
	geo.cache = cache.New(geoCacheTTL, geoCacheCleanup)
	return nil
}

func CloseGeoIP() {
	geo.mu.Lock()
	defer geo.mu.Unlock()
	if geo.reader != nil {
		_ = geo.reader.Close()
	}
	geo.reader = nil
	geo.cache = nil
}

func isLocalIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}

// GetIPLocation returns the English city and country of ip. Desk terminals on
// the hospital LAN and unknown addresses resolve to empty strings.
func GetIPLocation(ip string) (city, country string) {
	parsed := net.ParseIP(ip)
	if parsed == nil || isLocalIP(parsed) {
		return "", ""
	}

	geo.mu.RLock()
	defer geo.mu.RUnlock()

	if geo.cache != nil {
		if v, ok := geo.cache.Get(ip); ok {
			if loc, ok := v.([2]string); ok {
				geo.hits.Add(1)
				return loc[0], loc[1]
			}
		}
	}
	geo.misses.Add(1)
	if geo.reader == nil {
		return "", ""
	}

	rec, err := geo.reader.City(parsed)
	if err != nil {
		return "", ""
	}
	city = rec.City.Names["en"]
	country = rec.Country.Names["en"]
	if country == "" {
		country = rec.Country.IsoCode
	}
	if geo.cache != nil {
		geo.cache.SetDefault(ip, [2]string{city, country})
	}
	return city, country
}

// GetGeoIPCacheMetrics reports cache hits, misses and the cached entry count.
func GetGeoIPCacheMetrics() (hits, misses int64, size int) {
	geo.mu.RLock()
	defer geo.mu.RUnlock()
	if geo.cache != nil {
		size = geo.cache.ItemCount()
	}
	return geo.hits.Load(), geo.misses.Load(), size
}
