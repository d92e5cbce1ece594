package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// RobotsCache fetches, parses and caches robots.txt verdicts per host.
// A host whose robots.txt cannot be fetched or parsed is treated as
// allow-all, matching robotstxt's status-code semantics.
type RobotsCache struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData // hostname -> parsed data (nil = allow all)

	log *logrus.Entry
}

// NewRobotsCache creates a RobotsCache sharing the session's client.
func NewRobotsCache(client *http.Client, userAgent string, log *logrus.Entry) *RobotsCache {
	return &RobotsCache{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
		log:       log,
	}
}

// Allowed reports whether the crawler may fetch u under the host's
// robots.txt. The first call per host performs one network fetch; later
// calls are answered from cache.
func (rc *RobotsCache) Allowed(ctx context.Context, u *url.URL) bool {
	host := u.Hostname()

	rc.mu.Lock()
	data, cached := rc.cache[host]
	rc.mu.Unlock()

	if !cached {
		data = rc.fetch(ctx, u)
		rc.mu.Lock()
		rc.cache[host] = data
		rc.mu.Unlock()
	}

	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, rc.userAgent)
}

// fetch retrieves and parses one robots.txt. Errors degrade to nil
// (allow-all); robots handling must never block the crawl.
func (rc *RobotsCache) fetch(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"
	hostLog := rc.log.WithField("host", u.Hostname())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		hostLog.Warnf("Building robots.txt request failed: %v", err)
		return nil
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.client.Do(req)
	if err != nil {
		hostLog.Warnf("Fetching robots.txt failed, assuming allow-all: %v", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		hostLog.Warnf("Reading robots.txt failed, assuming allow-all: %v", err)
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		hostLog.Warnf("Parsing robots.txt failed, assuming allow-all: %v", err)
		return nil
	}
	hostLog.Debug("Cached robots.txt verdicts")
	return data
}
