package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fedcorpus/pkg/config"
	"fedcorpus/pkg/utils"
)

// Session is the HTTP surface for one crawl run. Every outbound request
// carries the shared User-Agent and hard timeout, and goes through the
// rate limiter and the retryer. The orchestrator owns the session's
// lifetime: it opens one per run and closes it on every exit path.
type Session struct {
	client    *http.Client
	limiter   *Limiter
	retryer   *Retryer
	robots    *RobotsCache // nil when robots checking is disabled
	userAgent string
	timeout   time.Duration

	closeOnce sync.Once
	log       *logrus.Entry
}

// NewSession builds a Session from configuration.
func NewSession(cfg config.ScraperConfig, httpCfg config.HTTPClientConfig, log *logrus.Entry) *Session {
	client := NewClient(httpCfg, log)

	var robots *RobotsCache
	if !cfg.IgnoreRobots {
		robots = NewRobotsCache(client, cfg.UserAgent, log)
	}

	return &Session{
		client:    client,
		limiter:   NewLimiter(cfg.MaxConcurrentRequests, cfg.RequestsPerSecond, log),
		retryer:   NewRetryer(cfg.MaxRetries, cfg.BaseBackoff, cfg.MaxBackoff, log),
		robots:    robots,
		userAgent: cfg.UserAgent,
		timeout:   cfg.RequestTimeout,
		log:       log,
	}
}

// Limiter exposes the session's rate limiter so the driving loop can
// size its fetch fan-out to the same concurrency gate.
func (s *Session) Limiter() *Limiter { return s.limiter }

// Get fetches one page. Returns the final URL after redirects and the
// response body. Definitive rejections (4xx, robots) surface
// immediately; transient failures are retried per the session's policy.
func (s *Session) Get(ctx context.Context, rawURL string) (string, []byte, error) {
	return s.fetch(ctx, rawURL, s.timeout)
}

// GetAttachment fetches a larger payload (PDF attachments) with a
// doubled timeout budget.
func (s *Session) GetAttachment(ctx context.Context, rawURL string) ([]byte, error) {
	_, body, err := s.fetch(ctx, rawURL, 2*s.timeout)
	return body, err
}

// Close releases idle connections. Safe to call more than once and
// concurrently with in-flight requests (which simply complete).
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.client.CloseIdleConnections()
		s.log.Debug("Fetch session closed")
	})
}

func (s *Session) fetch(ctx context.Context, rawURL string, timeout time.Duration) (string, []byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("%w: parse URL %q: %w", utils.ErrRequestCreation, rawURL, err)
	}

	// Robots disallow is a property of the URL, not of one attempt;
	// check it once, outside the retry loop.
	if s.robots != nil && !s.robots.Allowed(ctx, u) {
		return "", nil, fmt.Errorf("%w: %s", utils.ErrRobotsDisallowed, rawURL)
	}

	var finalURL string
	var body []byte

	err = s.retryer.Do(ctx, rawURL, func(ctx context.Context) error {
		if err := s.limiter.Acquire(ctx); err != nil {
			return err
		}
		defer s.limiter.Release()

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("%w: %w", utils.ErrRequestCreation, err)
		}
		req.Header.Set("User-Agent", s.userAgent)

		s.log.WithField("url", rawURL).Debug("Fetching")
		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			io.Copy(io.Discard, resp.Body)
			return &RateLimitError{RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}

		case resp.StatusCode >= 500:
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("%w: status %d %s", utils.ErrServerHTTPError, resp.StatusCode, resp.Status)

		case resp.StatusCode >= 400:
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("%w: status %d %s", utils.ErrClientHTTPError, resp.StatusCode, resp.Status)

		case resp.StatusCode >= 300:
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("%w: status %d %s", utils.ErrOtherHTTPError, resp.StatusCode, resp.Status)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: %w", utils.ErrResponseBodyRead, err)
		}

		finalURL = resp.Request.URL.String()
		body = data
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return finalURL, body, nil
}
