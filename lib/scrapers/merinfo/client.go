package merinfo

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
	"merinfo-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	browser "github.com/EDDYCJY/fake-useragent"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

type Options struct {
	BaseURL         string
	MinDelay        time.Duration
	MaxDelay        time.Duration
	MaxRetries      int
	Timeout         time.Duration
	RotateUserAgent bool
	CacheSize       int
	CacheTTL        time.Duration
	// year used for age derivation from national ids,
	// 0 means the current wall-clock year
	ReferenceYear int
}

func DefaultOptions() Options {
	return Options{
		BaseURL:         "https://www.merinfo.se",
		MinDelay:        time.Second * 2,
		MaxDelay:        time.Second * 5,
		MaxRetries:      3,
		Timeout:         time.Second * 20,
		RotateUserAgent: true,
		CacheSize:       100,
		CacheTTL:        time.Hour,
	}
}

// Client scrapes person and vehicle records from the directory site.
// The cache, rate limiter and error counter are shared mutable state,
// so whole search calls are serialized behind a mutex; a single Client
// may be shared between goroutines.
type Client struct {
	baseURL *url.URL
	http    *resty.Client
	opts    Options

	mu         sync.Mutex
	cache      *pageCache
	limiter    *rateLimiter
	errorCount int
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultOptions().BaseURL
	}
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	if opts.ReferenceYear == 0 {
		opts.ReferenceYear = time.Now().Year()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultOptions().CacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultOptions().CacheTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeaders(map[string]string{
		"user-agent":      browser.Chrome(),
		"accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
		"accept-language": "sv-SE,sv;q=0.9,en-US;q=0.8,en;q=0.7",
		"dnt":             "1",
	})
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "merinfo-backend/lib/scrapers/merinfo/http")

	c := &Client{
		baseURL: baseURL,
		http:    client,
		opts:    opts,
		cache:   newPageCache(opts.CacheSize, opts.CacheTTL),
		limiter: newRateLimiter(opts.MinDelay, opts.MaxDelay),
		sleep:   sleepContext,
	}
	return c, nil
}

func cacheKey(rawurl string) string {
	sum := md5.Sum([]byte(rawurl))
	return hex.EncodeToString(sum[:])
}

// fetchDocument fetches a page with rate limiting, retries, backoff and
// identity rotation, consulting the response cache first. Every failure
// mode comes back as a returned error; callers treat it as "no data".
func (c *Client) fetchDocument(ctx context.Context, rawurl string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:fetchDocument")
	defer span.End()

	key := cacheKey(rawurl)
	cached, hit := c.cache.get(key)
	if hit {
		span.SetStatus(codes.Ok, "CACHE HIT")
		slog.DebugContext(ctx, "cache hit", "url", rawurl)
		return goquery.NewDocumentFromReader(bytes.NewReader(cached))
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		err := c.limiter.acquire(ctx, c.errorCount)
		if err != nil {
			return nil, err
		}

		if attempt > 0 && c.opts.RotateUserAgent {
			c.http.SetHeader("user-agent", browser.Chrome())
			slog.InfoContext(ctx, "rotated user agent", "attempt", attempt+1)
		}

		res, err := c.http.R().
			SetContext(ctx).
			Get(rawurl)
		if err == nil && !res.IsSuccess() {
			err = fmt.Errorf("unexpected status %d", res.StatusCode())
		}
		if err != nil {
			c.errorCount++
			lastErr = err
			slog.WarnContext(
				ctx, "fetch attempt failed",
				"attempt", attempt+1,
				"of", c.opts.MaxRetries+1,
				"err", err,
			)
			if attempt < c.opts.MaxRetries {
				backoff := time.Duration(1<<uint(attempt))*time.Second +
					uniformDuration(time.Second, time.Second*3)
				slog.InfoContext(ctx, "backing off", "delay", backoff)
				err := c.sleep(ctx, backoff)
				if err != nil {
					return nil, err
				}
			}
			continue
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to parse html")
			lastErr = err
			break
		}

		c.cache.set(key, res.Body())
		if c.errorCount > 0 {
			c.errorCount--
		}
		return doc, nil
	}

	span.SetStatus(codes.Error, "all attempts failed")
	return nil, fmt.Errorf("all attempts failed for %s: %w", rawurl, lastErr)
}

// resolveURL turns an extracted href into an absolute url.
func (c *Client) resolveURL(href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.baseURL.ResolveReference(ref).String()
}

type Stats struct {
	Requests    int64   `json:"requests_made"`
	Errors      int     `json:"errors_encountered"`
	CacheSize   int     `json:"cache_size"`
	SuccessRate float64 `json:"success_rate"`
}

func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	requests := c.limiter.requestCount
	rate := 0.0
	if requests > 0 {
		rate = float64(requests-int64(c.errorCount)) / float64(requests) * 100
	}
	return Stats{
		Requests:    requests,
		Errors:      c.errorCount,
		CacheSize:   c.cache.len(),
		SuccessRate: rate,
	}
}
