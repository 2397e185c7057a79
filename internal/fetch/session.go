package fetch

import (
	"math/rand"
	"net/http/cookiejar"
	"net/url"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// headerSets is a fixed pool of realistic browser header profiles. One is
// picked per session so header order and values stay consistent for the
// lifetime of that session's cookies.
var headerSets = []map[string]string{
	{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	},
	{
		"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	},
	{
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language": "en-GB,en;q=0.7",
	},
}

// Session is one persistent court-site HTTP session: a resty client with a
// cookie jar, a fixed header profile and a rate limiter enforcing the
// configured delay between requests. A session must not be used by two
// pipeline runs at once; the Pool guarantees exclusive checkout.
type Session struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// NewSession builds a session against the court base URL. delay is the
// minimum spacing between consecutive requests on this session.
func NewSession(baseURL string, timeout, delay time.Duration) (*Session, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(baseURL)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	headers := headerSets[rand.Intn(len(headerSets))]
	for k, v := range headers {
		client.SetHeader(k, v)
	}
	client.SetHeader("Connection", "keep-alive")
	client.SetHeader("Upgrade-Insecure-Requests", "1")

	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsed.Hostname()))
	client.SetTimeout(timeout)

	if delay <= 0 {
		delay = 2 * time.Second
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	s := &Session{http: client, limiter: limiter}
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return s.limiter.Wait(req.Context())
	})

	return s, nil
}

// Close releases idle connections held by the session.
func (s *Session) Close() {
	s.http.GetClient().CloseIdleConnections()
}
