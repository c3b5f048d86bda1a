package gmaps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrTransport marks resolver failures caused by the network (DNS, timeouts,
// refused connections, cancelled requests).
var ErrTransport = errors.New("resolver transport failure")

// ErrForbiddenDestination is returned when a link or one of its redirects
// points at a loopback, private, link-local or otherwise internal address.
var ErrForbiddenDestination = errors.New("destination address not allowed")

const (
	DefaultResolveTimeout = 8 * time.Second
	DefaultMaxRedirects   = 10
	DefaultMaxBodyBytes   = 512 << 10
	DefaultUserAgent      = "reviewlink-resolver/1.0 (+https://github.com/reviewlink/reviewlink)"
)

// ResolverConfig holds the explicit HTTP limits of a Resolver. Zero values
// are replaced by the defaults above.
type ResolverConfig struct {
	Timeout      time.Duration
	MaxRedirects int
	MaxBodyBytes int64
	UserAgent    string
}

type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger used for diagnostics.
func WithResolverLogger(logger *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithHTTPTransport replaces the transport of the resolver's HTTP client. The
// replacement bypasses the destination address guard of the default one.
func WithHTTPTransport(rt http.RoundTripper) ResolverOption {
	return func(r *Resolver) {
		r.client.Transport = rt
	}
}

// Resolver follows redirects of links that Classify could not resolve
// offline and recovers a canonical place id from the destination.
type Resolver struct {
	cfg    ResolverConfig
	client *http.Client
	logger *zap.Logger
}

func NewResolver(cfg ResolverConfig, opts ...ResolverOption) *Resolver {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultResolveTimeout
	}

	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	r := Resolver{
		cfg:    cfg,
		logger: zap.NewNop(),
	}

	maxRedirects := cfg.MaxRedirects

	dialer := &net.Dialer{
		Timeout: cfg.Timeout,
		Control: guardDestination,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	r.client = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				// stop here and match against the last response
				return http.ErrUseLastResponse
			}

			return nil
		},
	}

	for _, opt := range opts {
		opt(&r)
	}

	return &r
}

// cgnat is the shared address space of RFC 6598.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// guardDestination runs after DNS resolution for every connection, including
// those of redirects, and refuses addresses that are not public unicast.
func guardDestination(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenDestination, address)
	}

	ip, err := netip.ParseAddr(host)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenDestination, address)
	}

	if !publicAddress(ip.Unmap()) {
		return fmt.Errorf("%w: %s", ErrForbiddenDestination, ip)
	}

	return nil
}

func publicAddress(ip netip.Addr) bool {
	switch {
	case ip.IsLoopback(), ip.IsPrivate(), ip.IsUnspecified(),
		ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast(),
		ip.IsInterfaceLocalMulticast(), ip.IsMulticast():
		return false
	case cgnat.Contains(ip):
		return false
	}

	return ip.IsGlobalUnicast()
}

// fetched is the material the extraction strategies run against.
type fetched struct {
	finalURL string
	body     string
	hasCID   bool
}

type strategy struct {
	name    string
	extract func(fetched) (string, bool)
}

// strategies run in priority order; the first hit wins.
var strategies = []strategy{
	{"query_param", func(f fetched) (string, bool) { return ExtractPlaceIDFromQuery(f.finalURL) }},
	{"url_data_blob", func(f fetched) (string, bool) { return ExtractPlaceIDFromDataBlob(f.finalURL) }},
	{"body_place_id", func(f fetched) (string, bool) { return ExtractLoosePlaceID(f.body) }},
	{"body_cid_fallback", func(f fetched) (string, bool) {
		if !f.hasCID {
			return "", false
		}

		return ExtractStandalonePlaceID(f.body)
	}},
	{"url_bare", func(f fetched) (string, bool) { return ExtractBarePlaceID(f.finalURL) }},
	{"body_canonical_link", func(f fetched) (string, bool) { return extractFromLinkedURLs(f.body) }},
}

// Resolve fetches rawInput, following redirects, and returns the first place
// id recovered by the extraction strategies. An empty id with a nil error
// means nothing could be extracted. Only transport failures are returned as
// errors and they wrap ErrTransport.
func (r *Resolver) Resolve(ctx context.Context, rawInput string) (string, error) {
	rawInput = strings.TrimSpace(rawInput)
	parsed := Classify(rawInput)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawInput, http.NoBody)
	if err != nil || (req.URL.Scheme != "http" && req.URL.Scheme != "https") {
		r.logger.Info("resolver input is not a fetchable URL", zap.String("input", rawInput), zap.Error(err))

		return "", nil
	}

	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("resolver transport failure", zap.String("input", rawInput), zap.Error(err))

		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, r.cfg.MaxBodyBytes))
		resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.cfg.MaxBodyBytes))
	if err != nil {
		r.logger.Warn("resolver body read failed, matching on partial body",
			zap.String("input", rawInput), zap.Int("read", len(body)), zap.Error(err))
	}

	f := fetched{
		finalURL: resp.Request.URL.String(),
		body:     string(body),
		hasCID:   parsed.SourceKind == SourceNumericCID,
	}

	for _, s := range strategies {
		if id, ok := s.extract(f); ok && IsPlaceID(id) {
			r.logger.Debug("resolved place id",
				zap.String("input", rawInput),
				zap.String("final_url", f.finalURL),
				zap.String("strategy", s.name),
				zap.String("place_id", id))

			return id, nil
		}
	}

	r.logger.Info("no place id found",
		zap.String("input", rawInput),
		zap.String("final_url", f.finalURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_bytes", len(body)))

	return "", nil
}

// ResolveShortLink resolves a g.page short link.
//
// Deprecated: Resolve handles short links together with every other URL shape.
func (r *Resolver) ResolveShortLink(ctx context.Context, shortURL string) (string, error) {
	return r.Resolve(ctx, shortURL)
}

// extractFromLinkedURLs looks at the canonical link and og:url of an HTML body
// and applies the URL strategies to them.
func extractFromLinkedURLs(body string) (string, bool) {
	if !strings.Contains(body, "<") {
		return "", false
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", false
	}

	var candidates []string

	doc.Find(`link[rel='canonical']`).Each(func(_ int, s *goquery.Selection) {
		if href := s.AttrOr("href", ""); href != "" {
			candidates = append(candidates, href)
		}
	})

	doc.Find(`meta[property='og:url'], meta[itemprop='url']`).Each(func(_ int, s *goquery.Selection) {
		if content := s.AttrOr("content", ""); content != "" {
			candidates = append(candidates, content)
		}
	})

	for _, c := range candidates {
		if id, ok := ExtractPlaceIDFromQuery(c); ok {
			return id, true
		}

		if id, ok := ExtractPlaceIDFromDataBlob(c); ok {
			return id, true
		}
	}

	return "", false
}
