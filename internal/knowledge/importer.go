package knowledge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// ErrNoContent is returned when a page has no extractable article text.
var ErrNoContent = errors.New("no extractable content")

// ErrForbiddenHost is returned when a URL, or a redirect it leads to,
// resolves to a loopback, private, link-local or unspecified address.
var ErrForbiddenHost = errors.New("host resolves to a non-public address")

// Page is the readable part of a fetched web page.
type Page struct {
	Title string
	Text  string
}

// Importer fetches a URL and extracts its readable text.
type Importer struct {
	client *http.Client
	// MaxBytes caps the downloaded body.
	MaxBytes int64
	// AllowPrivate lets the importer dial non-public addresses.
	AllowPrivate bool
}

// NewImporter returns an Importer with the given timeout.
func NewImporter(timeout time.Duration) *Importer {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	im := &Importer{MaxBytes: 5 << 20}
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   im.checkDial,
	}
	im.client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext:           dialer.DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return im
}

// checkDial runs after DNS resolution for every connection, redirects
// included.
func (im *Importer) checkDial(_, address string, _ syscall.RawConn) error {
	if im.AllowPrivate {
		return nil
	}
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrForbiddenHost, address)
	}
	if !PublicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrForbiddenHost, ap.Addr())
	}
	return nil
}

// PublicAddr reports whether addr is a routable unicast address outside the
// loopback, private and link-local ranges.
func PublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsInterfaceLocalMulticast() &&
		!addr.IsMulticast() &&
		!addr.IsUnspecified()
}

// Fetch downloads rawURL and returns its readable text.
func (im *Importer) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "livescript/1.0 (knowledge import)")

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetching %s: %s", rawURL, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, im.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}

	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoContent, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, ErrNoContent
	}
	return &Page{Title: strings.TrimSpace(article.Title), Text: text}, nil
}
