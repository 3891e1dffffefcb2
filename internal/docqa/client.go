// Package docqa talks to the external document question-answering service:
// it fetches an image by URL and asks a question about it.
package docqa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// ErrHostNotAllowed is returned when an image URL points at a host the
// client may not fetch from.
var ErrHostNotAllowed = errors.New("image host not allowed")

// CapabilityError wraps any failure of the remote capability: transport,
// non-2xx status, undecodable or empty answer.
type CapabilityError struct {
	Op  string
	Err error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("document qa %s: %v", e.Op, e.Err)
}

func (e *CapabilityError) Unwrap() error { return e.Err }

// Answer is the service's reply. Confidence is in [0, 1].
type Answer struct {
	Text       string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Options tunes a Client.
type Options struct {
	Timeout       time.Duration
	MaxImageBytes int64
	// AllowedImageHosts restricts image fetches to these host names when
	// non-empty.
	AllowedImageHosts []string
	// AllowPrivateNetworks lets image fetches reach loopback, private and
	// link-local addresses. Off by default.
	AllowPrivateNetworks bool
	// HTTPClient replaces the transport for both calls. Address filtering
	// is then up to the caller; the host allowlist still applies.
	HTTPClient *http.Client
}

// Client calls a document-QA endpoint over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
	fetch    *http.Client
	maxImage int64
	allowed  map[string]bool
}

// NewClient builds a client for endpoint. Zero options use a 10s timeout and
// a 10 MiB image limit.
func NewClient(endpoint string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxImageBytes <= 0 {
		opts.MaxImageBytes = 10 << 20
	}
	c := &Client{endpoint: endpoint, maxImage: opts.MaxImageBytes}
	if len(opts.AllowedImageHosts) > 0 {
		c.allowed = make(map[string]bool, len(opts.AllowedImageHosts))
		for _, h := range opts.AllowedImageHosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				c.allowed[h] = true
			}
		}
	}

	c.http = opts.HTTPClient
	if c.http == nil {
		c.http = &http.Client{Timeout: opts.Timeout}
	}
	fetch := *c.http
	if opts.HTTPClient == nil && !opts.AllowPrivateNetworks {
		fetch.Transport = publicOnlyTransport(opts.Timeout)
	}
	fetch.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return errors.New("too many redirects")
		}
		return c.checkHost(req.URL)
	}
	c.fetch = &fetch
	return c
}

// publicOnlyTransport refuses connections to non-public addresses. The check
// runs on the resolved address of every dial, redirects included.
func publicOnlyTransport(timeout time.Duration) *http.Transport {
	dialer := &net.Dialer{
		Timeout: timeout,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip == nil || !isPublicIP(ip) {
				return fmt.Errorf("%w: %s", ErrHostNotAllowed, host)
			}
			return nil
		},
	}
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.Proxy = nil
	t.DialContext = dialer.DialContext
	return t
}

func isPublicIP(ip net.IP) bool {
	return ip.IsGlobalUnicast() && !ip.IsPrivate()
}

func (c *Client) checkHost(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if c.allowed != nil && !c.allowed[strings.ToLower(u.Hostname())] {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}
	return nil
}

type askRequest struct {
	Image    string `json:"image"`
	Question string `json:"question"`
}

type askResponse struct {
	Answer string   `json:"answer"`
	Score  *float64 `json:"score"`
}

// Ask sends image and question to the service.
func (c *Client) Ask(ctx context.Context, image []byte, question string) (Answer, error) {
	if c.endpoint == "" {
		return Answer{}, &CapabilityError{Op: "ask", Err: errors.New("endpoint not configured")}
	}
	body, err := json.Marshal(askRequest{
		Image:    base64.StdEncoding.EncodeToString(image),
		Question: question,
	})
	if err != nil {
		return Answer{}, &CapabilityError{Op: "ask", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Answer{}, &CapabilityError{Op: "ask", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Answer{}, &CapabilityError{Op: "ask", Err: err}
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return Answer{}, &CapabilityError{Op: "ask", Err: err}
	}

	var out askResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Answer{}, &CapabilityError{Op: "decode", Err: err}
	}
	text := strings.TrimSpace(out.Answer)
	if text == "" {
		return Answer{}, &CapabilityError{Op: "decode", Err: errors.New("no answer")}
	}
	confidence := 0.0
	if out.Score != nil {
		confidence = min(max(*out.Score, 0), 1)
	}
	return Answer{Text: text, Confidence: confidence}, nil
}

// FetchImage downloads an image, refusing bodies over the size limit and
// hosts outside the allowlist or on private networks.
func (c *Client) FetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &CapabilityError{Op: "fetch", Err: err}
	}
	if err := c.checkHost(req.URL); err != nil {
		return nil, &CapabilityError{Op: "fetch", Err: err}
	}
	resp, err := c.fetch.Do(req)
	if err != nil {
		return nil, &CapabilityError{Op: "fetch", Err: err}
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, &CapabilityError{Op: "fetch", Err: err}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxImage+1))
	if err != nil {
		return nil, &CapabilityError{Op: "fetch", Err: err}
	}
	if int64(len(data)) > c.maxImage {
		return nil, &CapabilityError{Op: "fetch", Err: fmt.Errorf("image exceeds %d bytes", c.maxImage)}
	}
	if len(data) == 0 {
		return nil, &CapabilityError{Op: "fetch", Err: errors.New("empty image")}
	}
	return data, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
