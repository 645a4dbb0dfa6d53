package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/yourneighborhoodchef/sellbot/internal/ratelimit"
)

const DefaultProfile = "chrome_120"

// ProxyPicker hands out a proxy URL per request. An empty URL means a direct connection.
type ProxyPicker interface {
	Random() string
}

type Options struct {
	// Profile is a tls-client profile name, e.g. "chrome_120".
	Profile string
	Timeout time.Duration
	Proxies ProxyPicker
	// Header is merged under every request's own headers.
	Header http.Header
	// RequestRate caps requests per second; 0 disables pacing.
	RequestRate float64
}

// ProxiedClient pairs a tls-client with the proxy it was built for.
type ProxiedClient struct {
	tls_client.HttpClient
	ProxyURL string
}

// Client is the per-account transport. Each proxy gets its own tls-client but
// they all share one cookie jar, so auth cookies follow the account whatever
// proxy a request goes through.
type Client struct {
	opts    Options
	profile profiles.ClientProfile
	jar     tls_client.CookieJar
	pacer   *ratelimit.Pacer

	mu      sync.Mutex
	clients map[string]*ProxiedClient
}

var _ Transport = (*Client)(nil)

// ResolveProfile maps a profile name to a tls-client profile.
func ResolveProfile(name string) (profiles.ClientProfile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := profiles.MappedTLSClients[strings.ToLower(name)]
	if !ok {
		return profiles.ClientProfile{}, fmt.Errorf("unknown client profile %q", name)
	}
	return p, nil
}

func New(opts Options) (*Client, error) {
	profile, err := ResolveProfile(opts.Profile)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	c := &Client{
		opts:    opts,
		profile: profile,
		jar:     tls_client.NewCookieJar(),
		clients: make(map[string]*ProxiedClient),
	}
	if opts.RequestRate > 0 {
		c.pacer = ratelimit.NewPacer(opts.RequestRate)
	}
	return c, nil
}

func (c *Client) proxyURL() string {
	if c.opts.Proxies == nil {
		return ""
	}
	return c.opts.Proxies.Random()
}

func (c *Client) client(proxyURL string) (*ProxiedClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pc, ok := c.clients[proxyURL]; ok {
		return pc, nil
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(c.opts.Timeout.Seconds())),
		tls_client.WithClientProfile(c.profile),
		tls_client.WithRandomTLSExtensionOrder(),
		tls_client.WithNotFollowRedirects(),
		tls_client.WithCookieJar(c.jar),
	}
	if proxyURL != "" {
		options = append(options, tls_client.WithProxyUrl(proxyURL))
	}

	hc, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("create tls client: %w", err)
	}

	pc := &ProxiedClient{HttpClient: hc, ProxyURL: proxyURL}
	c.clients[proxyURL] = pc
	return pc, nil
}

// Do sends req through a random proxy of the pool.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
	}

	pc, err := c.client(c.proxyURL())
	if err != nil {
		return nil, err
	}
	return send(ctx, pc, req, c.opts.Header)
}

// Close drops idle connections.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pc := range c.clients {
		pc.CloseIdleConnections()
	}
}
