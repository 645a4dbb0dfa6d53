package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrEmptyPool = errors.New("no usable proxies")

var schemes = map[string]bool{"http": true, "https": true, "socks5": true}

type Proxy struct {
	Host     string
	Port     int
	Username string
	Password string
	Scheme   string
}

// URL renders the proxy in the form tls-client expects.
func (p Proxy) URL() string {
	u := url.URL{
		Scheme: p.Scheme,
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
	}
	if p.Username != "" || p.Password != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u.String()
}

func (p Proxy) String() string {
	return fmt.Sprintf("%s://%s:%d", p.Scheme, p.Host, p.Port)
}

// ParseLine parses host:port[:user:pass][:protocol].
func ParseLine(line string) (Proxy, error) {
	parts := strings.Split(strings.TrimSpace(line), ":")

	p := Proxy{Scheme: "http"}
	switch len(parts) {
	case 2:
	case 3:
		p.Scheme = strings.ToLower(parts[2])
	case 4:
		p.Username, p.Password = parts[2], parts[3]
	case 5:
		p.Username, p.Password = parts[2], parts[3]
		p.Scheme = strings.ToLower(parts[4])
	default:
		return Proxy{}, fmt.Errorf("invalid proxy %q", line)
	}

	p.Host = parts[0]
	if p.Host == "" {
		return Proxy{}, fmt.Errorf("invalid proxy host %q", line)
	}
	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return Proxy{}, fmt.Errorf("invalid proxy port %q", line)
	}
	p.Port = port
	if !schemes[p.Scheme] {
		return Proxy{}, fmt.Errorf("unsupported proxy protocol %q", p.Scheme)
	}
	return p, nil
}

// Pool is read-only after construction and safe for concurrent use.
type Pool struct {
	proxies []Proxy
}

func NewPool(proxies []Proxy) (*Pool, error) {
	if len(proxies) == 0 {
		return nil, ErrEmptyPool
	}
	return &Pool{proxies: proxies}, nil
}

// Parse reads one proxy per line, skipping blank lines and comments.
// Malformed lines are logged and skipped.
func Parse(r io.Reader, log *logrus.Entry) (*Pool, error) {
	var proxies []Proxy
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := ParseLine(line)
		if err != nil {
			log.WithError(err).Warn("skipping proxy")
			continue
		}
		proxies = append(proxies, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read proxies: %w", err)
	}
	return NewPool(proxies)
}

func Load(path string, log *logrus.Entry) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxies: %w", err)
	}
	defer f.Close()

	pool, err := Parse(f, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("loaded %d proxies", pool.Len())
	return pool, nil
}

func (p *Pool) Len() int {
	return len(p.proxies)
}

// Random returns the URL of a random proxy.
func (p *Pool) Random() string {
	return p.proxies[rand.Intn(len(p.proxies))].URL()
}
