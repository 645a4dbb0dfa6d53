package headers

import (
	"fmt"
	"math/rand"
	"strings"

	http "github.com/bogdanfinn/fhttp"
)

// Profile is one browser identity. It is picked once per account so that the
// user agent stays consistent with the TLS fingerprint across the session.
type Profile struct {
	ua        string
	secCHUA   string
	platform  string
	acceptIdx int
	langIdx   int
	encIdx    int
}

var (
	acceptOpts = []string{
		"application/json, text/plain, */*",
		"application/json",
		"*/*",
	}
	encOpts = []string{
		"gzip, deflate, br",
		"gzip, deflate, br, zstd",
	}
	langOpts = []string{
		"fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7",
		"fr-FR,fr;q=0.9",
		"en-US,en;q=0.9",
		"en-GB,en;q=0.9,en-US;q=0.8",
		"en-US,en;q=0.9,fr;q=0.8",
	}

	headerOrder = []string{
		"accept",
		"accept-language",
		"accept-encoding",
		"authorization",
		"content-type",
		"user-agent",
		"sec-ch-ua",
		"sec-ch-ua-mobile",
		"sec-ch-ua-platform",
		"origin",
		"referer",
		"sec-fetch-site",
		"sec-fetch-mode",
		"sec-fetch-dest",
		"priority",
	}

	platforms = []struct {
		ua       string
		platform string
	}{
		{"Windows NT 10.0; Win64; x64", "Windows"},
		{"Macintosh; Intel Mac OS X 10_15_7", "macOS"},
		{"X11; Linux x86_64", "Linux"},
	}
)

func generateUA(chromeMajor int) (ua, platform string) {
	p := platforms[rand.Intn(len(platforms))]
	ua = fmt.Sprintf(
		"Mozilla/5.0 (%s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.0.0 Safari/537.36",
		p.ua, chromeMajor,
	)
	return ua, p.platform
}

func generateSecCHUA(chromeMajor int) string {
	return fmt.Sprintf(
		`"Not_A Brand";v="8", "Chromium";v="%d", "Google Chrome";v="%d"`,
		chromeMajor, chromeMajor,
	)
}

// NewProfile returns a random desktop Chrome identity of the given major version.
func NewProfile(chromeMajor int) Profile {
	if chromeMajor <= 0 {
		chromeMajor = 120
	}
	ua, platform := generateUA(chromeMajor)
	return Profile{
		ua:        ua,
		secCHUA:   generateSecCHUA(chromeMajor),
		platform:  platform,
		acceptIdx: rand.Intn(len(acceptOpts)),
		langIdx:   rand.Intn(len(langOpts)),
		encIdx:    rand.Intn(len(encOpts)),
	}
}

func (p Profile) UserAgent() string {
	return p.ua
}

// Build returns the base header set for JSON calls made from the given site origin.
func (p Profile) Build(origin string) http.Header {
	h := http.Header{}
	h.Set("accept", acceptOpts[p.acceptIdx])
	h.Set("accept-language", langOpts[p.langIdx])
	h.Set("accept-encoding", encOpts[p.encIdx])
	h.Set("content-type", "application/json")
	h.Set("user-agent", p.ua)
	h.Set("sec-ch-ua", p.secCHUA)
	h.Set("sec-ch-ua-mobile", "?0")
	h.Set("sec-ch-ua-platform", `"`+p.platform+`"`)
	if origin != "" {
		h.Set("origin", origin)
		h.Set("referer", strings.TrimSuffix(origin, "/")+"/")
	}
	h.Set("sec-fetch-site", "same-site")
	h.Set("sec-fetch-mode", "cors")
	h.Set("sec-fetch-dest", "empty")
	h.Set("priority", "u=1, i")

	h[http.HeaderOrderKey] = headerOrder

	return h
}

// ChromeMajor extracts the Chrome major version from a tls-client profile name
// such as "chrome_120". Unknown names yield 0.
func ChromeMajor(profile string) int {
	rest, ok := strings.CutPrefix(strings.ToLower(profile), "chrome_")
	if !ok {
		return 0
	}
	if i := strings.IndexByte(rest, '_'); i >= 0 {
		rest = rest[:i]
	}
	n := 0
	for _, c := range rest {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
