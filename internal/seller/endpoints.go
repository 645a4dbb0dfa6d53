package seller

import (
	"net/url"
	"strconv"
	"strings"
)

// RecaptchaAnchor is the challenge anchor of the sell-site login form.
const RecaptchaAnchor = "https://www.google.com/recaptcha/api2/anchor?ar=1&k=6LeJBSAdAAAAACyoWxmCY7q5G-_6GnKBdpF4raee" +
	"&co=aHR0cHM6Ly9zZWxsLndldGhlbmV3LmNvbTo0NDM.&hl=en&v=u-xcq3POCWFlCr3x8_IPxgPu&size=invisible&cb=k30rgwzggens"

// Endpoints holds the two hosts the marketplace splits its API across:
// Site serves the auth flow, API serves everything behind the bearer token.
type Endpoints struct {
	Site string
	API  string
}

func DefaultEndpoints() Endpoints {
	return Endpoints{
		Site: "https://sell.wethenew.com",
		API:  "https://api-sell.wethenew.com",
	}
}

func join(base string, parts ...string) string {
	base = strings.TrimSuffix(base, "/")
	for _, p := range parts {
		base += "/" + strings.TrimPrefix(p, "/")
	}
	return base
}

func (e Endpoints) CSRF() string        { return join(e.Site, "api/auth/csrf") }
func (e Endpoints) Credentials() string { return join(e.Site, "api/auth/callback/credentials") }
func (e Endpoints) Session() string     { return join(e.Site, "api/auth/session") }
func (e Endpoints) LoginPage() string   { return join(e.Site, "login") }

func (e Endpoints) Profile() string          { return join(e.API, "sellers/me") }
func (e Endpoints) Listings() string         { return join(e.API, "listings") }
func (e Endpoints) PaymentInfos() string     { return join(e.API, "payment-infos") }
func (e Endpoints) ShippingAddress() string  { return join(e.API, "addresses") + "?type=shipping" }
func (e Endpoints) Offers() string           { return join(e.API, "offers") }
func (e Endpoints) ConsignmentSlots() string { return join(e.API, "consignment-slots") }
func (e Endpoints) Consignments() string     { return join(e.API, "consignments") }

func (e Endpoints) ConsignmentSlot(id int) string {
	return join(e.API, "consignment-slots", strconv.Itoa(id))
}

func (e Endpoints) Listing(id string) string {
	return join(e.API, "listings", url.PathEscape(id))
}
