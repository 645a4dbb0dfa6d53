package notify

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	offersURL      = "https://sell.wethenew.com/fr/offers"
	consignmentURL = "https://sell.wethenew.com/fr/consignment"
	listingURL     = "https://sell.wethenew.com/fr/listing"

	footerText = "sellbot"
	footerIcon = "https://github.githubassets.com/assets/GitHub-Mark-ea2971cee799.png"

	colorSeen    = 0xC8DEDC
	colorSuccess = 0x57F287
	colorRefused = 0xED4245
	colorConsign = 0x5865F2
	colorAlert   = 0xFEE75C

	// blank keeps Discord from collapsing the gap after a field.
	blank = "\n\u200b"
)

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Image struct {
	URL string `json:"url"`
}

type Footer struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

type Embed struct {
	Title     string  `json:"title"`
	URL       string  `json:"url,omitempty"`
	Color     int     `json:"color"`
	Fields    []Field `json:"fields"`
	Thumbnail *Image  `json:"thumbnail,omitempty"`
	Footer    Footer  `json:"footer"`
}

type Payload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Embeds    []Embed `json:"embeds"`
}

func euros(v int) string {
	return strconv.Itoa(v) + "€"
}

func thumbnail(url string) *Image {
	if url == "" {
		return nil
	}
	return &Image{URL: url}
}

// BuildEmbed renders e as a chat embed.
func BuildEmbed(e Event) Embed {
	embed := Embed{Footer: Footer{Text: footerText, IconURL: footerIcon}}

	switch e.Kind {
	case KindOfferSeen, KindOfferAccepted, KindOfferRefused:
		o := e.Offer
		embed.URL = offersURL
		embed.Thumbnail = thumbnail(o.Image)
		embed.Fields = []Field{
			{Name: "Product", Value: o.Brand + " - " + o.Name + blank},
			{Name: "Size", Value: o.Size, Inline: true},
			{Name: "Listing Price", Value: euros(int(o.ListingPrice)), Inline: true},
			{Name: "Offer Price", Value: euros(int(o.Price)) + blank, Inline: true},
		}
		switch e.Kind {
		case KindOfferSeen:
			embed.Title = fmt.Sprintf("New offer found [%s] 🔎", o.SKU)
			embed.Color = colorSeen
			embed.Fields = append(embed.Fields, Field{Name: "Created", Value: o.CreateTime})
		case KindOfferAccepted:
			embed.Title = fmt.Sprintf("Offer accepted [%s] ✅", o.SKU)
			embed.Color = colorSuccess
		case KindOfferRefused:
			embed.Title = fmt.Sprintf("Offer refused [%s] ❌", o.SKU)
			embed.Color = colorRefused
			embed.Fields = append(embed.Fields, Field{Name: "Counter Offer", Value: euros(int(o.ListingPrice))})
		}

	case KindConsignSizeAdded:
		c := e.Consign
		embed.Title = fmt.Sprintf("Consignment sizes available [%s] 📦", c.Name)
		embed.URL = consignmentURL
		embed.Color = colorConsign
		embed.Thumbnail = thumbnail(c.Image)
		embed.Fields = []Field{
			{Name: "Product", Value: c.Brand + " - " + c.Name + blank},
			{Name: "ID", Value: strconv.Itoa(c.ID), Inline: true},
			{Name: "Sizes", Value: strings.Join(e.Sizes, ", "), Inline: true},
		}

	case KindConsignPlaced:
		p := e.Product
		embed.Title = fmt.Sprintf("Consignment placed [%s] ✅", p.Name)
		embed.URL = consignmentURL
		embed.Color = colorSuccess
		embed.Thumbnail = thumbnail(p.Image)
		embed.Fields = []Field{
			{Name: "Product", Value: p.Name + blank},
			{Name: "Size", Value: p.Size, Inline: true},
			{Name: "Price", Value: euros(p.Price), Inline: true},
		}

	case KindListingDeleteFailed:
		p := e.Product
		embed.Title = fmt.Sprintf("Listing removal failed [%s] ⚠️", p.Name)
		embed.URL = listingURL
		embed.Color = colorAlert
		embed.Thumbnail = thumbnail(p.Image)
		embed.Fields = []Field{
			{Name: "Listing", Value: p.ID, Inline: true},
			{Name: "Size", Value: p.Size, Inline: true},
			{Name: "Error", Value: e.Detail},
		}

	default:
		embed.Title = string(e.Kind)
		embed.Color = colorAlert
	}

	if e.Account != "" {
		embed.Fields = append(embed.Fields, Field{Name: "Account", Value: e.Account})
	}
	return embed
}
