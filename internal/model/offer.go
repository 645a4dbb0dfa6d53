package model

import "fmt"

type Offer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	VariantID    int    `json:"variantId"`
	SKU          string `json:"sku"`
	Brand        string `json:"brand"`
	Image        string `json:"image"`
	Size         string `json:"europeanSize"`
	ListingPrice Price  `json:"listingPrice"`
	Price        Price  `json:"price"`
	CreateTime   string `json:"createTime"`
}

// Key identifies an offer. Price fields take no part in identity.
func (o Offer) Key() string {
	return o.ID
}

// Acceptable reports whether the offer is within delta of the listing price.
func (o Offer) Acceptable(delta int) bool {
	return int(o.Price) >= int(o.ListingPrice)-delta
}

func (o Offer) String() string {
	return fmt.Sprintf("Offer(id=%s, sku=%s, size=%s, price=%d)", o.ID, o.SKU, o.Size, o.Price)
}
