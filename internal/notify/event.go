package notify

import "github.com/yourneighborhoodchef/sellbot/internal/model"

type Kind string

const (
	KindOfferSeen           Kind = "offer_seen"
	KindOfferAccepted       Kind = "offer_accepted"
	KindOfferRefused        Kind = "offer_refused"
	KindConsignSizeAdded    Kind = "consign_size_added"
	KindConsignPlaced       Kind = "consign_placed"
	KindListingDeleteFailed Kind = "listing_delete_failed"
)

// Event carries whatever the kind needs; unused fields stay zero.
type Event struct {
	Kind    Kind
	Account string
	Offer   model.Offer
	Consign model.Consign
	Sizes   []string
	Product model.Product
	Detail  string
}

func OfferSeen(account string, o model.Offer) Event {
	return Event{Kind: KindOfferSeen, Account: account, Offer: o}
}

func OfferAccepted(account string, o model.Offer) Event {
	return Event{Kind: KindOfferAccepted, Account: account, Offer: o}
}

func OfferRefused(account string, o model.Offer) Event {
	return Event{Kind: KindOfferRefused, Account: account, Offer: o}
}

func ConsignSizeAdded(account string, c model.Consign, sizes []string) Event {
	return Event{Kind: KindConsignSizeAdded, Account: account, Consign: c, Sizes: sizes}
}

func ConsignPlaced(account string, c model.Consign, p model.Product) Event {
	return Event{Kind: KindConsignPlaced, Account: account, Consign: c, Product: p, Sizes: []string{p.Size}}
}

func ListingDeleteFailed(account string, p model.Product, detail string) Event {
	return Event{Kind: KindListingDeleteFailed, Account: account, Product: p, Detail: detail}
}
