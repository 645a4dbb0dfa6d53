package model

import "sync"

// ProductKey is how a listing entry is matched against a consignment size.
type ProductKey struct {
	Name string
	Size string
}

type Product struct {
	// ID is the listing identifier used to delete the entry.
	ID    string
	Name  string
	Size  string
	Image string
	Price int
}

func (p Product) Key() ProductKey {
	return ProductKey{Name: p.Name, Size: p.Size}
}

// Listing is a seller's current for-sale entries.
type Listing struct {
	mu       sync.RWMutex
	products []Product
}

func NewListing(products []Product) *Listing {
	return &Listing{products: append([]Product(nil), products...)}
}

func (l *Listing) Find(key ProductKey) (Product, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.products {
		if p.Key() == key {
			return p, true
		}
	}
	return Product{}, false
}

// Take removes and returns the entry matching key. Only one caller can take a
// given entry, so concurrent placers never consign the same item twice.
func (l *Listing) Take(key ProductKey) (Product, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, p := range l.products {
		if p.Key() == key {
			l.products = append(l.products[:i], l.products[i+1:]...)
			return p, true
		}
	}
	return Product{}, false
}

// Restore puts back an entry handed out by Take. It is a no-op when an entry
// with the same ID is present again, e.g. after a Replace.
func (l *Listing) Restore(p Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.products {
		if existing.ID == p.ID {
			return
		}
	}
	l.products = append(l.products, p)
}

func (l *Listing) Replace(products []Product) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products = append([]Product(nil), products...)
}

func (l *Listing) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.products)
}

func (l *Listing) Products() []Product {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Product(nil), l.products...)
}
