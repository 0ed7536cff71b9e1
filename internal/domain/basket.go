package domain

import "time"

// Item is a single image in a basket. Two items are the same item when their
// IDs match exactly; Metadata is arbitrary JSON carried along untouched.
type Item struct {
	ID       string         `json:"uuid" bson:"uuid" dynamodbav:"uuid"`
	Metadata map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

// Same reports whether i and other share an identifier (case-sensitive).
func (i Item) Same(other Item) bool {
	return i.ID == other.ID
}

// Basket is the persisted set of items for one owner. A stored basket always
// holds at least one item; an empty basket is deleted instead of saved.
type Basket struct {
	OwnerID   string    `json:"uuid" bson:"owner_id" dynamodbav:"uuid"`
	Items     []Item    `json:"images" bson:"images" dynamodbav:"images"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" dynamodbav:"updated_at"`
}

// IndexOf returns the position of the item with the same ID as item, or -1.
func (b *Basket) IndexOf(item Item) int {
	for i, existing := range b.Items {
		if existing.Same(item) {
			return i
		}
	}
	return -1
}

// Clone returns a copy whose item slice can be mutated without touching b.
func (b *Basket) Clone() *Basket {
	c := *b
	c.Items = make([]Item, len(b.Items))
	copy(c.Items, b.Items)
	return &c
}

// BasketRequest is the inbound payload for add and remove calls.
type BasketRequest struct {
	OwnerID string `json:"uuid"`
	Items   []Item `json:"images"`
}

// Candidate returns the item a request operates on.
//
// Only the first item of the payload is honored; any further items are
// ignored. Callers that need several items must issue one request per item.
// Returns nil when the payload carries no usable item.
func (r BasketRequest) Candidate() *Item {
	if len(r.Items) == 0 || r.Items[0].ID == "" {
		return nil
	}
	item := r.Items[0]
	return &item
}
