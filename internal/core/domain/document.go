package domain

import "encoding/json"

type Kind string

const (
	KindBikes      Kind = "bikes"
	KindComponents Kind = "components"
	KindUsers      Kind = "users"
)

// Kinds lists every stored kind in purge order.
var Kinds = []Kind{KindComponents, KindBikes, KindUsers}

// Document is what the entity store persists. ID is zero until the store
// assigns one on the first Put.
type Document struct {
	Kind Kind
	ID   int64
	Data json.RawMessage
}

// Filter is an equality match on a top-level document field.
type Filter struct {
	Field string
	Value interface{}
}

type Query struct {
	Kind   Kind
	Filter *Filter
	Limit  int
	Offset int
}
