package index

import "context"

const defaultK = 4

// Retriever binds a store to a fixed fan-out, decoupling answer assembly
// from index internals.
type Retriever struct {
	store *Store
	k     int
}

func NewRetriever(store *Store, k int) *Retriever {
	if k <= 0 {
		k = defaultK
	}
	return &Retriever{store: store, k: k}
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]Result, error) {
	return r.store.Search(ctx, query, r.k)
}
