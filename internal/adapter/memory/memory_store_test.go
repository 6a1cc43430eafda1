package memory

import (
	"context"
	"testing"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, s *Store, kind domain.Kind, data string) int64 {
	t.Helper()
	doc := &domain.Document{Kind: kind, Data: []byte(data)}
	require.NoError(t, s.Put(context.Background(), doc))
	return doc.ID
}

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	id := put(t, s, domain.KindBikes, `{"manufacturer":"Trek"}`)
	assert.NotZero(t, id)

	doc, err := s.Get(ctx, domain.KindBikes, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"manufacturer":"Trek"}`, string(doc.Data))

	_, err = s.Get(ctx, domain.KindComponents, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Put(ctx, &domain.Document{Kind: domain.KindBikes, ID: id, Data: []byte(`{"manufacturer":"Giant"}`)}))
	doc, err = s.Get(ctx, domain.KindBikes, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"manufacturer":"Giant"}`, string(doc.Data))

	require.NoError(t, s.Delete(ctx, domain.KindBikes, id))
	assert.ErrorIs(t, s.Delete(ctx, domain.KindBikes, id), domain.ErrNotFound)
}

func TestStoreRejectsInvalidJSON(t *testing.T) {
	err := NewStore().Put(context.Background(), &domain.Document{Kind: domain.KindBikes, Data: []byte(`{`)})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i := 0; i < 7; i++ {
		rentee := "null"
		if i%2 == 0 {
			rentee = "3"
		}
		put(t, s, domain.KindBikes, `{"rentee":`+rentee+`}`)
	}
	put(t, s, domain.KindUsers, `{"renter_id":"auth0|rider"}`)

	docs, more, err := s.Query(ctx, domain.Query{Kind: domain.KindBikes, Limit: 5})
	require.NoError(t, err)
	assert.Len(t, docs, 5)
	assert.True(t, more)
	assert.Less(t, docs[0].ID, docs[1].ID)

	docs, more, err = s.Query(ctx, domain.Query{Kind: domain.KindBikes, Limit: 5, Offset: 5})
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.False(t, more)

	docs, _, err = s.Query(ctx, domain.Query{Kind: domain.KindBikes, Filter: &domain.Filter{Field: "rentee", Value: int64(3)}})
	require.NoError(t, err)
	assert.Len(t, docs, 4)

	docs, _, err = s.Query(ctx, domain.Query{Kind: domain.KindUsers, Filter: &domain.Filter{Field: "renter_id", Value: "auth0|rider"}})
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	docs, more, err = s.Query(ctx, domain.Query{Kind: domain.KindBikes, Limit: 5, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.False(t, more)
	assert.Equal(t, 7, s.Len(domain.KindBikes))
}

func TestStoreUniqueRenterID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	id := put(t, s, domain.KindUsers, `{"renter_id":"auth0|rider"}`)

	err := s.Put(ctx, &domain.Document{Kind: domain.KindUsers, Data: []byte(`{"renter_id":"auth0|rider"}`)})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	// Rewriting the same user is not a duplicate.
	assert.NoError(t, s.Put(ctx, &domain.Document{Kind: domain.KindUsers, ID: id, Data: []byte(`{"renter_id":"auth0|rider","rental":[]}`)}))
	assert.Equal(t, 1, s.Len(domain.KindUsers))
}
