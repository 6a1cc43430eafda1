package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"
)

// entities converts between store documents and domain types.
type entities struct {
	store ports.EntityStore
}

func (e entities) get(ctx context.Context, kind domain.Kind, id int64, dst interface{}) error {
	doc, err := e.store.Get(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(doc.Data, dst); err != nil {
		return fmt.Errorf("decode %s/%d: %w", kind, id, err)
	}
	return nil
}

func (e entities) put(ctx context.Context, kind domain.Kind, id *int64, src interface{}) error {
	data, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	doc := &domain.Document{Kind: kind, ID: *id, Data: data}
	if err := e.store.Put(ctx, doc); err != nil {
		return err
	}
	*id = doc.ID
	return nil
}

func (e entities) bike(ctx context.Context, id int64) (*domain.Bike, error) {
	bike := &domain.Bike{}
	if err := e.get(ctx, domain.KindBikes, id, bike); err != nil {
		return nil, err
	}
	bike.ID = id
	bike.Normalize()
	return bike, nil
}

func (e entities) putBike(ctx context.Context, bike *domain.Bike) error {
	bike.Normalize()
	return e.put(ctx, domain.KindBikes, &bike.ID, bike)
}

func (e entities) component(ctx context.Context, id int64) (*domain.Component, error) {
	component := &domain.Component{}
	if err := e.get(ctx, domain.KindComponents, id, component); err != nil {
		return nil, err
	}
	component.ID = id
	return component, nil
}

func (e entities) putComponent(ctx context.Context, component *domain.Component) error {
	return e.put(ctx, domain.KindComponents, &component.ID, component)
}

func (e entities) user(ctx context.Context, id int64) (*domain.User, error) {
	user := &domain.User{}
	if err := e.get(ctx, domain.KindUsers, id, user); err != nil {
		return nil, err
	}
	user.ID = id
	user.Normalize()
	return user, nil
}

func (e entities) putUser(ctx context.Context, user *domain.User) error {
	user.Normalize()
	return e.put(ctx, domain.KindUsers, &user.ID, user)
}

// Page is one page of a listing.
type Page[T any] struct {
	Items   []T
	Limit   int
	Offset  int
	HasMore bool
}

func queryPage[T any](ctx context.Context, e entities, q domain.Query, assign func(*T, int64)) (*Page[*T], error) {
	docs, more, err := e.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	page := &Page[*T]{Items: make([]*T, 0, len(docs)), Limit: q.Limit, Offset: q.Offset, HasMore: more}
	for _, doc := range docs {
		item := new(T)
		if err := json.Unmarshal(doc.Data, item); err != nil {
			return nil, fmt.Errorf("decode %s/%d: %w", doc.Kind, doc.ID, err)
		}
		assign(item, doc.ID)
		page.Items = append(page.Items, item)
	}
	return page, nil
}

func assignBike(b *domain.Bike, id int64) {
	b.ID = id
	b.Normalize()
}

func assignComponent(c *domain.Component, id int64) {
	c.ID = id
}

func assignUser(u *domain.User, id int64) {
	u.ID = id
	u.Normalize()
}
