package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/sm8ta/webike_rental_microservice/internal/adapter/logger"
	"github.com/sm8ta/webike_rental_microservice/internal/adapter/memory"
	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// flakyStore fails the writes its hooks select.
type flakyStore struct {
	*memory.Store
	failPut    func(doc *domain.Document) bool
	failDelete func(kind domain.Kind, id int64) bool
}

func (s *flakyStore) Put(ctx context.Context, doc *domain.Document) error {
	if s.failPut != nil && s.failPut(doc) {
		return domain.ErrStoreUnavailable
	}
	return s.Store.Put(ctx, doc)
}

func (s *flakyStore) Delete(ctx context.Context, kind domain.Kind, id int64) error {
	if s.failDelete != nil && s.failDelete(kind, id) {
		return domain.ErrStoreUnavailable
	}
	return s.Store.Delete(ctx, kind, id)
}

func (s *flakyStore) heal() {
	s.failPut = nil
	s.failDelete = nil
}

type relationCall struct {
	operation string
	err       error
}

type recordingMetrics struct {
	relations []relationCall
}

func (m *recordingMetrics) RecordMetrics(*gin.Context, time.Time) {}

func (m *recordingMetrics) RecordRelation(operation string, err error) {
	m.relations = append(m.relations, relationCall{operation: operation, err: err})
}

type fixture struct {
	ctx        context.Context
	store      *flakyStore
	metrics    *recordingMetrics
	relations  *services.RelationService
	bikes      *services.BikeService
	components *services.ComponentService
	users      *services.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := &flakyStore{Store: memory.NewStore()}
	log := logger.NewFromZap(zaptest.NewLogger(t))
	metrics := &recordingMetrics{}
	validate := validator.New()
	relations := services.NewRelationService(store, log, metrics)

	return &fixture{
		ctx:        context.Background(),
		store:      store,
		metrics:    metrics,
		relations:  relations,
		bikes:      services.NewBikeService(store, relations, log, validate),
		components: services.NewComponentService(store, relations, log, validate),
		users:      services.NewUserService(store, relations, log),
	}
}

func (f *fixture) newBike(t *testing.T, manufacturer string) *domain.Bike {
	t.Helper()
	bike, err := f.bikes.CreateBike(f.ctx, &domain.Bike{
		Manufacturer: manufacturer,
		Type:         "mountain",
		ModelYear:    2021,
		BikeSize:     "L",
	})
	require.NoError(t, err)
	return bike
}

func (f *fixture) newComponent(t *testing.T, description string) *domain.Component {
	t.Helper()
	component, err := f.components.CreateComponent(f.ctx, &domain.Component{
		Manufacturer: "Shimano",
		Description:  description,
		Condition:    "new",
	})
	require.NoError(t, err)
	return component
}

func (f *fixture) newUser(t *testing.T, subject string) *domain.User {
	t.Helper()
	user, err := f.users.EnsureUser(f.ctx, &domain.Claims{Subject: subject, Nickname: subject, Email: subject + "@example.com"})
	require.NoError(t, err)
	return user
}

func (f *fixture) bike(t *testing.T, id int64) *domain.Bike {
	t.Helper()
	bike, err := f.bikes.GetBikeByID(f.ctx, id)
	require.NoError(t, err)
	return bike
}

func (f *fixture) component(t *testing.T, id int64) *domain.Component {
	t.Helper()
	component, err := f.components.GetComponentByID(f.ctx, id)
	require.NoError(t, err)
	return component
}

func (f *fixture) user(t *testing.T, id int64) *domain.User {
	t.Helper()
	user, err := f.users.GetUserByID(f.ctx, id)
	require.NoError(t, err)
	return user
}
