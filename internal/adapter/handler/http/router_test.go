package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sm8ta/webike_rental_microservice/internal/adapter/logger"
	"github.com/sm8ta/webike_rental_microservice/internal/adapter/memory"
	metrics "github.com/sm8ta/webike_rental_microservice/internal/adapter/prometheus"
	"github.com/sm8ta/webike_rental_microservice/internal/config"
	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testBaseURL = "https://rental.example.com"

// fakeTokenService accepts any token of the form "valid:<subject>".
type fakeTokenService struct{}

func (fakeTokenService) VerifyToken(token string) (*domain.Claims, error) {
	subject, ok := strings.CutPrefix(token, "valid:")
	if !ok {
		return nil, domain.NewAuthError("invalid_header", "Unable to parse authentication token.")
	}
	return &domain.Claims{
		Subject:  subject,
		Nickname: subject,
		Raw:      map[string]interface{}{"sub": subject},
	}, nil
}

type harness struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.Store
	users  *services.UserService
}

func newHarness(t *testing.T, env string) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	log := logger.NewFromZap(zap.NewNop())
	m := metrics.NewPrometheusAdapterWith(prometheus.NewRegistry())
	validate := validator.New()

	relations := services.NewRelationService(store, log, m)
	bikeService := services.NewBikeService(store, relations, log, validate)
	componentService := services.NewComponentService(store, relations, log, validate)
	userService := services.NewUserService(store, relations, log)

	router, err := NewRouter(
		&config.HTTP{Env: env, AllowedOrigins: "*", PublicURL: testBaseURL},
		fakeTokenService{},
		userService,
		log,
		NewBikeHandler(bikeService, log, m, testBaseURL),
		NewComponentHandler(componentService, log, m, testBaseURL),
		NewUserHandler(userService, log, m, testBaseURL),
	)
	require.NoError(t, err)

	return &harness{t: t, engine: router.Engine(), store: store, users: userService}
}

type request struct {
	method      string
	path        string
	body        string
	subject     string
	token       string
	contentType string
	accept      string
}

func (h *harness) do(r request) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(r.method, r.path, strings.NewReader(r.body))
	if r.body != "" {
		ct := r.contentType
		if ct == "" {
			ct = "application/json"
		}
		req.Header.Set("Content-Type", ct)
	}
	if r.accept != "" {
		req.Header.Set("Accept", r.accept)
	}
	switch {
	case r.token != "":
		req.Header.Set("Authorization", "Bearer "+r.token)
	case r.subject != "":
		req.Header.Set("Authorization", "Bearer valid:"+r.subject)
	}
	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

const bikeBody = `{"manufacturer":"Trek","type":"mountain","model_year":2021,"bike_size":"L"}`

func (h *harness) createBike(subject string) bikeResponse {
	h.t.Helper()
	w := h.do(request{method: http.MethodPost, path: "/bikes", body: bikeBody, subject: subject})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var bike bikeResponse
	decode(h.t, w, &bike)
	return bike
}

func (h *harness) createComponent(description string) componentResponse {
	h.t.Helper()
	body := fmt.Sprintf(`{"manufacturer":"Shimano","description":%q,"condition":"new"}`, description)
	w := h.do(request{method: http.MethodPost, path: "/components", body: body})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	var component componentResponse
	decode(h.t, w, &component)
	return component
}

func (h *harness) userID(subject string) int64 {
	h.t.Helper()
	user, err := h.users.GetUserByRenterID(h.t.Context(), subject)
	require.NoError(h.t, err)
	return user.ID
}

func (h *harness) rent(subject string, bikeID int64) {
	h.t.Helper()
	w := h.do(request{method: http.MethodPut, path: fmt.Sprintf("/users/%d/bikes/%d", h.userID(subject), bikeID), subject: subject})
	require.Equal(h.t, http.StatusNoContent, w.Code, w.Body.String())
}

func TestCreateBike(t *testing.T) {
	h := newHarness(t, "test")

	bike := h.createBike("auth0|rider")
	assert.NotZero(t, bike.ID)
	assert.Equal(t, fmt.Sprintf("%s/bikes/%d", testBaseURL, bike.ID), bike.Self)
	assert.Equal(t, "Trek", bike.Manufacturer)
	assert.NotNil(t, bike.Specs)
	assert.Nil(t, bike.Rentee)

	// The first authenticated request creates the user.
	assert.Equal(t, 1, h.store.Len(domain.KindUsers))
}

func TestCreateBikeRejectsRequests(t *testing.T) {
	h := newHarness(t, "test")

	tests := []struct {
		name   string
		req    request
		status int
		code   string
	}{
		{"no auth", request{method: http.MethodPost, path: "/bikes", body: bikeBody}, http.StatusUnauthorized, "no auth header"},
		{"bad token", request{method: http.MethodPost, path: "/bikes", body: bikeBody, token: "forged"}, http.StatusUnauthorized, "invalid_header"},
		{"missing field", request{method: http.MethodPost, path: "/bikes", body: `{"manufacturer":"Trek","type":"mountain","model_year":2021}`, subject: "a"}, http.StatusBadRequest, "Bad Request"},
		{"extra field", request{method: http.MethodPost, path: "/bikes", body: `{"manufacturer":"Trek","type":"mountain","model_year":2021,"bike_size":"L","specs":[]}`, subject: "a"}, http.StatusBadRequest, "Bad Request"},
		{"wrong type", request{method: http.MethodPost, path: "/bikes", body: `{"manufacturer":"Trek","type":"mountain","model_year":"new","bike_size":"L"}`, subject: "a"}, http.StatusBadRequest, "Bad Request"},
		{"content type", request{method: http.MethodPost, path: "/bikes", body: bikeBody, contentType: "text/plain", subject: "a"}, http.StatusUnsupportedMediaType, "Unsupported Media Type"},
		{"accept", request{method: http.MethodPost, path: "/bikes", body: bikeBody, accept: "text/html", subject: "a"}, http.StatusNotAcceptable, "Not Acceptable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(tt.req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var res errorResponse
			decode(t, w, &res)
			assert.Equal(t, tt.code, res.Code)
		})
	}
	assert.Equal(t, 0, h.store.Len(domain.KindBikes))
}

func TestGetMyBikesPagination(t *testing.T) {
	h := newHarness(t, "test")
	h.createBike("auth0|other")
	for i := 0; i < 12; i++ {
		bike := h.createBike("auth0|rider")
		h.rent("auth0|rider", bike.ID)
	}

	w := h.do(request{method: http.MethodGet, path: "/bikes", subject: "auth0|rider"})
	require.Equal(t, http.StatusOK, w.Code)
	var page bikesResponse
	decode(t, w, &page)
	assert.Len(t, page.Bikes, 5)
	assert.Equal(t, 5, page.TotalItems)
	assert.Equal(t, testBaseURL+"/bikes?limit=5&offset=5", page.Next)

	w = h.do(request{method: http.MethodGet, path: "/bikes?offset=10", subject: "auth0|rider"})
	require.Equal(t, http.StatusOK, w.Code)
	page = bikesResponse{}
	decode(t, w, &page)
	assert.Len(t, page.Bikes, 2)
	assert.Empty(t, page.Next)
	for _, b := range page.Bikes {
		require.NotNil(t, b.Rentee)
		assert.Equal(t, h.userID("auth0|rider"), *b.Rentee)
	}

	w = h.do(request{method: http.MethodGet, path: "/bikes?limit=zero", subject: "auth0|rider"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBikeRequiresRenter(t *testing.T) {
	h := newHarness(t, "test")
	bike := h.createBike("auth0|rider")
	path := fmt.Sprintf("/bikes/%d", bike.ID)

	w := h.do(request{method: http.MethodGet, path: path, subject: "auth0|rider"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	h.rent("auth0|rider", bike.ID)

	w = h.do(request{method: http.MethodDelete, path: path, subject: "auth0|intruder"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = h.do(request{method: http.MethodPatch, path: path, body: `{"type":"road"}`, subject: "auth0|intruder"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(request{method: http.MethodGet, path: path, subject: "auth0|rider"})
	require.Equal(t, http.StatusOK, w.Code)
	var got bikeResponse
	decode(t, w, &got)
	assert.Equal(t, "mountain", got.Type)

	w = h.do(request{method: http.MethodGet, path: "/bikes/999", subject: "auth0|rider"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateAndDeleteBike(t *testing.T) {
	h := newHarness(t, "test")
	bike := h.createBike("auth0|rider")
	h.rent("auth0|rider", bike.ID)
	path := fmt.Sprintf("/bikes/%d", bike.ID)

	w := h.do(request{method: http.MethodPatch, path: path, body: `{"color":"red"}`, subject: "auth0|rider"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(request{method: http.MethodPatch, path: path, body: `{"bike_size":"XL"}`, subject: "auth0|rider"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(request{method: http.MethodPut, path: path, body: `{"manufacturer":"Giant","type":"road","model_year":2019,"bike_size":"M"}`, subject: "auth0|rider"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(request{method: http.MethodGet, path: path, subject: "auth0|rider"})
	var got bikeResponse
	decode(t, w, &got)
	assert.Equal(t, "Giant", got.Manufacturer)
	assert.Equal(t, "M", got.BikeSize)

	w = h.do(request{method: http.MethodDelete, path: path, subject: "auth0|rider"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, h.store.Len(domain.KindBikes))

	w = h.do(request{method: http.MethodGet, path: fmt.Sprintf("/users/%d", h.userID("auth0|rider"))})
	var user userResponse
	decode(t, w, &user)
	assert.Empty(t, user.Rental)
}

func TestInstallComponent(t *testing.T) {
	h := newHarness(t, "test")
	bike := h.createBike("auth0|rider")
	component := h.createComponent("XT derailleur")
	path := fmt.Sprintf("/bikes/%d/components/%d", bike.ID, component.ID)

	w := h.do(request{method: http.MethodPut, path: path})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(request{method: http.MethodPut, path: path, subject: "auth0|rider"})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	w = h.do(request{method: http.MethodPut, path: path, subject: "auth0|rider"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(request{method: http.MethodGet, path: fmt.Sprintf("/components/%d", component.ID)})
	require.Equal(t, http.StatusOK, w.Code)
	var got componentResponse
	decode(t, w, &got)
	require.NotNil(t, got.Carrier)
	assert.Equal(t, bike.ID, got.Carrier.ID)
	assert.Equal(t, bike.Self, got.Carrier.Self)

	w = h.do(request{method: http.MethodGet, path: fmt.Sprintf("/bikes/%d/components", bike.ID), subject: "auth0|rider"})
	require.Equal(t, http.StatusOK, w.Code)
	var list componentsResponse
	decode(t, w, &list)
	require.Len(t, list.Components, 1)
	assert.Equal(t, component.Self, list.Components[0].Self)

	w = h.do(request{method: http.MethodDelete, path: path, subject: "auth0|rider"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(request{method: http.MethodDelete, path: path, subject: "auth0|rider"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComponents(t *testing.T) {
	h := newHarness(t, "test")
	for i := 0; i < 6; i++ {
		h.createComponent(fmt.Sprintf("part %d", i))
	}

	w := h.do(request{method: http.MethodGet, path: "/components?limit=4"})
	require.Equal(t, http.StatusOK, w.Code)
	var page componentsResponse
	decode(t, w, &page)
	assert.Len(t, page.Components, 4)
	assert.Equal(t, testBaseURL+"/components?limit=4&offset=4", page.Next)

	id := page.Components[0].ID
	path := fmt.Sprintf("/components/%d", id)
	w = h.do(request{method: http.MethodPatch, path: path, body: `{"condition":"worn"}`})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(request{method: http.MethodPut, path: path, body: `{"manufacturer":"SRAM"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(request{method: http.MethodDelete, path: path})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(request{method: http.MethodGet, path: path})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRentBikeForAnotherUser(t *testing.T) {
	h := newHarness(t, "test")
	bike := h.createBike("auth0|rider")
	h.createBike("auth0|other")

	w := h.do(request{method: http.MethodPut, path: fmt.Sprintf("/users/%d/bikes/%d", h.userID("auth0|rider"), bike.ID), subject: "auth0|other"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	h.rent("auth0|rider", bike.ID)
	w = h.do(request{method: http.MethodPut, path: fmt.Sprintf("/users/%d/bikes/%d", h.userID("auth0|other"), bike.ID), subject: "auth0|other"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(request{method: http.MethodGet, path: fmt.Sprintf("/users/%d", h.userID("auth0|rider"))})
	var user userResponse
	decode(t, w, &user)
	require.Len(t, user.Rental, 1)
	assert.Equal(t, bike.Self, user.Rental[0].Self)

	w = h.do(request{method: http.MethodDelete, path: fmt.Sprintf("/users/%d/bikes/%d", h.userID("auth0|rider"), bike.ID), subject: "auth0|rider"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = h.do(request{method: http.MethodDelete, path: fmt.Sprintf("/users/%d/bikes/%d", h.userID("auth0|rider"), bike.ID), subject: "auth0|rider"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnknownRoutesAndMethods(t *testing.T) {
	h := newHarness(t, "test")

	w := h.do(request{method: http.MethodGet, path: "/boats"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = h.do(request{method: http.MethodPost, path: "/components/1"})
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	var res errorResponse
	decode(t, w, &res)
	assert.Equal(t, "Method Not Allowed", res.Code)
}

func TestDecodeAndPurge(t *testing.T) {
	h := newHarness(t, "test")
	h.createBike("auth0|rider")
	h.createComponent("XT derailleur")

	w := h.do(request{method: http.MethodGet, path: "/decode", subject: "auth0|rider"})
	require.Equal(t, http.StatusOK, w.Code)
	var claims claimsResponse
	decode(t, w, &claims)
	assert.Equal(t, "auth0|rider", claims.Claims["sub"])

	w = h.do(request{method: http.MethodDelete, path: "/delete"})
	require.Equal(t, http.StatusOK, w.Code)
	var purged purgeResponse
	decode(t, w, &purged)
	assert.Equal(t, 3, purged.Deleted)

	prod := newHarness(t, "production")
	w = prod.do(request{method: http.MethodDelete, path: "/delete"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
