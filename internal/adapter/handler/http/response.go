package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sm8ta/webike_rental_microservice/internal/core/domain"
	"github.com/sm8ta/webike_rental_microservice/internal/core/services"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit  = 5
	defaultOffset = 0
)

type errorResponse struct {
	Code        string `json:"code" example:"Not Found"`
	Description string `json:"description" example:"No bike with this bike_id exists"`
}

type claimsResponse struct {
	Claims map[string]interface{} `json:"claims"`
}

type purgeResponse struct {
	Deleted int `json:"deleted"`
}

func newErrorResponse(c *gin.Context, status int, code, description string) {
	c.AbortWithStatusJSON(status, errorResponse{Code: code, Description: description})
}

func newSuccessResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// handleError writes the status and body a service error maps to.
func handleError(c *gin.Context, err error) {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		newErrorResponse(c, authErr.Status, authErr.Code, authErr.Description)
		return
	}

	switch {
	case errors.Is(err, domain.ErrBadRequest):
		newErrorResponse(c, http.StatusBadRequest, "Bad Request", detail(err, domain.ErrBadRequest))
	case errors.Is(err, domain.ErrNotRenting):
		newErrorResponse(c, http.StatusUnauthorized, "Unauthorized", "You must rent this bike before making any requests")
	case errors.Is(err, domain.ErrNotAuthorized):
		newErrorResponse(c, http.StatusForbidden, "Forbidden", "This resource belongs to another user")
	case errors.Is(err, domain.ErrAlreadyLinked):
		newErrorResponse(c, http.StatusForbidden, "Forbidden", "This component is already installed on a bike")
	case errors.Is(err, domain.ErrAlreadyRented):
		newErrorResponse(c, http.StatusForbidden, "Forbidden", "This bike is currently rented out")
	case errors.Is(err, domain.ErrNotLinked):
		newErrorResponse(c, http.StatusNotFound, "Not Found", "No component with this component_id is installed on this bike")
	case errors.Is(err, domain.ErrNotRented):
		newErrorResponse(c, http.StatusNotFound, "Not Found", "No bike with this bike_id is rented to a user with this user_id")
	case errors.Is(err, domain.ErrNotFound):
		newErrorResponse(c, http.StatusNotFound, "Not Found", "The specified resource does not exist")
	case errors.Is(err, domain.ErrStoreUnavailable):
		newErrorResponse(c, http.StatusServiceUnavailable, "Service Unavailable", "The entity store is unavailable")
	default:
		newErrorResponse(c, http.StatusInternalServerError, "Internal Server Error", "Unexpected error")
	}
}

func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == sentinel.Error() {
		return "The request object is missing at least one of the required attributes"
	}
	return msg
}

func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		newErrorResponse(c, http.StatusNotFound, "Not Found", "The specified resource does not exist")
		return 0, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, offset = defaultLimit, defaultOffset
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			newErrorResponse(c, http.StatusBadRequest, "Bad Request", "limit must be a positive integer")
			return 0, 0, false
		}
		limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			newErrorResponse(c, http.StatusBadRequest, "Bad Request", "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}

// links builds absolute URLs against the public base URL, falling back to
// the scheme and host the request arrived on.
type links struct {
	base string
}

func newLinks(c *gin.Context, publicURL string) links {
	if publicURL != "" {
		return links{base: strings.TrimRight(publicURL, "/")}
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return links{base: scheme + "://" + c.Request.Host}
}

func (l links) self(kind domain.Kind, id int64) string {
	return fmt.Sprintf("%s/%s/%d", l.base, kind, id)
}

func (l links) next(path string, limit, offset int) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset+limit))
	return l.base + path + "?" + q.Encode()
}

type specResponse struct {
	ID          int64  `json:"id" example:"12"`
	Description string `json:"description" example:"Shimano XT derailleur"`
	Self        string `json:"self"`
}

type carrierResponse struct {
	ID           int64  `json:"id" example:"3"`
	Manufacturer string `json:"manufacturer" example:"Trek"`
	Self         string `json:"self"`
}

type rentalResponse struct {
	ID   int64  `json:"id" example:"3"`
	Self string `json:"self"`
}

type bikeResponse struct {
	ID           int64          `json:"id" example:"3"`
	Manufacturer string         `json:"manufacturer" example:"Trek"`
	Type         string         `json:"type" example:"mountain"`
	ModelYear    int            `json:"model_year" example:"2021"`
	BikeSize     string         `json:"bike_size" example:"L"`
	Specs        []specResponse `json:"specs"`
	Rentee       *int64         `json:"rentee"`
	Self         string         `json:"self"`
}

type componentResponse struct {
	ID           int64            `json:"id" example:"12"`
	Manufacturer string           `json:"manufacturer" example:"Shimano"`
	Description  string           `json:"description" example:"Shimano XT derailleur"`
	Condition    string           `json:"condition" example:"new"`
	Carrier      *carrierResponse `json:"carrier"`
	Self         string           `json:"self"`
}

type userResponse struct {
	ID       int64            `json:"id" example:"7"`
	Nickname string           `json:"nickname" example:"rider"`
	Email    string           `json:"email" example:"rider@example.com"`
	Verified bool             `json:"verified"`
	RenterID string           `json:"renter_id" example:"auth0|6476c0b1"`
	Rental   []rentalResponse `json:"rental"`
	Self     string           `json:"self"`
}

type bikesResponse struct {
	Bikes      []bikeResponse `json:"bikes"`
	TotalItems int            `json:"total_items"`
	Next       string         `json:"next,omitempty"`
}

type componentsResponse struct {
	Components []componentResponse `json:"components"`
	TotalItems int                 `json:"total_items"`
	Next       string              `json:"next,omitempty"`
}

type usersResponse struct {
	Users      []userResponse `json:"users"`
	TotalItems int            `json:"total_items"`
	Next       string         `json:"next,omitempty"`
}

func (l links) bike(b *domain.Bike) bikeResponse {
	specs := make([]specResponse, 0, len(b.Specs))
	for _, s := range b.Specs {
		specs = append(specs, specResponse{ID: s.ID, Description: s.Description, Self: l.self(domain.KindComponents, s.ID)})
	}
	return bikeResponse{
		ID:           b.ID,
		Manufacturer: b.Manufacturer,
		Type:         b.Type,
		ModelYear:    b.ModelYear,
		BikeSize:     b.BikeSize,
		Specs:        specs,
		Rentee:       b.Rentee,
		Self:         l.self(domain.KindBikes, b.ID),
	}
}

func (l links) component(c *domain.Component) componentResponse {
	res := componentResponse{
		ID:           c.ID,
		Manufacturer: c.Manufacturer,
		Description:  c.Description,
		Condition:    c.Condition,
		Self:         l.self(domain.KindComponents, c.ID),
	}
	if c.Carrier != nil {
		res.Carrier = &carrierResponse{
			ID:           c.Carrier.ID,
			Manufacturer: c.Carrier.Manufacturer,
			Self:         l.self(domain.KindBikes, c.Carrier.ID),
		}
	}
	return res
}

func (l links) user(u *domain.User) userResponse {
	rental := make([]rentalResponse, 0, len(u.Rental))
	for _, r := range u.Rental {
		rental = append(rental, rentalResponse{ID: r.ID, Self: l.self(domain.KindBikes, r.ID)})
	}
	return userResponse{
		ID:       u.ID,
		Nickname: u.Nickname,
		Email:    u.Email,
		Verified: u.Verified,
		RenterID: u.RenterID,
		Rental:   rental,
		Self:     l.self(domain.KindUsers, u.ID),
	}
}

func (l links) bikes(path string, page *services.Page[*domain.Bike]) bikesResponse {
	res := bikesResponse{Bikes: make([]bikeResponse, 0, len(page.Items)), TotalItems: len(page.Items)}
	for _, b := range page.Items {
		res.Bikes = append(res.Bikes, l.bike(b))
	}
	if page.HasMore {
		res.Next = l.next(path, page.Limit, page.Offset)
	}
	return res
}

func (l links) components(path string, page *services.Page[*domain.Component]) componentsResponse {
	res := componentsResponse{Components: make([]componentResponse, 0, len(page.Items)), TotalItems: len(page.Items)}
	for _, item := range page.Items {
		res.Components = append(res.Components, l.component(item))
	}
	if page.HasMore {
		res.Next = l.next(path, page.Limit, page.Offset)
	}
	return res
}

func (l links) users(path string, page *services.Page[*domain.User]) usersResponse {
	res := usersResponse{Users: make([]userResponse, 0, len(page.Items)), TotalItems: len(page.Items)}
	for _, u := range page.Items {
		res.Users = append(res.Users, l.user(u))
	}
	if page.HasMore {
		res.Next = l.next(path, page.Limit, page.Offset)
	}
	return res
}

// readBody returns the request body both decoded into dst and as a map of
// its top-level attributes.
func readBody(c *gin.Context, dst interface{}) (map[string]json.RawMessage, error) {
	raw, err := c.GetRawData()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable body", domain.ErrBadRequest)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON format", domain.ErrBadRequest)
	}
	if dst != nil {
		if err := json.Unmarshal(raw, dst); err != nil {
			return nil, fmt.Errorf("%w: invalid attribute value", domain.ErrBadRequest)
		}
	}
	return fields, nil
}
