package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"greendrake/estate/internal/api/handlers"
	"greendrake/estate/internal/auth"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/services"
	"greendrake/estate/internal/utils"
)

const testSecret = "testsecret"

type jsonApiMocks struct {
	properties *MockPropertyService
	offers     *MockOfferService
	parties    *MockPartyService
}

// --- Test Setup ---

func setupJsonApiRouter() (*gin.Engine, *jsonApiMocks) {
	gin.SetMode(gin.TestMode)
	m := &jsonApiMocks{
		properties: new(MockPropertyService),
		offers:     new(MockOfferService),
		parties:    new(MockPartyService),
	}
	handler := handlers.NewJsonApiHandler(testSecret, m.properties, m.offers, m.parties, nil)
	r := gin.New()
	r.POST("/v1/api", handler.HandleRequest)
	return r, m
}

// apiResponse mirrors handlers.JsonApiResponse with Data left raw.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    rules.Kind      `json:"kind"`
	Field   string          `json:"field"`
}

func callApi(t *testing.T, r *gin.Engine, token, method string, args interface{}) apiResponse {
	t.Helper()
	req := handlers.JsonApiRequest{Method: method}
	if args != nil {
		raw, err := json.Marshal(args)
		require.NoError(t, err)
		req.Arguments = raw
	}
	body, _ := json.Marshal(req)
	w := httptest.NewRecorder()
	httpReq, _ := http.NewRequest("POST", "/v1/api", bytes.NewBuffer(body))
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, httpReq)
	require.Equal(t, http.StatusOK, w.Code)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func tokenFor(t *testing.T, userID utils.SixID) string {
	t.Helper()
	token, err := auth.GenerateJWT(userID, false, testSecret, time.Hour)
	require.NoError(t, err)
	return token
}

func actedBy(userID utils.SixID) interface{} {
	return mock.MatchedBy(func(ctx context.Context) bool {
		id, ok := services.ActorFromContext(ctx)
		return ok && id == userID
	})
}

// --- Tests ---

func TestJsonApiHandler_Ping(t *testing.T) {
	r, _ := setupJsonApiRouter()
	resp := callApi(t, r, "", "ping", nil)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `"pong"`, string(resp.Data))
	assert.Empty(t, resp.Error)
}

func TestJsonApiHandler_UnknownMethod(t *testing.T) {
	r, _ := setupJsonApiRouter()
	resp := callApi(t, r, "", "dropTables", nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "Unknown method: dropTables", resp.Error)
}

func TestJsonApiHandler_RequiresAuth(t *testing.T) {
	r, m := setupJsonApiRouter()
	resp := callApi(t, r, "", "sellProperties", []interface{}{[]string{utils.NewSixID().String()}})
	assert.False(t, resp.Success)
	assert.Equal(t, "Authorization header required", resp.Error)

	resp = callApi(t, r, "not-a-token", "sellProperties", []interface{}{[]string{utils.NewSixID().String()}})
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid or expired token", resp.Error)
	m.properties.AssertNotCalled(t, "Sell", mock.Anything, mock.Anything)
}

func TestJsonApiHandler_Login(t *testing.T) {
	r, m := setupJsonApiRouter()
	user := &models.User{Base: models.NewBase(), Name: "Sam", Email: "sam@example.com"}
	m.parties.On("Login", mock.Anything, "sam@example.com", "hunter22!").Return("tok", user, nil)
	m.parties.On("Login", mock.Anything, "sam@example.com", "nope").Return("", nil, services.ErrBadCredentials)

	resp := callApi(t, r, "", "login", []interface{}{map[string]string{"email": "sam@example.com", "password": "hunter22!"}})
	require.True(t, resp.Success, resp.Error)
	var data struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	assert.Equal(t, "tok", data.Token)
	assert.Equal(t, user.ID, data.User.ID)

	resp = callApi(t, r, "", "login", []interface{}{map[string]string{"email": "sam@example.com", "password": "nope"}})
	assert.False(t, resp.Success)
	assert.Equal(t, services.ErrBadCredentials.Error(), resp.Error)

	resp = callApi(t, r, "", "login", []interface{}{})
	assert.False(t, resp.Success)
	assert.Equal(t, rules.KindUsage, resp.Kind)
}

func TestJsonApiHandler_SellProperties(t *testing.T) {
	r, m := setupJsonApiRouter()
	userID := utils.NewSixID()
	sold, blocked := utils.NewSixID(), utils.NewSixID()
	ids := []utils.SixID{sold, blocked}
	m.properties.On("Sell", actedBy(userID), ids).Return(services.Results{
		{ID: sold},
		{ID: blocked, Err: rules.Guard(rules.MsgCancelledCannotBeSold)},
	})

	resp := callApi(t, r, tokenFor(t, userID), "sellProperties", []interface{}{ids})
	require.True(t, resp.Success, resp.Error)
	var results []handlers.ResultBody
	require.NoError(t, json.Unmarshal(resp.Data, &results))
	require.Len(t, results, 2)
	assert.True(t, results[0].OK)
	assert.Equal(t, sold.String(), results[0].ID)
	assert.False(t, results[1].OK)
	assert.Equal(t, rules.KindGuard, results[1].Kind)
	assert.Equal(t, rules.MsgCancelledCannotBeSold, results[1].Error)
	m.properties.AssertExpectations(t)
}

func TestJsonApiHandler_HidesInternalErrors(t *testing.T) {
	r, m := setupJsonApiRouter()
	id := utils.NewSixID()
	m.properties.On("Cancel", mock.Anything, []utils.SixID{id}).Return(services.Results{
		{ID: id, Err: errors.New("connection reset by peer")},
	})

	resp := callApi(t, r, tokenFor(t, utils.NewSixID()), "cancelProperties", []interface{}{[]utils.SixID{id}})
	require.True(t, resp.Success)
	var results []handlers.ResultBody
	require.NoError(t, json.Unmarshal(resp.Data, &results))
	assert.Equal(t, "Internal error", results[0].Error)
}

func TestJsonApiHandler_ArchiveProperties(t *testing.T) {
	r, m := setupJsonApiRouter()
	id := utils.NewSixID()
	m.properties.On("SetActive", mock.Anything, []utils.SixID{id}, false).Return(services.Results{{ID: id}})
	m.properties.On("SetActive", mock.Anything, []utils.SixID{id}, true).Return(services.Results{{ID: id}})
	token := tokenFor(t, utils.NewSixID())

	assert.True(t, callApi(t, r, token, "archiveProperties", []interface{}{[]utils.SixID{id}}).Success)
	assert.True(t, callApi(t, r, token, "unarchiveProperties", []interface{}{[]utils.SixID{id}}).Success)
	m.properties.AssertExpectations(t)
}

func TestJsonApiHandler_AcceptOffer(t *testing.T) {
	r, m := setupJsonApiRouter()
	token := tokenFor(t, utils.NewSixID())
	a, b := utils.NewSixID(), utils.NewSixID()
	accepted := &models.Offer{Base: models.Base{ID: a}, Status: models.OfferAccepted, Price: 260000}
	m.offers.On("Accept", mock.Anything, []utils.SixID{a}).Return(accepted, nil)
	m.offers.On("Accept", mock.Anything, []utils.SixID{a, b}).Return(nil, rules.Usage(rules.MsgAcceptSingle))

	resp := callApi(t, r, token, "acceptOffer", []interface{}{[]utils.SixID{a}})
	require.True(t, resp.Success, resp.Error)
	var offer models.Offer
	require.NoError(t, json.Unmarshal(resp.Data, &offer))
	assert.Equal(t, models.OfferAccepted, offer.Status)

	resp = callApi(t, r, token, "acceptOffer", []interface{}{[]utils.SixID{a, b}})
	assert.False(t, resp.Success)
	assert.Equal(t, rules.KindUsage, resp.Kind)
	assert.Equal(t, rules.MsgAcceptSingle, resp.Error)

	resp = callApi(t, r, token, "acceptOffer", "not an array")
	assert.False(t, resp.Success)
	assert.Equal(t, rules.KindUsage, resp.Kind)
}

func TestJsonApiHandler_CreateOffersRejected(t *testing.T) {
	r, m := setupJsonApiRouter()
	propertyID, partnerID := utils.NewSixID(), utils.NewSixID()
	in := []services.OfferInput{{PropertyID: propertyID, PartnerID: partnerID, Price: 1000}}
	m.offers.On("Create", mock.Anything, in).Return(nil, rules.Validation("price", rules.MsgOfferNotHighest))

	resp := callApi(t, r, tokenFor(t, utils.NewSixID()), "createOffers", []interface{}{in})
	assert.False(t, resp.Success)
	assert.Equal(t, rules.KindValidation, resp.Kind)
	assert.Equal(t, "price", resp.Field)
	assert.Equal(t, rules.MsgOfferNotHighest, resp.Error)
}

func TestJsonApiHandler_RefuseOffers(t *testing.T) {
	r, m := setupJsonApiRouter()
	a, missing := utils.NewSixID(), utils.NewSixID()
	m.offers.On("Refuse", mock.Anything, []utils.SixID{a, missing}).Return(services.Results{
		{ID: a},
		{ID: missing, Err: rules.NotFound("offer", missing)},
	})

	resp := callApi(t, r, tokenFor(t, utils.NewSixID()), "refuseOffers", []interface{}{[]utils.SixID{a, missing}})
	require.True(t, resp.Success)
	var results []handlers.ResultBody
	require.NoError(t, json.Unmarshal(resp.Data, &results))
	assert.True(t, results[0].OK)
	assert.Equal(t, rules.KindNotFound, results[1].Kind)
}

func TestJsonApiHandler_Me(t *testing.T) {
	r, m := setupJsonApiRouter()
	userID := utils.NewSixID()
	m.parties.On("GetUser", mock.Anything, userID).Return(&models.User{Base: models.Base{ID: userID}, Name: "Sam"}, nil)

	resp := callApi(t, r, tokenFor(t, userID), "me", nil)
	require.True(t, resp.Success, resp.Error)
	var user models.User
	require.NoError(t, json.Unmarshal(resp.Data, &user))
	assert.Equal(t, "Sam", user.Name)
}
