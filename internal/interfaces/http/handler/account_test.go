package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appaccount "github.com/cartbridge/backend/internal/application/account"
	"github.com/cartbridge/backend/internal/domain/account"
	"github.com/cartbridge/backend/internal/domain/cart"
	"github.com/cartbridge/backend/internal/interfaces/http/dto"
)

type accountHandlerFixture struct {
	handler   *AccountHandler
	accounts  *MockAccountRepository
	provider  *MockGatewayProvider
	gateway   *MockGateway
	snapshots *MockSnapshotStore
	account   *account.Account
}

func newAccountHandlerFixture(t *testing.T) *accountHandlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	acc, err := account.NewAccount("Casa", "user@example.com", "secret", "10151")
	require.NoError(t, err)

	f := &accountHandlerFixture{
		accounts:  new(MockAccountRepository),
		provider:  new(MockGatewayProvider),
		gateway:   new(MockGateway),
		snapshots: new(MockSnapshotStore),
		account:   acc,
	}
	svc := appaccount.NewService(f.accounts, f.provider, f.snapshots, zap.NewNop())
	f.handler = NewAccountHandler(svc)
	return f
}

func testContext(t *testing.T, method, path string, body any, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAccountHandler_Register(t *testing.T) {
	f := newAccountHandlerFixture(t)

	f.accounts.On("FindByUsername", mock.Anything, "user@example.com").
		Return(nil, account.ErrNotFound)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("Login", mock.Anything).Return(nil)
	f.accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	c, w := testContext(t, http.MethodPost, "/accounts", RegisterAccountRequest{
		Name:     "Casa",
		Username: "user@example.com",
		Password: "secret",
	}, nil)

	f.handler.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "user@example.com", data["username"])
	assert.Equal(t, account.DefaultStoreID, data["store_id"])
	assert.Equal(t, true, data["active"])
	_, exposed := data["password"]
	assert.False(t, exposed)
}

func TestAccountHandler_Register_DuplicateUsername(t *testing.T) {
	f := newAccountHandlerFixture(t)

	f.accounts.On("FindByUsername", mock.Anything, "user@example.com").
		Return(f.account, nil)

	c, w := testContext(t, http.MethodPost, "/accounts", RegisterAccountRequest{
		Username: "user@example.com",
		Password: "secret",
	}, nil)

	f.handler.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeAlreadyExists, resp.Error.Code)
}

func TestAccountHandler_Register_BadCredentials(t *testing.T) {
	f := newAccountHandlerFixture(t)

	f.accounts.On("FindByUsername", mock.Anything, "user@example.com").
		Return(nil, account.ErrNotFound)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("Login", mock.Anything).Return(cart.ErrAuthFailed)
	f.provider.On("Evict", mock.Anything).Return()

	c, w := testContext(t, http.MethodPost, "/accounts", RegisterAccountRequest{
		Username: "user@example.com",
		Password: "wrong",
	}, nil)

	f.handler.Register(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeUpstreamAuth, resp.Error.Code)
	f.accounts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAccountHandler_Register_MissingPassword(t *testing.T) {
	f := newAccountHandlerFixture(t)

	c, w := testContext(t, http.MethodPost, "/accounts", map[string]string{
		"username": "user@example.com",
	}, nil)

	f.handler.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_List(t *testing.T) {
	f := newAccountHandlerFixture(t)

	f.accounts.On("FindAll", mock.Anything).
		Return([]*account.Account{f.account}, nil)

	c, w := testContext(t, http.MethodGet, "/accounts", nil, nil)

	f.handler.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	items := resp.Data.([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, f.account.ID.String(), items[0].(map[string]interface{})["id"])
}

func TestAccountHandler_Get_InvalidID(t *testing.T) {
	f := newAccountHandlerFixture(t)

	c, w := testContext(t, http.MethodGet, "/accounts/nope", nil,
		gin.Params{{Key: "id", Value: "nope"}})

	f.handler.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAccountHandler_Get_NotFound(t *testing.T) {
	f := newAccountHandlerFixture(t)

	id := uuid.New()
	f.accounts.On("FindByID", mock.Anything, id).Return(nil, account.ErrNotFound)

	c, w := testContext(t, http.MethodGet, "/accounts/"+id.String(), nil,
		gin.Params{{Key: "id", Value: id.String()}})

	f.handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestAccountHandler_Delete(t *testing.T) {
	f := newAccountHandlerFixture(t)

	f.accounts.On("Delete", mock.Anything, f.account.ID).Return(nil)
	f.provider.On("Evict", f.account.ID).Return()
	f.snapshots.On("InvalidateCart", mock.Anything, f.account.ID).Return(nil)

	c, w := testContext(t, http.MethodDelete, "/accounts/"+f.account.ID.String(), nil,
		gin.Params{{Key: "id", Value: f.account.ID.String()}})

	f.handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
	f.provider.AssertCalled(t, "Evict", f.account.ID)
}

func TestAccountHandler_Refresh_UpstreamDown(t *testing.T) {
	f := newAccountHandlerFixture(t)

	f.accounts.On("FindByID", mock.Anything, f.account.ID).Return(f.account, nil)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("GetCart", mock.Anything).Return(nil, cart.ErrRequestFailed)
	f.accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	c, w := testContext(t, http.MethodPost, "/accounts/"+f.account.ID.String()+"/refresh", nil,
		gin.Params{{Key: "id", Value: f.account.ID.String()}})

	f.handler.Refresh(c)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeUpstreamUnavailable, resp.Error.Code)
}

func TestAccountHandler_Refresh_Success(t *testing.T) {
	f := newAccountHandlerFixture(t)

	f.accounts.On("FindByID", mock.Anything, f.account.ID).Return(f.account, nil)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("GetCart", mock.Anything).Return([]cart.Item{}, nil)
	f.snapshots.On("PutCart", mock.Anything, f.account.ID, mock.Anything).Return(nil)
	f.accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	c, w := testContext(t, http.MethodPost, "/accounts/"+f.account.ID.String()+"/refresh", nil,
		gin.Params{{Key: "id", Value: f.account.ID.String()}})

	f.handler.Refresh(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, string(account.RefreshStatusOK), data["last_refresh_status"])
}

func TestAccountHandler_SetActive_Deactivate(t *testing.T) {
	f := newAccountHandlerFixture(t)

	f.accounts.On("FindByID", mock.Anything, f.account.ID).Return(f.account, nil)
	f.accounts.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.provider.On("Evict", f.account.ID).Return()

	active := false
	c, w := testContext(t, http.MethodPut, "/accounts/"+f.account.ID.String()+"/active",
		SetActiveRequest{Active: &active},
		gin.Params{{Key: "id", Value: f.account.ID.String()}})

	f.handler.SetActive(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["active"])
}
