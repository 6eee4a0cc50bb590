package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartbridge/backend/internal/application/shoppinglist"
	"github.com/cartbridge/backend/internal/domain/account"
	"github.com/cartbridge/backend/internal/domain/cart"
	"github.com/cartbridge/backend/internal/interfaces/http/dto"
)

type todoHandlerFixture struct {
	handler   *TodoHandler
	accounts  *MockAccountRepository
	provider  *MockGatewayProvider
	gateway   *MockGateway
	snapshots *MockSnapshotStore
	account   *account.Account
}

func newTodoHandlerFixture(t *testing.T) *todoHandlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	acc, err := account.NewAccount("Casa", "user@example.com", "secret", "10151")
	require.NoError(t, err)

	f := &todoHandlerFixture{
		accounts:  new(MockAccountRepository),
		provider:  new(MockGatewayProvider),
		gateway:   new(MockGateway),
		snapshots: new(MockSnapshotStore),
		account:   acc,
	}
	svc := shoppinglist.NewService(f.accounts, f.provider, f.snapshots, zap.NewNop())
	f.handler = NewTodoHandler(svc)
	return f
}

func (f *todoHandlerFixture) idParam() gin.Params {
	return gin.Params{{Key: "id", Value: f.account.ID.String()}}
}

func (f *todoHandlerFixture) expectGateway() {
	f.accounts.On("FindByID", mock.Anything, f.account.ID).Return(f.account, nil)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
}

func cartFixture() []cart.Item {
	price := decimal.RequireFromString("45.50")
	return []cart.Item{
		{
			ItemID:      "9001",
			ProductID:   "4420",
			Name:        "Manzana Gala",
			Quantity:    decimal.RequireFromString("1.5"),
			Unit:        cart.UnitKilogram,
			Measurement: cart.MeasurementWeight,
			Price:       &price,
		},
	}
}

func TestTodoHandler_List_FromSnapshot(t *testing.T) {
	f := newTodoHandlerFixture(t)

	f.snapshots.On("GetCart", mock.Anything, f.account.ID).
		Return(cartFixture(), true, nil)

	c, w := testContext(t, http.MethodGet, "/accounts/x/todo-items", nil, f.idParam())

	f.handler.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	items := resp.Data.([]interface{})
	require.Len(t, items, 1)

	item := items[0].(map[string]interface{})
	assert.Equal(t, "9001", item["uid"])
	assert.Equal(t, "Manzana Gala", item["summary"])
	assert.Equal(t, "needs_action", item["status"])
	assert.Contains(t, item["description"], "Cantidad: 1.5 kg")
	assert.Contains(t, item["description"], "product_id: 4420")
	f.gateway.AssertNotCalled(t, "GetCart", mock.Anything)
}

func TestTodoHandler_Create(t *testing.T) {
	f := newTodoHandlerFixture(t)
	f.expectGateway()

	f.gateway.On("AddItem", mock.Anything, mock.MatchedBy(func(req cart.AddItemRequest) bool {
		return req.ProductID == "4420"
	})).Return(cartFixture(), nil)
	f.snapshots.On("PutCart", mock.Anything, f.account.ID, mock.Anything).Return(nil)

	qty := decimal.RequireFromString("1.5")
	c, w := testContext(t, http.MethodPost, "/accounts/x/todo-items", CreateTodoItemRequest{
		Summary:     "Manzana Gala",
		ProductID:   "4420",
		Quantity:    &qty,
		Unit:        "kg",
		Measurement: "weight",
	}, f.idParam())

	f.handler.Create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeResponse(t, w)
	item := resp.Data.(map[string]interface{})
	assert.Equal(t, "4420", item["product_id"])
}

func TestTodoHandler_Create_NonPositiveQuantity(t *testing.T) {
	f := newTodoHandlerFixture(t)

	qty := decimal.Zero
	c, w := testContext(t, http.MethodPost, "/accounts/x/todo-items", CreateTodoItemRequest{
		Summary:  "Manzana Gala",
		Quantity: &qty,
	}, f.idParam())

	f.handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeInvalidInput, resp.Error.Code)
	f.provider.AssertNotCalled(t, "Gateway", mock.Anything)
}

func TestTodoHandler_Create_ProductNotFound(t *testing.T) {
	f := newTodoHandlerFixture(t)
	f.expectGateway()

	f.gateway.On("SearchProducts", mock.Anything, mock.Anything).
		Return([]cart.Product{}, nil)

	c, w := testContext(t, http.MethodPost, "/accounts/x/todo-items", CreateTodoItemRequest{
		Summary: "Manzana Gala",
	}, f.idParam())

	f.handler.Create(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestTodoHandler_Update_CompletedRemoves(t *testing.T) {
	f := newTodoHandlerFixture(t)
	f.expectGateway()

	f.gateway.On("RemoveItem", mock.Anything, "9001").Return(nil)
	f.gateway.On("GetCart", mock.Anything).Return([]cart.Item{}, nil)
	f.snapshots.On("PutCart", mock.Anything, f.account.ID, mock.Anything).Return(nil)

	params := append(f.idParam(), gin.Param{Key: "uid", Value: "9001"})
	c, w := testContext(t, http.MethodPut, "/accounts/x/todo-items/9001", UpdateTodoItemRequest{
		Status: "completed",
	}, params)

	f.handler.Update(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	item := resp.Data.(map[string]interface{})
	assert.Equal(t, "completed", item["status"])
	f.gateway.AssertCalled(t, "RemoveItem", mock.Anything, "9001")
}

func TestTodoHandler_SetQuantity(t *testing.T) {
	f := newTodoHandlerFixture(t)
	f.expectGateway()

	f.gateway.On("UpdateItem", mock.Anything, mock.MatchedBy(func(req cart.UpdateItemRequest) bool {
		return req.ItemID == "9001" && req.Quantity.Equal(decimal.RequireFromString("2"))
	})).Return(cartFixture(), nil)
	f.snapshots.On("PutCart", mock.Anything, f.account.ID, mock.Anything).Return(nil)

	params := append(f.idParam(), gin.Param{Key: "uid", Value: "9001"})
	c, w := testContext(t, http.MethodPut, "/accounts/x/todo-items/9001/quantity", SetQuantityTodoRequest{
		Quantity: decimal.RequireFromString("2"),
	}, params)

	f.handler.SetQuantity(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	item := resp.Data.(map[string]interface{})
	assert.Equal(t, "9001", item["uid"])
}

func TestTodoHandler_Delete(t *testing.T) {
	f := newTodoHandlerFixture(t)
	f.expectGateway()

	f.gateway.On("RemoveItem", mock.Anything, "9001").Return(nil)
	f.gateway.On("GetCart", mock.Anything).Return([]cart.Item{}, nil)
	f.snapshots.On("PutCart", mock.Anything, f.account.ID, mock.Anything).Return(nil)

	params := append(f.idParam(), gin.Param{Key: "uid", Value: "9001"})
	c, w := testContext(t, http.MethodDelete, "/accounts/x/todo-items/9001", nil, params)

	f.handler.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestTodoHandler_Delete_ItemNotFound(t *testing.T) {
	f := newTodoHandlerFixture(t)
	f.expectGateway()

	f.gateway.On("RemoveItem", mock.Anything, "9001").Return(cart.ErrItemNotFound)

	params := append(f.idParam(), gin.Param{Key: "uid", Value: "9001"})
	c, w := testContext(t, http.MethodDelete, "/accounts/x/todo-items/9001", nil, params)

	f.handler.Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTodoHandler_Search(t *testing.T) {
	f := newTodoHandlerFixture(t)

	price := decimal.RequireFromString("45.50")
	f.accounts.On("FindByID", mock.Anything, f.account.ID).Return(f.account, nil)
	f.snapshots.On("GetSearch", mock.Anything, f.account.StoreID, "manzana", 10).
		Return(nil, false, nil)
	f.provider.On("Gateway", mock.Anything).Return(f.gateway, nil)
	f.gateway.On("SearchProducts", mock.Anything, mock.Anything).
		Return([]cart.Product{{ProductID: "4420", Name: "Manzana Gala", Price: &price, Unit: cart.UnitKilogram}}, nil)
	f.snapshots.On("PutSearch", mock.Anything, f.account.StoreID, "manzana", 10, mock.Anything).
		Return(nil)

	c, w := testContext(t, http.MethodGet, "/accounts/x/products/search?query=manzana", nil, f.idParam())

	f.handler.Search(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	results := resp.Data.([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "4420", results[0].(map[string]interface{})["product_id"])
}

func TestTodoHandler_Search_MissingQuery(t *testing.T) {
	f := newTodoHandlerFixture(t)

	c, w := testContext(t, http.MethodGet, "/accounts/x/products/search", nil, f.idParam())

	f.handler.Search(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	assert.Equal(t, dto.ErrCodeValidationRequired, resp.Error.Code)
	f.accounts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}
