package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/database"
	"storefront/internal/model"
	"storefront/internal/mw"
	"storefront/internal/service"
)

const secret = "test-secret"

type fixture struct {
	router   http.Handler
	orderSvc *service.OrderService
	authSvc  *service.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	authSvc := service.NewAuthService(database.NewMemoryUsers())
	orderSvc := service.NewOrderService(database.NewMemoryOrders())
	return &fixture{router: NewRouter(authSvc, orderSvc, secret), orderSvc: orderSvc, authSvc: authSvc}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp response
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func token(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	tok, err := mw.IssueToken(secret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)

	rec, resp := f.do(t, http.MethodPost, "/auth/register", "", credentials{Login: "dana", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Bearer "+resp.Token, rec.Header().Get("Authorization"))

	rec, _ = f.do(t, http.MethodPost, "/auth/register", "", credentials{Login: "dana", Password: "pw"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/auth/login", "", credentials{Login: "dana", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, resp = f.do(t, http.MethodPost, "/auth/login", "", credentials{Login: "dana", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, resp.Token)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	customer := token(t, "u1", model.RoleCustomer)
	admin := token(t, "a1", model.RoleAdmin)

	rec, resp := f.do(t, http.MethodPost, "/orders", customer, service.NewOrder{
		Items: []service.NewOrderItem{{ProductName: "Lamp", Quantity: 2, UnitPrice: 150, Images: []string{"l.jpg"}}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, resp.Order)
	id := resp.Order.ID
	assert.Equal(t, int64(300), resp.Order.TotalAmount)

	rec, _ = f.do(t, http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/orders", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = f.do(t, http.MethodGet, "/orders", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Orders, 1)

	rec, _ = f.do(t, http.MethodPut, "/orders/"+id+"/process", customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = f.do(t, http.MethodPut, "/orders/"+id+"/reject", admin, map[string]string{"reason": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Success)

	rec, _ = f.do(t, http.MethodPut, "/orders/"+id+"/process", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp = f.do(t, http.MethodPut, "/orders/"+id+"/cancel", customer, map[string]string{"reason": "too slow"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, resp.Message)

	rec, _ = f.do(t, http.MethodPut, "/orders/"+id+"/deliver", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	other := token(t, "u2", model.RoleCustomer)
	rec, _ = f.do(t, http.MethodPut, "/orders/"+id+"/confirm-delivery", other, map[string]string{"confirmationNote": "thanks"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, resp = f.do(t, http.MethodPut, "/orders/"+id+"/confirm-delivery", customer, map[string]string{"confirmationNote": "Received, all good"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusConfirmed, resp.Order.OrderStatus)

	rec, resp = f.do(t, http.MethodGet, "/orders/my-orders", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "Received, all good", resp.Orders[0].ConfirmationNote)

	rec, _ = f.do(t, http.MethodPut, "/orders/missing/process", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/orders/"+uuid.NewString()+"/process", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
