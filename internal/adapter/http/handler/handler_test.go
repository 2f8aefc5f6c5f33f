package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"usdt-custody/internal/adapter/http/dto"
	"usdt-custody/internal/adapter/http/middleware"
	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ports"
	"usdt-custody/internal/core/ports/mocks"
	"usdt-custody/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func jsonRequest(method, path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authedContext(w *httptest.ResponseRecorder, userID uuid.UUID) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.CtxUserID, userID)
	return c
}

// --- Auth Handler ---

func TestRegister_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	h := NewAuthHandler(mockAuth)

	userID := uuid.New()
	now := time.Now().UTC()
	mockAuth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(&ports.AuthResult{
		User:      &domain.User{ID: userID, Email: "alice@example.com", Username: "alice", CreatedAt: now},
		Wallet:    domain.NewWallet(userID, now),
		Token:     "jwt-token",
		ExpiresAt: now.Add(time.Hour),
	}, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/auth/register", dto.RegisterRequest{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "password123",
	})

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "jwt-token", data["token"])
	wallet := data["wallet"].(map[string]any)
	assert.Equal(t, "0", wallet["balance_available"])
	assert.Equal(t, "0", wallet["balance_total"])
}

func TestRegister_ValidationError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewAuthHandler(mocks.NewMockAuthService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "not-an-email",
	})

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuth := mocks.NewMockAuthService(ctrl)
	mockAuth.EXPECT().Login(gomock.Any(), "alice@example.com", "wrong").
		Return(nil, apperror.ErrInvalidCredentials())
	h := NewAuthHandler(mockAuth)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/auth/login", dto.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})

	h.Login(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "AUTH_001", resp["error_code"])
}

// --- Wallet Handler ---

func TestWalletGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	mockWallet := mocks.NewMockWalletService(ctrl)
	mockWallet.EXPECT().Get(gomock.Any(), userID).Return(&domain.Wallet{
		UserID:    userID,
		Available: decimal.NewFromInt(70),
		Frozen:    decimal.NewFromInt(30),
		Total:     decimal.NewFromInt(100),
	}, nil)
	h := NewWalletHandler(mockWallet)

	w := httptest.NewRecorder()
	c := authedContext(w, userID)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]any)
	assert.Equal(t, "70", data["balance_available"])
	assert.Equal(t, "30", data["balance_frozen"])
	assert.Equal(t, "100", data["balance_total"])
}

// --- TopUp Handler ---

func TestTopUpSubmit_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	mockTopUp := mocks.NewMockTopUpService(ctrl)
	mockTopUp.EXPECT().Submit(gomock.Any(), userID, gomock.Any()).DoAndReturn(
		func(_ any, _ uuid.UUID, req ports.SubmitTopUpRequest) (*domain.TopUp, error) {
			assert.True(t, req.Amount.Equal(decimal.RequireFromString("250.5")))
			return &domain.TopUp{
				ID:      uuid.New(),
				UserID:  userID,
				Amount:  req.Amount,
				OrderNo: "ORD-1714650000123-042",
				Status:  domain.StatusProcessing,
			}, nil
		})
	h := NewTopUpHandler(mockTopUp)

	w := httptest.NewRecorder()
	c := authedContext(w, userID)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/topups", dto.SubmitTopUpRequest{
		Amount:      "250.5",
		TxReference: "bank-ref-9",
	})

	h.Submit(c)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestTopUpSubmit_BadAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTopUpHandler(mocks.NewMockTopUpService(ctrl))

	for _, amount := range []string{"abc", "-10", "0"} {
		w := httptest.NewRecorder()
		c := authedContext(w, uuid.New())
		c.Request = jsonRequest(http.MethodPost, "/api/v1/topups", dto.SubmitTopUpRequest{
			Amount:      amount,
			TxReference: "ref",
		})

		h.Submit(c)

		assert.Equal(t, http.StatusBadRequest, w.Code, "amount %q", amount)
	}
}

func TestTopUpResolve_InvalidAction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	h := NewTopUpHandler(mocks.NewMockTopUpService(ctrl))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: uuid.NewString()}}
	c.Request = jsonRequest(http.MethodPost, "/resolve", dto.ResolveRequest{Action: "MAYBE"})

	h.Resolve(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTopUpResolve_AlreadyProcessed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	mockTopUp := mocks.NewMockTopUpService(ctrl)
	mockTopUp.EXPECT().Resolve(gomock.Any(), id, domain.ActionApprove).
		Return(nil, apperror.ErrAlreadyProcessed())
	h := NewTopUpHandler(mockTopUp)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	c.Request = jsonRequest(http.MethodPost, "/resolve", dto.ResolveRequest{Action: "APPROVE"})

	h.Resolve(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

// --- Sell Handler ---

func TestSellSubmit_InsufficientFunds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := uuid.New()
	mockSell := mocks.NewMockSellService(ctrl)
	mockSell.EXPECT().Submit(gomock.Any(), userID, gomock.Any()).
		Return(nil, apperror.ErrInsufficientFunds())
	h := NewSellHandler(mockSell)

	w := httptest.NewRecorder()
	c := authedContext(w, userID)
	c.Request = jsonRequest(http.MethodPost, "/api/v1/sells", dto.SubmitSellRequest{
		Country:        "NG",
		UnitPrice:      "80",
		Units:          "40",
		PaymentDetails: json.RawMessage(`{"bank":"x"}`),
		Password:       "secret",
	})

	h.Submit(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// --- Router wiring ---

func setupTestRouter(t *testing.T, ctrl *gomock.Controller, tokenSvc ports.TokenService) (*gin.Engine, *mocks.MockWithdrawService) {
	t.Helper()
	withdrawSvc := mocks.NewMockWithdrawService(ctrl)
	router := SetupRouter(RouterDeps{
		AuthSvc:     mocks.NewMockAuthService(ctrl),
		WalletSvc:   mocks.NewMockWalletService(ctrl),
		TopUpSvc:    mocks.NewMockTopUpService(ctrl),
		SellSvc:     mocks.NewMockSellService(ctrl),
		WithdrawSvc: withdrawSvc,
		TokenSvc:    tokenSvc,
		Logger:      zerolog.Nop(),
	})
	return router, withdrawSvc
}

func TestRouter_AdminRouteDeniesUserToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("user-token").Return(&ports.TokenClaims{
		UserID:  uuid.New(),
		IsAdmin: false,
	}, nil)

	router, _ := setupTestRouter(t, ctrl, tokenSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/withdrawals/pending", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_AdminRouteAllowsAdminToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("admin-token").Return(&ports.TokenClaims{
		UserID:  uuid.New(),
		IsAdmin: true,
	}, nil)

	router, withdrawSvc := setupTestRouter(t, ctrl, tokenSvc)
	withdrawSvc.EXPECT().ListPending(gomock.Any()).Return([]domain.Withdrawal{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/withdrawals/pending", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedRouteRequiresAuth(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router, _ := setupTestRouter(t, ctrl, mocks.NewMockTokenService(ctrl))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
