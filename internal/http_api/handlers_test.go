package http_api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorpay/creatorpay/internal/creator"
	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/internal/repository"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

const testWallet = "cb970000000000000000000000000000000000000aaa"

// stubGate scripts the gate outcome per proof value.
type stubGate struct {
	grant     *models.AccessGrant
	challenge *models.PaymentRequired
	err       error
}

func (g *stubGate) RequestAccess(ctx context.Context, content *models.Content, creator *models.Creator, challengeID, transactionID string) (*models.AccessGrant, *models.PaymentRequired, error) {
	return g.grant, g.challenge, g.err
}

func (g *stubGate) Start() {}
func (g *stubGate) Stop()  {}

type apiFixture struct {
	server  *HTTPServer
	gate    *stubGate
	content *models.Content
	creator *models.Creator
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryDB()
	creators := creator.NewService(repo, logger.NewNopLogger())

	profile, err := creators.Onboard(&models.Creator{Username: "alice", WalletAddress: testWallet})
	require.NoError(t, err)
	content, err := creators.Upload(&models.Content{
		CreatorID: profile.ID,
		Title:     "Deep dive",
		Body:      "the gated body",
		PriceUSD:  "0.05",
	})
	require.NoError(t, err)

	gate := &stubGate{}
	return &apiFixture{
		server:  NewHTTPServer(gate, creators, 0, logger.NewNopLogger()),
		gate:    gate,
		content: content,
		creator: profile,
	}
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.server.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGetContentWithoutProofAnswers402(t *testing.T) {
	f := newAPIFixture(t)
	f.gate.challenge = &models.PaymentRequired{
		ChallengeID:      "ch-1",
		RecipientAddress: testWallet,
		TokenContract:    "cb540000000000000000000000000000000000000001",
		ChainID:          1,
		AmountAtomic:     "50000",
	}

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/content/"+f.content.ID, nil))

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "x402-token-transfer", w.Header().Get("X-Payment-Required"))
	assert.Equal(t, "50000", w.Header().Get("X-Payment-Amount"))
	assert.Equal(t, testWallet, w.Header().Get("X-Payment-Recipient"))
	assert.Equal(t, "1", w.Header().Get("X-Payment-Chain"))

	body := decodeBody(t, w)
	payment := body["payment"].(map[string]any)
	assert.Equal(t, "ch-1", payment["challenge_id"])
	assert.NotContains(t, w.Body.String(), "the gated body")
}

func TestGetContentWithValidProofServesBody(t *testing.T) {
	f := newAPIFixture(t)
	f.gate.grant = &models.AccessGrant{
		Content:       f.content,
		TransactionID: "0xabc",
		CreatorAmount: "40000",
		PlatformFee:   "10000",
		SettledAt:     1700000000,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/"+f.content.ID, nil)
	req.Header.Set(PaymentChallengeHeader, "ch-1")
	req.Header.Set(PaymentProofHeader, "0xabc")
	w := f.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, "the gated body", data["content"])
	payment := data["payment"].(map[string]any)
	assert.Equal(t, "0xabc", payment["transaction_id"])
	assert.Equal(t, "40000", payment["creator_amount"])
}

func TestGetContentRetryableFailureRedeliversChallenge(t *testing.T) {
	f := newAPIFixture(t)
	f.gate.challenge = &models.PaymentRequired{ChallengeID: "ch-1", AmountAtomic: "50000", ChainID: 1}
	f.gate.err = fmt.Errorf("transaction 0xabc: %w", models.ErrNotYetConfirmed)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/"+f.content.ID, nil)
	req.Header.Set(PaymentChallengeHeader, "ch-1")
	req.Header.Set(PaymentProofHeader, "0xabc")
	w := f.do(req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(models.CodeNotYetConfirmed), body["code"])
	payment := body["payment"].(map[string]any)
	assert.Equal(t, "ch-1", payment["challenge_id"])
}

func TestGetContentTransactionReuseIsForbidden(t *testing.T) {
	f := newAPIFixture(t)
	f.gate.err = fmt.Errorf("transaction 0xabc: %w", models.ErrTransactionReuse)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/"+f.content.ID, nil)
	req.Header.Set(PaymentChallengeHeader, "ch-2")
	req.Header.Set(PaymentProofHeader, "0xabc")
	w := f.do(req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(models.CodeTransactionReuse), body["code"])
}

func TestGetContentTerminalFailureAnswers402WithCode(t *testing.T) {
	f := newAPIFixture(t)
	f.gate.err = fmt.Errorf("transaction 0xabc: %w", models.ErrAmountMismatch)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/content/"+f.content.ID, nil)
	req.Header.Set(PaymentChallengeHeader, "ch-1")
	req.Header.Set(PaymentProofHeader, "0xabc")
	w := f.do(req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, string(models.CodeAmountMismatch), body["code"])
}

func TestGetContentUnknownID(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/content/no-such-id", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOnboardCreatorEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	payload, _ := json.Marshal(OnboardRequest{
		Username:      "bob",
		WalletAddress: "cb970000000000000000000000000000000000000bbb",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/creators", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := f.do(req)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])

	// Duplicate onboarding fails.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/creators", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w = f.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchContentHidesBody(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/content?q=deep", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "the gated body")

	body := decodeBody(t, w)
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["count"])
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
