package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/listinggopher/listinggopher/internal/app/accountant"
	"github.com/listinggopher/listinggopher/internal/app/costs"
	"github.com/listinggopher/listinggopher/internal/app/pipeline"
	"github.com/listinggopher/listinggopher/internal/domain"
	"github.com/listinggopher/listinggopher/internal/infra/provider"
	"github.com/listinggopher/listinggopher/internal/infra/sqlite"
)

const testEmail = "agent@brokerage.com"

// scriptedGateway returns valid output for every stage, or a scripted
// infrastructure failure when fail is set.
type scriptedGateway struct {
	fail bool
}

func (g *scriptedGateway) Execute(ctx context.Context, stage string, req domain.GenerationRequest) *provider.Result {
	if g.fail {
		return &provider.Result{
			Provider: "openai",
			Class:    domain.FailureInfrastructure,
			Err:      &provider.Error{Provider: "openai", Status: 503, Class: domain.FailureInfrastructure, Message: "unavailable"},
		}
	}
	var content string
	switch stage {
	case pipeline.StageFeatures, pipeline.StagePhotoCategorization:
		content = `[{"category":"Interior","features":["Hardwood floors"]}]`
	case pipeline.StageMLSData:
		content = `{"BedroomsTotal":4}`
	default:
		content = "Sun-filled craftsman with original hardwood floors and a remodeled kitchen."
	}
	return &provider.Result{
		Success:    true,
		Provider:   "openai",
		Generation: &domain.GenerationResult{Content: content, Provider: "openai", Model: "test-model", InputTokens: 100, OutputTokens: 50},
	}
}

func newTestServer(t *testing.T, gw pipeline.Executor) (*Server, *sqlite.DB) {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	acct := accountant.New(db)
	tracker := costs.NewTracker(nil, costs.Rates{InputPer1K: 0.0025, OutputPer1K: 0.01}, 0)
	orch := pipeline.New(acct, gw, tracker)
	srv := NewServer(acct, orch, db, tracker)
	srv.SignupGrant = 3
	return srv, db
}

// grant seeds an owner's balance directly through the store.
func grant(t *testing.T, db *sqlite.DB, owner string, amount int64) {
	t.Helper()
	err := db.Apply(context.Background(), domain.Transaction{
		AttemptID: uuid.NewString(),
		Type:      domain.TxGrant,
		Owner:     owner,
		Amount:    amount,
	})
	if err != nil {
		t.Fatalf("grant %s: %v", owner, err)
	}
}

// do runs one request against the router and decodes the JSON response.
func do(t *testing.T, h http.Handler, method, path, email string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if email != "" {
		req.Header.Set(identityHeader, email)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGateway{})
	rec, body := do(t, srv.Handler(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", rec.Code, body)
	}
}

func TestBalanceRequiresIdentity(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGateway{})
	rec, _ := do(t, srv.Handler(), http.MethodGet, "/api/credits/balance", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestBalance(t *testing.T) {
	srv, db := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()

	personal, _ := domain.PersonalIdentity(testEmail)
	domainOwner, _ := domain.DomainIdentity(testEmail)
	grant(t, db, personal, 5)
	grant(t, db, domainOwner, 20)

	rec, body := do(t, h, http.MethodGet, "/api/credits/balance", testEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["personal_credits"] != float64(5) || body["domain_credits"] != float64(20) {
		t.Errorf("body = %v", body)
	}
}

func TestGrantByEmailAndScope(t *testing.T) {
	srv, db := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()

	rec, body := do(t, h, http.MethodPost, "/api/credits/grant", "", map[string]interface{}{
		"email": testEmail, "scope": "domain", "amount": 50, "note": "purchase #123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["owner"] != "team:brokerage.com" || body["balance"] != float64(50) {
		t.Errorf("body = %v", body)
	}

	balance, _ := db.Balance(context.Background(), "team:brokerage.com")
	if balance != 50 {
		t.Errorf("stored balance = %d", balance)
	}
}

func TestGrantRejectsBadInput(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"zero amount", map[string]interface{}{"owner": "user:a@b.com", "amount": 0}},
		{"negative amount", map[string]interface{}{"owner": "user:a@b.com", "amount": -5}},
		{"bad owner", map[string]interface{}{"owner": "nobody", "amount": 5}},
		{"bad email", map[string]interface{}{"email": "not-an-email", "amount": 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := do(t, h, http.MethodPost, "/api/credits/grant", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSignup(t *testing.T) {
	srv, db := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()

	rec, body := do(t, h, http.MethodPost, "/api/credits/signup", testEmail, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["granted"] != float64(3) {
		t.Errorf("granted = %v", body["granted"])
	}

	personal, _ := domain.PersonalIdentity(testEmail)
	balance, _ := db.Balance(context.Background(), personal)
	if balance != 3 {
		t.Errorf("balance = %d, want 3", balance)
	}
}

func TestSignupDisabled(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGateway{})
	srv.SignupGrant = 0
	rec, _ := do(t, srv.Handler(), http.MethodPost, "/api/credits/signup", testEmail, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestGenerateDenied(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGateway{})
	rec, body := do(t, srv.Handler(), http.MethodPost, "/api/generate", testEmail, map[string]interface{}{
		"property_details": "4 bed / 3 bath",
	})
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402: %v", rec.Code, body)
	}
	if body["status"] != string(domain.AttemptDenied) {
		t.Errorf("body = %v", body)
	}
}

func TestGenerateCompleted(t *testing.T) {
	srv, db := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()
	grant(t, db, "user:agent@brokerage.com", 2)

	rec, body := do(t, h, http.MethodPost, "/api/generate", testEmail, map[string]interface{}{
		"property_details": "4 bed / 3 bath craftsman",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["status"] != string(domain.AttemptCompleted) {
		t.Fatalf("status = %v", body["status"])
	}
	stages, ok := body["stages"].([]interface{})
	if !ok || len(stages) != 4 {
		t.Errorf("stages = %v", body["stages"])
	}
}

func TestGenerateRefundOnFailure(t *testing.T) {
	srv, db := newTestServer(t, &scriptedGateway{fail: true})
	h := srv.Handler()
	personal := "user:agent@brokerage.com"
	grant(t, db, personal, 1)

	rec, body := do(t, h, http.MethodPost, "/api/generate", testEmail, map[string]interface{}{
		"property_details": "4 bed / 3 bath",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["status"] != string(domain.AttemptFailed) || body["refunded"] != true {
		t.Fatalf("body = %v", body)
	}

	balance, _ := db.Balance(context.Background(), personal)
	if balance != 1 {
		t.Errorf("balance = %d, want 1 (refunded)", balance)
	}
}

func TestGenerateValidation(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/generate", testEmail, map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty body: status = %d, want 400", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/generate", testEmail, map[string]interface{}{
		"property_details": "x", "critical_stage": "no_such_stage",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad critical_stage: status = %d, want 400", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/generate", "", map[string]interface{}{
		"property_details": "x",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no identity: status = %d, want 401", rec.Code)
	}
}

func TestRefundEndpoint(t *testing.T) {
	srv, db := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()
	ctx := context.Background()
	personal := "user:agent@brokerage.com"
	attemptID := "3b241101-e2bb-4255-8caf-4136c566a962"

	grant(t, db, personal, 2)
	err := db.Apply(ctx, domain.Transaction{
		AttemptID: attemptID,
		Type:      domain.TxDebit,
		Owner:     personal,
		Source:    domain.SourcePersonal,
		Amount:    1,
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, body := do(t, h, http.MethodPost, "/api/credits/refund", "", map[string]interface{}{"attempt_id": attemptID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, body)
	}
	if body["already_refunded"] != false {
		t.Errorf("first refund: %v", body)
	}
	if body["remaining"] != float64(2) {
		t.Errorf("remaining = %v, want 2", body["remaining"])
	}

	// Replay reports already_refunded without moving credits again.
	rec, body = do(t, h, http.MethodPost, "/api/credits/refund", "", map[string]interface{}{"attempt_id": attemptID})
	if rec.Code != http.StatusOK || body["already_refunded"] != true {
		t.Errorf("replay = %d %v", rec.Code, body)
	}
	balance, _ := db.Balance(ctx, personal)
	if balance != 2 {
		t.Errorf("balance = %d, want 2", balance)
	}
}

func TestRefundUnknownAttempt(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/credits/refund", "", map[string]interface{}{
		"attempt_id": "3b241101-e2bb-4255-8caf-4136c566a999",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown attempt: status = %d, want 404", rec.Code)
	}

	rec, _ = do(t, h, http.MethodPost, "/api/credits/refund", "", map[string]interface{}{
		"attempt_id": "not-a-uuid",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed attempt: status = %d, want 400", rec.Code)
	}
}

func TestTransactionsQuery(t *testing.T) {
	srv, db := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()
	ctx := context.Background()
	owner := "user:agent@brokerage.com"
	attemptID := "3b241101-e2bb-4255-8caf-4136c566a962"

	grant(t, db, owner, 5)
	err := db.Apply(ctx, domain.Transaction{
		AttemptID: attemptID,
		Type:      domain.TxDebit,
		Owner:     owner,
		Source:    domain.SourcePersonal,
		Amount:    1,
	})
	if err != nil {
		t.Fatal(err)
	}

	rec, body := do(t, h, http.MethodGet, "/api/ledger/transactions?attempt_id="+attemptID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by attempt: %d %v", rec.Code, body)
	}
	if txs := body["transactions"].([]interface{}); len(txs) != 1 {
		t.Errorf("by attempt: %d transactions", len(txs))
	}

	rec, body = do(t, h, http.MethodGet, fmt.Sprintf("/api/ledger/transactions?owner=%s&limit=10", owner), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("by owner: %d %v", rec.Code, body)
	}
	if txs := body["transactions"].([]interface{}); len(txs) != 2 {
		t.Errorf("by owner: %d transactions", len(txs))
	}

	rec, _ = do(t, h, http.MethodGet, "/api/ledger/transactions", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no filter: status = %d, want 400", rec.Code)
	}
}

func TestCostSummaryEndpoint(t *testing.T) {
	srv, db := newTestServer(t, &scriptedGateway{})
	h := srv.Handler()
	grant(t, db, "user:agent@brokerage.com", 1)

	// A completed generation records costs for each stage.
	rec, _ := do(t, h, http.MethodPost, "/api/generate", testEmail, map[string]interface{}{
		"property_details": "4 bed / 3 bath",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: %d", rec.Code)
	}

	rec, body := do(t, h, http.MethodGet, "/api/costs/summary", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: %d %v", rec.Code, body)
	}
	if body["total_requests"] != float64(4) {
		t.Errorf("total_requests = %v, want 4", body["total_requests"])
	}
	if body["total_cost_usd"] == float64(0) {
		t.Error("total_cost_usd is zero after a completed generation")
	}
}
