package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway emulates the Paystack transaction API. Each reference can be
// programmed to report pending for a number of verify calls before turning
// successful.
type fakeGateway struct {
	mu           sync.Mutex
	verifyCalls  map[string]int
	pendingUntil map[string]int // verify calls that report pending before success
	failAlways   map[string]bool
	initCalls    int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		verifyCalls:  map[string]int{},
		pendingUntil: map[string]int{},
		failAlways:   map[string]bool{},
	}
}

func (g *fakeGateway) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.mu.Lock()
		defer g.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/transaction/initialize" {
			g.initCalls++
			fmt.Fprint(w, `{"status":true,"message":"Authorization URL created","data":{"authorization_url":"https://checkout.example/abc","access_code":"abc","reference":"ref-init-1"}}`)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/transaction/verify/") {
			reference := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
			g.verifyCalls[reference]++

			status := "success"
			gatewayResponse := "Approved"
			switch {
			case g.failAlways[reference]:
				status = "failed"
				gatewayResponse = "Declined by bank"
			case g.verifyCalls[reference] <= g.pendingUntil[reference]:
				status = "pending"
				gatewayResponse = "Transaction is processing"
			}

			fmt.Fprintf(w, `{"status":true,"message":"Verification successful","data":{"status":%q,"reference":%q,"amount":500000,"gateway_response":%q,"metadata":{"course_id":7,"user_id":3}}}`,
				status, reference, gatewayResponse)
			return
		}

		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":false,"message":"Not found"}`)
	}
}

func (g *fakeGateway) calls(reference string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls[reference]
}

// testPolicy records requested sleeps instead of waiting
func testPolicy(maxAttempts int) (RetryPolicy, *[]time.Duration) {
	var slept []time.Duration
	policy := RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * time.Second
		},
		Sleep: func(d time.Duration) { slept = append(slept, d) },
	}
	return policy, &slept
}

func TestVerifyTransactionSuccess(t *testing.T) {
	gateway := newFakeGateway()
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	client := NewPaystackClientWith(server.URL, "sk_test_x", 5*time.Second)

	data, err := client.VerifyTransaction("ref-1")
	require.NoError(t, err)
	assert.Equal(t, "success", data.Status)
	assert.Equal(t, "ref-1", data.Reference)
	assert.Equal(t, int64(500000), data.Amount)
	assert.Equal(t, uint(7), data.Metadata.CourseID)
	assert.Equal(t, uint(3), data.Metadata.UserID)
	assert.NotEmpty(t, data.Raw)
}

func TestVerifyTransactionFailedStatusIsNotAnError(t *testing.T) {
	gateway := newFakeGateway()
	gateway.failAlways["ref-declined"] = true
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	client := NewPaystackClientWith(server.URL, "sk_test_x", 5*time.Second)

	data, err := client.VerifyTransaction("ref-declined")
	require.NoError(t, err)
	assert.Equal(t, "failed", data.Status)
	assert.Equal(t, "Declined by bank", data.GatewayResponse)
}

func TestVerifyWithRetrySettlesAfterPendingAttempts(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pendingUntil["ref-slow"] = 5
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	client := NewPaystackClientWith(server.URL, "sk_test_x", 5*time.Second)
	policy, slept := testPolicy(6)

	// Pending on the first five attempts, settles on the sixth.
	data, errMsg := client.VerifyWithRetry("ref-slow", policy)
	require.NotNil(t, data)
	assert.Empty(t, errMsg)
	assert.Equal(t, "success", data.Status)
	assert.Equal(t, 6, gateway.calls("ref-slow"))

	// Backoff grows with the attempt number: 1s through 5s.
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second, 5 * time.Second,
	}, *slept)
}

func TestVerifyWithRetryExhaustionKeepsLastGatewayMessage(t *testing.T) {
	gateway := newFakeGateway()
	gateway.pendingUntil["ref-stuck"] = 100
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	client := NewPaystackClientWith(server.URL, "sk_test_x", 5*time.Second)
	policy, slept := testPolicy(6)

	data, errMsg := client.VerifyWithRetry("ref-stuck", policy)
	assert.Nil(t, data)
	assert.Equal(t, "Transaction is processing", errMsg)
	assert.Equal(t, 6, gateway.calls("ref-stuck"))

	// No sleep after the final attempt.
	assert.Len(t, *slept, 5)
}

func TestVerifyWithRetryNetworkErrorMessage(t *testing.T) {
	client := NewPaystackClientWith("http://127.0.0.1:1", "sk_test_x", 200*time.Millisecond)
	policy, _ := testPolicy(2)

	data, errMsg := client.VerifyWithRetry("ref-x", policy)
	assert.Nil(t, data)
	assert.Contains(t, errMsg, "paystack verify")
}

func TestInitializeTransaction(t *testing.T) {
	gateway := newFakeGateway()
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	client := NewPaystackClientWith(server.URL, "sk_test_x", 5*time.Second)

	data, err := client.InitializeTransaction(InitializeRequest{
		Email:    "ada@example.com",
		Amount:   500000,
		Currency: "NGN",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/abc", data.AuthorizationURL)
	assert.Equal(t, "ref-init-1", data.Reference)
}

func TestInitializeTransactionRejectsNonPositiveAmount(t *testing.T) {
	gateway := newFakeGateway()
	server := httptest.NewServer(gateway.handler())
	defer server.Close()

	client := NewPaystackClientWith(server.URL, "sk_test_x", 5*time.Second)

	_, err := client.InitializeTransaction(InitializeRequest{Email: "ada@example.com", Amount: 0})
	require.Error(t, err)

	// Validation happens before any network call.
	assert.Equal(t, 0, gateway.initCalls)
}

func TestWebhookSignature(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)
	secret := "sk_test_secret"

	signature := WebhookSignature(body, secret)
	assert.Len(t, signature, 128) // hex SHA-512

	assert.True(t, ValidWebhookSignature(body, signature, secret))
	assert.False(t, ValidWebhookSignature(body, signature, "wrong-secret"))
	assert.False(t, ValidWebhookSignature(append(body, ' '), signature, secret))
	assert.False(t, ValidWebhookSignature(body, "deadbeef", secret))
}

func TestWebhookSignatureCoversExactBytes(t *testing.T) {
	payload := map[string]any{"event": "charge.success"}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	// Re-marshaling reorders nothing here, but any byte difference must
	// invalidate the signature.
	signature := WebhookSignature(body, "s")
	other := append([]byte(nil), body...)
	other[0] = ' '
	assert.False(t, ValidWebhookSignature(other, signature, "s"))
}
