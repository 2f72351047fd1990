package classifier

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonyandfriends/badbot-discord-automod/internal/config"
)

func TestParseVerdict(t *testing.T) {
	cases := []struct {
		name      string
		reply     string
		wantScam  bool
		rationale string
	}{
		{"yes prefix", "YES: classic free-NFT bait", true, "classic free-NFT bait"},
		{"no prefix", "NO: ordinary support question", false, "ordinary support question"},
		{"lowercase yes", "yes: invite link spam", true, "invite link spam"},
		{"mixed case no", "No: looks fine", false, "looks fine"},
		{"surrounding whitespace", "  YES: padded  ", true, "padded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := ParseVerdict(tc.reply)
			assert.Equal(t, tc.wantScam, verdict.IsScam)
			assert.Equal(t, tc.rationale, verdict.Rationale)
		})
	}
}

func TestParseVerdictAmbiguousDefaultsToNotScam(t *testing.T) {
	for _, reply := range []string{"", "maybe", "It could be a scam.", "YES I think so"} {
		verdict := ParseVerdict(reply)
		if verdict.IsScam {
			t.Fatalf("ambiguous reply %q classified as scam", reply)
		}
		if !strings.Contains(verdict.Rationale, "ambiguous") {
			t.Fatalf("rationale %q does not note the ambiguity", verdict.Rationale)
		}
	}
}

func testGateway(endpoint string) *Gateway {
	g := NewGateway(config.ClassifierConfig{
		APIKey:         "test-key",
		Model:          "gpt-4o-mini",
		Temperature:    0,
		RequestTimeout: 2 * time.Second,
	})
	g.endpoint = endpoint
	return g
}

func chatReply(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestClassifyRoundTrip(t *testing.T) {
	var gotRequest chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatReply("YES: free crypto giveaway pattern")))
	}))
	defer server.Close()

	g := testGateway(server.URL)
	verdict, err := g.Classify("claim your free NFT now", "Server A")

	require.NoError(t, err)
	assert.True(t, verdict.IsScam)
	assert.Equal(t, "free crypto giveaway pattern", verdict.Rationale)

	require.Len(t, gotRequest.Messages, 2)
	assert.Equal(t, "system", gotRequest.Messages[0].Role)
	assert.Contains(t, gotRequest.Messages[1].Content, "claim your free NFT now")
	assert.Contains(t, gotRequest.Messages[1].Content, "Server A")
	assert.Equal(t, "gpt-4o-mini", gotRequest.Model)
	assert.Equal(t, maxTokens, gotRequest.MaxTokens)
}

func TestClassifyEmptyTextRejected(t *testing.T) {
	g := testGateway("http://unused.invalid")

	_, err := g.Classify("   ", "")
	require.Error(t, err)
}

func TestClassifyRateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := testGateway(server.URL)
	_, err := g.Classify("some message", "")

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
	assert.Equal(t, 7*time.Second, transient.RetryAfter)
}

func TestClassifyServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	g := testGateway(server.URL)
	_, err := g.Classify("some message", "")

	var transient *TransientError
	require.ErrorAs(t, err, &transient)
}

func TestClassifyClientErrorIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	g := testGateway(server.URL)
	_, err := g.Classify("some message", "")

	require.Error(t, err)
	var transient *TransientError
	assert.False(t, errors.As(err, &transient), "auth failure must not be retried")
}

func TestClassifyBackendErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	g := testGateway(server.URL)
	_, err := g.Classify("some message", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}
