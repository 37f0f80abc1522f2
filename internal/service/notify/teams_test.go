package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcm-ksa/nphies-gateway/internal/service/common"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
)

func rejected() ledger.Submission {
	return ledger.Submission{
		ID:        "claim-1",
		Kind:      "Claim",
		PayerCode: "7001071327",
		BundleID:  "bundle-1",
		MemberID:  "MB-1",
		Status:    ledger.StatusRejected,
		Errors:    []string{"[error] Invalid member"},
	}
}

func TestNotifyRejection_SignsBody(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		got = body

		assert.True(t, VerifySignatureHeader(body, r.Header.Get(SignatureHeader), "hook-secret"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewTeamsNotifier(TeamsOptions{WebhookURL: srv.URL, Secret: "hook-secret"}, zerolog.Nop())
	require.NoError(t, n.NotifyRejection(context.Background(), rejected()))

	var card map[string]any
	require.NoError(t, json.Unmarshal(got, &card))
	assert.Equal(t, "MessageCard", card["@type"])
	section := card["sections"].([]any)[0].(map[string]any)
	assert.Contains(t, section["activityTitle"], "7001071327")
	assert.Equal(t, "[error] Invalid member", section["text"])
}

func TestNotifyRejection_Disabled(t *testing.T) {
	n := NewTeamsNotifier(TeamsOptions{}, zerolog.Nop())
	assert.False(t, n.Enabled())
	assert.NoError(t, n.NotifyRejection(context.Background(), rejected()))
}

func TestNotifyRejection_WebhookError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewTeamsNotifier(TeamsOptions{WebhookURL: srv.URL}, zerolog.Nop())
	err := n.NotifyRejection(context.Background(), rejected())
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRejectionCard_TruncatesErrors(t *testing.T) {
	s := rejected()
	s.Errors = nil
	for i := 0; i < 8; i++ {
		s.Errors = append(s.Errors, fmt.Sprintf("[error] e%d", i))
	}

	card := rejectionCard(s)
	assert.Contains(t, card.Sections[0].Text, "[error] e4")
	assert.NotContains(t, card.Sections[0].Text, "[error] e5")
	assert.Contains(t, card.Sections[0].Text, "(+3 more)")
}

func TestVerifySignatureHeader(t *testing.T) {
	body := []byte(`{"ok":true}`)
	sig := common.GenerateHMACSignature(string(body), "k")

	assert.True(t, VerifySignatureHeader(body, "sha256="+sig, "k"))
	assert.False(t, VerifySignatureHeader(body, sig, "k"))
	assert.False(t, VerifySignatureHeader(body, "sha256="+sig, ""))
	assert.False(t, VerifySignatureHeader([]byte(`{"ok":false}`), "sha256="+sig, "k"))
}
