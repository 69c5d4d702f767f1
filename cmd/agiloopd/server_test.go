package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/agiloop/agent"
	"github.com/kadirpekel/agiloop/agiconfig"
	"github.com/kadirpekel/agiloop/agillm"
	"github.com/kadirpekel/agiloop/agiobserve"
	"github.com/kadirpekel/agiloop/agitool"
)

func testServer(t *testing.T, authz agiconfig.AuthorizationMode) *server {
	t.Helper()
	cfg := &agiconfig.Config{
		LLM: agillm.ProviderConfig{Provider: agillm.ProviderOpenAI, APIKey: "test-key"},
	}
	cfg.Memory.Policy = agiconfig.MemorySlidingWindow
	cfg.Memory.SlidingWindowSize = 20
	cfg.Loop.MaxSteps = 3
	cfg.Loop.LoopDetectionWindow = 3
	cfg.Loop.TruncationBudget = 4000
	cfg.Loop.AutoRecoveryAttempts = 1
	cfg.Authorization = authz

	h, err := agent.New(cfg, agitool.NewRegistry())
	require.NoError(t, err)

	return &server{handler: h, cfg: cfg, logger: agiobserve.NewLogger(false)}
}

func TestHandleStreamRejectsMalformedBody(t *testing.T) {
	s := testServer(t, agiconfig.AuthzNone)
	req := httptest.NewRequest(http.MethodPost, "/stream", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()

	s.handleStream(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStreamRejectsMissingThreadID(t *testing.T) {
	s := testServer(t, agiconfig.AuthzNone)
	req := httptest.NewRequest(http.MethodPost, "/stream", bytes.NewBufferString(`{"run_id":"r1","messages":[]}`))
	rec := httptest.NewRecorder()

	s.handleStream(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleStreamDeniesWholeRunWhenAlwaysDeny(t *testing.T) {
	s := testServer(t, agiconfig.AuthzAlwaysDeny)
	body := `{"thread_id":"t1","run_id":"r1","messages":[{"id":"m1","role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/stream", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	s.handleStream(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleHealthReportsOK(t *testing.T) {
	s := testServer(t, agiconfig.AuthzNone)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	s.handleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleClearMemoryRequiresThreadID(t *testing.T) {
	s := testServer(t, agiconfig.AuthzNone)
	req := httptest.NewRequest(http.MethodDelete, "/memory/clear", nil)
	rec := httptest.NewRecorder()

	s.handleClearMemory(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleClearMemoryOnUnknownThreadIsNoContent(t *testing.T) {
	s := testServer(t, agiconfig.AuthzNone)
	req := httptest.NewRequest(http.MethodDelete, "/memory/clear?thread_id=never-run", nil)
	rec := httptest.NewRecorder()

	s.handleClearMemory(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
}
