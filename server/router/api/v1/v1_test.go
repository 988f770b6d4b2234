package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/require"

	"github.com/toolhub/toolhub/plugin/llm"
	"github.com/toolhub/toolhub/server/auth"
	"github.com/toolhub/toolhub/server/profile"
	v1 "github.com/toolhub/toolhub/server/router/api/v1"
	"github.com/toolhub/toolhub/store"
	"github.com/toolhub/toolhub/store/db/sqlite"
)

const testSecret = "test-secret"

type testEnv struct {
	echo  *echo.Echo
	store *store.Store
}

// newTestEnv builds the API against a temp sqlite store. upstream, when not
// nil, serves as the fake generation endpoint.
func newTestEnv(t *testing.T, upstream http.Handler) *testEnv {
	t.Helper()
	p := &profile.Profile{
		Mode:     "prod",
		Driver:   "sqlite",
		DSN:      "file:" + t.TempDir() + "/toolhub_test.db",
		Secret:   testSecret,
		LLMModel: "test-model",
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = driver.Close() })
	st := store.New(driver)
	require.NoError(t, st.Migrate(context.Background()))

	var llmClient *llm.Client
	if upstream != nil {
		server := httptest.NewServer(upstream)
		t.Cleanup(server.Close)
		llmClient, err = llm.NewClient("test-key", server.URL, "test-model")
		require.NoError(t, err)
	}

	e := echo.New()
	v1.NewAPIV1Service(testSecret, p, st, llmClient).RegisterRoutes(e)
	return &testEnv{echo: e, store: st}
}

func userToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateAccessToken(userID, userID+"@example.com", testSecret, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return token
}

func (env *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
