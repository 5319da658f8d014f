package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-billing/internal/server"
	"github.com/noah-isme/backend-billing/internal/store"
)

func newServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.New(client)
	h := &server.Handler{
		Store:    s,
		Validate: validator.New(),
		Logger:   zerolog.Nop(),
	}
	r := chi.NewRouter()
	h.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, s
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createStatement(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, ts.URL+"/statements", map[string]any{
		"customerAccountId": "ACC-1",
		"billSequence":      3,
		"subscriber":        "+31612345678",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	return body["id"].(string)
}

func TestCreateStatement(t *testing.T) {
	ts, _ := newServer(t)

	id := createStatement(t, ts)
	require.Equal(t, "ACC-1_3_31612345678", id)
}

func TestCreateAccountStatement(t *testing.T) {
	ts, _ := newServer(t)

	resp := postJSON(t, ts.URL+"/statements", map[string]any{
		"customerAccountId": "ACC-9",
		"billSequence":      1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	require.Equal(t, "ACC-9_1", body["id"])
	require.Equal(t, "account", body["level"])
}

func TestCreateValidation(t *testing.T) {
	ts, _ := newServer(t)

	resp := postJSON(t, ts.URL+"/statements", map[string]any{"billSequence": 1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/statements", map[string]any{
		"customerAccountId": "ACC-1",
		"subscriber":        "xx",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAppendRowsAndProcess(t *testing.T) {
	ts, s := newServer(t)
	id := createStatement(t, ts)

	resp := postJSON(t, ts.URL+"/statements/"+id+"/rows", map[string]any{
		"rows": []map[string]any{
			{"name": "calls", "featureCategory": "voice", "totalAmount": map[string]any{"value": "10.00", "currency": "EUR"}},
			{"name": "calls", "featureCategory": "voice", "totalAmount": map[string]any{"value": "5.00", "currency": "EUR"}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	require.Equal(t, float64(1), body["rows"])

	resp = postJSON(t, ts.URL+"/statements/"+id+"/process", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	st, err := s.Get(t.Context(), id)
	require.NoError(t, err)
	require.True(t, st.Processed)
	require.Len(t, st.Rows, 1)
	require.True(t, st.Rows[0].Total.Value().Decimal.Equal(decimal.RequireFromString("15.00")))
}

func TestAppendRowsConflictsAfterProcess(t *testing.T) {
	ts, _ := newServer(t)
	id := createStatement(t, ts)

	resp := postJSON(t, ts.URL+"/statements/"+id+"/process", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/statements/"+id+"/rows", map[string]any{
		"rows": []map[string]any{{"name": "late"}},
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/statements/"+id+"/process", nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAppendRowsRejectsBadRow(t *testing.T) {
	ts, _ := newServer(t)
	id := createStatement(t, ts)

	resp := postJSON(t, ts.URL+"/statements/"+id+"/rows", map[string]any{
		"rows": []map[string]any{
			{"name": "calls", "totalAmount": map[string]any{"value": "10.00", "currency": ""}},
		},
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetStatement(t *testing.T) {
	ts, _ := newServer(t)
	id := createStatement(t, ts)

	resp, err := http.Get(ts.URL + "/statements/" + id)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	require.Equal(t, id, body["id"])

	missing, err := http.Get(ts.URL + "/statements/nope")
	require.NoError(t, err)
	t.Cleanup(func() { _ = missing.Body.Close() })
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
	errBody := decode(t, missing)
	require.Equal(t, "NOT_FOUND", errBody["error"].(map[string]any)["code"])
}
