package host

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *GristClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewGristClient(srv.URL+"/", "doc1", "secret", 0)
	require.NoError(t, err)
	return c
}

func TestGristClient_FetchTable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/docs/doc1/tables/AllDevice/data", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":[1,2],"nmoBaseName":["A","B"]}`))
	})

	snap, err := c.FetchTable(context.Background(), "AllDevice")
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, snap["id"])
	assert.Equal(t, []any{"A", "B"}, snap["nmoBaseName"])
}

func TestGristClient_FetchTableNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Table not found \"Nope\""}`))
	})

	_, err := c.FetchTable(context.Background(), "Nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTableNotFound))
}

func TestGristClient_ApplyUserActions(t *testing.T) {
	var got []Action
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/docs/doc1/apply", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"actionNum":1,"retValues":[null,null]}`))
	})

	err := c.ApplyUserActions(context.Background(), []Action{
		UpdateRecord("AllDevice", 5, map[string]any{"level1": "GA"}),
		AddRecord("SYSTEM", map[string]any{"key": "v"}),
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, ActionUpdateRecord, got[0].Type)
	assert.Equal(t, "AllDevice", got[0].Table)
	require.NotNil(t, got[0].RowID)
	assert.Equal(t, int64(5), *got[0].RowID)
	assert.Equal(t, map[string]any{"level1": "GA"}, got[0].Fields)
	assert.Equal(t, ActionAddRecord, got[1].Type)
	assert.Nil(t, got[1].RowID)
}

func TestGristClient_ApplyNothingSkipsRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	})
	require.NoError(t, c.ApplyUserActions(context.Background(), nil))
}

func TestGristClient_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid column \"level9\""}`))
	})

	err := c.ApplyUserActions(context.Background(), []Action{UpdateRecord("AllDevice", 1, nil)})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, `Invalid column "level9"`, apiErr.Message)
}

func TestGristClient_Ping(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/docs/doc1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"doc1","name":"Project"}`))
	})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewGristClient_RequiresDoc(t *testing.T) {
	_, err := NewGristClient("", "", "", 0)
	assert.Error(t, err)
}

func TestAction_WireForm(t *testing.T) {
	data, err := json.Marshal(UpdateRecord("AllDevice", 3, map[string]any{"level2": ""}))
	require.NoError(t, err)
	assert.JSONEq(t, `["UpdateRecord","AllDevice",3,{"level2":""}]`, string(data))

	data, err = json.Marshal(AddRecord("SYSTEM", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `["AddRecord","SYSTEM",null,{}]`, string(data))
}
