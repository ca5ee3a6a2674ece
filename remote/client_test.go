package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-dashboard/catalog"
	"github.com/yeremiapane/restaurant-dashboard/models"
	"github.com/yeremiapane/restaurant-dashboard/utils"
)

func writeEnvelope(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(utils.JSONResponse{
		Status:  code >= 200 && code < 300,
		Message: message,
		Data:    data,
	})
}

func TestCreateUsesCollectionEndpoint(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		writeEnvelope(w, http.StatusCreated, "created", map[string]interface{}{
			"id":          "prod-9",
			"name":        "Tacos",
			"final_price": 10.5,
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/", Token: "secret"})
	rec, err := c.Create(context.Background(), catalog.LevelProduct, "s1", models.Product{ID: "tmp-x", Name: "Tacos"})
	require.NoError(t, err)

	assert.Equal(t, "POST /sections/s1/products", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "Tacos", gotBody["name"])
	assert.Equal(t, "prod-9", rec["id"])
	assert.Equal(t, json.Number("10.5"), rec["final_price"])
}

func TestEndpoints(t *testing.T) {
	tests := []struct {
		level  catalog.Level
		parent string
		create string
		single string
	}{
		{catalog.LevelMenu, "b1", "/businesses/b1/menus", "/menus/x"},
		{catalog.LevelSection, "m1", "/menus/m1/sections", "/sections/x"},
		{catalog.LevelProduct, "s1", "/sections/s1/products", "/products/x"},
		{catalog.LevelOptionGroup, "p1", "/products/p1/option-groups", "/option-groups/x"},
		{catalog.LevelOption, "g1", "/option-groups/g1/options", "/options/x"},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			got, err := collectionEndpoint(tt.level, tt.parent)
			require.NoError(t, err)
			assert.Equal(t, tt.create, got)

			got, err = resourceEndpoint(tt.level, "x")
			require.NoError(t, err)
			assert.Equal(t, tt.single, got)
		})
	}

	_, err := resourceEndpoint(catalog.LevelOption, "")
	assert.Error(t, err)
}

func TestUpdateAndDelete(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeEnvelope(w, http.StatusOK, "ok", map[string]interface{}{"id": "s1", "name": "Platos"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	rec, err := c.Update(context.Background(), catalog.LevelSection, "s1", models.Patch{"name": "Platos"})
	require.NoError(t, err)
	assert.Equal(t, "Platos", rec["name"])

	require.NoError(t, c.Delete(context.Background(), catalog.LevelSection, "s1"))
	assert.Equal(t, []string{"PATCH /sections/s1", "DELETE /sections/s1"}, calls)
}

func TestStructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnprocessableEntity, "name is required", nil)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Update(context.Background(), catalog.LevelSection, "s1", models.Patch{"name": ""})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "name is required", ErrorMessage(err))
}

func TestPlainTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	err := c.Delete(context.Background(), catalog.LevelMenu, "m1")
	assert.Equal(t, "upstream down", ErrorMessage(err))
}

func TestSyncOrders(t *testing.T) {
	since := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ts := since.Add(time.Minute)
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/b1/orders/sync", r.URL.Path)
		gotQuery = r.URL.Query().Get("last_sync_time")
		writeEnvelope(w, http.StatusOK, "ok", SyncResponse{
			Orders:    []models.Order{{ID: "o1", Status: models.OrderStatusPending}},
			Timestamp: ts,
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	resp, err := c.SyncOrders(context.Background(), "b1", &since)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T10:00:00Z", gotQuery)
	require.Len(t, resp.Orders, 1)
	assert.Equal(t, "o1", resp.Orders[0].ID)
	assert.True(t, ts.Equal(resp.Timestamp))

	_, err = c.SyncOrders(context.Background(), "b1", nil)
	require.NoError(t, err)
	assert.Empty(t, gotQuery)
}

func TestFetchCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/businesses/b1/menus", r.URL.Path)
		writeEnvelope(w, http.StatusOK, "ok", []models.Menu{{ID: "m1", Sections: []models.Section{{ID: "s1"}}}})
	}))
	defer srv.Close()

	menus, err := NewClient(Config{BaseURL: srv.URL}).FetchCatalog(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, "s1", menus[0].Sections[0].ID)
}

func TestCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewClient(Config{BaseURL: srv.URL}).Delete(ctx, catalog.LevelMenu, "m1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "request cancelled", ErrorMessage(err))
}
