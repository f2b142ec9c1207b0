package recordsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchAll_Paginates(t *testing.T) {
	var offsets []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tables/budgets/records/query", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var params FetchParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		offsets = append(offsets, params.PagingInfo.Offset)

		var data []Record
		for i := params.PagingInfo.Offset; i < params.PagingInfo.Offset+params.PagingInfo.Limit && i < 5; i++ {
			data = append(data, Record{"Id": float64(i + 1)})
		}
		_ = json.NewEncoder(w).Encode(FetchResponse{Success: true, Data: data, Total: 5})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret"})
	records, err := c.FetchAll(context.Background(), "budgets", []string{"Id", "month_c"}, 2)
	require.NoError(t, err)
	assert.Len(t, records, 5)
	assert.Equal(t, []int{0, 2, 4}, offsets)
	assert.Equal(t, 5, records[4].ID())
}

func TestClient_Fetch_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(FetchResponse{Success: false, Message: "table not found"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Fetch(context.Background(), "nope", FetchParams{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "table not found", apiErr.Message)
}

func TestClient_GetByID_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tables/goals/records/404":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"success":false,"message":"missing"}`))
		case "/tables/goals/records/7":
			assert.Equal(t, "Id,Name", r.URL.Query().Get("fields"))
			_, _ = w.Write([]byte(`{"success":true,"data":null}`))
		default:
			_, _ = w.Write([]byte(`{"success":true,"data":{"Id":1,"Name":"Car"}}`))
		}
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.GetByID(context.Background(), "goals", 404, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetByID(context.Background(), "goals", 7, []string{"Id", "Name"})
	assert.ErrorIs(t, err, ErrNotFound)

	rec, err := c.GetByID(context.Background(), "goals", 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "Car", rec["Name"])
}

func TestClient_Create_PartialResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Records []Record `json:"records"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Records, 2)
		_ = json.NewEncoder(w).Encode(BatchResponse{
			Success: true,
			Results: []RecordResult{
				{Success: false, Message: "invalid", Errors: []FieldError{{FieldLabel: "amount_c", Message: "required"}}},
				{Success: true, Data: Record{"Id": float64(9)}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	resp, err := c.Create(context.Background(), "transactions", []Record{{"amount_c": nil}, {"amount_c": "5"}})
	require.NoError(t, err)
	require.Len(t, resp.Succeeded(), 1)
	assert.Equal(t, 9, resp.Succeeded()[0].Data.ID())
	failed := resp.Failed()
	require.Contains(t, failed, 0)
	assert.Equal(t, "amount_c", failed[0].Errors[0].FieldLabel)
}

func TestClient_Delete_SendsIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		var body struct {
			RecordIds []int `json:"RecordIds"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []int{3, 4}, body.RecordIds)
		_, _ = w.Write([]byte(`{"success":true,"results":[{"success":true},{"success":true}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	resp, err := c.Delete(context.Background(), "budgets", []int{3, 4})
	require.NoError(t, err)
	assert.Len(t, resp.Succeeded(), 2)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	_, err := c.Update(context.Background(), "budgets", []Record{{"Id": 1}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "boom", apiErr.Message)
}
