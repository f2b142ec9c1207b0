package api

import (
	"errors"
	"fmt"
	"testing"

	"smartbudget/config"
	"smartbudget/models"
	"smartbudget/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.GlobalConfig = &config.Config{Server: config.ServerConfig{Mode: "release"}}
	defer func() { config.GlobalConfig = nil }()

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("wrap: %w", models.NewValidationError("amount", "金额必须大于 0")), 400},
		{"not found", &store.NotFoundError{Entity: "budgets", ID: 3}, 404},
		{"backend", &store.BackendError{Op: "fetch", Err: errors.New("dial tcp")}, 502},
		{"partial batch", &store.PartialBatchError{Op: "create", Failures: []store.RecordFailure{
			{Index: 0, Message: "invalid", Fields: []store.FieldError{{Field: "monthlyLimit", Message: "must be positive"}}},
		}}, 502},
		{"other", errors.New("boom"), 500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", func(c *gin.Context) { respondError(c, tc.err, "操作失败") })
			w, resp := doJSON(t, r, "GET", "/", "")
			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, float64(tc.code), resp["code"])
		})
	}
}

func TestRespondError_DetailHiddenInRelease(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.GlobalConfig = &config.Config{Server: config.ServerConfig{Mode: "release"}}
	defer func() { config.GlobalConfig = nil }()

	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		respondError(c, &store.PartialBatchError{Op: "create", Failures: []store.RecordFailure{
			{Index: 0, Fields: []store.FieldError{{Field: "monthlyLimit", Message: "must be positive"}}},
		}}, "创建预算失败")
	})
	_, resp := doJSON(t, r, "GET", "/", "")
	assert.Equal(t, "创建预算失败", resp["message"])

	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok)
	failures := data["failures"].([]interface{})
	require.Len(t, failures, 1)
	fields := failures[0].(map[string]interface{})["fields"].([]interface{})
	assert.Equal(t, "monthlyLimit", fields[0].(map[string]interface{})["field"])
}
