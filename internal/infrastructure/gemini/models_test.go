package gemini

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kisanbot/internal/domain"
	"kisanbot/internal/infrastructure/config"
)

func TestClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		_, _ = io.WriteString(w, modelsBody)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)

	require.Len(t, models, 3)
	assert.Equal(t, "gemini-1.5-flash", models[0].ID())
	assert.True(t, models[0].Supports(domain.GenerateContentMethod))
}

func TestClient_ListModels_Pagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pageToken") == "" {
			_, _ = io.WriteString(w, `{"models":[{"name":"models/a","supportedGenerationMethods":["generateContent"]}],"nextPageToken":"p2"}`)
			return
		}
		_, _ = io.WriteString(w, `{"models":[{"name":"models/b","supportedGenerationMethods":["generateContent"]}]}`)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, domain.GenerationCapableIDs(models))
}

func TestClient_ListModels_Errors(t *testing.T) {
	t.Run("認証情報なし", func(t *testing.T) {
		client := NewClient(&config.GeminiConfig{})
		_, err := client.ListModels(context.Background())
		assert.True(t, errors.Is(err, domain.ErrNotConfigured))
	})

	t.Run("認可エラーはステータス付きで返す", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":{"code":403,"message":"permission denied"}}`)
		}))
		defer srv.Close()

		client := newTestClient(srv, nil)
		_, err := client.ListModels(context.Background())
		require.Error(t, err)

		invErr, ok := domain.AsInvocationError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, invErr.HTTPStatus)
		assert.Equal(t, "permission denied", invErr.Message)
	})
}

func TestClient_IsModelValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, modelsBody)
	}))
	defer srv.Close()

	client := newTestClient(srv, nil)
	tests := []struct {
		name string
		id   domain.ModelID
		want domain.ModelValidity
	}{
		{name: "存在し生成可能", id: "gemini-1.5-flash", want: domain.ModelValidity{OK: true}},
		{name: "接頭辞付きでも一致", id: "models/gemini-1.5-pro", want: domain.ModelValidity{OK: true}},
		{name: "存在しない", id: "gemini-9", want: domain.ModelValidity{Reason: domain.ModelNotFound}},
		{name: "生成メソッド非対応", id: "embedding-001", want: domain.ModelValidity{Reason: domain.ModelUnsupportedMethod}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, client.IsModelValid(context.Background(), tt.id))
		})
	}
}

func TestClient_IsModelValid_FailOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	client := NewClient(testConfig(baseURL), WithHTTPClient(&http.Client{Transport: &http.Transport{DisableKeepAlives: true}}))
	assert.Equal(t, domain.ModelValidity{OK: true}, client.IsModelValid(context.Background(), "anything"))
}
