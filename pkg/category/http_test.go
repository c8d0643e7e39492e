package category

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sokol111/ecommerce-product-service/pkg/http/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPChecker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/categories/electronics":
			w.WriteHeader(http.StatusOK)
		case "/categories/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	checker := NewHTTPChecker(srv.Client(), client.Config{BaseURL: srv.URL})
	ctx := context.Background()

	exists, err := checker.Exists(ctx, "electronics")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = checker.Exists(ctx, "furniture")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = checker.Exists(ctx, "broken")
	assert.Error(t, err)
}
