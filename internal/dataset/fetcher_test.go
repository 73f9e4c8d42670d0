package dataset

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherResolve(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/files/train.csv" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("a,classe\n1,A\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := NewFetcher(dir, 5*time.Second)
	ctx := context.Background()

	t.Run("local path is returned unchanged", func(t *testing.T) {
		got, err := f.Resolve(ctx, "data/train.csv")
		require.NoError(t, err)
		assert.Equal(t, "data/train.csv", got)
	})

	t.Run("downloads once", func(t *testing.T) {
		got, err := f.Resolve(ctx, srv.URL+"/files/train.csv")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "train.csv"), got)

		body, err := os.ReadFile(got)
		require.NoError(t, err)
		assert.Equal(t, "a,classe\n1,A\n", string(body))

		before := hits.Load()
		again, err := f.Resolve(ctx, srv.URL+"/files/train.csv")
		require.NoError(t, err)
		assert.Equal(t, got, again)
		assert.Equal(t, before, hits.Load())
	})

	t.Run("error status", func(t *testing.T) {
		_, err := f.Resolve(ctx, srv.URL+"/files/missing.csv")
		assert.Error(t, err)
		_, statErr := os.Stat(filepath.Join(dir, "missing.csv"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/a.csv"))
	assert.True(t, IsRemote("http://example.com/a.csv"))
	assert.False(t, IsRemote("/tmp/a.csv"))
	assert.False(t, IsRemote("ftp://example.com/a.csv"))
}
