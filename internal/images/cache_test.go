package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowerhall/monumentd/internal/monument"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 'j', 'f', 'i', 'f'}

type imageServer struct {
	*httptest.Server
	hits atomic.Int64
}

// newImageServer answers ?numbien=<asset> using handle.
func newImageServer(t *testing.T, handle func(w http.ResponseWriter, asset string)) *imageServer {
	t.Helper()
	s := &imageServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		handle(w, r.URL.Query().Get("numbien"))
	}))
	t.Cleanup(s.Close)
	return s
}

func newCache(t *testing.T, url string) (*Cache, *Dir) {
	t.Helper()
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)
	c, err := New(dir, Config{URLTemplate: url + "/foto?numbien=%d", Timeout: 500 * time.Millisecond})
	require.NoError(t, err)
	return c, dir
}

func withAsset(id, asset int) *monument.Monument {
	return &monument.Monument{ID: id, AssetID: &asset}
}

func TestPopulateStoresOnce(t *testing.T) {
	srv := newImageServer(t, func(w http.ResponseWriter, _ string) {
		w.Write(jpeg)
	})
	c, _ := newCache(t, srv.URL)
	ctx := context.Background()

	assert.True(t, c.Populate(ctx, withAsset(1, 700)))
	assert.False(t, c.Populate(ctx, withAsset(1, 700)))
	assert.EqualValues(t, 1, srv.hits.Load())

	assert.True(t, c.Has(ctx, 1))
	data, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, jpeg, data)
}

func TestPopulateEmptyBodyIsAbsent(t *testing.T) {
	srv := newImageServer(t, func(w http.ResponseWriter, _ string) {
		w.WriteHeader(http.StatusOK)
	})
	c, _ := newCache(t, srv.URL)
	ctx := context.Background()

	assert.False(t, c.Populate(ctx, withAsset(2, 701)))
	assert.False(t, c.Has(ctx, 2))

	_, err := c.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPopulateNonOK(t *testing.T) {
	srv := newImageServer(t, func(w http.ResponseWriter, _ string) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	c, _ := newCache(t, srv.URL)

	assert.False(t, c.Populate(context.Background(), withAsset(3, 702)))
	assert.False(t, c.Has(context.Background(), 3))
}

func TestPopulateRejectsOversizedImage(t *testing.T) {
	big := make([]byte, 100)
	srv := newImageServer(t, func(w http.ResponseWriter, asset string) {
		if asset == "1" {
			w.Write(big)
			return
		}
		w.Write(big[:10])
	})

	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)
	c, err := New(dir, Config{URLTemplate: srv.URL + "/foto?numbien=%d", MaxBytes: 10})
	require.NoError(t, err)
	ctx := context.Background()

	assert.False(t, c.Populate(ctx, withAsset(6, 1)))
	assert.False(t, c.Has(ctx, 6))

	// exactly MaxBytes is accepted
	assert.True(t, c.Populate(ctx, withAsset(7, 2)))
	data, err := dir.Read(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, data, 10)
}

func TestPopulateWithoutAssetID(t *testing.T) {
	srv := newImageServer(t, func(w http.ResponseWriter, _ string) {
		w.Write(jpeg)
	})
	c, _ := newCache(t, srv.URL)
	ctx := context.Background()

	assert.False(t, c.Populate(ctx, &monument.Monument{ID: 4}))
	assert.False(t, c.Populate(ctx, withAsset(4, 0)))
	assert.Zero(t, srv.hits.Load())
}

func TestPopulateSkipsExistingBlob(t *testing.T) {
	srv := newImageServer(t, func(w http.ResponseWriter, _ string) {
		w.Write([]byte("replacement"))
	})
	c, dir := newCache(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, dir.Write(ctx, 5, jpeg))

	assert.False(t, c.Populate(ctx, withAsset(5, 705)))
	assert.Zero(t, srv.hits.Load())

	data, err := dir.Read(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, jpeg, data)
}

func TestPopulateAllIsolatesFailures(t *testing.T) {
	srv := newImageServer(t, func(w http.ResponseWriter, asset string) {
		switch asset {
		case "13":
			// longer than the client timeout
			time.Sleep(2 * time.Second)
		case "14":
			return
		default:
			w.Write(jpeg)
		}
	})
	c, _ := newCache(t, srv.URL)
	ctx := context.Background()

	batch := []monument.Monument{
		*withAsset(1, 11),
		*withAsset(2, 12),
		*withAsset(3, 13),
		*withAsset(4, 14),
		{ID: 5},
	}

	assert.Equal(t, 2, c.PopulateAll(ctx, batch))
	assert.True(t, c.Has(ctx, 1))
	assert.True(t, c.Has(ctx, 2))
	assert.False(t, c.Has(ctx, 3))
	assert.False(t, c.Has(ctx, 4))
	assert.False(t, c.Has(ctx, 5))

	// second pass issues no new fetches for stored ids
	before := srv.hits.Load()
	assert.Zero(t, c.PopulateAll(ctx, batch[:2]))
	assert.Equal(t, before, srv.hits.Load())
}

func TestPopulateConcurrentSameID(t *testing.T) {
	release := make(chan struct{})
	srv := newImageServer(t, func(w http.ResponseWriter, _ string) {
		<-release
		w.Write(jpeg)
	})
	c, _ := newCache(t, srv.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	var stored atomic.Int64
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Populate(ctx, withAsset(9, 900)) {
				stored.Add(1)
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, srv.hits.Load())
	assert.True(t, c.Has(ctx, 9))
	assert.GreaterOrEqual(t, stored.Load(), int64(1))
}

func TestDirWriteRead(t *testing.T) {
	dir, err := NewDir(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := dir.Exists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, dir.Write(ctx, 1, jpeg))
	require.NoError(t, dir.Write(ctx, 1, jpeg))

	ok, err = dir.Exists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := dir.Read(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, jpeg, data)

	entries, err := readDirNames(dir.Path())
	require.NoError(t, err)
	assert.Equal(t, []string{"1.jpg"}, entries)
}

func TestGetServesFromMemory(t *testing.T) {
	c, dir := newCache(t, "http://unused")
	ctx := context.Background()

	require.NoError(t, dir.Write(ctx, 7, jpeg))
	first, err := c.Get(ctx, 7)
	require.NoError(t, err)

	require.NoError(t, dir.Write(ctx, 7, []byte("changed on disk")))
	second, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func readDirNames(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
