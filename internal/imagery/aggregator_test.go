package imagery

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/paths"
)

// writePNG writes a small valid PNG so format sniffing has real bytes to work on.
func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func TestLoadPages(t *testing.T) {
	t.Run("loads all pages in recorded order", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "assets", "set1", "p1.png"), 3, 4)
		writePNG(t, filepath.Join(root, "assets", "set1", "p2.png"), 5, 6)

		agg := NewAggregator(paths.NewResolver([]string{root}), nil)
		pages, err := agg.LoadPages(context.Background(), domain.FormInput{
			FormSetName: "set1",
			PagePaths: []string{
				"/foreign/assets/set1/p1.png",
				"/foreign/assets/set1/p2.png",
			},
			PageCount: 2,
		})

		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, "image/png", pages[0].MIME)
		assert.Equal(t, 3, pages[0].Width)
		assert.Equal(t, 4, pages[0].Height)
		assert.Equal(t, 6, pages[1].Height)
	})

	t.Run("skips missing pages and keeps the rest", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "assets", "set2", "p2.png"), 2, 2)

		agg := NewAggregator(paths.NewResolver([]string{root}), nil)
		pages, err := agg.LoadPages(context.Background(), domain.FormInput{
			FormSetName: "set2",
			PagePaths: []string{
				"/foreign/assets/set2/p1.png", // does not exist anywhere
				"/foreign/assets/set2/p2.png",
			},
		})

		require.NoError(t, err)
		require.Len(t, pages, 1)
	})

	t.Run("zero resolvable pages is a MissingResourceError", func(t *testing.T) {
		agg := NewAggregator(paths.NewResolver([]string{t.TempDir()}), nil)
		originals := []string{"/foreign/assets/a.png", "/foreign/assets/b.png"}

		_, err := agg.LoadPages(context.Background(), domain.FormInput{
			FormSetName: "set3",
			PagePaths:   originals,
		})

		var missing *domain.MissingResourceError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "set3", missing.FormSetName)
		assert.Equal(t, originals, missing.Paths, "error must carry the full original path list")
	})

	t.Run("cancelled context stops loading", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		agg := NewAggregator(paths.NewResolver(nil), nil)
		_, err := agg.LoadPages(ctx, domain.FormInput{
			FormSetName: "set4",
			PagePaths:   []string{"a.png"},
		})
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("hung read aborts at the load deadline", func(t *testing.T) {
		root := t.TempDir()
		writePNG(t, filepath.Join(root, "assets", "set6", "p1.png"), 1, 1)

		agg := NewAggregator(paths.NewResolver([]string{root}), nil).
			WithLoadTimeout(20 * time.Millisecond)
		blocked := make(chan struct{})
		agg.readFile = func(string) ([]byte, error) {
			<-blocked
			return nil, nil
		}
		defer close(blocked)

		start := time.Now()
		_, err := agg.LoadPages(context.Background(), domain.FormInput{
			FormSetName: "set6",
			PagePaths:   []string{"/foreign/assets/set6/p1.png"},
		})

		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("unknown format still packaged with octet-stream", func(t *testing.T) {
		root := t.TempDir()
		raw := filepath.Join(root, "assets", "p.bin")
		require.NoError(t, os.MkdirAll(filepath.Dir(raw), 0o755))
		require.NoError(t, os.WriteFile(raw, []byte{0x00, 0x01, 0x02}, 0o644))

		agg := NewAggregator(paths.NewResolver([]string{root}), nil)
		pages, err := agg.LoadPages(context.Background(), domain.FormInput{
			FormSetName: "set5",
			PagePaths:   []string{"/foreign/assets/p.bin"},
		})

		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "application/octet-stream", pages[0].MIME)
		assert.Zero(t, pages[0].Width)
	})
}
