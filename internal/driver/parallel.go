package driver

import (
	"crypto/sha256"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"plasma/internal/diag"
)

// BuildAll compiles several files concurrently. Each file is an
// independent compilation; results come back in input order. The cache
// may be nil.
func BuildAll(paths []string, opts Options, cache *DiskCache) []*Result {
	results := make([]*Result, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		g.Go(func() error {
			results[i] = compileCached(path, opts, cache)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors; failures live in the bags
	return results
}

// compileCached consults the disk cache before running the pipeline and
// stores successful results back.
func compileCached(path string, opts Options, cache *DiskCache) *Result {
	content, err := os.ReadFile(path) // #nosec G304 -- path comes from the CLI
	if err == nil && cache != nil {
		key := sha256.Sum256(content)
		if payload, ok, cerr := cache.Get(key); cerr == nil && ok {
			return &Result{Path: path, Text: payload.Text, Bag: diag.NewBag(opts.maxDiags())}
		}
	}
	res := CompileFile(path, opts)
	if res.Text != nil && cache != nil && err == nil {
		key := sha256.Sum256(content)
		_ = cache.Put(key, &DiskPayload{ //nolint:errcheck // cache writes are best effort
			Schema: diskCacheSchemaVersion,
			Path:   path,
			Text:   res.Text,
		})
	}
	return res
}
