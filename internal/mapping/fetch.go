package mapping

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// DefaultBaseURL hosts the published pretrained mapping matrices.
const DefaultBaseURL = "https://github.com/PeizhiYan/mediapipe-blendshapes-to-flame/raw/main/mappings"

// Files lists the mapping files in download order.
var Files = []string{ExpressionFile, PoseFile, EyeFile}

// Fetcher downloads mapping files into a directory.
type Fetcher struct {
	Client  *http.Client
	BaseURL string

	// Progress, when set, wraps the response body writer for each file so the
	// caller can report transfer progress. size is -1 when unknown.
	Progress func(name string, size int64) io.Writer
}

// NewFetcher returns a Fetcher for the public mapping repository.
func NewFetcher() *Fetcher {
	return &Fetcher{Client: http.DefaultClient, BaseURL: DefaultBaseURL}
}

// FetchResult reports what happened to one file.
type FetchResult struct {
	Name    string
	Path    string
	Skipped bool
	Bytes   int64
	Err     error
}

// FetchAll downloads every mapping file into dir, creating it if needed.
// Files that already exist are skipped. A failed file does not stop the others.
func (f *Fetcher) FetchAll(ctx context.Context, dir string) ([]FetchResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mappings dir: %w", err)
	}

	results := make([]FetchResult, 0, len(Files))
	for _, name := range Files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, f.fetch(ctx, dir, name))
	}
	return results, nil
}

func (f *Fetcher) fetch(ctx context.Context, dir, name string) FetchResult {
	res := FetchResult{Name: name, Path: filepath.Join(dir, name)}
	if _, err := os.Stat(res.Path); err == nil {
		res.Skipped = true
		return res
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/"+name, nil)
	if err != nil {
		res.Err = fmt.Errorf("build request: %w", err)
		return res
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		res.Err = fmt.Errorf("download %s: %w", name, err)
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		res.Err = fmt.Errorf("download %s: unexpected status %s", name, resp.Status)
		return res
	}

	// Partial transfers stay under a temp name until complete.
	tmp, err := os.CreateTemp(dir, name+".*.part")
	if err != nil {
		res.Err = fmt.Errorf("create temp file: %w", err)
		return res
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	if f.Progress != nil {
		w = io.MultiWriter(tmp, f.Progress(name, resp.ContentLength))
	}

	n, err := io.Copy(w, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		res.Err = fmt.Errorf("write %s: %w", name, err)
		return res
	}
	if err := os.Rename(tmp.Name(), res.Path); err != nil {
		res.Err = fmt.Errorf("install %s: %w", name, err)
		return res
	}

	res.Bytes = n
	return res
}
