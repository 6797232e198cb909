package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// fetch performs a GET bounded by the preparer's download timeout and
// returns the open response body. The caller closes it.
func (p *Preparer) fetch(ctx context.Context, url string) (io.ReadCloser, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, p.downloadTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("download %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, nil, fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}
	return resp.Body, cancel, nil
}

// downloadBytes reads at most limit bytes into memory.
func (p *Preparer) downloadBytes(ctx context.Context, url string, limit int64) ([]byte, error) {
	body, cancel, err := p.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w", url, ErrTooLarge)
	}
	return data, nil
}

// downloadFile streams url into path, stopping once limit bytes are exceeded.
// A partial file is removed before returning an error.
func (p *Preparer) downloadFile(ctx context.Context, url, path string, limit int64) (int64, error) {
	body, cancel, err := p.fetch(ctx, url)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer body.Close()

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(out, io.LimitReader(body, limit+1))
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > limit {
		err = fmt.Errorf("%s: %w", url, ErrTooLarge)
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}
