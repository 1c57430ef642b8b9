package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxImageBytes: фото больше этого считаем битыми.
const maxImageBytes = 8 << 20

// fetch: GET с таймаутом; не-2xx и пустое тело считаются ошибкой.
func fetch(ctx context.Context, client *http.Client, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body[:min(len(body), 200)])))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return body, nil
}
