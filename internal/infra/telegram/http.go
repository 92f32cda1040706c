package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// fileClient downloads from Telegram's file CDN. Bounded so a stuck download
// cannot pin a worker.
var fileClient = &http.Client{Timeout: 30 * time.Second}

const maxFileSize = 20 << 20 // Bot API download ceiling

func fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := fileClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFileSize))
}
