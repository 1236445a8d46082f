// Package fetch downloads job source documents into the spool work dir.
package fetch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	http *resty.Client
}

func NewClient(timeout time.Duration) *Client {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetHeader("User-Agent", "printflow")
	return &Client{http: client}
}

// Fetch downloads url to dst. A non-2xx response is an error and dst is
// removed so a failed attempt leaves nothing behind.
func (c *Client) Fetch(ctx context.Context, url, dst string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetOutput(dst).
		Get(url)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	if resp.IsError() {
		os.Remove(dst)
		return fmt.Errorf("download %s: http %d", url, resp.StatusCode())
	}
	return nil
}
