// Package authhttp holds the plain net/http edges: the remote operate-log
// client and the JWKS handler.
package authhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PaulFidika/authmodule/core"
	"github.com/PaulFidika/authmodule/trace"
)

// OperateLogClient posts operate logs as JSON to a remote audit service.
type OperateLogClient struct {
	url  string
	http *http.Client
}

var _ core.OperateLogSink = (*OperateLogClient)(nil)

// NewOperateLogClient posts to url. A nil client gets a 10s timeout.
func NewOperateLogClient(url string, c *http.Client) *OperateLogClient {
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	return &OperateLogClient{url: url, http: c}
}

func (o *OperateLogClient) SaveOperateLogInfo(ctx context.Context, l core.OperateLog) error {
	body, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("authhttp: encode operate log: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("authhttp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id, ok := trace.TraceIDFromContext(ctx); ok {
		req.Header.Set(trace.Header, id)
	}
	resp, err := o.http.Do(req)
	if err != nil {
		return fmt.Errorf("authhttp: post operate log: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("authhttp: operate log rejected: %s", resp.Status)
	}
	return nil
}
