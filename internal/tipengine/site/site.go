// Package site talks to the tipping website over form-encoded POSTs.
package site

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/streamchat/internal/tipengine"
)

// Engine implements tipengine.Engine against the tipping website.
type Engine struct {
	siteURL     *url.URL
	balancePath string
	sendPath    string
	client      *http.Client
}

// New creates an Engine. Paths are resolved against siteURL.
func New(siteURL, balancePath, sendPath string, timeout time.Duration) (*Engine, error) {
	base, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	return &Engine{
		siteURL:     base,
		balancePath: balancePath,
		sendPath:    sendPath,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

// FetchBalance asks the site for the viewer's spendable tokens.
func (e *Engine) FetchBalance(ctx context.Context, req tipengine.BalanceRequest) ([]byte, error) {
	body, status, err := e.post(ctx, e.balancePath, url.Values{
		"user_id":    {req.UserID},
		"sort_order": {req.SortOrder},
		"hash":       {req.Hash},
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("balance: unexpected status %d", status)
	}
	return bytes.ReplaceAll(body, []byte(tipengine.InvalidRequestMarker), nil), nil
}

// SendTip submits the debit.
func (e *Engine) SendTip(ctx context.Context, req tipengine.TipRequest) error {
	body, status, err := e.post(ctx, e.sendPath, url.Values{
		"token":          {strconv.Itoa(req.Tokens)},
		"viewer_id":      {req.ViewerID},
		"broadcast_id":   {req.BroadcastID},
		"broadcaster_id": {req.BroadcasterID},
		"sort_order":     {req.SortOrder},
		"hash":           {req.Hash},
	})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("send tip: unexpected status %d", status)
	}
	if bytes.Contains(body, []byte(tipengine.InvalidRequestMarker)) {
		return fmt.Errorf("send tip: %s", tipengine.InvalidRequestMarker)
	}
	return nil
}

func (e *Engine) post(ctx context.Context, path string, form url.Values) ([]byte, int, error) {
	target := e.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", path, err)
	}
	return body, resp.StatusCode, nil
}

// endpoint resolves path against the site and appends a cache buster.
func (e *Engine) endpoint(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		ref = &url.URL{Path: path}
	}
	u := e.siteURL.ResolveReference(ref)
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	u.RawQuery = "r=" + strconv.FormatFloat(rand.Float64(), 'f', -1, 64)
	return u.String()
}

// Ensure Engine implements tipengine.Engine
var _ tipengine.Engine = (*Engine)(nil)
