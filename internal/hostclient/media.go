package hostclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/adamavenir/chatmirror/internal/types"
)

// maxAssetBytes bounds a single asset download.
const maxAssetBytes = 64 << 20

// AssetURL resolves a reference to a download URL. Plain http(s) references
// are used as-is; homeserver references go through the media endpoint of
// their authority, or of this client's homeserver when they have none.
func (c *Client) AssetURL(ref types.AssetRef) (string, error) {
	if ref.Path == "" {
		return "", fmt.Errorf("asset reference has no path")
	}
	switch ref.Scheme {
	case "http", "https":
		return ref.Scheme + "://" + ref.Authority + "/" + ref.Path, nil
	}

	base := c.baseURL
	if ref.Authority != "" {
		parsed, err := url.Parse(c.baseURL)
		if err != nil {
			return "", err
		}
		base = parsed.Scheme + "://" + ref.Authority
	}
	return base + "/v1/media/" + url.PathEscape(ref.Path), nil
}

// FetchAsset downloads the bytes behind ref.
func (c *Client) FetchAsset(ctx context.Context, ref types.AssetRef) ([]byte, error) {
	endpoint, err := c.AssetURL(ref)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(ref.Scheme, "http") {
		c.authorize(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp.StatusCode, data)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("asset %s exceeds %d bytes", ref, maxAssetBytes)
	}
	return data, nil
}
