package types

import (
	"fmt"
	"net/url"
	"strings"
)

// AssetRef locates a piece of remote content. It is comparable and used
// directly as a cache key.
type AssetRef struct {
	Scheme    string `json:"scheme,omitempty"`
	Authority string `json:"authority,omitempty"`
	Path      string `json:"path"`
}

// ParseAssetRef parses "scheme://authority/path" locators. Values without a
// scheme are plain ids on the local homeserver and keep an empty authority.
func ParseAssetRef(raw string) (AssetRef, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return AssetRef{}, fmt.Errorf("asset reference cannot be empty")
	}
	if !strings.Contains(value, "://") {
		return AssetRef{Path: value}, nil
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return AssetRef{}, fmt.Errorf("invalid asset reference %q: %w", value, err)
	}
	if parsed.Host == "" {
		return AssetRef{}, fmt.Errorf("asset reference %q has no authority", value)
	}
	path := strings.TrimPrefix(parsed.Path, "/")
	if path == "" {
		return AssetRef{}, fmt.Errorf("asset reference %q has no path", value)
	}
	return AssetRef{Scheme: parsed.Scheme, Authority: parsed.Host, Path: path}, nil
}

// MustParseAssetRef is ParseAssetRef for literals.
func MustParseAssetRef(raw string) AssetRef {
	ref, err := ParseAssetRef(raw)
	if err != nil {
		panic(err)
	}
	return ref
}

func (r AssetRef) String() string {
	if r.Authority == "" {
		return r.Path
	}
	scheme := r.Scheme
	if scheme == "" {
		scheme = "hmc"
	}
	return scheme + "://" + r.Authority + "/" + r.Path
}

// IsZero reports whether the reference is unset.
func (r AssetRef) IsZero() bool {
	return r.Authority == "" && r.Path == ""
}
