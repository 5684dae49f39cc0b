package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/wippyai/wasm-build/wit"
)

// Registry is the external source of versioned WIT packages. Implementations
// must honor the context deadline: a registry that cannot be reached fails,
// it never hangs.
type Registry interface {
	// Versions lists the published versions of a package, any order.
	Versions(ctx context.Context, id wit.Ident) ([]*semver.Version, error)

	// Fetch retrieves the WIT source of one exact package version.
	Fetch(ctx context.Context, id wit.Ident, version *semver.Version) ([]byte, error)
}

// DefaultRegistryTimeout bounds a single registry round trip.
const DefaultRegistryTimeout = 30 * time.Second

// HTTPRegistry resolves packages against an HTTP index:
//
//	GET <base>/<namespace>/<name>            JSON version index
//	GET <base>/<namespace>/<name>/<version>  raw WIT document
type HTTPRegistry struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRegistry creates a registry client with the default timeout.
func NewHTTPRegistry(baseURL string) *HTTPRegistry {
	return &HTTPRegistry{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: DefaultRegistryTimeout},
	}
}

type versionIndex struct {
	Versions []struct {
		Version string `json:"version"`
	} `json:"versions"`
}

func (r *HTTPRegistry) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Versions implements Registry.
func (r *HTTPRegistry) Versions(ctx context.Context, id wit.Ident) ([]*semver.Version, error) {
	body, err := r.get(ctx, "/"+url.PathEscape(id.Namespace)+"/"+url.PathEscape(id.Name))
	if err != nil {
		return nil, err
	}

	var index versionIndex
	if err := json.Unmarshal(body, &index); err != nil {
		return nil, fmt.Errorf("registry index: %w", err)
	}

	versions := make([]*semver.Version, 0, len(index.Versions))
	for _, v := range index.Versions {
		parsed, err := semver.NewVersion(v.Version)
		if err != nil {
			return nil, fmt.Errorf("registry index: invalid version %q: %w", v.Version, err)
		}
		versions = append(versions, parsed)
	}
	return versions, nil
}

// Fetch implements Registry.
func (r *HTTPRegistry) Fetch(ctx context.Context, id wit.Ident, version *semver.Version) ([]byte, error) {
	return r.get(ctx, "/"+url.PathEscape(id.Namespace)+"/"+url.PathEscape(id.Name)+"/"+url.PathEscape(version.String()))
}

// rangeSatisfied reports whether a pinned version still satisfies the
// declared range.
func rangeSatisfied(rangeExpr string, v *semver.Version) bool {
	constraint, err := semver.NewConstraint(rangeExpr)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}

// selectVersion picks the highest version satisfying the declared range.
func selectVersion(versions []*semver.Version, rangeExpr string) (*semver.Version, error) {
	constraint, err := semver.NewConstraint(rangeExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid version range %q: %w", rangeExpr, err)
	}

	sorted := make([]*semver.Version, len(versions))
	copy(sorted, versions)
	sort.Sort(sort.Reverse(semver.Collection(sorted)))

	for _, v := range sorted {
		if constraint.Check(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no published version satisfies %q", rangeExpr)
}
