package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

//go:embed locales/*/translation.json
var embedded embed.FS

// Loader fetches the translation resource for one language as nested
// JSON.
type Loader interface {
	Load(ctx context.Context, lng string) ([]byte, error)
}

var ErrNoResource = errors.New("no translation resource")

// EmbeddedLoader serves the resources compiled into the binary.
type EmbeddedLoader struct{}

func (EmbeddedLoader) Load(_ context.Context, lng string) ([]byte, error) {
	b, err := embedded.ReadFile("locales/" + lng + "/translation.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResource, lng)
	}
	return b, nil
}

// HTTPLoader fetches {base}/locales/{lng}/translation.json.
type HTTPLoader struct {
	base string
	cli  *http.Client
}

func NewHTTPLoader(baseURL string, timeout time.Duration) *HTTPLoader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLoader{base: strings.TrimRight(baseURL, "/"), cli: &http.Client{Timeout: timeout}}
}

func (h *HTTPLoader) Load(ctx context.Context, lng string) ([]byte, error) {
	u := h.base + "/locales/" + url.PathEscape(lng) + "/translation.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := h.cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNoResource, lng)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", u, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

// flatten turns nested objects into "a.b.c" keys. Non-string leaves are
// kept in their JSON form.
func flatten(raw []byte) (map[string]string, error) {
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("decode resource: %w", err)
	}
	out := make(map[string]string)
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch x := v.(type) {
		case map[string]any:
			for k, child := range x {
				key := k
				if prefix != "" {
					key = prefix + keySeparator + k
				}
				walk(key, child)
			}
		case string:
			out[prefix] = x
		case nil:
		default:
			b, _ := json.Marshal(x)
			out[prefix] = string(b)
		}
	}
	walk("", tree)
	return out, nil
}
