package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/andrew/topic-rag/pkg/errs"
)

// Invoker posts a JSON payload to another function of the pipeline and
// decodes its JSON reply. It plays the role of a request-response function
// invocation between separately deployed stages.
type Invoker struct {
	httpClient *http.Client
}

func NewInvoker(timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Invoker{httpClient: &http.Client{Timeout: timeout}}
}

// Call posts payload to url and decodes the response body into out. Any
// transport failure or non-2xx status reports errs.ErrUpstreamInvocation.
func (i *Invoker) Call(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload for %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: calling %s: %v", errs.ErrUpstreamInvocation, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", errs.ErrUpstreamInvocation, url, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding reply from %s: %v", errs.ErrUpstreamInvocation, url, err)
	}
	return nil
}
