package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/servebeer/pinning/internal/model"
)

// Internal transport interface to enable testing without a live node.
type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ model.ContentBackend = (*Client)(nil)
var _ model.BackendInfo = (*Client)(nil)

// Client talks to the IPFS HTTP API of a local node. It holds no mutable
// state beyond its configuration.
type Client struct {
	http    doer
	baseURL string
}

// NewClient creates a backend client for the given API base URL, e.g.
// "http://localhost:5001/api/v0".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return NewClientWithDoer(baseURL, &http.Client{Timeout: timeout})
}

// NewClientWithDoer allows injecting the HTTP transport (used in tests).
func NewClientWithDoer(baseURL string, d doer) *Client {
	return &Client{
		http:    d,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type statResponse struct {
	CumulativeSize int64 `json:"CumulativeSize"`
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	// The API reports Size as a decimal string.
	Size string `json:"Size"`
}

type versionResponse struct {
	Version string `json:"Version"`
}

type apiError struct {
	Message string `json:"Message"`
}

// Stat resolves a content identifier to its cumulative size. The node
// answers an API error for identifiers unknown to the network; that maps
// to found=false, not a fault.
func (c *Client) Stat(ctx context.Context, cid string) (int64, bool, error) {
	resp, err := c.post(ctx, "object/stat", url.Values{"arg": {cid}}, nil, "")
	if err != nil {
		return 0, false, model.NewErrBackendUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		drainAPIError(resp.Body)
		return 0, false, nil
	}

	var stat statResponse
	if err := json.NewDecoder(resp.Body).Decode(&stat); err != nil {
		return 0, false, model.NewErrOperationFailed("failed to decode stat response", err)
	}
	if stat.CumulativeSize < 0 {
		stat.CumulativeSize = 0
	}

	return stat.CumulativeSize, true, nil
}

// Pin asks the node to durably retain already-reachable content.
func (c *Client) Pin(ctx context.Context, cid string) error {
	resp, err := c.post(ctx, "pin/add", url.Values{"arg": {cid}}, nil, "")
	if err != nil {
		return model.NewErrBackendUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.NewErrOperationFailed(
			fmt.Sprintf("pin rejected: %s", drainAPIError(resp.Body)), nil)
	}

	io.Copy(io.Discard, resp.Body)

	return nil
}

// Add streams bytes into the node. The node computes the content
// identifier and size; when it reports no usable size the byte count
// actually streamed is used instead.
func (c *Client) Add(ctx context.Context, r io.Reader, filename, mimeHint string) (string, int64, error) {
	counter := &countingReader{r: r}

	body, contentType := multipartStream(counter, filename, mimeHint)
	defer body.Close()

	resp, err := c.post(ctx, "add", nil, body, contentType)
	if err != nil {
		return "", 0, model.NewErrBackendUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", 0, model.NewErrOperationFailed(
			fmt.Sprintf("add rejected: %s", drainAPIError(resp.Body)), nil)
	}

	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return "", 0, model.NewErrOperationFailed("failed to decode add response", err)
	}
	if added.Hash == "" {
		return "", 0, model.NewErrOperationFailed("add response missing content identifier", nil)
	}

	size, err := strconv.ParseInt(added.Size, 10, 64)
	if err != nil || size <= 0 {
		size = counter.n
	}

	return added.Hash, size, nil
}

// Version reports the node's version, used by health checks.
func (c *Client) Version(ctx context.Context) (string, error) {
	resp, err := c.post(ctx, "version", nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to query node version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("version request failed: %s", drainAPIError(resp.Body))
	}

	var ver versionResponse
	if err := json.NewDecoder(resp.Body).Decode(&ver); err != nil {
		return "", fmt.Errorf("failed to decode version response: %w", err)
	}

	return ver.Version, nil
}

// The API accepts every operation as POST.
func (c *Client) post(ctx context.Context, endpoint string, params url.Values, body io.Reader, contentType string) (*http.Response, error) {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return c.http.Do(req)
}

// multipartStream wraps r into a streamed multipart body with a single
// "file" part, without buffering the payload.
func multipartStream(r io.Reader, filename, mimeHint string) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
		if mimeHint != "" {
			header.Set("Content-Type", mimeHint)
		}

		part, err := mw.CreatePart(header)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	return pr, mw.FormDataContentType()
}

func drainAPIError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "no error detail"
	}

	var apiErr apiError
	if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
		return apiErr.Message
	}

	return strings.TrimSpace(string(data))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
