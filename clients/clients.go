// Package clients talks to the WhisperX model sidecar over HTTP. Every
// exported call maps onto one model operation: load, transcribe, align,
// diarize, release.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type HTTP struct {
	c    *http.Client
	base string
}

func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	return &HTTP{
		c:    &http.Client{Timeout: timeout},
		base: strings.TrimRight(baseURL, "/"),
	}
}

// APIError is returned for any non-2xx sidecar response.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Message)
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *HTTP) postJSON(ctx context.Context, op, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, op, out)
}

func (h *HTTP) delete(ctx context.Context, op, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.base+path, nil)
	if err != nil {
		return err
	}
	return h.do(req, op, nil)
}

func (h *HTTP) do(req *http.Request, op string, out any) error {
	resp, err := h.c.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(body))
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
			msg = eb.Error
		}
		return &APIError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", op, err)
	}
	return nil
}

// Health reports whether the sidecar answers on /health.
func (h *HTTP) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/health", nil)
	if err != nil {
		return err
	}
	return h.do(req, "health", nil)
}

type deviceResp struct {
	CUDAAvailable bool `json:"cuda_available"`
}

// AcceleratorAvailable asks the sidecar whether it can run on a GPU.
func (h *HTTP) AcceleratorAvailable(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/device", nil)
	if err != nil {
		return false, err
	}
	var out deviceResp
	if err := h.do(req, "device", &out); err != nil {
		return false, err
	}
	return out.CUDAAvailable, nil
}
