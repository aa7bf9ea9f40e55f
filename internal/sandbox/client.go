// Package sandbox implements the typed HTTP client for the external
// code-execution sandbox service, plus the time-expiring file cache
// that sits in front of it.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ptoj-judger/internal/model"
	"ptoj-judger/pkg/errors"
	"ptoj-judger/pkg/logger"
)

// SandboxError is returned for every non-2xx sandbox response.
type SandboxError struct {
	Status int
	Body   string
}

func (e *SandboxError) Error() string {
	return fmt.Sprintf("sandbox: status %d: %s", e.Status, e.Body)
}

// Client is a thin typed wrapper over the sandbox's four HTTP
// endpoints. It owns a reusable connection pool and a File Cache.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *FileCache
	log     *logger.Logger
}

// Config configures a Client and its owned File Cache.
type Config struct {
	BaseURL          string
	Timeout          time.Duration
	CacheExpire      time.Duration
	CacheRecycleGap  time.Duration
	Logger           *logger.Logger
}

// NewClient builds a Client with its own connection pool and cache.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	c := &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cache: NewFileCache(cfg.CacheExpire, cfg.CacheRecycleGap, cfg.BaseURL, log),
		log:   log,
	}
	c.cache.SetDeleter(c.DeleteFile)
	return c
}

// Cache returns the client's owned File Cache.
func (c *Client) Cache() *FileCache { return c.cache }

// Run submits a batch of commands, optionally cross-wired by
// pipeMapping for interactive judging, and returns one SandboxResult
// per command in order.
func (c *Client) Run(ctx context.Context, req model.RunRequest) ([]model.SandboxResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.TransportError, "sandbox: marshal run request: %v", err)
	}
	c.log.Debug(ctx, "sandbox run", zap.Int("cmds", len(req.Cmd)))

	respBody, err := c.do(ctx, http.MethodPost, "/run", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var results []model.SandboxResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, errors.Wrapf(err, errors.TransportError, "sandbox: decode run response: %v", err)
	}
	return results, nil
}

// UploadFile stores a blob in the sandbox and returns its opaque id.
func (c *Client) UploadFile(ctx context.Context, name string, content []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", errors.Wrapf(err, errors.TransportError, "sandbox: build multipart: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", errors.Wrapf(err, errors.TransportError, "sandbox: write multipart body: %v", err)
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrapf(err, errors.TransportError, "sandbox: close multipart: %v", err)
	}

	c.log.Debug(ctx, "sandbox upload file", zap.String("name", name), zap.Int("bytes", len(content)))
	respBody, err := c.do(ctx, http.MethodPost, "/file", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	var fileID string
	if err := json.Unmarshal(respBody, &fileID); err != nil {
		return "", errors.Wrapf(err, errors.TransportError, "sandbox: decode upload response: %v", err)
	}
	return fileID, nil
}

// DownloadFile retrieves a previously uploaded or produced blob.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	c.log.Debug(ctx, "sandbox download file", zap.String("fileId", fileID))
	return c.do(ctx, http.MethodGet, "/file/"+fileID, "", nil)
}

// DeleteFile removes a sandbox-resident blob by id.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	c.log.Debug(ctx, "sandbox delete file", zap.String("fileId", fileID))
	_, err := c.do(ctx, http.MethodDelete, "/file/"+fileID, "", nil)
	return err
}

// Version queries the sandbox's build version.
func (c *Client) Version(ctx context.Context) (model.VersionInfo, error) {
	var v model.VersionInfo
	respBody, err := c.do(ctx, http.MethodGet, "/version", "", nil)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(respBody, &v); err != nil {
		return v, errors.Wrapf(err, errors.TransportError, "sandbox: decode version response: %v", err)
	}
	return v, nil
}

// Close releases the HTTP connection pool and the owned File Cache.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
	c.cache.Close()
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.TransportError, "sandbox: build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, errors.TransportError, "sandbox: request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, errors.TransportError, "sandbox: read response body: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SandboxError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}
