// Package client talks to a running paddy-api server.
package client

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Brownie44l1/paddy-api/internal/diagnosis"
)

type Client struct {
	http *resty.Client
}

type Health struct {
	Status  string   `json:"status"`
	Mode    string   `json:"mode"`
	Classes []string `json:"classes"`
}

type errorBody struct {
	Error string `json:"error"`
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second),
	}
}

// Predict uploads one image as the "file" form field.
func (c *Client) Predict(ctx context.Context, filename string, image io.Reader) (*diagnosis.Result, error) {
	var result diagnosis.Result
	var apiErr errorBody

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(filename), image).
		SetResult(&result).
		SetError(&apiErr).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("predict request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error == "" {
			apiErr.Error = resp.Status()
		}
		return nil, &StatusError{Code: resp.StatusCode(), Message: apiErr.Error}
	}

	return &result, nil
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	resp, err := c.http.R().SetContext(ctx).SetResult(&h).Get("/health")
	if err != nil {
		return nil, fmt.Errorf("health request: %w", err)
	}
	if resp.IsError() {
		return nil, &StatusError{Code: resp.StatusCode(), Message: resp.Status()}
	}
	return &h, nil
}

type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}
