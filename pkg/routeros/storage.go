package routeros

import (
	"context"
	"encoding/json"
	"net/http"
)

// ListDisks returns the router's storage volumes.
func (c *Client) ListDisks(ctx context.Context) ([]Disk, error) {
	var out []Disk
	if err := c.getList(ctx, "/disk", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddDisk creates a storage volume. attrs uses the raw RouterOS keys, e.g.
// {"type": "tmpfs", "tmpfs-max-size": "1"}.
func (c *Client) AddDisk(ctx context.Context, attrs map[string]string) error {
	body, err := json.Marshal(attrs)
	if err != nil {
		return err
	}
	res, err := c.Do(ctx, http.MethodPost, "/disk/add", body, 0)
	if err != nil {
		return err
	}
	if MutationFailed(res) {
		return &APIError{Code: "request_failed"}
	}
	return nil
}

// RemoveDisk deletes a storage volume by opaque id.
func (c *Client) RemoveDisk(ctx context.Context, id string) error {
	body, _ := json.Marshal(map[string]string{"numbers": id})
	res, err := c.Do(ctx, http.MethodPost, "/disk/remove", body, 0)
	if err != nil {
		return err
	}
	if MutationFailed(res) {
		return &APIError{Code: "request_failed"}
	}
	return nil
}

// ListFiles returns the router's file listing, contents included for small
// files.
func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	var out []File
	if err := c.getList(ctx, "/file", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveFile deletes a file by opaque id.
func (c *Client) RemoveFile(ctx context.Context, id string) error {
	body, _ := json.Marshal(map[string]string{"numbers": id})
	res, err := c.Do(ctx, http.MethodPost, "/file/remove", body, 0)
	if err != nil {
		return err
	}
	if MutationFailed(res) {
		return &APIError{Code: "request_failed"}
	}
	return nil
}
