package routeros

import (
	"context"
	"encoding/json"
	"net/http"
)

// ListSecurityProfiles returns all security profiles on the router.
func (c *Client) ListSecurityProfiles(ctx context.Context) ([]SecurityProfile, error) {
	var out []SecurityProfile
	if err := c.getList(ctx, "/interface/wireless/security-profiles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddSecurityProfile creates a new profile. The payload must carry a name.
func (c *Client) AddSecurityProfile(ctx context.Context, payload SecurityProfilePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	res, err := c.Do(ctx, http.MethodPost, "/interface/wireless/security-profiles/add", body, 0)
	if err != nil {
		return err
	}
	if MutationFailed(res) {
		return &APIError{Code: "request_failed"}
	}
	return nil
}

// PatchSecurityProfile updates the named profile in place. The name itself
// is immutable for an in-place update.
func (c *Client) PatchSecurityProfile(ctx context.Context, name string, payload SecurityProfilePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	res, err := c.Do(ctx, http.MethodPatch, "/interface/wireless/security-profiles/"+name, body, 0)
	if err != nil {
		return err
	}
	if MutationFailed(res) {
		return &APIError{Code: "request_failed"}
	}
	return nil
}

// DeleteSecurityProfile removes the named profile.
func (c *Client) DeleteSecurityProfile(ctx context.Context, name string) error {
	res, err := c.Do(ctx, http.MethodDelete, "/interface/wireless/security-profiles/"+name, nil, 0)
	if err != nil {
		return err
	}
	if MutationFailed(res) {
		return &APIError{Code: "request_failed"}
	}
	return nil
}
