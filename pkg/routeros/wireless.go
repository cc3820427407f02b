package routeros

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// ListWirelessInterfaces returns all wireless interfaces on the router.
func (c *Client) ListWirelessInterfaces(ctx context.Context) ([]WirelessInterface, error) {
	var out []WirelessInterface
	if err := c.getList(ctx, "/interface/wireless", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindWirelessInterface resolves an interface by its configured name.
// Returns found=false when no interface matches or the entry has no id.
func (c *Client) FindWirelessInterface(ctx context.Context, name string) (WirelessInterface, bool, error) {
	list, err := c.ListWirelessInterfaces(ctx)
	if err != nil {
		return WirelessInterface{}, false, err
	}
	for _, iface := range list {
		if iface.Name == name {
			if iface.ID == "" {
				c.logger.Error().Str("interface", name).Msg("interface found but missing .id")
				return WirelessInterface{}, false, nil
			}
			return iface, true, nil
		}
	}
	return WirelessInterface{}, false, nil
}

// PatchWirelessInterface updates a single interface by opaque id.
func (c *Client) PatchWirelessInterface(ctx context.Context, id string, patch WirelessInterfacePatch) error {
	body, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	res, err := c.Do(ctx, http.MethodPatch, "/interface/wireless/"+id, body, 0)
	if err != nil {
		return err
	}
	if MutationFailed(res) {
		return &APIError{Code: "request_failed"}
	}
	return nil
}

// RegistrationTable returns the raw registration table payload. The caller
// passes it through unparsed; it is status-only data.
func (c *Client) RegistrationTable(ctx context.Context) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, "/interface/wireless/registration-table", nil, 0)
}

// TriggerScan starts a wireless scan that writes its result to saveFile on
// the router. The call uses the fire-and-forget timeout: the router scans
// for durationSec seconds and would only answer afterwards, which the
// caller must not wait for. The response, if any, is discarded.
func (c *Client) TriggerScan(ctx context.Context, ifaceName string, durationSec int, saveFile string) {
	body, _ := json.Marshal(map[string]string{
		".id":       ifaceName,
		"duration":  strconv.Itoa(durationSec),
		"save-file": saveFile,
	})
	_, _ = c.Do(ctx, http.MethodPost, "/interface/wireless/scan", body, FireAndForgetTimeout)
}
