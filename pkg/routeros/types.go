package routeros

// RouterOS resources use kebab-case keys and an opaque ".id". Fields are
// kept as strings where the API itself serves strings ("true"/"false",
// numbers in quotes).

// WirelessInterface is one entry of /interface/wireless.
type WirelessInterface struct {
	ID              string `json:".id"`
	Name            string `json:"name"`
	Band            string `json:"band"`
	Mode            string `json:"mode"`
	SSID            string `json:"ssid"`
	SecurityProfile string `json:"security-profile"`
	Disabled        string `json:"disabled"`
	Running         string `json:"running"`
}

// WirelessInterfacePatch carries the writable subset used by connect,
// disconnect and band-switch operations. Empty fields are omitted.
type WirelessInterfacePatch struct {
	Mode            string `json:"mode,omitempty"`
	SSID            string `json:"ssid,omitempty"`
	Band            string `json:"band,omitempty"`
	SecurityProfile string `json:"security-profile,omitempty"`
	Disabled        string `json:"disabled,omitempty"`
}

// SecurityProfile is one entry of /interface/wireless/security-profiles.
type SecurityProfile struct {
	ID                  string `json:".id"`
	Name                string `json:"name"`
	Mode                string `json:"mode"`
	Comment             string `json:"comment"`
	AuthenticationTypes string `json:"authentication-types"`
}

// SecurityProfilePayload is the add/update body for a security profile.
// Key fields are always present so a mode change to "none" clears stale
// key material on the router.
type SecurityProfilePayload struct {
	Name                string `json:"name,omitempty"`
	Comment             string `json:"comment"`
	Mode                string `json:"mode"`
	AuthenticationTypes string `json:"authentication-types"`
	WPAPreSharedKey     string `json:"wpa-pre-shared-key"`
	WPA2PreSharedKey    string `json:"wpa2-pre-shared-key"`
}

// Disk is one entry of /disk.
type Disk struct {
	ID         string `json:".id"`
	Slot       string `json:"slot"`
	MountPoint string `json:"mount-point"`
	Type       string `json:"type"`
}

// File is one entry of /file. Contents is populated for small files only,
// which covers the scan CSV.
type File struct {
	ID       string `json:".id"`
	Name     string `json:"name"`
	Contents string `json:"contents"`
}

// RegistrationEntry is one row of the read-only wireless registration table.
type RegistrationEntry struct {
	ID             string `json:".id"`
	Interface      string `json:"interface"`
	MACAddress     string `json:"mac-address"`
	SignalStrength string `json:"signal-strength"`
	Uptime         string `json:"uptime"`
}
