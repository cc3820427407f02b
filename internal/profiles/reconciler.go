// Package profiles converges the router's wireless security profiles to the
// networks the user asked for. Every profile this service creates carries a
// provenance tag in its comment; profiles without the tag belong to the
// user and are never mutated or deleted here.
package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/matztam/mikrotik-wifi-manager/pkg/routeros"
)

// TagPrefix marks profiles owned by this service.
const TagPrefix = "wifi-manager:ssid="

// maxNameSSIDLen bounds the SSID part of a derived profile name so the
// resulting name stays inside the router's field limit.
const maxNameSSIDLen = 20

// Tag returns the provenance marker for an SSID.
func Tag(ssid string) string { return TagPrefix + ssid }

// WorkingName derives the deterministic profile name for an SSID.
func WorkingName(ssid string) string {
	if len(ssid) > maxNameSSIDLen {
		ssid = ssid[:maxNameSSIDLen]
	}
	return "client-" + ssid
}

// ProfileAPI is the slice of the router client the reconciler drives.
type ProfileAPI interface {
	ListSecurityProfiles(ctx context.Context) ([]routeros.SecurityProfile, error)
	AddSecurityProfile(ctx context.Context, payload routeros.SecurityProfilePayload) error
	PatchSecurityProfile(ctx context.Context, name string, payload routeros.SecurityProfilePayload) error
	DeleteSecurityProfile(ctx context.Context, name string) error
}

// Intent is the desired state for one network.
type Intent struct {
	SSID             string
	Password         string
	RequiresPassword bool
	// ProfileName overrides the derived working name when set.
	ProfileName string
}

// ErrPasswordRequired rejects creating a secured profile without key
// material; such a profile could never authenticate.
var ErrPasswordRequired = errors.New("password required for a secured profile")

type Reconciler struct {
	api    ProfileAPI
	logger zerolog.Logger
}

func NewReconciler(api ProfileAPI, logger zerolog.Logger) *Reconciler {
	return &Reconciler{api: api, logger: logger.With().Str("component", "profiles").Logger()}
}

// Reconcile drives the router's profile set to the intent and returns the
// name of the profile the interface should reference. At most one DELETE
// and one PATCH-or-POST are issued; a mode change always recreates the
// profile because an in-place mode flip can leave stale key material.
func (r *Reconciler) Reconcile(ctx context.Context, in Intent) (string, error) {
	name := in.ProfileName
	if name == "" {
		name = WorkingName(in.SSID)
	}
	tag := Tag(in.SSID)

	existing, err := r.api.ListSecurityProfiles(ctx)
	if err != nil {
		// Malformed or missing listings degrade to "no profiles": the
		// reconciler still creates, trading a possible duplicate for
		// availability under a misbehaving router.
		r.logger.Error().Err(err).Msg("profile listing unusable, assuming empty")
		existing = nil
	}

	var match *routeros.SecurityProfile
	for i := range existing {
		if existing[i].Name == name || existing[i].Comment == tag {
			match = &existing[i]
			break
		}
	}

	desiredMode := "none"
	if in.RequiresPassword {
		desiredMode = "dynamic-keys"
	}

	if match != nil && match.Mode != desiredMode {
		if err := r.api.DeleteSecurityProfile(ctx, match.Name); err != nil {
			r.logger.Error().Err(err).Str("profile", match.Name).Msg("delete before recreate failed")
		}
		match = nil
	}

	payload := routeros.SecurityProfilePayload{Comment: tag, Mode: desiredMode}
	if in.RequiresPassword {
		payload.AuthenticationTypes = "wpa-psk,wpa2-psk"
		payload.WPAPreSharedKey = in.Password
		payload.WPA2PreSharedKey = in.Password
		if in.Password == "" {
			r.logger.Warn().Str("ssid", in.SSID).Msg("requiresPassword set but password is empty")
		}
	}

	if match != nil {
		if err := r.api.PatchSecurityProfile(ctx, match.Name, payload); err != nil {
			r.logger.Error().Err(err).Str("profile", match.Name).Msg("profile update failed")
		}
		return match.Name, nil
	}

	if in.RequiresPassword && in.Password == "" {
		return "", ErrPasswordRequired
	}
	payload.Name = name
	if err := r.api.AddSecurityProfile(ctx, payload); err != nil {
		r.logger.Error().Err(err).Str("profile", name).Msg("profile create failed")
	}
	return name, nil
}

// FindManaged locates a provenance-tagged profile by name and/or SSID.
// Untagged profiles are invisible here, which is what protects
// user-created profiles from the delete operation.
func (r *Reconciler) FindManaged(ctx context.Context, profileName, ssid string) (routeros.SecurityProfile, bool, error) {
	existing, err := r.api.ListSecurityProfiles(ctx)
	if err != nil {
		return routeros.SecurityProfile{}, false, err
	}
	for _, p := range existing {
		if !strings.HasPrefix(p.Comment, TagPrefix) {
			continue
		}
		if profileName != "" && p.Name != profileName {
			continue
		}
		if ssid != "" && p.Comment != Tag(ssid) {
			continue
		}
		return p, true, nil
	}
	return routeros.SecurityProfile{}, false, nil
}

// DeleteManaged removes a managed profile previously located via
// FindManaged.
func (r *Reconciler) DeleteManaged(ctx context.Context, name string) error {
	return r.api.DeleteSecurityProfile(ctx, name)
}

// Known is the annotation payload attached to scan results so the frontend
// can flag networks that already have a managed profile.
type Known struct {
	SSID                string `json:"ssid"`
	Name                string `json:"name"`
	Mode                string `json:"mode"`
	AuthenticationTypes string `json:"authentication-types"`
}

// ManagedView filters a profile listing down to the provenance-tagged
// entries and strips the tag back to the plain SSID.
func ManagedView(list []routeros.SecurityProfile) []Known {
	out := []Known{}
	for _, p := range list {
		if !strings.HasPrefix(p.Comment, TagPrefix) {
			continue
		}
		out = append(out, Known{
			SSID:                strings.TrimPrefix(p.Comment, TagPrefix),
			Name:                p.Name,
			Mode:                p.Mode,
			AuthenticationTypes: p.AuthenticationTypes,
		})
	}
	return out
}
