// Package tmpdisk manages the temporary tmpfs volume the router needs as a
// writable target for scan result files. The volume only exists around a
// scan to keep the footprint on the router minimal.
package tmpdisk

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/matztam/mikrotik-wifi-manager/pkg/routeros"
)

// MountPoint identifies the managed volume on the router, matched against
// both the mount-point and slot fields.
const MountPoint = "tmp1"

// DiskAPI is the slice of the router client the manager needs.
type DiskAPI interface {
	ListDisks(ctx context.Context) ([]routeros.Disk, error)
	AddDisk(ctx context.Context, attrs map[string]string) error
	RemoveDisk(ctx context.Context, id string) error
}

type Manager struct {
	api    DiskAPI
	logger zerolog.Logger
}

func NewManager(api DiskAPI, logger zerolog.Logger) *Manager {
	return &Manager{api: api, logger: logger.With().Str("component", "tmpdisk").Logger()}
}

// Ensure makes sure the volume exists. Idempotent: an existing volume is
// never duplicated. Only a failed listing is an error; a failed create is
// logged and the caller proceeds optimistically, the scan probe will notice
// a genuinely missing volume soon enough.
func (m *Manager) Ensure(ctx context.Context) error {
	disks, err := m.api.ListDisks(ctx)
	if err != nil {
		return err
	}
	for _, d := range disks {
		if d.MountPoint == MountPoint || d.Slot == MountPoint {
			return nil
		}
	}

	m.logger.Debug().Msg("tmpfs missing, creating")
	if err := m.api.AddDisk(ctx, map[string]string{
		"type":           "tmpfs",
		"tmpfs-max-size": "1",
	}); err != nil {
		m.logger.Warn().Err(err).Msg("tmpfs create failed")
	}
	return nil
}

// Remove deletes the volume if present. Absence is not an error, so Remove
// is safe to call on every cleanup path regardless of what Ensure did.
func (m *Manager) Remove(ctx context.Context) {
	disks, err := m.api.ListDisks(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("cannot list disks for cleanup")
		return
	}
	for _, d := range disks {
		if d.MountPoint == MountPoint || d.Slot == MountPoint {
			if d.ID == "" {
				return
			}
			if err := m.api.RemoveDisk(ctx, d.ID); err != nil {
				m.logger.Warn().Err(err).Str("id", d.ID).Msg("tmpfs remove failed")
			}
			return
		}
	}
}
