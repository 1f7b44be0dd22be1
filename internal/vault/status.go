package vault

import (
	"context"
	"time"

	"github.com/PolarWolf314/keyclave/internal/aead"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/session"
)

// Status summarizes the vault without needing the key.
type Status struct {
	State                session.State
	Suite                aead.Suite
	KDF                  kdf.Params
	Records              int
	SealCount            uint64
	CollisionProbability float64
	RotationAdvised      bool
	AutoLock             time.Duration
	TOTPEnabled          bool
	CreatedAt            time.Time
	RotatedAt            time.Time
}

// Status reads the stored profile and record count.
func (v *Vault) Status(ctx context.Context) (Status, error) {
	p, err := v.backend.LoadProfile(ctx)
	if err != nil {
		return Status{}, err
	}
	recs, err := v.backend.ListRecords(ctx)
	if err != nil {
		return Status{}, err
	}

	return Status{
		State:                v.session.State(),
		Suite:                p.Suite,
		KDF:                  p.KDF,
		Records:              len(recs),
		SealCount:            p.SealCount,
		CollisionProbability: aead.CollisionProbability(p.SealCount),
		RotationAdvised:      aead.RotationAdvised(p.SealCount),
		AutoLock:             p.AutoLock(),
		TOTPEnabled:          p.TOTP != nil,
		CreatedAt:            p.CreatedAt,
		RotatedAt:            p.RotatedAt,
	}, nil
}
