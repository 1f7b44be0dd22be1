package vault

import (
	"context"

	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/models"
	"github.com/PolarWolf314/keyclave/internal/records"
	"github.com/PolarWolf314/keyclave/internal/session"
)

// EnableTOTP seals secret into the profile after checking that code is
// currently valid for it. Later unlocks require a code.
func (v *Vault) EnableTOTP(ctx context.Context, secret, code string) error {
	if !v.totp.Validate(code, secret) {
		return kerrors.ErrInvalidTOTP
	}
	return v.updateProfile(ctx, func(p *models.Profile, key []byte) error {
		env, err := records.SealEnvelope(v.store.Engine(), key, records.PurposeTOTP, []byte(secret))
		if err != nil {
			return err
		}
		p.TOTP = &env
		p.SealCount++
		return nil
	}, nil)
}

// DisableTOTP removes the second factor. code must be valid for the stored
// secret.
func (v *Vault) DisableTOTP(ctx context.Context, code string) error {
	return v.updateProfile(ctx, func(p *models.Profile, key []byte) error {
		if p.TOTP == nil {
			return nil
		}
		secret, err := records.OpenEnvelope(v.store.Engine(), key, records.PurposeTOTP, *p.TOTP)
		if err != nil {
			return err
		}
		defer session.Wipe(secret)

		if !v.totp.Validate(code, string(secret)) {
			return kerrors.ErrInvalidTOTP
		}
		p.TOTP = nil
		return nil
	}, nil)
}

// TOTPEnabled reports whether unlock requires a one-time code.
func (v *Vault) TOTPEnabled() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.profile.TOTP != nil
}
