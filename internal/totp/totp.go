// Package totp verifies time-based one-time codes as a second unlock factor.
package totp

import (
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Issuer is shown by authenticator apps next to the account name.
const Issuer = "KeyClave"

// Verifier checks a one-time code against a base32 secret.
type Verifier interface {
	Validate(code, secret string) bool
}

// Enrollment is a freshly generated secret ready to be added to an
// authenticator app.
type Enrollment struct {
	Secret string
	URL    string
}

// Authenticator implements Verifier with RFC 6238 codes: SHA-1, six digits,
// 30 second period, one step of clock skew either way.
type Authenticator struct {
	now func() time.Time
}

// New returns an Authenticator using the system clock.
func New() *Authenticator {
	return &Authenticator{now: time.Now}
}

func (a *Authenticator) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Validate implements Verifier.
func (a *Authenticator) Validate(code, secret string) bool {
	code = strings.TrimSpace(code)
	if code == "" || secret == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, a.now().UTC(), a.opts())
	return err == nil && ok
}

// Generate creates a new secret for account.
func (a *Authenticator) Generate(account string) (Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: account,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// Code returns the current code for secret.
func (a *Authenticator) Code(secret string) (string, error) {
	return totp.GenerateCodeCustom(secret, a.now().UTC(), a.opts())
}

var _ Verifier = (*Authenticator)(nil)
