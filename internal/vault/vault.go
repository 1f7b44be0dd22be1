package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PolarWolf314/keyclave/internal/aead"
	kerrors "github.com/PolarWolf314/keyclave/internal/errors"
	"github.com/PolarWolf314/keyclave/internal/kdf"
	"github.com/PolarWolf314/keyclave/internal/models"
	"github.com/PolarWolf314/keyclave/internal/records"
	"github.com/PolarWolf314/keyclave/internal/rotation"
	"github.com/PolarWolf314/keyclave/internal/session"
	"github.com/PolarWolf314/keyclave/internal/storage"
	"github.com/PolarWolf314/keyclave/internal/totp"
)

// DefaultAutoLock is the idle timeout for new profiles.
const DefaultAutoLock = 5 * time.Minute

// Options configures a Vault. Zero values select defaults.
type Options struct {
	// Params are the KDF costs for a new profile.
	Params kdf.Params
	// Suite is the AEAD suite for a new profile.
	Suite aead.Suite
	// AutoLock is the idle timeout for a new profile. Negative disables it.
	AutoLock time.Duration
	// Guard limits KDF memory. Nil uses the runtime memory limit.
	Guard kdf.MemoryGuard
	// TOTP verifies one-time codes. Nil uses totp.New().
	TOTP totp.Verifier
	// Now replaces time.Now.
	Now func() time.Time
	// OnAutoLock runs after the vault locks itself for being idle.
	OnAutoLock func()
}

func (o Options) withDefaults() Options {
	if o.Params == (kdf.Params{}) {
		o.Params = kdf.DefaultParams()
	}
	if o.Suite == "" {
		o.Suite = aead.DefaultSuite
	}
	if o.AutoLock == 0 {
		o.AutoLock = DefaultAutoLock
	}
	if o.AutoLock < 0 {
		o.AutoLock = 0
	}
	if o.TOTP == nil {
		o.TOTP = totp.New()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Vault is an open vault. It starts Locked unless returned by Create.
type Vault struct {
	backend storage.Backend
	kdf     *kdf.Engine
	session *session.Session
	store   *records.Store
	rotator *rotation.Coordinator
	totp    totp.Verifier
	now     func() time.Time

	// exclusive admits one unlock, rotation or profile change at a time.
	exclusive sync.Mutex

	mu      sync.RWMutex
	profile models.Profile
	stop    context.CancelFunc
}

func newVault(backend storage.Backend, p models.Profile, opts Options) (*Vault, error) {
	engine, err := aead.New(p.Suite)
	if err != nil {
		return nil, err
	}
	kdfEngine := kdf.New(opts.Guard)
	sessOpts := []session.Option{session.WithClock(opts.Now)}
	if opts.OnAutoLock != nil {
		sessOpts = append(sessOpts, session.WithLockHook(opts.OnAutoLock))
	}
	sess := session.New(p.AutoLock(), sessOpts...)
	store := records.New(sess, engine, backend)

	return &Vault{
		backend: backend,
		kdf:     kdfEngine,
		session: sess,
		store:   store,
		rotator: rotation.New(kdfEngine, store, sess, backend),
		totp:    opts.TOTP,
		now:     opts.Now,
		profile: p,
	}, nil
}

// Create initializes the vault profile protected by passphrase and returns
// the vault Unlocked. The KDF may fall back to a lower memory cost; the
// effective parameters are stored in the profile.
//
// Returns ErrProfileExists if the backend already holds a profile.
func Create(ctx context.Context, backend storage.Backend, passphrase []byte, opts Options) (*Vault, error) {
	opts = opts.withDefaults()

	if _, err := backend.LoadProfile(ctx); err == nil {
		return nil, kerrors.ErrProfileExists
	} else if !errors.Is(err, kerrors.ErrProfileNotFound) {
		return nil, err
	}

	engine, err := aead.New(opts.Suite)
	if err != nil {
		return nil, err
	}
	salt, err := kdf.NewSalt()
	if err != nil {
		return nil, err
	}
	key, effective, err := kdf.New(opts.Guard).DeriveWithFallback(passphrase, salt, opts.Params)
	if err != nil {
		return nil, err
	}

	verification, err := records.NewVerification(engine, key)
	if err != nil {
		session.Wipe(key)
		return nil, err
	}
	p := models.Profile{
		Salt:            salt,
		KDF:             effective,
		Suite:           opts.Suite,
		Verification:    verification,
		AutoLockSeconds: int(opts.AutoLock / time.Second),
		SealCount:       1,
		CreatedAt:       opts.Now().UTC(),
	}
	if err := backend.CreateProfile(ctx, p); err != nil {
		session.Wipe(key)
		return nil, err
	}

	v, err := newVault(backend, p, opts)
	if err != nil {
		session.Wipe(key)
		return nil, err
	}
	v.session.Unlock(key)
	return v, nil
}

// Open loads the stored profile and returns the vault Locked.
func Open(ctx context.Context, backend storage.Backend, opts Options) (*Vault, error) {
	opts = opts.withDefaults()

	p, err := backend.LoadProfile(ctx)
	if err != nil {
		return nil, err
	}
	return newVault(backend, p, opts)
}

// Unlock derives the key from passphrase and verifies it against the
// profile. code is required when TOTP is enabled.
//
// A wrong passphrase or a corrupted profile yields ErrInvalidPassphrase and
// leaves the vault state unchanged. ErrKdfUnavailable locks the vault.
func (v *Vault) Unlock(ctx context.Context, passphrase []byte, code string) error {
	if !v.exclusive.TryLock() {
		return kerrors.ErrBusy
	}
	defer v.exclusive.Unlock()

	p, err := v.backend.LoadProfile(ctx)
	if err != nil {
		return err
	}

	key, err := v.kdf.DeriveExisting(passphrase, p.Salt, p.KDF)
	if err != nil {
		if errors.Is(err, kerrors.ErrKdfUnavailable) {
			v.session.Lock()
			return err
		}
		return kerrors.ErrInvalidPassphrase
	}

	engine, err := aead.New(p.Suite)
	if err != nil {
		session.Wipe(key)
		return kerrors.ErrInvalidPassphrase
	}
	if err := records.Verify(engine, key, p.Verification); err != nil {
		session.Wipe(key)
		return err
	}

	if p.TOTP != nil {
		secret, err := records.OpenEnvelope(engine, key, records.PurposeTOTP, *p.TOTP)
		if err != nil {
			session.Wipe(key)
			return kerrors.ErrInvalidPassphrase
		}
		ok := v.totp.Validate(code, string(secret))
		session.Wipe(secret)
		if !ok {
			session.Wipe(key)
			return kerrors.ErrInvalidTOTP
		}
	}

	release := v.store.Exclusive()
	v.store.SetEngine(engine)
	release()

	v.session.SetTimeout(p.AutoLock())
	v.session.Unlock(key)
	v.setProfile(p)
	return nil
}

// Lock zeroes the key.
func (v *Vault) Lock() {
	v.session.Lock()
}

// Close locks the vault, stops auto-lock and closes the backend.
func (v *Vault) Close() error {
	v.mu.Lock()
	if v.stop != nil {
		v.stop()
		v.stop = nil
	}
	v.mu.Unlock()

	v.session.Lock()
	return v.backend.Close()
}

// StartAutoLock runs the idle check every interval until ctx is done or the
// vault is closed.
func (v *Vault) StartAutoLock(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	v.mu.Lock()
	if v.stop != nil {
		v.stop()
	}
	v.stop = cancel
	v.mu.Unlock()

	go v.session.Run(ctx, interval)
}

// State reports whether the vault is locked.
func (v *Vault) State() session.State {
	return v.session.State()
}

// Records returns the record store.
func (v *Vault) Records() *records.Store {
	return v.store
}

// Profile returns a copy of the profile as last loaded.
func (v *Vault) Profile() models.Profile {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.profile.Clone()
}

func (v *Vault) setProfile(p models.Profile) {
	v.mu.Lock()
	v.profile = p.Clone()
	v.mu.Unlock()
}

// Rotate re-encrypts every record under a key derived from req.Passphrase.
// A KDF or commit failure locks the vault; any other failure leaves it
// unlocked under the old key.
func (v *Vault) Rotate(ctx context.Context, req rotation.Request) (rotation.Result, error) {
	if !v.exclusive.TryLock() {
		return rotation.Result{}, kerrors.ErrBusy
	}
	defer v.exclusive.Unlock()

	current, err := v.backend.LoadProfile(ctx)
	if err != nil {
		return rotation.Result{}, err
	}

	res, err := v.rotator.Rotate(ctx, current, req)
	if err != nil {
		if errors.Is(err, kerrors.ErrKdfUnavailable) || errors.Is(err, rotation.ErrCommit) {
			v.session.Lock()
		}
		return rotation.Result{}, err
	}
	v.setProfile(res.Profile)
	return res, nil
}

// SetAutoLock changes and persists the idle timeout. Zero disables it.
func (v *Vault) SetAutoLock(ctx context.Context, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("auto-lock timeout must not be negative")
	}
	return v.updateProfile(ctx, func(p *models.Profile, _ []byte) error {
		p.AutoLockSeconds = int(d / time.Second)
		return nil
	}, func(p models.Profile) {
		v.session.SetTimeout(p.AutoLock())
	})
}

// updateProfile applies fn to the stored profile under the live key and saves
// it. Record operations are held off so the seal counter is not lost.
func (v *Vault) updateProfile(ctx context.Context, fn func(p *models.Profile, key []byte) error, after func(models.Profile)) error {
	if !v.exclusive.TryLock() {
		return kerrors.ErrBusy
	}
	defer v.exclusive.Unlock()

	release := v.store.Exclusive()
	defer release()

	var saved models.Profile
	err := v.session.WithKey(func(key []byte) error {
		p, err := v.backend.LoadProfile(ctx)
		if err != nil {
			return err
		}
		if err := fn(&p, key); err != nil {
			return err
		}
		if err := v.backend.SaveProfile(ctx, p); err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return err
	}
	if after != nil {
		after(saved)
	}
	v.setProfile(saved)
	return nil
}
