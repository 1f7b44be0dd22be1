package rotation

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
	"github.com/PolarWolf314/keyclave/internal/session"
	"github.com/PolarWolf314/keyclave/internal/storage"
)

// ErrCommit wraps a failed backend commit. The backend guarantees nothing
// was applied, but callers treat it as fatal and lock the vault.
var ErrCommit = errors.New("rotation commit failed")

// Request describes a rotation.
type Request struct {
	// Passphrase derives the new key. It may equal the current passphrase.
	Passphrase []byte
	// Params are the KDF costs for the new key. Zero keeps the current ones.
	Params kdf.Params
	// Suite switches the AEAD suite. Empty keeps the current one.
	Suite aead.Suite
}

// Result describes a committed rotation.
type Result struct {
	Profile  models.Profile
	Records  int
	Fallback bool // the KDF fell back to a lower memory cost
}

// Coordinator runs key rotations for one vault.
type Coordinator struct {
	mu sync.Mutex // held for the duration of a rotation

	kdf     *kdf.Engine
	store   *records.Store
	session *session.Session
	backend storage.Backend
	now     func() time.Time

	// beforeStage runs before each record is staged with the new key. Tests
	// use it to inject failures and cancellation.
	beforeStage func(i int, rec models.Record, newKey []byte) error
}

// New returns a Coordinator.
func New(kdfEngine *kdf.Engine, store *records.Store, sess *session.Session, backend storage.Backend) *Coordinator {
	return &Coordinator{
		kdf:     kdfEngine,
		store:   store,
		session: sess,
		backend: backend,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Status is the lifecycle of a rotation transaction.
type Status string

const (
	StatusStaging    Status = "staging"
	StatusCommitting Status = "committing"
	StatusCommitted  Status = "committed"
	StatusRolledBack Status = "rolled_back"
)

// transaction holds everything a rotation produces before commit.
type transaction struct {
	old    models.Profile
	next   models.Profile
	key    []byte
	engine *aead.Engine
	staged []models.Record
	status Status
}

// discard zeroes the new key and drops the staging set.
func (tx *transaction) discard() {
	session.Wipe(tx.key)
	tx.key = nil
	tx.staged = nil
	tx.status = StatusRolledBack
}

// Rotate re-encrypts the vault under a key derived from req. current is the
// stored profile the live session key was derived from.
//
// Failures before commit return ErrRotationFailure or ErrRotationCancelled,
// both wrapping the cause, and leave the vault unchanged.
func (c *Coordinator) Rotate(ctx context.Context, current models.Profile, req Request) (Result, error) {
	if !c.mu.TryLock() {
		return Result{}, kerrors.ErrBusy
	}
	defer c.mu.Unlock()

	if c.session.State() != session.Unlocked {
		return Result{}, kerrors.ErrLocked
	}

	c.session.Suspend()
	defer c.session.Resume()

	release := c.store.Exclusive()
	defer release()

	tx, fallback, err := c.prepare(ctx, current, req)
	if err != nil {
		return Result{}, failure(err)
	}

	if err := c.stage(ctx, tx); err != nil {
		tx.discard()
		return Result{}, failure(err)
	}

	if err := c.commit(ctx, tx); err != nil {
		tx.discard()
		return Result{}, failure(err)
	}

	return Result{Profile: tx.next, Records: len(tx.staged), Fallback: fallback}, nil
}

// prepare derives the new key and builds the next profile.
func (c *Coordinator) prepare(ctx context.Context, current models.Profile, req Request) (*transaction, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	suite := current.Suite
	if req.Suite != "" {
		suite = req.Suite
	}
	engine, err := aead.New(suite)
	if err != nil {
		return nil, false, err
	}

	params := req.Params
	if params == (kdf.Params{}) {
		params = current.KDF
	}
	salt, err := kdf.NewSalt()
	if err != nil {
		return nil, false, err
	}
	key, effective, err := c.kdf.DeriveWithFallback(req.Passphrase, salt, params)
	if err != nil {
		return nil, false, err
	}

	tx := &transaction{old: current, key: key, engine: engine, status: StatusStaging}
	next := current.Clone()
	next.Salt = salt
	next.KDF = effective
	next.Suite = suite
	next.RotatedAt = c.now()
	next.SealCount = 0

	next.Verification, err = records.NewVerification(engine, key)
	if err != nil {
		tx.discard()
		return nil, false, err
	}
	next.SealCount++

	if current.TOTP != nil {
		env, err := c.resealTOTP(*current.TOTP, engine, key)
		if err != nil {
			tx.discard()
			return nil, false, err
		}
		next.TOTP = &env
		next.SealCount++
	}

	tx.next = next
	return tx, effective != params, nil
}

func (c *Coordinator) resealTOTP(env models.Envelope, engine *aead.Engine, newKey []byte) (models.Envelope, error) {
	var out models.Envelope
	err := c.session.WithKey(func(key []byte) error {
		secret, err := records.OpenEnvelope(c.store.Engine(), key, records.PurposeTOTP, env)
		if err != nil {
			return fmt.Errorf("totp secret: %w", err)
		}
		defer session.Wipe(secret)

		out, err = records.SealEnvelope(engine, newKey, records.PurposeTOTP, secret)
		return err
	})
	return out, err
}

// stage seals every stored record under the new key.
func (c *Coordinator) stage(ctx context.Context, tx *transaction) error {
	stored, err := c.backend.ListRecords(ctx)
	if err != nil {
		return err
	}

	tx.staged = make([]models.Record, 0, len(stored))
	for i, rec := range stored {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.beforeStage != nil {
			if err := c.beforeStage(i, rec, tx.key); err != nil {
				return err
			}
		}
		staged, err := c.store.Restage(rec, tx.key, tx.engine)
		if err != nil {
			return err
		}
		tx.staged = append(tx.staged, staged)
	}
	tx.next.SealCount += uint64(len(tx.staged))
	return nil
}

// commit swaps the profile and records in one backend operation and moves
// the session to the new key.
func (c *Coordinator) commit(ctx context.Context, tx *transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx.status = StatusCommitting
	if err := c.backend.CommitRotation(context.WithoutCancel(ctx), tx.next, tx.staged); err != nil {
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}
	tx.status = StatusCommitted

	if tx.engine.Suite() != c.store.Engine().Suite() {
		c.store.SetEngine(tx.engine)
	}
	// A session locked during rotation discards the new key; the committed
	// profile unlocks with the new passphrase.
	_ = c.session.ReplaceKey(tx.key)
	tx.key = nil
	return nil
}

func failure(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", kerrors.ErrRotationCancelled, err)
	}
	return fmt.Errorf("%w: %w", kerrors.ErrRotationFailure, err)
}
