// Package vault is the application context of a KeyClave vault.
//
// A Vault owns the storage backend, the session holding the unlocked key,
// the record store and the rotation coordinator. Callers create a vault once
// with Create, then Open and Unlock it for each use:
//
//	v, err := vault.Open(ctx, backend, vault.Options{})
//	if err := v.Unlock(ctx, passphrase, code); err != nil {
//		return err
//	}
//	defer v.Close()
//	id, err := v.Records().Create(ctx, meta, value)
//
// Unlock never distinguishes a wrong passphrase from a corrupted profile;
// both fail with ErrInvalidPassphrase.
package vault
