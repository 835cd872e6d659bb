// Package backup writes and restores encrypted copies of a vault store.
//
// File layout: magic, length-prefixed JSON header, length-prefixed
// ciphertext, HMAC-SHA256 over everything before it.
//
// Security:
//   - Backup salt is generated fresh for each backup (never reuses the vault salt)
//   - Outer HMAC covers header + ciphertext for tamper detection
//   - Vault records remain encrypted under the vault key inside the payload
//   - Sensitive buffers cleared from memory with SecureWipe
package backup

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/forest6511/hygienectl/pkg/crypto"
	"github.com/forest6511/hygienectl/pkg/store"
	"github.com/forest6511/hygienectl/pkg/vault"
)

// ConflictMode specifies how to handle an existing vault during restore.
type ConflictMode int

const (
	// ConflictError refuses to restore over an existing vault.
	ConflictError ConflictMode = iota
	// ConflictOverwrite replaces the existing vault.
	ConflictOverwrite
)

// BackupOptions configures the backup operation.
type BackupOptions struct {
	// IncludeAudit includes the audit journal in the backup.
	IncludeAudit bool
	// Password for encryption.
	Password string
	// KeyFile path for encryption key (overrides Password).
	KeyFile string
	// Now is the clock for the header timestamp; nil means time.Now.
	Now func() time.Time
}

// RestoreOptions configures the restore operation.
type RestoreOptions struct {
	OnConflict ConflictMode
	// DryRun verifies and counts without writing.
	DryRun bool
	// WithAudit restores the audit journal. The target's journal is cleared
	// either way.
	WithAudit bool
	Password  string
	KeyFile   string
}

// RestoreResult contains the result of a restore operation.
type RestoreResult struct {
	ItemsRestored     int
	SnapshotsRestored int
	AuditRestored     bool
	DryRun            bool
}

// VerifyResult contains the result of a verify operation.
type VerifyResult struct {
	Valid         bool
	Version       int
	CreatedAt     time.Time
	ItemCount     int
	IncludesAudit bool
	Error         string
}

// Backup writes an encrypted copy of s to w. The store must hold a vault.
func Backup(ctx context.Context, s store.Store, w io.Writer, opts BackupOptions) error {
	if w == nil {
		return fmt.Errorf("output writer is required")
	}

	encKey, macKey, mode, kdf, err := backupKeys(opts)
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(encKey)
	defer crypto.SecureWipe(macKey)

	payload, err := collect(ctx, s, opts.IncludeAudit)
	if err != nil {
		return fmt.Errorf("failed to collect vault data: %w", err)
	}

	payloadBytes, err := EncodePayload(payload)
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(payloadBytes)

	ciphertext, err := EncryptPayload(payloadBytes, encKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt payload: %w", err)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	header := &Header{
		Version:        FormatVersion,
		CreatedAt:      now().UTC(),
		EncryptionMode: mode,
		KDFParams:      kdf,
		IncludesAudit:  opts.IncludeAudit,
		ItemCount:      len(payload.Collections[store.CollectionVault]),
		ChecksumAlgo:   "sha256",
	}

	// Buffer first so the HMAC covers exactly what is written
	var buf bytes.Buffer
	if err := WriteHeader(&buf, header); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(ciphertext))); err != nil {
		return fmt.Errorf("failed to write ciphertext length: %w", err)
	}
	buf.Write(ciphertext)

	mac := ComputeHMAC(buf.Bytes(), macKey)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if _, err := w.Write(mac); err != nil {
		return fmt.Errorf("failed to write HMAC: %w", err)
	}
	return nil
}

func backupKeys(opts BackupOptions) (encKey, macKey []byte, mode EncryptionMode, kdf *KDFParams, err error) {
	if opts.KeyFile != "" {
		encKey, err = ReadKeyFile(opts.KeyFile)
		if err != nil {
			return nil, nil, "", nil, err
		}
		macKey, err = deriveHKDF(encKey, []byte(hkdfInfoMAC))
		if err != nil {
			crypto.SecureWipe(encKey)
			return nil, nil, "", nil, fmt.Errorf("failed to derive MAC key: %w", err)
		}
		return encKey, macKey, EncryptionModeKey, nil, nil
	}

	if opts.Password == "" {
		return nil, nil, "", nil, ErrNoKey
	}
	salt, err := GenerateSalt()
	if err != nil {
		return nil, nil, "", nil, err
	}
	encKey, macKey, err = DeriveBackupKeys(opts.Password, salt)
	if err != nil {
		return nil, nil, "", nil, err
	}
	kdf = &KDFParams{Algorithm: "pbkdf2-sha256", Salt: salt, Iterations: crypto.PBKDF2Iterations}
	return encKey, macKey, EncryptionModePassword, kdf, nil
}

// collect reads every collection that makes up a vault.
func collect(ctx context.Context, s store.Store, includeAudit bool) (*Payload, error) {
	if _, err := s.Get(ctx, store.CollectionMeta, vault.MetaSalt); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrVaultNotFound
		}
		return nil, err
	}

	collections := []string{store.CollectionMeta, store.CollectionVault, store.CollectionTimeline}
	if includeAudit {
		collections = append(collections, store.CollectionAudit)
	}

	payload := &Payload{Collections: make(map[string][]Entry, len(collections))}
	for _, c := range collections {
		records, err := s.GetAll(ctx, c)
		if err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, len(records))
		for _, r := range records {
			entries = append(entries, Entry{Key: r.Key, Value: r.Value})
		}
		payload.Collections[c] = entries
	}
	return payload, nil
}

// Verify checks backup integrity and decryptability without restoring.
// Integrity failures are reported in the result, not as an error.
func Verify(r io.Reader, password, keyFile string) (*VerifyResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}

	header, _, err := verifyAndDecrypt(data, password, keyFile)
	if err != nil {
		return &VerifyResult{Valid: false, Error: err.Error()}, nil
	}
	return &VerifyResult{
		Valid:         true,
		Version:       header.Version,
		CreatedAt:     header.CreatedAt,
		ItemCount:     header.ItemCount,
		IncludesAudit: header.IncludesAudit,
	}, nil
}

// Restore writes the backup read from r into s. Meta and vault records are
// copied by key; timeline and audit entries are appended in their original
// order so the store's sequences keep advancing.
func Restore(ctx context.Context, s store.Store, r io.Reader, opts RestoreOptions) (*RestoreResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	header, payload, err := verifyAndDecrypt(data, opts.Password, opts.KeyFile)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{
		ItemsRestored:     len(payload.Collections[store.CollectionVault]),
		SnapshotsRestored: len(payload.Collections[store.CollectionTimeline]),
		AuditRestored:     header.IncludesAudit && opts.WithAudit,
		DryRun:            opts.DryRun,
	}

	_, err = s.Get(ctx, store.CollectionMeta, vault.MetaSalt)
	switch {
	case err == nil:
		if opts.OnConflict != ConflictOverwrite {
			return nil, ErrConflict
		}
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("failed to inspect target: %w", err)
	}

	if opts.DryRun {
		return result, nil
	}

	if err := apply(ctx, s, payload, result.AuditRestored); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPartialRestore, err)
	}
	return result, nil
}

func apply(ctx context.Context, s store.Store, payload *Payload, withAudit bool) error {
	keyed := []string{store.CollectionVault, store.CollectionMeta}
	appended := []string{store.CollectionTimeline}
	if withAudit {
		appended = append(appended, store.CollectionAudit)
	}

	// the old journal is chained under the replaced vault's key, so it goes
	// even when the backup's journal is not restored
	for _, c := range store.Collections {
		if err := s.Clear(ctx, c); err != nil {
			return err
		}
	}
	// vault records before meta: a salt marks the vault as present
	for _, c := range keyed {
		for _, e := range payload.Collections[c] {
			if c == store.CollectionMeta && e.Key == vault.MetaSalt {
				continue
			}
			if err := s.Put(ctx, c, e.Key, e.Value); err != nil {
				return err
			}
		}
	}
	for _, c := range appended {
		for _, e := range payload.Collections[c] {
			if _, err := s.Append(ctx, c, e.Value); err != nil {
				return err
			}
		}
	}
	for _, e := range payload.Collections[store.CollectionMeta] {
		if e.Key == vault.MetaSalt {
			return s.Put(ctx, store.CollectionMeta, e.Key, e.Value)
		}
	}
	return nil
}

// verifyAndDecrypt verifies the backup integrity and decrypts the payload.
func verifyAndDecrypt(data []byte, password, keyFile string) (*Header, *Payload, error) {
	if len(data) < len(MagicNumber)+4+HMACLength {
		return nil, nil, ErrTruncated
	}

	reader := bytes.NewReader(data)
	header, err := ReadHeader(reader)
	if err != nil {
		return nil, nil, err
	}
	headerEnd := len(data) - reader.Len()

	var ciphertextLen uint32
	if err := binary.Read(reader, binary.BigEndian, &ciphertextLen); err != nil {
		return nil, nil, fmt.Errorf("failed to read ciphertext length: %w", err)
	}
	if reader.Len() < int(ciphertextLen)+HMACLength {
		return nil, nil, ErrTruncated
	}
	bodyEnd := headerEnd + 4 + int(ciphertextLen)
	ciphertext := data[headerEnd+4 : bodyEnd]
	storedHMAC := data[bodyEnd : bodyEnd+HMACLength]

	encKey, macKey, err := restoreKeys(header, password, keyFile)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.SecureWipe(encKey)
	defer crypto.SecureWipe(macKey)

	if !VerifyHMAC(data[:bodyEnd], storedHMAC, macKey) {
		return nil, nil, ErrIntegrityFailed
	}

	plaintext, err := DecryptPayload(ciphertext, encKey)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.SecureWipe(plaintext)

	payload, err := DecodePayload(plaintext)
	if err != nil {
		return nil, nil, err
	}
	return header, payload, nil
}

func restoreKeys(header *Header, password, keyFile string) (encKey, macKey []byte, err error) {
	switch {
	case keyFile != "":
		encKey, err = ReadKeyFile(keyFile)
		if err != nil {
			return nil, nil, err
		}
		macKey, err = deriveHKDF(encKey, []byte(hkdfInfoMAC))
		if err != nil {
			crypto.SecureWipe(encKey)
			return nil, nil, fmt.Errorf("failed to derive MAC key: %w", err)
		}
		return encKey, macKey, nil
	case header.EncryptionMode == EncryptionModePassword && header.KDFParams != nil:
		return DeriveBackupKeys(password, header.KDFParams.Salt)
	default:
		return nil, nil, fmt.Errorf("cannot determine decryption key")
	}
}
