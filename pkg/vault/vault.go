// Package vault is the mutation layer of the password vault.
//
// It owns the unlock session, encrypts items into the store, keeps the
// decrypted item set in memory while unlocked, and runs the best-effort audit
// and timeline hooks after each successful write.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/forest6511/hygienectl/pkg/audit"
	"github.com/forest6511/hygienectl/pkg/credential"
	"github.com/forest6511/hygienectl/pkg/crypto"
	"github.com/forest6511/hygienectl/pkg/security"
	"github.com/forest6511/hygienectl/pkg/store"
	"github.com/forest6511/hygienectl/pkg/timeline"
)

// Meta keys
const (
	MetaSalt     = "salt"
	MetaVerifier = "verifier"

	verifierCheck = "VALID"
)

// Input validation limits
const (
	MaxTitleLength   = 256
	MaxFieldLength   = 1024
	MaxPasswordSize  = 4096
	WeakAuditEntropy = 40 // new passwords below this raise a warning event

	signupWriteSize = 64 * 1024
)

// Errors
var (
	ErrVaultAlreadyExists = errors.New("vault: vault already exists")
	ErrVaultNotFound      = errors.New("vault: vault not found")
	ErrVaultLocked        = errors.New("vault: vault is locked")
	ErrVaultCorrupted     = errors.New("vault: vault is corrupted")
	ErrItemNotFound       = errors.New("vault: item not found")
	ErrTitleRequired      = errors.New("vault: title is required")
	ErrTitleTooLong       = errors.New("vault: title too long")
	ErrFieldTooLong       = errors.New("vault: field too long")
	ErrPasswordRequired   = errors.New("vault: password is required")
	ErrItemPasswordLong   = errors.New("vault: item password too long")
	ErrSiteInvalid        = errors.New("vault: invalid site")
	ErrPasswordTooShort   = fmt.Errorf("vault: master password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("vault: master password must be at most %d characters", MaxPasswordLength)
)

// VaultItem is a decrypted credential.
type VaultItem = credential.Item

// NewItem is the user-supplied part of a vault item.
type NewItem struct {
	Title    string `json:"title"`
	Username string `json:"username"`
	Password string `json:"password"`
	Site     string `json:"site"`
}

// EncryptedRecord is the persisted form of an item in the vault collection.
type EncryptedRecord struct {
	ID         string `json:"id"`
	CreatedAt  int64  `json:"createdAt"` // Unix milliseconds
	UpdatedAt  int64  `json:"updatedAt"` // Unix milliseconds
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

type verifierPayload struct {
	Check string `json:"check"`
}

// Vault manages the encrypted item set.
type Vault struct {
	store    store.Store
	log      zerolog.Logger
	now      func() time.Time
	dataPath string // database file, used for disk and permission checks

	audit    *audit.Logger
	timeline *timeline.Recorder

	mu      sync.RWMutex
	session *Session
	items   []VaultItem
	view    *View // cached analytics, nil when stale
}

// Option configures a Vault.
type Option func(*Vault)

// WithClock sets the clock used for timestamps and analytics.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// WithDataPath enables disk space and permission checks for the database file.
func WithDataPath(path string) Option {
	return func(v *Vault) { v.dataPath = path }
}

// New creates a locked Vault over s.
func New(s store.Store, logger zerolog.Logger, opts ...Option) *Vault {
	v := &Vault{
		store: s,
		log:   logger,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.audit = audit.NewLogger(s, v.now)
	v.timeline = timeline.NewRecorder(s, v.now)
	return v
}

// IsSetup reports whether a salt has been persisted.
func (v *Vault) IsSetup(ctx context.Context) (bool, error) {
	_, err := v.store.Get(ctx, store.CollectionMeta, MetaSalt)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vault: failed to read salt: %w", err)
	}
	return true, nil
}

// IsUnlocked reports whether a session key is held.
func (v *Vault) IsUnlocked() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.session.Unlocked()
}

// Signup creates a new vault and leaves it unlocked:
// 1. Generate salt
// 2. Derive key from master password and salt
// 3. Encrypt the verifier payload
// 4. Persist salt and verifier
// 5. Hold the key in a new session
func (v *Vault) Signup(ctx context.Context, masterPassword string) error {
	if err := checkMasterPassword(masterPassword); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	exists, err := v.IsSetup(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrVaultAlreadyExists
	}
	if err := v.checkDisk(signupWriteSize); err != nil {
		return err
	}

	salt, err := crypto.GenerateSalt()
	if err != nil {
		return fmt.Errorf("vault: failed to generate salt: %w", err)
	}
	key := crypto.DeriveKey(masterPassword, salt)

	env, err := crypto.Encrypt(key, verifierPayload{Check: verifierCheck})
	if err != nil {
		crypto.SecureWipe(key)
		return fmt.Errorf("vault: failed to encrypt verifier: %w", err)
	}
	envJSON, err := json.Marshal(env)
	if err != nil {
		crypto.SecureWipe(key)
		return fmt.Errorf("vault: failed to marshal verifier: %w", err)
	}

	// verifier first: a salt without a verifier would block a later signup
	if err := v.store.Put(ctx, store.CollectionMeta, MetaVerifier, envJSON); err != nil {
		crypto.SecureWipe(key)
		return fmt.Errorf("vault: failed to save verifier: %w", err)
	}
	if err := v.store.Put(ctx, store.CollectionMeta, MetaSalt, salt); err != nil {
		crypto.SecureWipe(key)
		return fmt.Errorf("vault: failed to save salt: %w", err)
	}

	v.closeSessionLocked()
	v.openSessionLocked(ctx, key)
	v.log.Info().Msg("vault created")
	return nil
}

// Login derives the key from masterPassword and checks it against the
// verifier. It returns false for a missing vault, a wrong password or a
// corrupted verifier alike.
func (v *Vault) Login(ctx context.Context, masterPassword string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	key, ok := v.verify(ctx, masterPassword)
	if !ok {
		v.log.Warn().Msg("login failed")
		return false
	}

	v.closeSessionLocked()
	v.openSessionLocked(ctx, key)

	if err := v.refreshLocked(ctx); err != nil {
		v.log.Error().Err(err).Msg("failed to load vault items")
	}
	v.recordSnapshotLocked(ctx)

	if v.dataPath != "" {
		for _, w := range store.CheckPermissions(filepath.Dir(v.dataPath), v.dataPath) {
			v.log.Warn().Msg(w)
		}
	}
	v.log.Info().Int("items", len(v.items)).Msg("vault unlocked")
	return true
}

func (v *Vault) verify(ctx context.Context, masterPassword string) ([]byte, bool) {
	salt, err := v.store.Get(ctx, store.CollectionMeta, MetaSalt)
	if err != nil || len(salt) != crypto.SaltLength {
		return nil, false
	}
	raw, err := v.store.Get(ctx, store.CollectionMeta, MetaVerifier)
	if err != nil {
		return nil, false
	}
	var env crypto.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false
	}

	key := crypto.DeriveKey(masterPassword, salt)
	var payload verifierPayload
	if err := crypto.Decrypt(key, env.IV, env.Ciphertext, &payload); err != nil || payload.Check != verifierCheck {
		crypto.SecureWipe(key)
		return nil, false
	}
	return key, true
}

func (v *Vault) openSessionLocked(ctx context.Context, key []byte) {
	v.session = NewSession(key)
	if !v.session.MemoryLocked() {
		v.log.Debug().Msg("master key not locked in memory")
	}
	if err := v.audit.SetHMACKey(ctx, key); err != nil {
		v.log.Warn().Err(err).Msg("failed to initialize audit chain")
	}
}

func (v *Vault) closeSessionLocked() {
	v.session.Destroy()
	v.session = nil
	v.items = nil
	v.view = nil
}

// Logout discards the key and the decrypted items.
func (v *Vault) Logout() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeSessionLocked()
	v.audit.ForgetKey()
}

// PanicLock destroys the key before anything else, then records a warning
// event. A failed audit write is logged and ignored.
func (v *Vault) PanicLock(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.closeSessionLocked()

	if err := v.audit.AddLog(ctx, audit.TypeWarning, "Emergency lock activated"); err != nil {
		v.log.Warn().Err(err).Msg("failed to log panic lock")
	}
	v.audit.ForgetKey()
}

// Items returns a copy of the decrypted items, newest first.
func (v *Vault) Items() ([]VaultItem, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.session.Unlocked() {
		return nil, ErrVaultLocked
	}
	out := make([]VaultItem, len(v.items))
	copy(out, v.items)
	return out, nil
}

// Item returns the item with the given id.
func (v *Vault) Item(id string) (*VaultItem, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.session.Unlocked() {
		return nil, ErrVaultLocked
	}
	if i := v.indexLocked(id); i >= 0 {
		item := v.items[i]
		return &item, nil
	}
	return nil, ErrItemNotFound
}

// Refresh reloads every item from the store. Records that fail to decrypt
// are logged and dropped.
func (v *Vault) Refresh(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.refreshLocked(ctx); err != nil {
		return err
	}
	v.recordSnapshotLocked(ctx)
	return nil
}

func (v *Vault) refreshLocked(ctx context.Context) error {
	key, err := v.session.Key()
	if err != nil {
		return err
	}
	records, err := v.store.GetAll(ctx, store.CollectionVault)
	if err != nil {
		return fmt.Errorf("vault: failed to read items: %w", err)
	}

	items := make([]VaultItem, 0, len(records))
	for _, r := range records {
		item, err := decryptRecord(key, r.Value)
		if err != nil {
			v.log.Error().Str("id", r.Key).Err(err).Msg("failed to decrypt item, skipping")
			continue
		}
		items = append(items, *item)
	}
	sortItems(items)

	v.items = items
	v.view = nil
	return nil
}

func decryptRecord(key, raw []byte) (*VaultItem, error) {
	var rec EncryptedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVaultCorrupted, err)
	}
	var data NewItem
	if err := crypto.Decrypt(key, rec.IV, rec.Ciphertext, &data); err != nil {
		return nil, err
	}
	item := &VaultItem{
		ID:        rec.ID,
		Title:     data.Title,
		Username:  data.Username,
		Password:  data.Password,
		Site:      data.Site,
		CreatedAt: time.UnixMilli(rec.CreatedAt),
		UpdatedAt: time.UnixMilli(rec.UpdatedAt),
	}
	if rec.UpdatedAt == 0 {
		item.UpdatedAt = item.CreatedAt
	}
	return item, nil
}

func sortItems(items []VaultItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// AddPassword encrypts and stores a new item, then runs the audit and
// timeline hooks.
func (v *Vault) AddPassword(ctx context.Context, in NewItem) (*VaultItem, error) {
	in = normalizeItem(in)
	if err := validateItem(in); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := v.session.Key()
	if err != nil {
		return nil, err
	}

	now := v.now()
	item := VaultItem{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Username:  in.Username,
		Password:  in.Password,
		Site:      in.Site,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := v.persistLocked(ctx, key, item); err != nil {
		return nil, err
	}

	v.items = append(v.items, item)
	sortItems(v.items)
	v.view = nil

	v.auditLocked(ctx, audit.TypeCreate, fmt.Sprintf("Added password for %s", item.Title))
	v.warnIfWeakLocked(ctx, item)
	v.recordSnapshotLocked(ctx)

	v.log.Info().Str("id", item.ID).Msg("item added")
	return &item, nil
}

// UpdatePassword replaces the fields of an existing item. UpdatedAt is reset,
// so a rotated password is no longer counted as old.
func (v *Vault) UpdatePassword(ctx context.Context, id string, in NewItem) (*VaultItem, error) {
	in = normalizeItem(in)
	if err := validateItem(in); err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	key, err := v.session.Key()
	if err != nil {
		return nil, err
	}
	i := v.indexLocked(id)
	if i < 0 {
		return nil, ErrItemNotFound
	}

	item := v.items[i]
	item.Title = in.Title
	item.Username = in.Username
	item.Password = in.Password
	item.Site = in.Site
	item.UpdatedAt = v.now()

	if err := v.persistLocked(ctx, key, item); err != nil {
		return nil, err
	}

	v.items[i] = item
	v.view = nil

	v.auditLocked(ctx, audit.TypeCreate, fmt.Sprintf("Rotated password for %s", item.Title))
	v.warnIfWeakLocked(ctx, item)
	v.recordSnapshotLocked(ctx)

	v.log.Info().Str("id", item.ID).Msg("item updated")
	return &item, nil
}

// DeletePassword removes an item. Records that failed to decrypt can be
// deleted by id as well.
func (v *Vault) DeletePassword(ctx context.Context, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.session.Unlocked() {
		return ErrVaultLocked
	}

	i := v.indexLocked(id)
	if i < 0 {
		if _, err := v.store.Get(ctx, store.CollectionVault, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrItemNotFound
			}
			return fmt.Errorf("vault: failed to read item: %w", err)
		}
	}

	if err := v.store.Delete(ctx, store.CollectionVault, id); err != nil {
		return fmt.Errorf("vault: failed to delete item: %w", err)
	}

	if i >= 0 {
		title := v.items[i].Title
		v.items = append(v.items[:i], v.items[i+1:]...)
		v.view = nil
		v.auditLocked(ctx, audit.TypeDelete, fmt.Sprintf("Deleted password for %s", title))
	}
	v.recordSnapshotLocked(ctx)

	v.log.Info().Str("id", id).Msg("item deleted")
	return nil
}

func (v *Vault) persistLocked(ctx context.Context, key []byte, item VaultItem) error {
	env, err := crypto.Encrypt(key, NewItem{
		Title:    item.Title,
		Username: item.Username,
		Password: item.Password,
		Site:     item.Site,
	})
	if err != nil {
		return fmt.Errorf("vault: failed to encrypt item: %w", err)
	}
	data, err := json.Marshal(EncryptedRecord{
		ID:         item.ID,
		CreatedAt:  item.CreatedAt.UnixMilli(),
		UpdatedAt:  item.UpdatedAt.UnixMilli(),
		IV:         env.IV,
		Ciphertext: env.Ciphertext,
	})
	if err != nil {
		return fmt.Errorf("vault: failed to marshal item: %w", err)
	}
	if err := v.checkDisk(len(data)); err != nil {
		return err
	}
	if err := v.store.Put(ctx, store.CollectionVault, item.ID, data); err != nil {
		return fmt.Errorf("vault: failed to save item: %w", err)
	}
	return nil
}

func (v *Vault) indexLocked(id string) int {
	for i := range v.items {
		if v.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (v *Vault) checkDisk(size int) error {
	if v.dataPath == "" {
		return nil
	}
	if err := store.CheckDiskSpaceForWrite(filepath.Dir(v.dataPath), size); err != nil {
		return fmt.Errorf("vault: %w", err)
	}
	return nil
}

// auditLocked appends an event. Failures never abort the caller.
func (v *Vault) auditLocked(ctx context.Context, typ audit.EventType, msg string) {
	if err := v.audit.AddLog(ctx, typ, msg); err != nil {
		v.log.Warn().Err(err).Str("type", string(typ)).Msg("audit log failed")
	}
}

func (v *Vault) warnIfWeakLocked(ctx context.Context, item VaultItem) {
	if bits := security.CalculateEntropy(item.Password); bits < WeakAuditEntropy {
		v.auditLocked(ctx, audit.TypeWarning, fmt.Sprintf("Weak password detected for %s (%d bits)", item.Title, bits))
	}
}

// recordSnapshotLocked stores today's snapshot for a non-empty unlocked vault.
func (v *Vault) recordSnapshotLocked(ctx context.Context) {
	if !v.session.Unlocked() || len(v.items) == 0 {
		return
	}
	view := v.viewLocked()
	if _, err := v.timeline.RecordSnapshot(ctx, view.Health, view.WeakCount, len(view.Reuse)); err != nil {
		v.log.Warn().Err(err).Msg("failed to record timeline snapshot")
	}
}

func normalizeItem(in NewItem) NewItem {
	in.Title = norm.NFC.String(strings.TrimSpace(in.Title))
	in.Username = norm.NFC.String(strings.TrimSpace(in.Username))
	in.Site = norm.NFC.String(strings.TrimSpace(in.Site))
	return in
}

func validateItem(in NewItem) error {
	if in.Title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(in.Title) > MaxTitleLength {
		return fmt.Errorf("%w: maximum is %d characters", ErrTitleTooLong, MaxTitleLength)
	}
	if in.Password == "" {
		return ErrPasswordRequired
	}
	if len(in.Password) > MaxPasswordSize {
		return fmt.Errorf("%w: maximum is %d bytes", ErrItemPasswordLong, MaxPasswordSize)
	}
	if len(in.Username) > MaxFieldLength || len(in.Site) > MaxFieldLength {
		return fmt.Errorf("%w: maximum is %d bytes", ErrFieldTooLong, MaxFieldLength)
	}
	return validateSite(in.Site)
}

// validateSite accepts bare hosts such as "example.com". A value with a
// scheme must be an http or https URL with a host.
func validateSite(site string) error {
	if site == "" || !strings.Contains(site, "://") {
		return nil
	}
	u, err := url.Parse(site)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSiteInvalid, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are allowed", ErrSiteInvalid)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: URL must have a host", ErrSiteInvalid)
	}
	return nil
}
