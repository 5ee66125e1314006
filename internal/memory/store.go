// Package memory implements caro's HistoryStore: pre-write redaction,
// authenticated encryption at rest, and a background pattern-mining
// worker that proposes LearnedPatterns from corrections. internal/history
// is the opaque storage layer this package drives; a HistoryEntry never
// reaches it unredacted or unencrypted.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wildcard/caro/internal/history"
	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/validator"
)

// payload is the redacted, then-encrypted JSON body of one HistoryEntry.
// Its shape mirrors model.HistoryEntry, minus the id/timestamp that the
// index already carries unencrypted.
type payload struct {
	Request    model.CommandRequest   `json:"request"`
	Generated  model.GeneratedCommand `json:"generated"`
	Validation model.ValidationResult `json:"validation"`
	Execution  *model.ExecutionResult `json:"execution,omitempty"`
	UserEdit   string                 `json:"user_edit,omitempty"`
}

// Store is the encrypted, redacting HistoryStore. A nil *Store is a
// valid, inert zero value: every method on it is a no-op that reports
// persistence as disabled, so callers can hold a possibly-nil *Store
// without branching on whether history is enabled at every call site.
type Store struct {
	backing *history.Store
	seal    *sealer
	rules   []validator.Rule
}

// Open constructs a Store backed by a SQLite database at dbPath, keyed
// from creds. A credential-store failure disables persistence outright:
// Open returns a nil *Store and a wrapped ErrCredentialStoreUnavailable
// rather than falling back to plaintext.
func Open(dbPath string, creds CredentialStore, rules []validator.Rule) (*Store, error) {
	key, err := creds.Key()
	if err != nil {
		logging.Get(logging.CategoryMemory).Warn("history persistence disabled: %v", err)
		return nil, err
	}

	seal, err := newSealer(key)
	if err != nil {
		return nil, err
	}

	backing, err := history.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history backing store: %w", err)
	}

	return &Store{backing: backing, seal: seal, rules: rules}, nil
}

// Enabled reports whether this Store will actually persist anything.
func (s *Store) Enabled() bool { return s != nil }

// Close releases the backing database handle. A no-op on a nil Store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.backing.Close()
}

// Append redacts, encrypts, and persists one HistoryEntry, returning the
// generated id. A no-op returning "" on a nil Store.
func (s *Store) Append(ctx context.Context, req model.CommandRequest, gen model.GeneratedCommand, val model.ValidationResult, exec *model.ExecutionResult, userEdit string) (string, error) {
	if s == nil {
		return "", nil
	}

	req.OriginalText = RedactCommand(req.OriginalText, s.rules)
	gen.Command = RedactCommand(gen.Command, s.rules)
	gen.Explanation = Redact(gen.Explanation)
	for i := range val.Alternatives {
		val.Alternatives[i].Command = RedactCommand(val.Alternatives[i].Command, s.rules)
	}
	if exec != nil {
		exec.Stdout = Redact(exec.Stdout)
		exec.Stderr = Redact(exec.Stderr)
	}
	userEdit = RedactCommand(userEdit, s.rules)

	body := payload{Request: req, Generated: gen, Validation: val, Execution: exec, UserEdit: userEdit}
	plaintext, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal history entry: %w", err)
	}

	id := uuid.NewString()
	ciphertext, nonce, err := s.seal.seal(plaintext, []byte(id))
	if err != nil {
		return "", fmt.Errorf("encrypt history entry: %w", err)
	}

	rec := history.Record{
		ID:         id,
		CreatedAt:  time.Now(),
		Backend:    string(gen.Backend),
		Risk:       val.Risk.String(),
		Ciphertext: ciphertext,
		Nonce:      nonce,
	}
	if err := s.backing.Append(ctx, rec); err != nil {
		return "", err
	}
	return id, nil
}

// List returns the unencrypted index: id, timestamp, backend, risk —
// enough to let a user pick an entry to inspect or delete without
// decrypting anything. Empty on a nil Store.
func (s *Store) List(ctx context.Context, limit int) ([]history.IndexEntry, error) {
	if s == nil {
		return nil, nil
	}
	return s.backing.List(ctx, limit)
}

// Get decrypts and returns one full HistoryEntry by id.
func (s *Store) Get(ctx context.Context, id string) (model.HistoryEntry, bool, error) {
	if s == nil {
		return model.HistoryEntry{}, false, nil
	}

	rec, ok, err := s.backing.Get(ctx, id)
	if err != nil || !ok {
		return model.HistoryEntry{}, ok, err
	}

	plaintext, err := s.seal.open(rec.Ciphertext, rec.Nonce, []byte(id))
	if err != nil {
		return model.HistoryEntry{}, false, fmt.Errorf("decrypt history entry %s: %w", id, err)
	}

	var body payload
	if err := json.Unmarshal(plaintext, &body); err != nil {
		return model.HistoryEntry{}, false, fmt.Errorf("unmarshal history entry %s: %w", id, err)
	}

	return model.HistoryEntry{
		ID:         rec.ID,
		Timestamp:  rec.CreatedAt,
		Request:    body.Request,
		Generated:  body.Generated,
		Validation: body.Validation,
		Execution:  body.Execution,
		UserEdit:   body.UserEdit,
	}, true, nil
}

// Delete purges one entry by id. A no-op on a nil Store.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil {
		return nil
	}
	return s.backing.Delete(ctx, id)
}

// PurgeAll deletes every entry, used by --purge-history. A no-op on a nil
// Store.
func (s *Store) PurgeAll(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.backing.PurgeAll(ctx)
}
