package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cartstore/internal/kv"
	"cartstore/internal/metrics"
	"cartstore/internal/model"
	"cartstore/internal/validate"
)

const (
	// DefaultKey is the single well-known key holding the serialized cart;
	// DefaultBackupKey is derived from it and holds the advisory backup.
	DefaultKey       = "cart:v1"
	DefaultBackupKey = "cart:v1:backup"
)

// PersistenceError reports a rejected write to the durable store (quota,
// disabled storage, serialization fault). Callers must surface it; the UI
// state and the persisted state would otherwise diverge silently.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("cart persistence %s: %v", e.Op, e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Options configures an Adapter. Zero values fall back to defaults.
type Options struct {
	Key       string
	BackupKey string
	Logger    *zap.Logger
	Metrics   *metrics.Registry
}

// Adapter bridges the in-memory cart to durable storage under one namespace.
// It isolates parsing and serialization failure: a corrupt persisted value is
// recovered to empty, never surfaced as an error.
type Adapter struct {
	kv        kv.Store
	key       string
	backupKey string
	log       *zap.Logger
	mreg      *metrics.Registry
}

func NewAdapter(store kv.Store, o Options) *Adapter {
	if o.Key == "" {
		o.Key = DefaultKey
	}
	if o.BackupKey == "" {
		o.BackupKey = o.Key + ":backup"
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Adapter{kv: store, key: o.Key, backupKey: o.BackupKey, log: o.Logger, mreg: o.Metrics}
}

// Exists reports whether the cart key is present at all, corrupt or not.
func (a *Adapter) Exists() bool {
	_, found, err := a.kv.Get(a.key)
	return err == nil && found
}

// Load reads the persisted cart. A missing key yields an empty cart without
// an implicit write. An unparsable value is corrupt state: it is logged,
// counted, and recovered to empty so a failing read can never block the UI.
// Invalid entries are discarded on the way in.
func (a *Adapter) Load() []model.Line {
	lines, err := a.LoadRaw()
	if err != nil {
		a.log.Warn("corrupt cart state recovered, resetting to empty",
			zap.String("key", a.key), zap.Error(err))
		if a.mreg != nil {
			a.mreg.CorruptRecoveredTotal.Inc()
		}
		return nil
	}
	return validate.Filter(lines)
}

// LoadRaw decodes the persisted value without the validity filter, for
// diagnostics. Unlike Load it reports corrupt state instead of recovering.
func (a *Adapter) LoadRaw() ([]model.Line, error) {
	raw, found, err := a.kv.Get(a.key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", a.key, err)
	}
	if !found {
		return nil, nil
	}
	var lines []model.Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("decode %s: %w", a.key, err)
	}
	return lines, nil
}

// Save filters lines through the validator, writes only the valid subset,
// and returns that subset. A rejected write comes back as *PersistenceError.
func (a *Adapter) Save(lines []model.Line) ([]model.Line, error) {
	valid := validate.Filter(lines)
	raw, err := json.Marshal(valid)
	if err != nil {
		return nil, &PersistenceError{Op: "encode", Err: err}
	}
	t0 := time.Now()
	if err := a.kv.Set(a.key, raw); err != nil {
		if a.mreg != nil {
			a.mreg.SaveErrorsTotal.Inc()
		}
		return nil, &PersistenceError{Op: "write", Err: err}
	}
	if a.mreg != nil {
		a.mreg.SaveLatencySec.Observe(time.Since(t0).Seconds())
		var total int64
		for _, ln := range valid {
			total += ln.Quantity
		}
		a.mreg.ItemsInCart.Set(float64(total))
	}
	return valid, nil
}

// Backup writes a timestamped, versioned copy of the lines under the backup
// key. Callers treat failures as advisory.
func (a *Adapter) Backup(lines []model.Line) (model.Backup, error) {
	b := model.Backup{
		ID:        uuid.NewString(),
		Items:     validate.Filter(lines),
		Timestamp: model.NowUnix(),
		Version:   model.BackupVersion,
	}
	raw, err := json.Marshal(&b)
	if err != nil {
		return model.Backup{}, &PersistenceError{Op: "encode backup", Err: err}
	}
	if err := a.kv.Set(a.backupKey, raw); err != nil {
		return model.Backup{}, &PersistenceError{Op: "write backup", Err: err}
	}
	if a.mreg != nil {
		a.mreg.BackupsTotal.Inc()
	}
	return b, nil
}

// RestoreFromBackup reads the backup key. Absent or malformed backups leave
// the cart untouched (restored=false). A well-formed backup is replayed
// through Save so the restored set passes validation; the saved, possibly
// filtered set is returned.
func (a *Adapter) RestoreFromBackup() (lines []model.Line, restored bool, err error) {
	raw, found, err := a.kv.Get(a.backupKey)
	if err != nil {
		a.log.Warn("backup read failed", zap.String("key", a.backupKey), zap.Error(err))
		return nil, false, nil
	}
	if !found {
		return nil, false, nil
	}
	var b model.Backup
	if err := json.Unmarshal(raw, &b); err != nil {
		a.log.Warn("malformed backup ignored", zap.String("key", a.backupKey), zap.Error(err))
		return nil, false, nil
	}
	saved, err := a.Save(b.Items)
	if err != nil {
		return nil, false, err
	}
	if a.mreg != nil {
		a.mreg.RestoresTotal.Inc()
	}
	return saved, true, nil
}
