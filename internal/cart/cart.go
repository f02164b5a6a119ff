// Package cart implements the stateful cart store: the sole entry point for
// all cart mutation and inspection. Constructive operations surface argument
// and persistence errors to the caller; read and derivation operations never
// fail and degrade to empty or zero results instead.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"cartstore/internal/changelog"
	"cartstore/internal/metrics"
	"cartstore/internal/model"
	"cartstore/internal/notify"
	"cartstore/internal/persist"
)

// ErrInvalidArgument is returned when a mutation received a missing id.
var ErrInvalidArgument = errors.New("invalid argument")

// Options configures a Store. All fields are optional.
type Options struct {
	Logger    *zap.Logger
	Metrics   *metrics.Registry
	Changelog changelog.Writer
}

// Store owns the cart. The in-memory view is authoritative for each
// operation until the fresh summary is broadcast; persistence is a side
// effect, not a second owner. A mutex serializes operations so concurrent
// callers keep read-after-write consistency.
type Store struct {
	mu      sync.Mutex
	adapter *persist.Adapter
	bus     *notify.Registry
	clog    changelog.Writer
	seq     int64
	log     *zap.Logger
	mreg    *metrics.Registry
}

func New(adapter *persist.Adapter, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		adapter: adapter,
		bus:     notify.NewRegistry(log, opts.Metrics),
		clog:    opts.Changelog,
		log:     log,
		mreg:    opts.Metrics,
	}
}

// Init makes sure the persisted cart exists. It is idempotent and safe to
// call from multiple mount points: an empty list is written only when the
// key is wholly absent.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapter.Exists() {
		return nil
	}
	_, err := s.adapter.Save(nil)
	return err
}

// Add puts a product into the cart. When a line with the same id already
// exists its quantity is incremented and UpdatedAt refreshed; the price and
// metadata of the existing line are left untouched, so the first-added
// price wins. Otherwise a new line is normalized from the product. Returns
// the saved line list.
func (s *Store) Add(p model.Product, qty int64) ([]model.Line, error) {
	now := model.NowUnix()
	ln, err := model.Normalize(p, qty, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	lines := s.adapter.Load()
	merged := false
	for i := range lines {
		if lines[i].ID == ln.ID {
			lines[i].Quantity += ln.Quantity
			lines[i].UpdatedAt = now
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, ln)
	}
	saved, err := s.adapter.Save(lines)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.appendLog(changelog.Entry{Op: changelog.OpAdd, ItemID: ln.ID, Qty: ln.Quantity, TS: now, Line: &ln})
	sum := summarize(saved, now)
	s.mu.Unlock()

	s.finish(sum)
	return saved, nil
}

// UpdateQuantity replaces the quantity of the line with the given id. A
// quantity of zero or less delegates to Remove, which keeps the invariant
// that no line with a non-positive quantity can exist. A missing id is a
// no-op returning the unchanged list.
func (s *Store) UpdateQuantity(id string, qty int64) ([]model.Line, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	if qty <= 0 {
		return s.Remove(id)
	}
	now := model.NowUnix()

	s.mu.Lock()
	lines := s.adapter.Load()
	idx := -1
	for i := range lines {
		if lines[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return lines, nil
	}
	lines[idx].Quantity = qty
	lines[idx].UpdatedAt = now
	saved, err := s.adapter.Save(lines)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.appendLog(changelog.Entry{Op: changelog.OpUpdate, ItemID: id, Qty: qty, TS: now})
	sum := summarize(saved, now)
	s.mu.Unlock()

	s.finish(sum)
	return saved, nil
}

// Remove filters the line with the given id out of the cart. Removal is
// immediate and unconditional; a missing id is a no-op that still persists
// and notifies.
func (s *Store) Remove(id string) ([]model.Line, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidArgument)
	}
	now := model.NowUnix()

	s.mu.Lock()
	lines := s.adapter.Load()
	kept := lines[:0]
	for _, ln := range lines {
		if ln.ID != id {
			kept = append(kept, ln)
		}
	}
	saved, err := s.adapter.Save(kept)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.appendLog(changelog.Entry{Op: changelog.OpRemove, ItemID: id, TS: now})
	sum := summarize(saved, now)
	s.mu.Unlock()

	s.finish(sum)
	return saved, nil
}

// Clear unconditionally replaces the stored list with empty.
func (s *Store) Clear() ([]model.Line, error) {
	now := model.NowUnix()

	s.mu.Lock()
	saved, err := s.adapter.Save(nil)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.appendLog(changelog.Entry{Op: changelog.OpClear, TS: now})
	sum := summarize(saved, now)
	s.mu.Unlock()

	s.finish(sum)
	return saved, nil
}

// Summary derives the read-only rollup for the current cart. It never
// fails; any load problem already degraded to an empty cart inside the
// adapter.
func (s *Store) Summary() model.Summary {
	s.mu.Lock()
	lines := s.adapter.Load()
	s.mu.Unlock()
	return summarize(lines, model.NowUnix())
}

// InCart reports whether a line with the given id exists.
func (s *Store) InCart(id string) bool { return s.Quantity(id) > 0 }

// Quantity returns the quantity of the line with the given id, or 0 when
// absent or unreadable.
func (s *Store) Quantity(id string) int64 {
	if id == "" {
		return 0
	}
	s.mu.Lock()
	lines := s.adapter.Load()
	s.mu.Unlock()
	for _, ln := range lines {
		if ln.ID == id {
			return ln.Quantity
		}
	}
	return 0
}

// BackupCart writes an advisory copy of the current cart under the backup
// key. Failures are logged, never fatal; a nil result means no backup was
// written.
func (s *Store) BackupCart() *model.Backup {
	s.mu.Lock()
	lines := s.adapter.Load()
	b, err := s.adapter.Backup(lines)
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("cart backup failed", zap.Error(err))
		return nil
	}
	return &b
}

// RestoreCart replaces the cart with the last backup, re-validated through
// the save path. A missing or malformed backup leaves the cart untouched.
// All failures are logged, never fatal.
func (s *Store) RestoreCart() []model.Line {
	now := model.NowUnix()

	s.mu.Lock()
	saved, restored, err := s.adapter.RestoreFromBackup()
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("cart restore failed", zap.Error(err))
		return nil
	}
	if !restored {
		s.mu.Unlock()
		return nil
	}
	sum := summarize(saved, now)
	s.mu.Unlock()

	s.finish(sum)
	return saved
}

// Subscribe registers a named listener for post-mutation summaries.
// Subscribing an already-registered name is a no-op.
func (s *Store) Subscribe(name string, fn notify.Listener) bool { return s.bus.Subscribe(name, fn) }

// Unsubscribe removes a named listener.
func (s *Store) Unsubscribe(name string) bool { return s.bus.Unsubscribe(name) }

// LastSeq returns the sequence number of the most recent changelog entry.
func (s *Store) LastSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// appendLog records an accepted mutation, best-effort: the KV write is the
// durability point for the cart itself, so a failed append is logged and
// counted but never fails the mutation. Callers hold s.mu.
func (s *Store) appendLog(e changelog.Entry) {
	if s.clog == nil {
		return
	}
	s.seq++
	e.Seq = s.seq
	if err := s.clog.Append(e); err != nil {
		s.log.Warn("changelog append failed", zap.String("op", e.Op), zap.Error(err))
		return
	}
	if s.mreg != nil {
		s.mreg.ChangelogAppended.Inc()
	}
}

// finish runs after a successful mutation, outside the store mutex so a
// listener may call read operations without deadlocking.
func (s *Store) finish(sum model.Summary) {
	if s.mreg != nil {
		s.mreg.MutationsTotal.Inc()
	}
	s.bus.Notify(sum)
}
