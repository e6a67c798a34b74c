// Package notebookservice coordinates the notebook document model with
// storage, indexing, and trust. It owns the set of open notebooks and
// serializes edit intents against them.
package notebookservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/cell"
	"github.com/starford/laguz/internal/checksum"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/kernel"
	"github.com/starford/laguz/internal/models"
	"github.com/starford/laguz/internal/notebook"
	"github.com/starford/laguz/internal/storage"
	"github.com/starford/laguz/internal/trust"
)

// NotebookListItem is a lightweight item in a list response.
type NotebookListItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Kernel    string    `json:"kernel,omitempty"`
	CellCount int       `json:"cell_count"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CellView is a cell snapshot enriched with its trust classification.
type CellView struct {
	models.CellSnapshot
	Trusted bool `json:"trusted"`
}

// NotebookDetail is the full representation of an open notebook.
type NotebookDetail struct {
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Cells    []CellView     `json:"cells"`
	Checksum string         `json:"checksum"`
	CanUndo  bool           `json:"can_undo"`
	CanRedo  bool           `json:"can_redo"`
}

// EditOp is one structural or content edit in an edit request.
type EditOp struct {
	Op     string `json:"op"` // insert, remove, move, set_source, convert, set_metadata, delete_metadata
	Index  int    `json:"index"`
	To     int    `json:"to,omitempty"`
	Count  int    `json:"count,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Source string `json:"source,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  any    `json:"value,omitempty"`
}

// Service coordinates storage, index, and the in-memory document model.
//
// Open notebooks are kept in memory so undo history survives across
// requests; every successful edit is written back to disk immediately.
type Service struct {
	store        storage.Provider
	db           index.NotebookIndex
	notary       trust.Notary
	exec         kernel.Executor
	historyLimit int

	// OnChange, if set, is called after a persisted notebook change with
	// kind "created", "updated", or "deleted".
	OnChange func(kind, path string)
	// OnCellsChanged, if set, is called after an edit, undo, redo, or
	// run mutated an open notebook's cells.
	OnCellsChanged func(path string)

	mu   sync.Mutex
	open map[string]*notebook.Notebook
}

// NewService creates a new notebook service. exec may be nil, in which
// case run requests are rejected.
func NewService(store storage.Provider, db index.NotebookIndex, notary trust.Notary, exec kernel.Executor, historyLimit int) *Service {
	return &Service{
		store:        store,
		db:           db,
		notary:       notary,
		exec:         exec,
		historyLimit: historyLimit,
		open:         make(map[string]*notebook.Notebook),
	}
}

// List returns paginated notebooks with optional kernel filter.
func (s *Service) List(_ context.Context, limit, offset int, kernelName, sort string) ([]NotebookListItem, int, error) {
	rows, total, err := s.db.ListNotebooks(limit, offset, kernelName, sort)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NotebookListItem, len(rows))
	for i, r := range rows {
		items[i] = NotebookListItem{
			Path:      r.Path,
			Title:     r.Title,
			Kernel:    r.Kernel,
			CellCount: r.CellCount,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Get opens (or reuses an already open) notebook and returns its detail.
func (s *Service) Get(_ context.Context, path string) (*NotebookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.openLocked(path)
	if err != nil {
		return nil, err
	}
	return s.detailLocked(path, nb)
}

// Create writes a new notebook document and indexes it. A nil snapshot
// creates an empty notebook.
func (s *Service) Create(_ context.Context, path string, snap *models.NotebookSnapshot) (*NotebookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	nb := notebook.New(s.notary, s.historyLimit)
	if snap != nil {
		if err := nb.Restore(*snap); err != nil {
			nb.Dispose()
			return nil, err
		}
	}
	if _, err := s.saveLocked(path, nb); err != nil {
		nb.Dispose()
		return nil, err
	}
	s.open[path] = nb
	s.notify("created", path)
	return s.detailLocked(path, nb)
}

// Replace overwrites a notebook's full contents with optimistic
// concurrency: a non-empty ifMatch must equal the checksum of the
// current on-disk document. The undo history is cleared.
func (s *Service) Replace(_ context.Context, path string, snap models.NotebookSnapshot, ifMatch string) (*NotebookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}

	nb, err := s.openLocked(path)
	if err != nil {
		return nil, err
	}
	if err := nb.Restore(snap); err != nil {
		return nil, err
	}
	if _, err := s.saveLocked(path, nb); err != nil {
		return nil, err
	}
	s.notify("updated", path)
	s.notifyCells(path)
	return s.detailLocked(path, nb)
}

// Delete removes a notebook from storage and index, disposing the open
// model if any.
func (s *Service) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	if nb, ok := s.open[path]; ok {
		nb.Dispose()
		delete(s.open, path)
	}
	if err := s.db.DeleteNotebook(path); err != nil {
		return err
	}
	s.notify("deleted", path)
	return nil
}

// Edit applies ops to a notebook. Multiple ops form one undo unit; a
// failure in any op rolls the whole batch back and persists nothing.
func (s *Service) Edit(_ context.Context, path string, ops []EditOp) (*NotebookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.openLocked(path)
	if err != nil {
		return nil, err
	}

	switch len(ops) {
	case 0:
		return s.detailLocked(path, nb)
	case 1:
		if err := applyOp(nb, ops[0]); err != nil {
			return nil, err
		}
	default:
		err := nb.Compound(func() error {
			for _, op := range ops {
				if err := applyOp(nb, op); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.saveLocked(path, nb); err != nil {
		return nil, err
	}
	s.notify("updated", path)
	s.notifyCells(path)
	return s.detailLocked(path, nb)
}

// Undo reverts the most recent edit on an open notebook.
func (s *Service) Undo(_ context.Context, path string) (*NotebookDetail, error) {
	return s.history(path, (*notebook.Notebook).Undo)
}

// Redo reapplies the most recently undone edit on an open notebook.
func (s *Service) Redo(_ context.Context, path string) (*NotebookDetail, error) {
	return s.history(path, (*notebook.Notebook).Redo)
}

func (s *Service) history(path string, step func(*notebook.Notebook) error) (*NotebookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.openLocked(path)
	if err != nil {
		return nil, err
	}
	if err := step(nb); err != nil {
		return nil, err
	}
	if _, err := s.saveLocked(path, nb); err != nil {
		return nil, err
	}
	s.notify("updated", path)
	s.notifyCells(path)
	return s.detailLocked(path, nb)
}

// SignAll marks every cell of a notebook trusted and persists the
// signatures.
func (s *Service) SignAll(_ context.Context, path string) (*NotebookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nb, err := s.openLocked(path)
	if err != nil {
		return nil, err
	}
	nb.SignAll()
	if _, err := s.saveLocked(path, nb); err != nil {
		return nil, err
	}
	s.notify("updated", path)
	return s.detailLocked(path, nb)
}

// Run executes the code cell at index i and persists its outputs.
// Locally produced outputs are signed as trusted.
func (s *Service) Run(ctx context.Context, path string, i int) (*NotebookDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.exec == nil {
		return nil, fmt.Errorf("notebookservice: no kernel configured: %w", apperr.ErrInvalidOperation)
	}
	nb, err := s.openLocked(path)
	if err != nil {
		return nil, err
	}
	if err := nb.Run(ctx, i, s.exec); err != nil {
		return nil, err
	}
	if err := nb.SignCell(i); err != nil {
		return nil, err
	}
	if _, err := s.saveLocked(path, nb); err != nil {
		return nil, err
	}
	s.notify("updated", path)
	s.notifyCells(path)
	return s.detailLocked(path, nb)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// IndexDocument extracts fields from data and upserts them into the
// index. Exported so sync and watcher paths can reuse it.
func (s *Service) IndexDocument(path string, data []byte) error {
	ex, err := index.Extract(path, data)
	if err != nil {
		return err
	}
	return s.db.UpsertNotebook(index.NotebookRow{
		Path:      path,
		Title:     ex.Title,
		Kernel:    ex.Kernel,
		CellCount: ex.CellCount,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now().UTC(),
	}, ex.Body)
}

// Close disposes every open notebook.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path, nb := range s.open {
		nb.Dispose()
		delete(s.open, path)
	}
}

// openLocked returns the open model for path, loading it from disk on
// first access. Caller holds s.mu.
func (s *Service) openLocked(path string) (*notebook.Notebook, error) {
	if nb, ok := s.open[path]; ok {
		return nb, nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	snap, err := notebook.Decode(data)
	if err != nil {
		return nil, err
	}
	nb := notebook.New(s.notary, s.historyLimit)
	if err := nb.Restore(snap); err != nil {
		nb.Dispose()
		return nil, err
	}
	s.open[path] = nb
	return nb, nil
}

// saveLocked encodes, writes, and indexes the notebook. Caller holds s.mu.
func (s *Service) saveLocked(path string, nb *notebook.Notebook) (string, error) {
	data, err := notebook.Encode(nb.Snapshot())
	if err != nil {
		return "", err
	}
	if err := s.store.Write(path, data); err != nil {
		return "", err
	}
	if err := s.IndexDocument(path, data); err != nil {
		return "", err
	}
	return checksum.Sum(data), nil
}

// detailLocked builds a NotebookDetail from the open model. Caller holds s.mu.
func (s *Service) detailLocked(path string, nb *notebook.Notebook) (*NotebookDetail, error) {
	data, err := notebook.Encode(nb.Snapshot())
	if err != nil {
		return nil, err
	}
	d := &NotebookDetail{
		Path:     path,
		Metadata: nb.Metadata(),
		Cells:    make([]CellView, 0, nb.CellCount()),
		Checksum: checksum.Sum(data),
		CanUndo:  nb.CanUndo(),
		CanRedo:  nb.CanRedo(),
	}
	for i := 0; i < nb.CellCount(); i++ {
		c, err := nb.Cell(i)
		if err != nil {
			return nil, err
		}
		trusted, err := nb.IsTrusted(i)
		if err != nil {
			return nil, err
		}
		d.Cells = append(d.Cells, CellView{CellSnapshot: c.Snapshot(), Trusted: trusted})
	}
	return d, nil
}

func (s *Service) notify(kind, path string) {
	if s.OnChange != nil {
		s.OnChange(kind, path)
	}
}

func (s *Service) notifyCells(path string) {
	if s.OnCellsChanged != nil {
		s.OnCellsChanged(path)
	}
}

func applyOp(nb *notebook.Notebook, op EditOp) error {
	count := op.Count
	if count == 0 {
		count = 1
	}
	switch op.Op {
	case "insert":
		return nb.InsertCell(op.Index, cell.Kind(op.Kind), op.Source)
	case "remove":
		return nb.RemoveCells(op.Index, count)
	case "move":
		return nb.MoveCells(op.Index, op.To, count)
	case "set_source":
		return nb.SetCellSource(op.Index, op.Source)
	case "convert":
		return nb.ConvertCell(op.Index, cell.Kind(op.Kind))
	case "set_metadata":
		return nb.SetMetadata(op.Key, op.Value)
	case "delete_metadata":
		return nb.DeleteMetadata(op.Key)
	default:
		return fmt.Errorf("notebookservice: unknown op %q: %w", op.Op, apperr.ErrInvalidOperation)
	}
}
