package trust

import (
	"encoding/json"
	"log/slog"

	"github.com/starford/laguz/internal/cell"
	"github.com/starford/laguz/internal/checksum"
)

// Digest computes the canonical content digest a cell's trust tag is
// signed over: kind, source, and outputs. Execution counts and cached
// session state are excluded so reloads do not invalidate trust.
func Digest(c *cell.Cell) []byte {
	payload := struct {
		Kind    string `json:"kind"`
		Source  string `json:"source"`
		Outputs any    `json:"outputs,omitempty"`
	}{
		Kind:   string(c.Kind()),
		Source: c.Source(),
	}
	if outs := c.Outputs(); len(outs) > 0 {
		payload.Outputs = outs
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		// Marshal of plain structs cannot fail; keep the gate closed anyway.
		return nil
	}
	return []byte(checksum.Sum(raw))
}

type cacheEntry struct {
	revision uint64
	trusted  bool
}

// Evaluator caches the trust classification per cell. A cell is trusted
// iff its stored signature tag verifies against the current content
// digest; any content change invalidates the cached answer.
type Evaluator struct {
	notary Notary
	cache  map[*cell.Cell]cacheEntry
}

// NewEvaluator creates an evaluator backed by the given notary.
func NewEvaluator(n Notary) *Evaluator {
	return &Evaluator{notary: n, cache: make(map[*cell.Cell]cacheEntry)}
}

// IsTrusted reports whether the cell's outputs may be rendered as rich
// content. Recomputation is lazy: the signature is only re-verified on
// the first read after a content change.
func (e *Evaluator) IsTrusted(c *cell.Cell) bool {
	rev := c.Revision()
	if entry, ok := e.cache[c]; ok && entry.revision == rev {
		return entry.trusted
	}

	trusted := false
	if tag := c.Signature(); tag != "" {
		trusted = e.notary.Verify(Digest(c), tag)
		if !trusted {
			// Verification failure is data, not an error: fail closed.
			slog.Debug("trust: signature did not verify", slog.String("kind", string(c.Kind())))
		}
	}
	e.cache[c] = cacheEntry{revision: rev, trusted: trusted}
	return trusted
}

// Mark signs the cell's current content and stores the tag, making the
// cell trusted until its content next changes. This is the explicit
// re-sign path, distinct from the IsTrusted read path.
func (e *Evaluator) Mark(c *cell.Cell) {
	c.SetSignature(e.notary.Sign(Digest(c)))
	e.cache[c] = cacheEntry{revision: c.Revision(), trusted: true}
}

// Forget drops cached state for a cell that left the document.
func (e *Evaluator) Forget(c *cell.Cell) {
	delete(e.cache, c)
}
