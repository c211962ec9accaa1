// Package scroll couples timeline mutations to viewport anchoring.
//
// Offsets are in rendered lines from the top of the content. A prepend keeps
// the previously topmost line topmost by shifting the offset by the height
// delta; an append while pinned to the bottom follows the new bottom.
package scroll

import "github.com/tOgg1/matchchat/internal/timeline"

// Reconciler tracks one line-addressed viewport.
type Reconciler struct {
	offset  int
	height  int
	content int

	pending    timeline.MutationKind
	prevHeight int
	wasBottom  bool
	armed      bool
}

// New returns a reconciler for a viewport of height lines.
func New(height int) *Reconciler {
	r := &Reconciler{}
	r.SetHeight(height)
	return r
}

// Reset forgets content and offset, e.g. on peer switch.
func (r *Reconciler) Reset() {
	r.offset = 0
	r.content = 0
	r.armed = false
	r.pending = timeline.MutationNone
}

// SetHeight resizes the viewport. A viewport pinned to the bottom stays pinned.
func (r *Reconciler) SetHeight(height int) {
	if height < 1 {
		height = 1
	}
	bottom := r.AtBottom()
	r.height = height
	if bottom {
		r.offset = r.maxOffset()
	}
	r.clamp()
}

// BeforeMutation records content height and bottom state ahead of a mutation.
func (r *Reconciler) BeforeMutation(kind timeline.MutationKind) {
	r.pending = kind
	r.prevHeight = r.content
	r.wasBottom = r.AtBottom()
	r.armed = true
}

// AfterRender applies the anchoring policy for the recorded mutation once the
// new content height is known.
func (r *Reconciler) AfterRender(contentHeight int) {
	if contentHeight < 0 {
		contentHeight = 0
	}
	if !r.armed {
		r.BeforeMutation(timeline.MutationNone)
	}
	delta := contentHeight - r.prevHeight
	r.content = contentHeight

	switch r.pending {
	case timeline.MutationPrepend:
		r.offset += delta
	default:
		if r.wasBottom {
			r.offset = r.maxOffset()
		}
	}
	r.clamp()

	r.armed = false
	r.pending = timeline.MutationNone
}

// Apply is BeforeMutation followed by AfterRender.
func (r *Reconciler) Apply(kind timeline.MutationKind, contentHeight int) {
	r.BeforeMutation(kind)
	r.AfterRender(contentHeight)
}

// ScrollBy moves the viewport by delta lines (negative is up).
func (r *Reconciler) ScrollBy(delta int) {
	r.offset += delta
	r.clamp()
}

// ScrollToTop moves to the first line.
func (r *Reconciler) ScrollToTop() {
	r.offset = 0
}

// ScrollToBottom pins the viewport to the last line.
func (r *Reconciler) ScrollToBottom() {
	r.offset = r.maxOffset()
}

// AtBottom reports whether the last line is visible.
func (r *Reconciler) AtBottom() bool {
	return r.offset >= r.maxOffset()
}

// Offset returns the first visible line.
func (r *Reconciler) Offset() int { return r.offset }

// Height returns the viewport height.
func (r *Reconciler) Height() int { return r.height }

// ContentHeight returns the last rendered content height.
func (r *Reconciler) ContentHeight() int { return r.content }

// ShouldLoadMore reports whether the viewport is within threshold lines of the
// top while more pages exist and nothing is in flight.
func (r *Reconciler) ShouldLoadMore(threshold int, hasMore, inFlight bool) bool {
	return hasMore && !inFlight && r.offset <= threshold
}

func (r *Reconciler) maxOffset() int {
	if r.content <= r.height {
		return 0
	}
	return r.content - r.height
}

func (r *Reconciler) clamp() {
	if r.offset > r.maxOffset() {
		r.offset = r.maxOffset()
	}
	if r.offset < 0 {
		r.offset = 0
	}
}
