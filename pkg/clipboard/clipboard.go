// Package clipboard defines the Gateway interface over the system clipboard
// and the Snapshot value sotto's pipelines consume.
//
// The clipboard is a process-wide, externally owned resource. sotto reads it
// at most once per clipboard-consuming mode entry and never mutates a taken
// Snapshot; writes happen only during result delivery.
package clipboard

// Kind discriminates the content of a Snapshot.
type Kind string

const (
	// KindEmpty means the clipboard held nothing usable.
	KindEmpty Kind = "empty"

	// KindText means the clipboard held plain text.
	KindText Kind = "text"

	// KindImage means the clipboard held raster image data.
	KindImage Kind = "image"
)

// Snapshot is an immutable copy of the clipboard contents at capture time.
type Snapshot struct {
	// Kind says which of the payload fields is populated.
	Kind Kind

	// Text is the clipboard text. Set only when Kind is KindText.
	Text string

	// Image is the encoded image bytes (PNG on most platforms). Set only when
	// Kind is KindImage.
	Image []byte
}

// IsEmpty reports whether the snapshot carries no content.
func (s Snapshot) IsEmpty() bool {
	return s.Kind == KindEmpty || s.Kind == ""
}

// Gateway is the abstraction over the system clipboard.
type Gateway interface {
	// Snapshot captures the current clipboard contents. Implementations that
	// cannot read a given format report what they can; a clipboard holding
	// only unsupported content yields an empty Snapshot.
	Snapshot() Snapshot

	// WriteText replaces the clipboard contents with text.
	WriteText(text string) error
}
