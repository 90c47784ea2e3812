package poster

import "github.com/FACorreiaa/go-map-poster/internal/types"

// Kind names the presenter state.
type Kind string

const (
	KindEmpty   Kind = "empty"
	KindLoading Kind = "loading"
	KindReady   Kind = "ready"
	KindError   Kind = "error"
)

// State is the result presenter's state. Exactly one of Empty, Loading,
// Ready or Failed.
type State interface {
	Kind() Kind
	// Displayed is the image the page shows in this state, if any.
	Displayed() *types.Image
	isState()
}

// Empty means no request has been made yet.
type Empty struct{}

// Loading means a generation request is in flight. Previous is the image
// kept on screen while a print rendering is computed; it is nil for previews.
type Loading struct {
	Quality  types.Quality
	Previous *types.Image
}

// Ready holds the latest result.
type Ready struct {
	Image types.Image
}

// Failed holds the user-facing message of the last failed generation.
// Previous survives a failed print follow-up.
type Failed struct {
	Message  string
	Previous *types.Image
}

func (Empty) Kind() Kind   { return KindEmpty }
func (Loading) Kind() Kind { return KindLoading }
func (Ready) Kind() Kind   { return KindReady }
func (Failed) Kind() Kind  { return KindError }

func (Empty) Displayed() *types.Image     { return nil }
func (s Loading) Displayed() *types.Image { return s.Previous }
func (s Ready) Displayed() *types.Image   { img := s.Image; return &img }
func (s Failed) Displayed() *types.Image  { return s.Previous }

func (Empty) isState()   {}
func (Loading) isState() {}
func (Ready) isState()   {}
func (Failed) isState()  {}

// Snapshot is a render-ready copy of a session.
type Snapshot struct {
	SessionID string       `json:"session_id"`
	State     Kind         `json:"state"`
	City      string       `json:"city"`
	Country   string       `json:"country"`
	Theme     string       `json:"theme"`
	Themes    []string     `json:"themes"`
	Busy      bool         `json:"busy"`
	Quality   string       `json:"quality,omitempty"`
	Image     *types.Image `json:"image,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// CanAct reports whether the download and high-res actions are available.
func (s Snapshot) CanAct() bool {
	return s.Image != nil && !s.Busy
}
