// Package viewer is the mode manager of the stereoscopic viewer: it knows
// which mode is active, whether the UI overlay is shown, which stereo image
// is on screen, and which targets the gaze controller may interact with.
package viewer

import (
	"fmt"

	"github.com/zeusync/stereoview/internal/core/gaze"
	"github.com/zeusync/stereoview/internal/core/observability/log"
)

// Config seeds a Manager.
type Config struct {
	Images    []string
	StartMode Mode
	Layout    []TargetSpec
}

// State is a snapshot of the manager for the page.
type State struct {
	Mode           Mode   `json:"mode"`
	VR             bool   `json:"vr"`
	UIVisible      bool   `json:"ui_visible"`
	PointerVisible bool   `json:"pointer_visible"`
	Image          string `json:"image,omitempty"`
	ImageIndex     int    `json:"image_index"`
	ImageCount     int    `json:"image_count"`
	Revision       uint64 `json:"revision"`
}

// Manager is not safe for concurrent use; the session actor owns it.
type Manager struct {
	logger log.Log

	mode      Mode
	vr        bool
	uiVisible bool

	// pointerVisible follows ToggleVR, ShowUI and HideUI only; SetMode
	// leaves it alone.
	pointerVisible bool

	images []string
	index  int

	layout   []TargetSpec
	revision uint64
}

func NewManager(cfg Config, logger log.Log) (*Manager, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	start := cfg.StartMode
	if start == "" {
		start = ModeStart
	}
	if _, err := ParseMode(string(start)); err != nil {
		return nil, err
	}
	layout := cfg.Layout
	if len(layout) == 0 {
		layout = DefaultLayout()
	}
	m := &Manager{
		logger:    logger.With(log.String("component", "viewer")),
		mode:      start,
		uiVisible: true,
		images:    append([]string(nil), cfg.Images...),
	}
	if err := m.SetLayout(layout); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) Mode() Mode      { return m.mode }
func (m *Manager) VR() bool        { return m.vr }
func (m *Manager) UIVisible() bool { return m.uiVisible }

// Revision increases on every change that can affect Targets or State.
func (m *Manager) Revision() uint64 { return m.revision }

// SetMode switches mode and brings the UI back.
func (m *Manager) SetMode(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	m.logger.Info("Switching mode", log.String("mode", string(mode)))
	m.mode = mode
	m.uiVisible = true
	m.bump()
	return nil
}

// ToggleVR enters or leaves stereo-split VR. Entering hides the UI and
// shows the gaze pointer; leaving does the reverse.
func (m *Manager) ToggleVR() bool {
	m.vr = !m.vr
	m.uiVisible = !m.vr
	m.pointerVisible = m.vr
	m.logger.Info("VR mode toggled", log.Bool("vr", m.vr))
	m.bump()
	return m.vr
}

// ShowUI brings the overlay back and hides the gaze pointer, also in VR.
func (m *Manager) ShowUI() {
	if m.uiVisible && !m.pointerVisible {
		return
	}
	m.uiVisible = true
	m.pointerVisible = false
	m.bump()
}

// HideUI hides the overlay. The gaze pointer shows only in VR.
func (m *Manager) HideUI() {
	if !m.uiVisible && m.pointerVisible == m.vr {
		return
	}
	m.uiVisible = false
	m.pointerVisible = m.vr
	m.bump()
}

// CurrentImage returns the path of the shown stereo image.
func (m *Manager) CurrentImage() (string, error) {
	if len(m.images) == 0 {
		return "", ErrNoImages
	}
	return m.images[m.index], nil
}

// NextImage advances cyclically.
func (m *Manager) NextImage() (string, error) {
	return m.step(1)
}

// PrevImage goes back cyclically.
func (m *Manager) PrevImage() (string, error) {
	return m.step(-1)
}

func (m *Manager) step(delta int) (string, error) {
	n := len(m.images)
	if n == 0 {
		return "", ErrNoImages
	}
	m.index = ((m.index+delta)%n + n) % n
	m.bump()
	m.logger.Debug("Loading image",
		log.String("image", m.images[m.index]),
		log.Int("index", m.index))
	return m.images[m.index], nil
}

// SetLayout replaces the target layout. Nothing changes if any spec is invalid.
func (m *Manager) SetLayout(specs []TargetSpec) error {
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate target %q", ErrInvalidLayout, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	m.layout = append([]TargetSpec(nil), specs...)
	m.bump()
	return nil
}

// Layout returns a copy of the current layout.
func (m *Manager) Layout() []TargetSpec {
	return append([]TargetSpec(nil), m.layout...)
}

// Targets returns the interactive targets for the current mode in layout
// order. It is empty, never nil, while the UI is hidden.
func (m *Manager) Targets() []gaze.Target {
	out := make([]gaze.Target, 0, len(m.layout))
	if !m.uiVisible {
		return out
	}
	for _, s := range m.layout {
		if !s.activeIn(m.mode) {
			continue
		}
		out = append(out, gaze.Target{ID: gaze.TargetID(s.ID), Region: s.Region()})
	}
	return out
}

// Activate runs the action bound to a target.
func (m *Manager) Activate(id gaze.TargetID) error {
	spec, ok := m.spec(string(id))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTarget, id)
	}
	if !spec.activeIn(m.mode) {
		return fmt.Errorf("%w: %q is not active in mode %s", ErrUnknownTarget, id, m.mode)
	}
	return m.Perform(spec.action())
}

// Perform runs a built-in action by name.
func (m *Manager) Perform(action string) error {
	switch action {
	case TargetModeImages:
		return m.SetMode(ModeImages)
	case TargetModeVRWorld:
		return m.SetMode(ModeVRWorld)
	case TargetPrevImage:
		_, err := m.PrevImage()
		return err
	case TargetNextImage:
		_, err := m.NextImage()
		return err
	case TargetToggleVR:
		m.ToggleVR()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (m *Manager) Snapshot() State {
	st := State{
		Mode:           m.mode,
		VR:             m.vr,
		UIVisible:      m.uiVisible,
		PointerVisible: m.pointerVisible,
		ImageIndex:     m.index,
		ImageCount:     len(m.images),
		Revision:       m.revision,
	}
	if len(m.images) > 0 {
		st.Image = m.images[m.index]
	}
	return st
}

func (m *Manager) spec(id string) (TargetSpec, bool) {
	for _, s := range m.layout {
		if s.ID == id {
			return s, true
		}
	}
	return TargetSpec{}, false
}

func (m *Manager) bump() { m.revision++ }
