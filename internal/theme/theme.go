// Package theme keeps the light/dark preference and resolves "system" to
// the terminal's background.
package theme

import (
	"fmt"
	"sync"

	"github.com/muesli/termenv"

	"github.com/RamanBirulia/stock-notebook/internal/localstore"
)

type Mode string

const (
	Light  Mode = "light"
	Dark   Mode = "dark"
	System Mode = "system"
)

// ParseMode returns System for anything it does not recognise.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case Light, Dark, System:
		return Mode(s)
	}
	return System
}

func (m Mode) Valid() bool {
	return m == Light || m == Dark || m == System
}

// Detector reports the environment's preference.
type Detector interface {
	PrefersDark() bool
}

// TerminalDetector asks the terminal for its background colour.
type TerminalDetector struct{}

func (TerminalDetector) PrefersDark() bool {
	return termenv.HasDarkBackground()
}

type Manager struct {
	store    localstore.Store
	detector Detector

	mu         sync.Mutex
	mode       Mode
	systemDark bool
	subs       map[int]func(dark bool)
	nextID     int
}

// New loads the stored mode and samples the detector once.
func New(store localstore.Store, detector Detector) (*Manager, error) {
	if detector == nil {
		detector = TerminalDetector{}
	}
	m := &Manager{
		store:      store,
		detector:   detector,
		mode:       System,
		systemDark: detector.PrefersDark(),
		subs:       make(map[int]func(bool)),
	}
	raw, ok, err := store.Get(localstore.KeyTheme)
	if err != nil {
		return m, fmt.Errorf("read theme: %w", err)
	}
	if ok {
		m.mode = ParseMode(raw)
	}
	return m, nil
}

func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Dark reports the resolved darkness for the current mode.
func (m *Manager) Dark() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolved()
}

// Style is the glamour standard style name for the resolved theme.
func (m *Manager) Style() string {
	if m.Dark() {
		return "dark"
	}
	return "light"
}

func (m *Manager) Set(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown theme %q", mode)
	}
	return m.update(func() { m.mode = mode }, true)
}

// Toggle flips between light and dark based on what is currently shown.
func (m *Manager) Toggle() error {
	next := Dark
	if m.Dark() {
		next = Light
	}
	return m.Set(next)
}

func (m *Manager) Reset() error {
	return m.Set(System)
}

// UpdateSystemPreference records a change in the environment's
// preference. It only matters while the mode is System.
func (m *Manager) UpdateSystemPreference(dark bool) {
	_ = m.update(func() { m.systemDark = dark }, false)
}

// Refresh samples the detector again.
func (m *Manager) Refresh() {
	m.UpdateSystemPreference(m.detector.PrefersDark())
}

func (m *Manager) Subscribe(fn func(dark bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Manager) resolved() bool {
	switch m.mode {
	case Dark:
		return true
	case Light:
		return false
	}
	return m.systemDark
}

func (m *Manager) update(apply func(), persist bool) error {
	m.mu.Lock()
	before := m.resolved()
	apply()
	after := m.resolved()
	mode := m.mode
	var subs []func(bool)
	if before != after {
		for _, fn := range m.subs {
			subs = append(subs, fn)
		}
	}
	m.mu.Unlock()

	var err error
	if persist {
		if err = m.store.Set(localstore.KeyTheme, string(mode)); err != nil {
			err = fmt.Errorf("persist theme: %w", err)
		}
	}
	for _, fn := range subs {
		fn(after)
	}
	return err
}
