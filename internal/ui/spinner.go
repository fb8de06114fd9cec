package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

// Braille scan pattern
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

const spinnerTick = 80 * time.Millisecond

// Spinner displays an animated status line on a terminal, e.g. while
// `sgpu snapshot` waits for scontrol.
type Spinner struct {
	mu        sync.Mutex
	w         io.Writer
	label     string
	state     SpinnerState
	frame     int
	startTime time.Time
	stopChan  chan struct{}
	doneChan  chan struct{}
	running   bool
	lastWidth int
}

// NewSpinner creates a spinner that draws label to w.
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{w: w, label: label}
}

// Start begins the animation. Calling Start twice is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.mu.Unlock()

	s.render()
	go s.animate()
}

// Stop halts the animation and clears the line without changing state.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.doneChan

	s.mu.Lock()
	s.clear()
	s.mu.Unlock()
}

// Success stops the spinner and prints a final line with detail appended.
func (s *Spinner) Success(detail string) {
	s.finish(SpinnerSuccess, detail)
}

// Fail stops the spinner and prints a final failure line.
func (s *Spinner) Fail(detail string) {
	s.finish(SpinnerFailed, detail)
}

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Spinner) finish(state SpinnerState, detail string) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state

	line := s.label
	if detail != "" {
		line += " " + Muted(detail)
	}
	if state == SpinnerSuccess {
		line = Success(line)
	} else {
		line = Failure(line)
	}
	fmt.Fprintln(s.w, line)
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.mu.Unlock()
			s.render()
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbol := lipgloss.NewStyle().Foreground(ColorSecondary).Render(spinnerFrames[s.frame])
	line := fmt.Sprintf("%s %s...", symbol, s.label)

	s.clear()
	fmt.Fprint(s.w, line)
	s.lastWidth = runewidth.StringWidth(s.label) + 5
}

// clear blanks the last drawn line. Callers hold s.mu.
func (s *Spinner) clear() {
	if s.lastWidth == 0 {
		return
	}
	fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.lastWidth)+"\r")
	s.lastWidth = 0
}
