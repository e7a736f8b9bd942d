// Package tray provides a system tray interface for pausing and monitoring retargeting.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle     func(running bool)
	onOpenStatus func()
	onQuit       func()
	running      bool
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuMode   *systray.MenuItem
	menuFrames *systray.MenuItem
	mode       string
	frames     int
}

// New creates a new Tray instance with retargeting running by default.
func New() *Tray {
	return &Tray{
		running: true,
		mode:    "unknown",
	}
}

// OnToggle sets the callback invoked when retargeting is paused or resumed.
func (t *Tray) OnToggle(fn func(running bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenStatus sets the callback invoked when the status menu item is clicked.
func (t *Tray) OnOpenStatus(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenStatus = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func toggleTitle(running bool) string {
	if running {
		return "● Retargeting"
	}
	return "○ Paused"
}

func modeTitle(mode string) string {
	return "Mode: " + mode
}

func framesTitle(n int) string {
	return fmt.Sprintf("Frames: %d", n)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Abhinaya")
	systray.SetTooltip("Abhinaya Face Retargeting")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.running), "Pause or resume retargeting")
	systray.AddSeparator()

	t.menuMode = systray.AddMenuItem(modeTitle(t.mode), "Expression mapping mode")
	t.menuMode.Disable()
	t.menuFrames = systray.AddMenuItem(framesTitle(t.frames), "Frames processed")
	t.menuFrames.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuStatus := systray.AddMenuItem("Open Status...", "Open status in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Abhinaya")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuStatus.ClickedCh:
				t.handleOpenStatus()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleToggle flips the running state and notifies the callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.running = !t.running
	running := t.running

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(running))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(running)
	}
}

// handleOpenStatus handles the status menu item click.
func (t *Tray) handleOpenStatus() {
	t.mu.RLock()
	callback := t.onOpenStatus
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetMode updates the mapping mode display.
func (t *Tray) SetMode(mode string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
	if t.menuMode != nil {
		t.menuMode.SetTitle(modeTitle(mode))
	}
}

// SetFrames updates the processed frame count display.
func (t *Tray) SetFrames(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = n
	if t.menuFrames != nil {
		t.menuFrames.SetTitle(framesTitle(n))
	}
}

// IsRunning returns whether retargeting is running.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}
