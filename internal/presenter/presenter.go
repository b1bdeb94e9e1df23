// Package presenter tracks whether the status surface is shown or tucked
// away in the tray, and raises balloon notifications.
package presenter

import (
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Visibility of the status surface
type Visibility int

const (
	Hidden Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "visible"
	}
	return "hidden"
}

// TrayPresence shows or hides the tray entry
type TrayPresence interface {
	SetPresence(visible bool)
}

// Balloon shows a short desktop notification
type Balloon interface {
	Show(title, message string) error
}

// BeeepBalloon sends balloons through the desktop notification service
type BeeepBalloon struct {
	IconPath string
}

func (b BeeepBalloon) Show(title, message string) error {
	return beeep.Notify(title, message, b.IconPath)
}

// Presenter owns the surface visibility. The tray entry is present exactly
// when the surface is hidden.
type Presenter struct {
	mu         sync.Mutex
	visibility Visibility
	tray       TrayPresence
	balloon    Balloon
	title      string
	message    string
	log        zerolog.Logger
}

// New creates a presenter with the surface hidden. tray and balloon may be nil.
func New(tray TrayPresence, balloon Balloon, title, message string, logger zerolog.Logger) *Presenter {
	return &Presenter{
		visibility: Hidden,
		tray:       tray,
		balloon:    balloon,
		title:      title,
		message:    message,
		log:        logger,
	}
}

// Start puts the application in the background: surface hidden, tray
// present, and a balloon announcing it.
func (p *Presenter) Start() {
	p.Minimize()
}

// RestoreToNormal shows the surface and removes the tray entry
func (p *Presenter) RestoreToNormal() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.visibility = Visible
	p.syncTray()
}

// Minimize hides the surface, shows the tray entry and a balloon. The
// balloon is shown after the lock is released.
func (p *Presenter) Minimize() {
	p.mu.Lock()
	p.visibility = Hidden
	p.syncTray()
	balloon, title, message := p.balloon, p.title, p.message
	p.mu.Unlock()

	if balloon == nil {
		return
	}
	if err := balloon.Show(title, message); err != nil {
		p.log.Debug().Err(err).Msg("Balloon notification failed")
	}
}

// CurrentVisibility returns whether the surface is shown
func (p *Presenter) CurrentVisibility() Visibility {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visibility
}

// TrayVisible reports whether the tray entry should be present
func (p *Presenter) TrayVisible() bool {
	return p.CurrentVisibility() == Hidden
}

func (p *Presenter) syncTray() {
	if p.tray != nil {
		p.tray.SetPresence(p.visibility == Hidden)
	}
}
