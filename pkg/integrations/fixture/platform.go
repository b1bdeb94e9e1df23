// Package fixture implements window.Platform over a YAML description of a
// desktop session. Editing the file while subscribed simulates a foreground
// change.
package fixture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/iconwatch/iconwatch/pkg/automation"
	"github.com/iconwatch/iconwatch/pkg/window"
)

// BackendName identifies the fixture backend
const BackendName = "fixture"

const debounceDelay = 50 * time.Millisecond

// ErrAlreadySubscribed is returned by a second Subscribe on the same hook
var ErrAlreadySubscribed = errors.New("fixture hook already has a subscriber")

// Document is the on-disk shape of a fixture file:
//
//	foreground: Program Manager
//	tree:
//	  name: Desktop 1
//	  children:
//	    - name: Program Manager
//	      children:
//	        - name: Desktop
//	          children:
//	            - name: Recycle Bin
type Document struct {
	Foreground  string           `yaml:"foreground"`
	Unavailable string           `yaml:"unavailable,omitempty"` // non-empty makes the tree root fail with this message
	Tree        *automation.Node `yaml:"tree"`
}

// ParseDocument decodes a fixture document
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return doc, nil
}

// Platform serves foreground and tree queries from the current document
type Platform struct {
	path string
	log  zerolog.Logger

	mu  sync.RWMutex
	doc Document

	hook *hook
}

// New loads the fixture at path. The hook watches the file for changes.
func New(path string, logger zerolog.Logger) (*Platform, error) {
	p := &Platform{path: path, log: logger}
	if err := p.reload(); err != nil {
		return nil, err
	}
	p.hook = &hook{platform: p}
	return p, nil
}

// NewInMemory creates a platform that is driven through Apply only
func NewInMemory(doc Document) *Platform {
	p := &Platform{doc: doc, log: zerolog.Nop()}
	p.hook = &hook{platform: p}
	return p
}

func (p *Platform) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return nil
}

// Apply replaces the document and notifies the subscriber, as if the
// foreground window had changed
func (p *Platform) Apply(doc Document) {
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	p.hook.fire()
}

// Document returns the current document
func (p *Platform) Document() Document {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc
}

func (p *Platform) ForegroundWindow() (window.Handle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.Foreground == "" {
		return window.NoHandle, nil
	}
	return window.Handle(1), nil
}

func (p *Platform) WindowText(h window.Handle, maxChars int) (string, error) {
	if h == window.NoHandle {
		return "", nil
	}
	p.mu.RLock()
	title := p.doc.Foreground
	p.mu.RUnlock()

	r := []rune(title)
	if maxChars >= 0 && len(r) > maxChars {
		return string(r[:maxChars]), nil
	}
	return title, nil
}

func (p *Platform) Hook() window.Hook {
	return p.hook
}

func (p *Platform) Tree() automation.Tree {
	return tree{p}
}

func (p *Platform) Name() string {
	return BackendName
}

func (p *Platform) Close() error {
	return p.hook.Close()
}

type tree struct {
	p *Platform
}

func (t tree) Root() (automation.Element, error) {
	t.p.mu.RLock()
	defer t.p.mu.RUnlock()
	if t.p.doc.Unavailable != "" {
		return nil, errors.New(t.p.doc.Unavailable)
	}
	if t.p.doc.Tree == nil {
		return nil, automation.ErrElementNotFound
	}
	return t.p.doc.Tree, nil
}

type hook struct {
	platform *Platform

	mu      sync.Mutex
	handler func()
	watcher *fsnotify.Watcher
	timer   *time.Timer
	done    chan struct{}
	wg      sync.WaitGroup
	closed  bool
}

func (h *hook) Subscribe(handler func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return errors.New("fixture hook closed")
	}
	if h.handler != nil {
		return ErrAlreadySubscribed
	}

	if h.platform.path != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create fixture watcher: %w", err)
		}
		// Watch the directory so editors that replace the file are seen
		if err := watcher.Add(filepath.Dir(h.platform.path)); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch fixture: %w", err)
		}
		h.watcher = watcher
		h.done = make(chan struct{})
		h.wg.Add(1)
		go h.processEvents()
	}

	h.handler = handler
	return nil
}

func (h *hook) processEvents() {
	defer h.wg.Done()
	target := filepath.Clean(h.platform.path)
	for {
		select {
		case <-h.done:
			return
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			h.debounce()
		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.platform.log.Warn().Err(err).Msg("Fixture watcher error")
		}
	}
}

func (h *hook) debounce() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if h.timer != nil {
		h.timer.Stop()
	}
	h.timer = time.AfterFunc(debounceDelay, h.reloadAndFire)
}

func (h *hook) reloadAndFire() {
	if err := h.platform.reload(); err != nil {
		// Keep the previous document; the next write retries
		h.platform.log.Warn().Err(err).Str("path", h.platform.path).Msg("Fixture reload failed")
		return
	}
	h.fire()
}

func (h *hook) fire() {
	h.mu.Lock()
	handler := h.handler
	closed := h.closed
	h.mu.Unlock()

	if handler != nil && !closed {
		handler()
	}
}

func (h *hook) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	if h.timer != nil {
		h.timer.Stop()
	}
	watcher := h.watcher
	if h.done != nil {
		close(h.done)
	}
	h.mu.Unlock()

	var err error
	if watcher != nil {
		err = watcher.Close()
	}
	h.wg.Wait()
	return err
}
