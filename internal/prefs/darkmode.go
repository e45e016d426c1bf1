package prefs

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/perfdash/perfdash/internal/logger"
)

// DarkModeKey is the storage key for the theme preference.
// The value is a JSON-encoded boolean.
const DarkModeKey = "darkMode"

// DarkModeDefault applies when nothing usable is persisted.
const DarkModeDefault = true

// DarkMode owns the dark mode preference. The in-memory value only changes
// after the new value has been persisted.
type DarkMode struct {
	mu      sync.Mutex
	store   Storage
	log     logger.Logger
	enabled bool
}

// LoadDarkMode reads the persisted preference once. A missing, unreadable or
// malformed value falls back to enabled.
func LoadDarkMode(store Storage, log logger.Logger) *DarkMode {
	if log == nil {
		log = logger.Default()
	}

	d := &DarkMode{store: store, log: log, enabled: DarkModeDefault}

	raw, ok, err := store.GetItem(DarkModeKey)
	switch {
	case err != nil:
		log.Debug("reading %s preference: %v", DarkModeKey, err)
	case !ok:
		// nothing saved yet
	default:
		v, err := ParseDarkMode(raw)
		if err != nil {
			log.Debug("ignoring malformed %s value %q: %v", DarkModeKey, raw, err)
		} else {
			d.enabled = v
		}
	}

	return d
}

// ParseDarkMode decodes a stored preference. Only the JSON literals true and
// false are accepted; null is rejected.
func ParseDarkMode(raw string) (bool, error) {
	var v *bool
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return false, err
	}
	if v == nil {
		return false, fmt.Errorf("%s is null", DarkModeKey)
	}
	return *v, nil
}

// Enabled reports the current preference.
func (d *DarkMode) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// Toggle flips the preference, persists it and returns the new value.
// If persisting fails the preference is left unchanged and the current
// value is returned with the error.
func (d *DarkMode) Toggle() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := !d.enabled
	encoded, _ := json.Marshal(next)
	if err := d.store.SetItem(DarkModeKey, string(encoded)); err != nil {
		d.log.Error("saving %s preference: %v", DarkModeKey, err)
		return d.enabled, err
	}

	d.enabled = next
	return next, nil
}
