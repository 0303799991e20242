// Package mirror is the local key/value copy of each domain list. Values are
// JSON documents overwritten whole on every write.
package mirror

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/peterbourgon/diskv/v3"
)

// Domain keys.
const (
	KeyTasks     = "tasks"
	KeyNotes     = "notes"
	KeyHabits    = "habits"
	KeyHabitLogs = "habit_logs"
	KeyGoals     = "goals"
	KeyXP        = "xp"
	KeyPomodoro  = "pomodoro"
	KeyUI        = "ui"
	KeySession   = "session"
)

const DefaultNamespace = "tempo"

type Mirror struct {
	d         *diskv.Diskv
	namespace string
}

// Open returns a mirror rooted at dir. Keys are stored as "<namespace>.<key>".
func Open(dir, namespace string) (*Mirror, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mirror directory: %w", err)
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	d := diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 1024 * 1024,
	})
	return &Mirror{d: d, namespace: namespace}, nil
}

func (m *Mirror) key(k string) string {
	return m.namespace + "." + strings.TrimSpace(k)
}

// Read decodes the value stored under k into v. A missing or malformed value
// reports false and leaves v untouched.
func (m *Mirror) Read(k string, v any) bool {
	if m == nil {
		return false
	}
	data, err := m.d.Read(m.key(k))
	if err != nil || len(data) == 0 {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return false
	}
	// Decode into a scratch value so a bad document cannot half-fill v.
	scratch := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(data, scratch.Interface()); err != nil {
		return false
	}
	rv.Elem().Set(scratch.Elem())
	return true
}

// Write replaces the value stored under k.
func (m *Mirror) Write(k string, v any) error {
	if m == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", k, err)
	}
	if err := m.d.Write(m.key(k), data); err != nil {
		return fmt.Errorf("write %s: %w", k, err)
	}
	return nil
}

// Remove deletes k. Removing a missing key is not an error.
func (m *Mirror) Remove(k string) error {
	if m == nil {
		return nil
	}
	key := m.key(k)
	if !m.d.Has(key) {
		return nil
	}
	if err := m.d.Erase(key); err != nil {
		return fmt.Errorf("remove %s: %w", k, err)
	}
	return nil
}

// Has reports whether a value is stored under k.
func (m *Mirror) Has(k string) bool {
	if m == nil {
		return false
	}
	return m.d.Has(m.key(k))
}
