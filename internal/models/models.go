package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sadopc/tempo/internal/dates"
)

// PlaceholderPrefix marks ids minted locally before the remote store assigned one.
const PlaceholderPrefix = "local-"

// NewPlaceholderID returns a fresh local id.
func NewPlaceholderID() string {
	return PlaceholderPrefix + uuid.NewString()
}

// IsPlaceholder reports whether id was minted locally.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t Task) Key() string { return t.ID }
func (t Task) WithKey(id string) Task { t.ID = id; return t }

type HabitKind string

const (
	HabitBoolean HabitKind = "boolean"
	HabitCount   HabitKind = "count"
)

func (k HabitKind) Valid() bool {
	return k == HabitBoolean || k == HabitCount
}

// FrequencyDaily is the only frequency with implemented semantics.
const FrequencyDaily = "daily"

type Habit struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Name      string    `json:"name"`
	Kind      HabitKind `json:"kind"`
	Frequency string    `json:"frequency"`
	Active    bool      `json:"active"`
	Unit      string    `json:"unit,omitempty"`
	Target    float64   `json:"target,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h Habit) Key() string { return h.ID }
func (h Habit) WithKey(id string) Habit { h.ID = id; return h }

// Completes reports whether logging value completes the habit for a day.
// Boolean habits complete on any positive value.
func (h Habit) Completes(value float64) bool {
	if h.Kind == HabitCount {
		return value >= h.Target
	}
	return value > 0
}

type HabitLog struct {
	ID        string    `json:"id"`
	HabitID   string    `json:"habitId"`
	UserID    string    `json:"userId,omitempty"`
	Date      dates.Day `json:"date"`
	Value     float64   `json:"value"`
	Completed bool      `json:"completed"`
}

func (l HabitLog) Key() string { return l.ID }
func (l HabitLog) WithKey(id string) HabitLog { l.ID = id; return l }

type Goal struct {
	ID          string `json:"id"`
	UserID      string `json:"userId,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Year        int    `json:"year"`
}

func (g Goal) Key() string { return g.ID }
func (g Goal) WithKey(id string) Goal { g.ID = id; return g }

// DocYear scopes goals to a calendar year in the remote store.
func (g Goal) DocYear() int { return g.Year }

type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Date      dates.Day `json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (n Note) Key() string { return n.ID }
func (n Note) WithKey(id string) Note { n.ID = id; return n }

// Session is an authenticated account session.
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s Session) Valid(now time.Time) bool {
	return s.Token != "" && s.UserID != "" && now.Before(s.ExpiresAt)
}
