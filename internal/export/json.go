package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/tempo/internal/models"
	"github.com/sadopc/tempo/internal/state"
)

// Snapshot is everything a workspace holds.
type Snapshot struct {
	Tasks  []models.Task
	Habits []models.Habit
	Logs   []models.HabitLog
	Goals  []models.Goal
	Notes  []models.Note
	XP     int
}

// FromWorkspace copies the current lists out of w.
func FromWorkspace(w *state.Workspace) Snapshot {
	return Snapshot{
		Tasks:  w.Tasks.Items(),
		Habits: w.Habits.Items(),
		Logs:   w.Habits.AllLogs(),
		Goals:  w.Goals.Items(),
		Notes:  w.Notes.Items(),
		XP:     w.Progress.XP(),
	}
}

type jsonExport struct {
	ExportedAt string            `json:"exported_at"`
	Counts     map[string]int    `json:"counts"`
	XP         int               `json:"xp"`
	Level      int               `json:"level"`
	Tasks      []models.Task     `json:"tasks"`
	Habits     []models.Habit    `json:"habits"`
	HabitLogs  []models.HabitLog `json:"habit_logs"`
	Goals      []models.Goal     `json:"goals"`
	Notes      []models.Note     `json:"notes"`
}

func ToJSON(s Snapshot, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Counts: map[string]int{
			"tasks":      len(s.Tasks),
			"habits":     len(s.Habits),
			"habit_logs": len(s.Logs),
			"goals":      len(s.Goals),
			"notes":      len(s.Notes),
		},
		XP:        s.XP,
		Level:     state.LevelFor(s.XP),
		Tasks:     nonNil(s.Tasks),
		Habits:    nonNil(s.Habits),
		HabitLogs: nonNil(s.Logs),
		Goals:     nonNil(s.Goals),
		Notes:     nonNil(s.Notes),
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
