package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/sadopc/tempo/internal/models"
)

// ToCSV writes one row per habit log, oldest first.
func ToCSV(habits []models.Habit, logs []models.HabitLog, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Habit", "Kind", "Date", "Value", "Target", "Unit", "Completed"}); err != nil {
		return err
	}

	byID := make(map[string]models.Habit, len(habits))
	for _, h := range habits {
		byID[h.ID] = h
	}
	rows := sortedLogs(logs, byID)

	for _, l := range rows {
		h, ok := byID[l.HabitID]
		name := "Unknown"
		if ok {
			name = h.Name
		}
		row := []string{
			name,
			string(h.Kind),
			l.Date.String(),
			formatValue(l.Value),
			formatValue(h.Target),
			h.Unit,
			strconv.FormatBool(l.Completed),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func sortedLogs(logs []models.HabitLog, byID map[string]models.Habit) []models.HabitLog {
	out := append([]models.HabitLog(nil), logs...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c < 0
		}
		return byID[out[i].HabitID].Name < byID[out[j].HabitID].Name
	})
	return out
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
