// Package activity records broker actions and accounts for the time they save.
package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeClientIntake Type = "client_intake"
	TypeAIChat       Type = "ai_chat"
	TypeCallAnalysis Type = "call_analysis"
	TypePlanMatch    Type = "plan_match"
)

const defaultMinutesSaved = 2

var minutesSaved = map[Type]int{
	TypeClientIntake: 15,
	TypeAIChat:       5,
	TypeCallAnalysis: 20,
	TypePlanMatch:    10,
}

type Entry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      Type           `json:"activity_type"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

type Lister interface {
	List(ctx context.Context, userID string) ([]Entry, error)
}

// Store is a recorder that can also list what it recorded.
type Store interface {
	Recorder
	Lister
}

func NewEntry(userID string, t Type, details map[string]any) Entry {
	return Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      t,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
}

// MinutesSaved returns the estimated minutes an activity saves the broker.
func MinutesSaved(t Type) int {
	if m, ok := minutesSaved[t]; ok {
		return m
	}
	return defaultMinutesSaved
}

func TimeSaved(entries []Entry) int {
	total := 0
	for _, e := range entries {
		total += MinutesSaved(e.Type)
	}
	return total
}

// FormatMinutes renders minutes as "1h 5m" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	hours, rest := minutes/60, minutes%60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, rest)
	}
	return fmt.Sprintf("%dm", rest)
}

type Summary struct {
	Activities int          `json:"activities"`
	Minutes    int          `json:"minutes"`
	Formatted  string       `json:"formatted"`
	ByType     map[Type]int `json:"by_type"`
}

func Summarize(entries []Entry) Summary {
	byType := make(map[Type]int)
	for _, e := range entries {
		byType[e.Type]++
	}
	minutes := TimeSaved(entries)
	return Summary{
		Activities: len(entries),
		Minutes:    minutes,
		Formatted:  FormatMinutes(minutes),
		ByType:     byType,
	}
}
