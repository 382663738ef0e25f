package app

// Record maps a YYYY-MM-DD day key to the count stored for that day.
// Days without an entry count as zero.
type Record map[string]int

// Snapshot is the complete persisted state of the store
type Snapshot struct {
	// Order lists counter names in insertion order.
	Order   []string
	Records map[string]Record
}

// NewSnapshot returns an empty snapshot ready for use
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Order:   []string{},
		Records: make(map[string]Record),
	}
}

// Level is the intensity bucket of a day's count
type Level int

const (
	LevelNone Level = iota
	LevelLow
	LevelMedium
	LevelHigh
)

// String returns the level name used in API responses
func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return "none"
	}
}

// MarshalText encodes the level by name
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// DayCell is one entry of a month projection
type DayCell struct {
	Day     int    `json:"day"`
	Weekday int    `json:"weekday"` // 0=Sunday .. 6=Saturday
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Level   Level  `json:"level"`
}
