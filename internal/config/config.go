package config

import "time"

// Config is the root configuration for Math Farm.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Graph      GraphConfig      `json:"graph"`
	Calculator CalculatorConfig `json:"calculator"`
	Boundaries BoundariesConfig `json:"boundaries"`
	Storage    StorageConfig    `json:"storage"`
	Content    ContentConfig    `json:"content"`
	Hours      HoursConfig      `json:"hours"`
	Events     EventsConfig     `json:"events"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	StaticDir string `json:"static_dir,omitempty"` // served at /, index.html fallback
	// MaxClients caps the per-client state (boundaries, calculator history)
	// kept in memory; the least recently seen client is dropped first.
	MaxClients int `json:"max_clients"`
}

// GraphConfig holds plotting defaults.
type GraphConfig struct {
	Samples           int            `json:"samples"`
	ContourResolution int            `json:"contour_resolution"`
	Viewport          ViewportConfig `json:"viewport"`
}

// ViewportConfig is the default visible region.
type ViewportConfig struct {
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

// CalculatorConfig holds calculator defaults.
type CalculatorConfig struct {
	AngleUnit   string `json:"angle_unit"` // "rad" or "deg"
	HistorySize int    `json:"history_size"`
}

// BoundariesConfig caps the retries of each error boundary.
type BoundariesConfig struct {
	Graph      int `json:"graph"`
	Calculator int `json:"calculator"`
	Practice   int `json:"practice"`
	App        int `json:"app"`
}

// StorageConfig locates persistent data.
type StorageConfig struct {
	Path        string `json:"path"`          // sqlite database (default: $MATHFARM_PATH/mathfarm.db)
	EventLogDir string `json:"event_log_dir"` // JSONL event logs (default: $MATHFARM_PATH/logs)
}

// ContentConfig overrides the built-in topics.
type ContentConfig struct {
	Dir string `json:"dir,omitempty"` // directory of topic *.yaml files (empty = built-in)
}

// HoursConfig describes the help desk opening windows.
type HoursConfig struct {
	Timezone string         `json:"timezone"`
	Windows  []WindowConfig `json:"windows"`
}

// WindowConfig opens at each activation of Open for Duration.
type WindowConfig struct {
	Open     string   `json:"open"` // 5-field cron
	Duration Duration `json:"duration"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize int `json:"buffer_size"`
}

// Duration wraps time.Duration for JSON unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
