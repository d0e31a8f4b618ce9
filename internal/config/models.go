package config

// Target names understood by the resolver and the transport
const (
	TargetScene  = "scene"
	TargetGame   = "game"
	TargetEditor = "editor"
)

// PNG compression level names
const (
	CompressionDefault = "default"
	CompressionSpeed   = "speed"
	CompressionBest    = "best"
	CompressionNone    = "none"
)

// WindowInfo represents information about a window
type WindowInfo struct {
	ID       uint64   `json:"id" mapstructure:"id"` // X11 window id or Win32 HWND
	Title    string   `json:"title" mapstructure:"title"`
	Class    string   `json:"class" mapstructure:"class"`
	PID      int      `json:"pid" mapstructure:"pid"`
	Focused  bool     `json:"focused" mapstructure:"focused"`
	Geometry Geometry `json:"geometry" mapstructure:"geometry"` // screen space
}

// Label returns a human-readable window name for descriptions and logs
func (w *WindowInfo) Label() string {
	if w == nil {
		return "<none>"
	}
	if w.Title != "" {
		return w.Title
	}
	if w.Class != "" {
		return w.Class
	}
	return "untitled window"
}

// Geometry represents window geometry
type Geometry struct {
	X      int `json:"x" mapstructure:"x"`
	Y      int `json:"y" mapstructure:"y"`
	Width  int `json:"width" mapstructure:"width"`
	Height int `json:"height" mapstructure:"height"`
}

// TargetRule selects the window for a logical target. A window matches when
// any title pattern or any class pattern matches.
type TargetRule struct {
	TitlePatterns []string `json:"title_patterns" yaml:"title_patterns" mapstructure:"title_patterns"`
	ClassPatterns []string `json:"class_patterns" yaml:"class_patterns" mapstructure:"class_patterns"`
}

// CaptureConfig holds capture defaults
type CaptureConfig struct {
	DefaultTarget  string `json:"default_target" yaml:"default_target" mapstructure:"default_target"`
	MaxWidth       int    `json:"max_width" yaml:"max_width" mapstructure:"max_width"`
	MaxHeight      int    `json:"max_height" yaml:"max_height" mapstructure:"max_height"`
	PNGCompression string `json:"png_compression" yaml:"png_compression" mapstructure:"png_compression"`
	UsePortal      bool   `json:"use_portal" yaml:"use_portal" mapstructure:"use_portal"`
}

// Config represents the application configuration
type Config struct {
	ServerPort int                   `json:"server_port" yaml:"server_port" mapstructure:"server_port"`
	LogLevel   string                `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogPretty  bool                  `json:"log_pretty" yaml:"log_pretty" mapstructure:"log_pretty"`
	Capture    CaptureConfig         `json:"capture" yaml:"capture" mapstructure:"capture"`
	Targets    map[string]TargetRule `json:"targets" yaml:"targets" mapstructure:"targets"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		ServerPort: 8090,
		LogLevel:   "info",
		Capture: CaptureConfig{
			DefaultTarget:  TargetGame,
			MaxWidth:       1920,
			MaxHeight:      1080,
			PNGCompression: CompressionDefault,
			UsePortal:      true,
		},
		Targets: map[string]TargetRule{
			TargetScene: {
				TitlePatterns: []string{`(?i)\bscene\b`},
				ClassPatterns: []string{},
			},
			TargetGame: {
				TitlePatterns: []string{`(?i)\bgame\b`},
				ClassPatterns: []string{},
			},
			TargetEditor: {
				TitlePatterns: []string{`(?i)unity`},
				ClassPatterns: []string{},
			},
		},
	}
}

// clone returns a deep copy so callers cannot mutate manager state
func (c *Config) clone() *Config {
	out := *c
	out.Targets = make(map[string]TargetRule, len(c.Targets))
	for name, rule := range c.Targets {
		out.Targets[name] = TargetRule{
			TitlePatterns: append([]string{}, rule.TitlePatterns...),
			ClassPatterns: append([]string{}, rule.ClassPatterns...),
		}
	}
	return &out
}
