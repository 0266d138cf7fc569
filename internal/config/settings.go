package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Themes lists the colour palettes understood by the UI, in cycling order.
var Themes = []string{"matrix", "amber", "ice", "crimson"}

// Settings is the user-facing configuration handed to the controllers.
type Settings struct {
	PortName        string        `json:"port_name"`
	BaudRate        int           `json:"baud_rate"`
	DistanceLimit   float64       `json:"distance_limit"`
	ThresholdLow    float64       `json:"threshold_low"`
	ThresholdHigh   float64       `json:"threshold_high"`
	DetectionRadius int           `json:"detection_radius_steps"`
	Speed           int           `json:"scan_speed_multiplier"`
	ShowTop         bool          `json:"show_top"`
	ShowBottom      bool          `json:"show_bottom"`
	Theme           string        `json:"theme"`
	LogDir          string        `json:"log_dir"`
	ReadTimeout     Duration      `json:"read_timeout"`
}

// Default returns the factory settings.
func Default() Settings {
	return Settings{
		BaudRate:        DefaultBaudRate,
		DistanceLimit:   50,
		ThresholdLow:    0,
		ThresholdHigh:   20,
		DetectionRadius: ServoSpan,
		Speed:           1,
		ShowTop:         true,
		ShowBottom:      true,
		Theme:           Themes[0],
		LogDir:          DefaultLogDir,
		ReadTimeout:     Duration(DefaultReadTimeout),
	}
}

// Duration is a time.Duration read from JSON either as a string such as
// "1500ms" or as a whole number of milliseconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case float64:
		*d = Duration(time.Duration(v * float64(time.Millisecond)))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("read_timeout: %w", err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("read_timeout: expected duration string or milliseconds, got %s", data)
	}
	return nil
}

// ValidationError names the offending setting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks ranges and the threshold ordering
// threshold_low <= threshold_high <= distance_limit.
func (s Settings) Validate() error {
	if s.BaudRate <= 0 {
		return &ValidationError{"baud_rate", fmt.Sprintf("%d must be positive", s.BaudRate)}
	}
	if err := checkRange("distance_limit", s.DistanceLimit); err != nil {
		return err
	}
	if err := checkRange("threshold_low", s.ThresholdLow); err != nil {
		return err
	}
	if err := checkRange("threshold_high", s.ThresholdHigh); err != nil {
		return err
	}
	if s.ThresholdLow > s.ThresholdHigh {
		return &ValidationError{"threshold_low", fmt.Sprintf("%g is above threshold_high %g", s.ThresholdLow, s.ThresholdHigh)}
	}
	if s.ThresholdHigh > s.DistanceLimit {
		return &ValidationError{"distance_limit", fmt.Sprintf("%g is below threshold_high %g", s.DistanceLimit, s.ThresholdHigh)}
	}
	if s.DetectionRadius < 30 || s.DetectionRadius > ServoSpan {
		return &ValidationError{"detection_radius_steps", fmt.Sprintf("%d outside 30..%d", s.DetectionRadius, ServoSpan)}
	}
	if s.Speed != 1 && s.Speed != 2 {
		return &ValidationError{"scan_speed_multiplier", fmt.Sprintf("%d must be 1 or 2", s.Speed)}
	}
	if !knownTheme(s.Theme) {
		return &ValidationError{"theme", fmt.Sprintf("unknown theme %q", s.Theme)}
	}
	if s.ReadTimeout < 0 {
		return &ValidationError{"read_timeout", "must not be negative"}
	}
	return nil
}

func checkRange(field string, v float64) error {
	if v != v || v < 0 || v > MaxDistance {
		return &ValidationError{field, fmt.Sprintf("%g outside 0..%g", v, MaxDistance)}
	}
	return nil
}

func knownTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err was produced by Validate.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Load reads settings from a JSON file. Fields missing from the file keep
// their defaults. The result is validated before it is returned.
func Load(path string) (Settings, error) {
	s := Default()

	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ConfigFileSuffix {
		return s, fmt.Errorf("config file must have %s extension, got %q", ConfigFileSuffix, ext)
	}

	info, err := os.Stat(clean)
	if err != nil {
		return s, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > MaxConfigSizeB {
		return s, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigSizeB)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return s, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}
