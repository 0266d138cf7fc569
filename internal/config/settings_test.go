package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		field  string
	}{
		{"low above high", func(s *Settings) { s.ThresholdLow, s.ThresholdHigh = 30, 10 }, "threshold_low"},
		{"limit below high", func(s *Settings) { s.DistanceLimit, s.ThresholdHigh = 15, 20 }, "distance_limit"},
		{"negative threshold", func(s *Settings) { s.ThresholdLow = -1 }, "threshold_low"},
		{"limit too large", func(s *Settings) { s.DistanceLimit = 801 }, "distance_limit"},
		{"radius too small", func(s *Settings) { s.DetectionRadius = 20 }, "detection_radius_steps"},
		{"radius too large", func(s *Settings) { s.DetectionRadius = 190 }, "detection_radius_steps"},
		{"speed", func(s *Settings) { s.Speed = 3 }, "scan_speed_multiplier"},
		{"theme", func(s *Settings) { s.Theme = "pink" }, "theme"},
		{"baud", func(s *Settings) { s.BaudRate = 0 }, "baud_rate"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Default()
			tc.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestValidateAcceptsEqualBounds(t *testing.T) {
	s := Default()
	s.ThresholdLow, s.ThresholdHigh, s.DistanceLimit = 25, 25, 25
	assert.NoError(t, s.Validate())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	body := `{"port_name": "/dev/ttyACM0", "distance_limit": 120, "threshold_low": 10, "threshold_high": 40, "scan_speed_multiplier": 2}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	got, err := Load(path)
	require.NoError(t, err)

	want := Default()
	want.PortName = "/dev/ttyACM0"
	want.DistanceLimit = 120
	want.ThresholdLow = 10
	want.ThresholdHigh = 40
	want.Speed = 2
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected settings (-want +got):\n%s", diff)
	}
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()

	t.Run("extension", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "settings.yaml"))
		assert.ErrorContains(t, err, ".json")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})

	t.Run("invalid ordering", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"threshold_low": 40, "threshold_high": 10}`), 0o644))
		s, err := Load(path)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Equal(t, Default(), s)
	})

	t.Run("malformed", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"distance_limit": "fifty"}`), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "parse")
	})
}

func TestLoadReadTimeout(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		body string
		want time.Duration
	}{
		{`{"read_timeout": "750ms"}`, 750 * time.Millisecond},
		{`{"read_timeout": "3s"}`, 3 * time.Second},
		{`{"read_timeout": 1500}`, 1500 * time.Millisecond},
		{`{}`, DefaultReadTimeout},
	}
	for i, tc := range tests {
		path := filepath.Join(dir, fmt.Sprintf("timeout%d.json", i))
		require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))
		s, err := Load(path)
		require.NoError(t, err, tc.body)
		assert.Equal(t, tc.want, s.ReadTimeout.Std(), tc.body)
	}

	path := filepath.Join(dir, "bad_timeout.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"read_timeout": "soon"}`), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "read_timeout")
}

func TestDurationRoundTrip(t *testing.T) {
	data, err := json.Marshal(Duration(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(data))

	var d Duration
	require.NoError(t, json.Unmarshal(data, &d))
	assert.Equal(t, 2*time.Second, d.Std())
}
