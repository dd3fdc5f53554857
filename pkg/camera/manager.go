package camera

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teslashibe/go-treeform/pkg/morph"
)

// Manager holds the runtime-tunable camera configuration and handles updates
// arriving from the HTTP API.
type Manager struct {
	config Config
	morph  morph.Config
	mu     sync.RWMutex

	// Callback when config changes (for applying to the controller)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a manager starting from cfg. Every change is validated
// against the morph tuning m.
func NewManager(cfg Config, m morph.Config) *Manager {
	return &Manager{
		config: cfg,
		morph:  m,
	}
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig validates and applies a configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if err := cfg.ValidateFor(&m.morph); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}
	return nil
}

// UpdateConfig updates specific fields of the configuration.
// Accepts a map of field names to values; "preset" replaces the base first.
func (m *Manager) UpdateConfig(params map[string]any) error {
	cfg := m.GetConfig()

	if presetName, ok := params["preset"].(string); ok {
		preset := GetPreset(presetName)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", presetName)
		}
		cfg = *preset
	}

	for key, value := range params {
		switch key {
		case "preset":
		case "idle_position_rate":
			if v, ok := toFloat(value); ok {
				cfg.IdlePositionRate = v
			}
		case "idle_target_rate":
			if v, ok := toFloat(value); ok {
				cfg.IdleTargetRate = v
			}
		case "overview_radius":
			if v, ok := toFloat(value); ok {
				cfg.OverviewRadius = float32(v)
			}
		case "overview_radius_rate":
			if v, ok := toFloat(value); ok {
				cfg.OverviewRadiusRate = v
			}
		case "overview_target_rate":
			if v, ok := toFloat(value); ok {
				cfg.OverviewTargetRate = v
			}
		case "angular_rate":
			if v, ok := toFloat(value); ok {
				cfg.AngularRate = v
			}
		case "focus_rate":
			if v, ok := toFloat(value); ok {
				cfg.FocusRate = v
			}
		case "focus_distance_narrow":
			if v, ok := toFloat(value); ok {
				cfg.FocusDistanceNarrow = float32(v)
			}
		case "focus_distance_wide":
			if v, ok := toFloat(value); ok {
				cfg.FocusDistanceWide = float32(v)
			}
		case "narrow_viewport":
			if v, ok := toFloat(value); ok {
				cfg.NarrowViewport = int(v)
			}
		default:
			return fmt.Errorf("unknown camera parameter: %s", key)
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]any {
	data, _ := json.Marshal(m.GetConfig())
	var result map[string]any
	_ = json.Unmarshal(data, &result)
	return result
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
