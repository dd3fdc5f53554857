package camera

// Preset names for common configurations
const (
	PresetDefault   = "default"
	PresetCinematic = "cinematic"
	PresetSnappy    = "snappy"
	PresetPhone     = "phone"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:   DefaultConfig(),
		PresetCinematic: CinematicConfig(),
		PresetSnappy:    SnappyConfig(),
		PresetPhone:     PhoneConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetCinematic,
		PresetSnappy,
		PresetPhone,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// CinematicConfig drifts slowly and orbits wide.
func CinematicConfig() Config {
	cfg := DefaultConfig()
	cfg.IdlePositionRate = 0.8
	cfg.IdleTargetRate = 1.0
	cfg.OverviewRadius = 75
	cfg.OverviewRadiusRate = 1.0
	cfg.AngularRate = 1.0
	return cfg
}

// SnappyConfig responds quickly, for demos and debugging.
func SnappyConfig() Config {
	cfg := DefaultConfig()
	cfg.IdlePositionRate = 4
	cfg.IdleTargetRate = 4
	cfg.OverviewRadiusRate = 4
	cfg.OverviewTargetRate = 4
	cfg.AngularRate = 3
	cfg.FocusRate = 20
	return cfg
}

// PhoneConfig always frames photos as on a narrow screen.
func PhoneConfig() Config {
	cfg := DefaultConfig()
	cfg.FocusDistanceWide = cfg.FocusDistanceNarrow
	cfg.OverviewRadius = 70
	return cfg
}
