package config

import "sort"

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"preview": {
		Timestep: DefaultTimestep, NumSteps: DefaultNumSteps, NumFrames: 100,
		Width: 100, Height: 100, Gravity: DefaultGravity,
		Length1: DefaultLength, Length2: DefaultLength,
		OutputPrefix: "preview/frame", Video: VideoConfig{FPS: DefaultFPS},
	},
	"thumbnail": {
		Timestep: DefaultTimestep, NumSteps: DefaultNumSteps, NumFrames: 20,
		Width: 32, Height: 32, Gravity: DefaultGravity,
		Length1: DefaultLength, Length2: DefaultLength,
		OutputPrefix: "thumb/frame", Video: VideoConfig{FPS: 10},
	},
	"longarm": {
		Timestep: DefaultTimestep, NumSteps: DefaultNumSteps, NumFrames: DefaultNumFrames,
		Width: DefaultDetail, Height: DefaultDetail, Gravity: DefaultGravity,
		Length1: 1.0, Length2: 2.0,
		OutputPrefix: "longarm/frame", Video: VideoConfig{FPS: DefaultFPS},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
