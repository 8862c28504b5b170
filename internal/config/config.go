// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"
	"time"
)

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics" toml:"graphics"`
	Scene    SceneConfig    `yaml:"scene" toml:"scene"`
	Camera   CameraConfig   `yaml:"camera" toml:"camera"`
	Network  NetworkConfig  `yaml:"network" toml:"network"`
	Sky      SkyConfig      `yaml:"sky" toml:"sky"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width            int    `yaml:"width" toml:"width"`
	Height           int    `yaml:"height" toml:"height"`
	Fullscreen       bool   `yaml:"fullscreen" toml:"fullscreen"`
	VSync            bool   `yaml:"vsync" toml:"vsync"`
	ClearColor       string `yaml:"clear_color" toml:"clear_color"`
	Shadows          bool   `yaml:"shadows" toml:"shadows"`
	ShadowResolution int32  `yaml:"shadow_resolution" toml:"shadow_resolution"`
	ShowShadowMap    bool   `yaml:"show_shadow_map" toml:"show_shadow_map"`
	ScreenshotDir    string `yaml:"screenshot_dir" toml:"screenshot_dir"`
}

// AtlasConfig sizes one texture array.
type AtlasConfig struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
	Layers int `yaml:"layers" toml:"layers"`
}

// SceneConfig holds buffer capacities and texture sources.
type SceneConfig struct {
	BuildingCapacity int         `yaml:"building_capacity" toml:"building_capacity"`
	AvatarCapacity   int         `yaml:"avatar_capacity" toml:"avatar_capacity"`
	BuildingAtlas    AtlasConfig `yaml:"building_atlas" toml:"building_atlas"`
	AvatarAtlas      AtlasConfig `yaml:"avatar_atlas" toml:"avatar_atlas"`
	TextureDir       string      `yaml:"texture_dir" toml:"texture_dir"`
}

// CameraConfig holds the start pose and projection.
type CameraConfig struct {
	Position         [3]float32 `yaml:"position" toml:"position"`
	Rotation         [2]float32 `yaml:"rotation" toml:"rotation"` // pitch, yaw in degrees
	Speed            float32    `yaml:"speed" toml:"speed"`
	FOV              float32    `yaml:"fov" toml:"fov"`
	Near             float32    `yaml:"near" toml:"near"`
	Far              float32    `yaml:"far" toml:"far"`
	MouseSensitivity float32    `yaml:"mouse_sensitivity" toml:"mouse_sensitivity"` // pixels per degree
}

// NetworkConfig holds API connection settings.
type NetworkConfig struct {
	Host           string   `yaml:"host" toml:"host"`
	Secure         bool     `yaml:"secure" toml:"secure"`
	AppID          string   `yaml:"app_id" toml:"app_id"`
	AppSecret      string   `yaml:"app_secret" toml:"app_secret"`
	BotName        string   `yaml:"bot_name" toml:"bot_name"`
	BotEmoji       string   `yaml:"bot_emoji" toml:"bot_emoji"`
	InboundQueue   int      `yaml:"inbound_queue" toml:"inbound_queue"`
	OutboundQueue  int      `yaml:"outbound_queue" toml:"outbound_queue"`
	RequestTimeout Duration `yaml:"request_timeout" toml:"request_timeout"`
	ReconnectDelay Duration `yaml:"reconnect_delay" toml:"reconnect_delay"`
	PhotoDir       string   `yaml:"photo_dir" toml:"photo_dir"`
	Offline        bool     `yaml:"offline" toml:"offline"`
}

// SkyConfig holds the observer location and sky toggles.
type SkyConfig struct {
	Longitude      float64 `yaml:"longitude" toml:"longitude"`
	Latitude       float64 `yaml:"latitude" toml:"latitude"`
	ShowGrid       bool    `yaml:"show_grid" toml:"show_grid"`
	ShowAtmosphere bool    `yaml:"show_atmosphere" toml:"show_atmosphere"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`       // debug, info, warn, error
	LogFile string `yaml:"log_file" toml:"log_file"` // empty = stdout only
}

// Duration is a time.Duration written as "5s" in both YAML and TOML.
type Duration struct {
	time.Duration
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// Default returns configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:            1280,
			Height:           720,
			Fullscreen:       false,
			VSync:            true,
			ClearColor:       "#87ceeb",
			Shadows:          true,
			ShadowResolution: 2048,
			ScreenshotDir:    "screenshots",
		},
		Scene: SceneConfig{
			BuildingCapacity: 500_000,
			AvatarCapacity:   10_000,
			BuildingAtlas:    AtlasConfig{Width: 128, Height: 128, Layers: 8},
			AvatarAtlas:      AtlasConfig{Width: 150, Height: 150, Layers: 50},
			TextureDir:       "textures",
		},
		Camera: CameraConfig{
			Position:         [3]float32{45, 0.6, 53},
			Rotation:         [2]float32{0, 90},
			Speed:            5,
			FOV:              60,
			Near:             0.1,
			Far:              500,
			MouseSensitivity: 6,
		},
		Network: NetworkConfig{
			Host:           "recurse.rctogether.com",
			Secure:         true,
			BotName:        "Extra-dimensional Avatar",
			BotEmoji:       "👾",
			InboundQueue:   4096,
			OutboundQueue:  64,
			RequestTimeout: Duration{10 * time.Second},
			ReconnectDelay: Duration{5 * time.Second},
			PhotoDir:       "photos",
		},
		Sky: SkyConfig{
			Longitude:      -73.985,
			Latitude:       40.6913,
			ShowGrid:       false,
			ShowAtmosphere: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
