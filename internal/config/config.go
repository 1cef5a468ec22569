package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the base bridge configuration.
type Config struct {
	Host string
	Port string

	// NMTAddress is the playback device's address on the LAN.
	NMTAddress string
	// NMTName is the display name announced to Plex clients.
	NMTName string

	// PlexServerAddress/PlexServerPort pin the media server and skip GDM
	// discovery when set.
	PlexServerAddress string
	PlexServerPort    int
	PlexToken         string
	PlexTimeoutMs     int

	DiscoveryPort      int
	AnnounceIntervalMs int
	NowPlayingPollMs   int

	// ReplacementsPath points at the YAML path-replacement rule file.
	ReplacementsPath string
}

// Load reads configuration from environment variables with defaults.
func Load() (Config, error) {
	cfg := Config{
		Host:               envString("HOST", "0.0.0.0"),
		Port:               envString("PORT", "32500"),
		NMTAddress:         envString("NMT_ADDRESS", ""),
		NMTName:            envString("NMT_NAME", ""),
		PlexServerAddress:  envString("PLEX_SERVER_ADDRESS", ""),
		PlexServerPort:     envInt("PLEX_SERVER_PORT", 32400),
		PlexToken:          envString("PLEX_TOKEN", ""),
		PlexTimeoutMs:      envInt("PLEX_TIMEOUT_MS", 5000),
		DiscoveryPort:      envInt("DISCOVERY_PORT", 32414),
		AnnounceIntervalMs: envInt("ANNOUNCE_INTERVAL_MS", 5000),
		NowPlayingPollMs:   envInt("NOWPLAYING_POLL_MS", 1000),
		ReplacementsPath:   envString("REPLACEMENTS_PATH", "./replacements.yaml"),
	}

	if cfg.NMTAddress == "" {
		return Config{}, fmt.Errorf("NMT_ADDRESS is required")
	}
	if cfg.NMTName == "" {
		return Config{}, fmt.Errorf("NMT_NAME is required")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}
