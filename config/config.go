package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// AgentConfig holds the edge agent configuration.
type AgentConfig struct {
	// Storage policy
	StorageRoot      string `json:"storage_root"`       // Directory the recorder writes segments into
	SegmentExtension string `json:"segment_extension"`  // Filename extension that marks a file as a segment
	CapacityBytes    int64  `json:"capacity_bytes"`     // Total size of the storage medium
	MaxReservedBytes int64  `json:"max_reserved_bytes"` // Bytes segments may occupy before eviction kicks in
	MinFreeBytes     int64  `json:"min_free_bytes"`     // Free space floor the eviction manager defends
	EvictionEnabled  bool   `json:"eviction_enabled"`

	// Upload pipeline
	EndpointURL       string `json:"endpoint_url"`
	AuthToken         string `json:"auth_token"`
	ChunkBufferBytes  int    `json:"chunk_buffer_bytes"`
	ResponseTimeoutMs int    `json:"response_timeout_ms"`
	MaxRetries        int    `json:"max_retries"`
	UseTLS            bool   `json:"use_tls"`
	TLSSkipVerify     bool   `json:"tls_skip_verify"`
	DeleteOnSuccess   bool   `json:"delete_on_success"`

	// Capture timing (supplied by the recording subsystem; used only for
	// pause/resume decisions)
	CaptureIntervalMs int `json:"capture_interval_ms"`
	CaptureDurationMs int `json:"capture_duration_ms"`

	// Driver loop
	CycleSeconds int `json:"cycle_seconds"`

	// Logging
	LogLevel string `json:"log_level"`
	LogPath  string `json:"log_path"`
}

// LoadAgentConfig loads the agent configuration from a JSON file. A missing
// file is replaced with a default one so the device boots with something
// editable on the card.
func LoadAgentConfig(filename string) (*AgentConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			defaultConfig := defaultAgentConfig()
			if err := saveConfig(filename, defaultConfig); err != nil {
				return nil, fmt.Errorf("failed to create default config file: %w", err)
			}
			fmt.Printf("Default config file created at %s\n", filename)
			return defaultConfig, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config AgentConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func defaultAgentConfig() *AgentConfig {
	c := &AgentConfig{
		StorageRoot:     "/sdcard",
		EndpointURL:     "http://localhost:8080/upload",
		EvictionEnabled: true,
		DeleteOnSuccess: true,
	}
	c.applyDefaults()
	return c
}

// applyDefaults backfills zero-value fields.
func (c *AgentConfig) applyDefaults() {
	if c.SegmentExtension == "" {
		c.SegmentExtension = ".avi"
	}
	if c.CapacityBytes == 0 {
		c.CapacityBytes = 8 << 30 // 8 GB card
	}
	if c.MaxReservedBytes == 0 {
		c.MaxReservedBytes = 4 << 30
	}
	if c.MinFreeBytes == 0 {
		c.MinFreeBytes = 512 << 20
	}
	if c.ChunkBufferBytes == 0 {
		c.ChunkBufferBytes = 1024
	}
	if c.ResponseTimeoutMs == 0 {
		c.ResponseTimeoutMs = 30000
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.CaptureIntervalMs == 0 {
		c.CaptureIntervalMs = 60000
	}
	if c.CaptureDurationMs == 0 {
		c.CaptureDurationMs = 10000
	}
	if c.CycleSeconds == 0 {
		c.CycleSeconds = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs"
	}
}

// AgentOverrides holds potential override values for the agent configuration.
type AgentOverrides struct {
	StorageRoot *string
	EndpointURL *string
	AuthToken   *string
	LogLevel    *string
}

// Override applies non-empty override values on top of the loaded config.
func (c *AgentConfig) Override(overrides AgentOverrides) {
	if overrides.StorageRoot != nil && *overrides.StorageRoot != "" {
		c.StorageRoot = *overrides.StorageRoot
	}
	if overrides.EndpointURL != nil && *overrides.EndpointURL != "" {
		c.EndpointURL = *overrides.EndpointURL
	}
	if overrides.AuthToken != nil && *overrides.AuthToken != "" {
		c.AuthToken = *overrides.AuthToken
	}
	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		c.LogLevel = *overrides.LogLevel
	}
}

// CollectorConfig holds the collector service configuration.
type CollectorConfig struct {
	Port          int    `json:"port"`
	UploadDir     string `json:"upload_dir"`
	DatabasePath  string `json:"database_path"`
	TokenHash     string `json:"token_hash"` // hex(pbkdf2(token)) as produced by segments.HashToken
	TokenSalt     string `json:"token_salt"` // hex salt for the hash above
	ProbeMetadata bool   `json:"probe_metadata"`
	LogLevel      string `json:"log_level"`
	LogPath       string `json:"log_path"`
}

// LoadCollectorConfig loads the collector configuration from a JSON file.
func LoadCollectorConfig(filename string) (*CollectorConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			defaultConfig := defaultCollectorConfig()
			if err := saveConfig(filename, defaultConfig); err != nil {
				return nil, fmt.Errorf("failed to create default config file: %w", err)
			}
			fmt.Printf("Default config file created at %s\n", filename)
			return defaultConfig, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config CollectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func defaultCollectorConfig() *CollectorConfig {
	c := &CollectorConfig{ProbeMetadata: true}
	c.applyDefaults()
	return c
}

func (c *CollectorConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.UploadDir == "" {
		c.UploadDir = "uploads"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "collector.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogPath == "" {
		c.LogPath = "logs"
	}
}

// saveConfig writes a configuration struct to a JSON file.
func saveConfig(filename string, config any) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
