// Package config provides XML-based configuration for the pressure display.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lnies/pressure-display/internal/ingest"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"PressureDisplay"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Log ingestion configuration
	Ingest IngestConfig `xml:"Ingest"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
}

// IngestConfig controls which files are read and how.
type IngestConfig struct {
	DataPattern            string `xml:"DataPattern"`
	WindowFiles            int    `xml:"WindowFiles"`
	RefreshIntervalSeconds int    `xml:"RefreshIntervalSeconds"`
	HeaderLines            int    `xml:"HeaderLines"`
	MarkerPolicy           string `xml:"MarkerPolicy"`
	Ordering               string `xml:"Ordering"`
	SchemaFile             string `xml:"SchemaFile"`
	TimeZone               string `xml:"TimeZone"`
	MaxReportedErrors      int    `xml:"MaxReportedErrors"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	LogFile              string `xml:"LogFile"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	EnableCompression    bool   `xml:"EnableCompression"`
	CompressionLevel     int    `xml:"CompressionLevel"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8050,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
		},
		Ingest: IngestConfig{
			DataPattern:            "./data/*dat",
			WindowFiles:            10,
			RefreshIntervalSeconds: 60,
			HeaderLines:            1,
			MarkerPolicy:           ingest.MarkerPolicyAssumePM,
			Ordering:               ingest.OrderingName,
			TimeZone:               "UTC",
			MaxReportedErrors:      100,
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
			EnableCompression:    true,
			CompressionLevel:     5,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "256MB",
		},
	}
}

// LoadConfig loads configuration from an XML file, creating it with
// defaults if it does not exist. Elements missing from the file keep their
// default values.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Pressure Display Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the server cannot run with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Server.Port)
	}
	if c.Ingest.DataPattern == "" {
		return fmt.Errorf("data pattern must not be empty")
	}
	if _, err := filepath.Match(c.Ingest.DataPattern, ""); err != nil {
		return fmt.Errorf("data pattern %q: %w", c.Ingest.DataPattern, err)
	}
	if c.Ingest.WindowFiles < 0 {
		return fmt.Errorf("window must not be negative, got %d", c.Ingest.WindowFiles)
	}
	if c.Ingest.RefreshIntervalSeconds <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %d", c.Ingest.RefreshIntervalSeconds)
	}
	if c.Ingest.HeaderLines < 0 {
		return fmt.Errorf("header lines must not be negative, got %d", c.Ingest.HeaderLines)
	}
	if _, err := ingest.ParseMarkerPolicy(c.Ingest.MarkerPolicy); err != nil {
		return err
	}
	if _, err := ingest.OrderingFor(c.Ingest.Ordering); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Advanced.CompressionLevel < -1 || c.Advanced.CompressionLevel > 9 {
		return fmt.Errorf("compression level %d out of range", c.Advanced.CompressionLevel)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if pattern := os.Getenv("DATA_PATTERN"); pattern != "" {
		c.Ingest.DataPattern = pattern
	}

	if window := os.Getenv("WINDOW_FILES"); window != "" {
		if n, err := strconv.Atoi(window); err == nil {
			c.Ingest.WindowFiles = n
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	c.Ingest.DataPattern = resolve(configDir, c.Ingest.DataPattern)
	c.Ingest.SchemaFile = resolve(configDir, c.Ingest.SchemaFile)
	c.Advanced.LogFile = resolve(configDir, c.Advanced.LogFile)
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// Location returns the time zone the log timestamps are interpreted in.
func (c *AppConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Ingest.TimeZone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", name, err)
	}
	return loc, nil
}

// RefreshInterval returns the refresh period as a duration.
func (c *AppConfig) RefreshInterval() time.Duration {
	return time.Duration(c.Ingest.RefreshIntervalSeconds) * time.Second
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetAllowOrigins splits the comma-separated CORS origin list.
func (c *AppConfig) GetAllowOrigins() []string {
	origins := make([]string, 0)
	for _, o := range strings.Split(c.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, "*")
	}
	return origins
}
