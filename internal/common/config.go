package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Service  ServiceConfig  `toml:"service"`
	Swarm    SwarmConfig    `toml:"swarm"`
	Browser  BrowserConfig  `toml:"browser"`
	Profile  ProfileConfig  `toml:"profile"`
	Targets  TargetsConfig  `toml:"targets"`
	SelfHeal SelfHealConfig `toml:"selfheal"`
	Resume   ResumeConfig   `toml:"resume"`
	Inbox    InboxConfig    `toml:"inbox"`
	Report   ReportConfig   `toml:"report"`
	Schedule ScheduleConfig `toml:"schedule"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServiceConfig struct {
	Name string `toml:"name"`
}

// SwarmConfig controls how a run is scheduled across targets
type SwarmConfig struct {
	Attempt     int           `toml:"attempt"`      // Attempt number, used to key logs/proof artifacts
	BatchSize   int           `toml:"batch_size"`   // Targets started per sequential batch
	MaxSessions int           `toml:"max_sessions"` // Hard cap on concurrent browser sessions
	SessionTTL  time.Duration `toml:"session_ttl"`  // Wall-clock budget per target
	FillCycles  int           `toml:"fill_cycles"`  // Fill/submit cycles before giving up
	StartRate   float64       `toml:"start_rate"`   // Session starts per second (politeness pacing)
	ProofDir    string        `toml:"proof_dir"`    // Screenshots and captured page sources
	LogsDir     string        `toml:"logs_dir"`     // Per-attempt swarm logs (read back by self-heal)
}

// BrowserConfig controls the Chrome session each target gets
type BrowserConfig struct {
	Headful           bool          `toml:"headful"`            // Show a visible browser window
	UserAgent         string        `toml:"user_agent"`         // User agent for all sessions
	WindowWidth       int           `toml:"window_width"`
	WindowHeight      int           `toml:"window_height"`
	NavigationTimeout time.Duration `toml:"navigation_timeout"` // Per-navigation budget
	SettleDelay       time.Duration `toml:"settle_delay"`       // Post-navigation settle before DOM reads
	RefillDelay       time.Duration `toml:"refill_delay"`       // Delay before the second fill pass
	BlockedResources  []string      `toml:"blocked_resources"`  // Resource types aborted at the network layer
	BlockedExtensions []string      `toml:"blocked_extensions"` // URL suffixes aborted at the network layer
	BlockedDomains    []string      `toml:"blocked_domains"`    // Tracker/analytics domains aborted outright
}

type ProfileConfig struct {
	Path string `toml:"path"` // JSON applicant profile; defaults fill missing fields
}

type TargetsConfig struct {
	Path string `toml:"path"` // YAML target list; built-in list used when absent
}

type SelfHealConfig struct {
	MaxAttempts int `toml:"max_attempts"` // Cap on meaningful self-heal rounds
}

type ResumeConfig struct {
	Path     string `toml:"path"`     // Resume PDF uploaded into file inputs
	Generate bool   `toml:"generate"` // Generate a PDF from the profile when Path is missing
}

// InboxConfig configures the optional post-run receipt scan over IMAP
type InboxConfig struct {
	Enabled  bool          `toml:"enabled"`
	Host     string        `toml:"host"`
	Port     int           `toml:"port"`
	Username string        `toml:"username"`
	Password string        `toml:"password"`
	UseTLS   bool          `toml:"use_tls"`
	Mailbox  string        `toml:"mailbox"`
	Lookback time.Duration `toml:"lookback"` // How far back to search for receipts
}

type ReportConfig struct {
	Dir string `toml:"dir"` // Per-run JSON/markdown/HTML reports
}

type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`      // Standard 5-field cron expression
	HealRun bool   `toml:"heal_runs"` // Run the self-heal step between scheduled runs
}

type ServerConfig struct {
	Enabled bool   `toml:"enabled"` // Status server is opt-in for CLI runs
	Port    int    `toml:"port"`
	Host    string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in peto.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: "peto",
		},
		Swarm: SwarmConfig{
			Attempt:     1,
			BatchSize:   3,
			MaxSessions: 3,                 // Concurrent Chrome sessions are heavy; cap independently of batch size
			SessionTTL:  120 * time.Second, // A slow ATS flow rarely recovers past two minutes
			FillCycles:  4,
			StartRate:   1.0, // One session start per second keeps target sites comfortable
			ProofDir:    "./proof",
			LogsDir:     "./logs",
		},
		Browser: BrowserConfig{
			Headful:           false,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowWidth:       1920,
			WindowHeight:      1080,
			NavigationTimeout: 30 * time.Second,
			SettleDelay:       1500 * time.Millisecond,
			RefillDelay:       800 * time.Millisecond,
			BlockedResources:  []string{"Image", "Media", "Font"},
			BlockedExtensions: []string{
				".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
				".mp4", ".webm", ".mov", ".avi",
				".woff", ".woff2", ".ttf", ".otf", ".eot",
			},
			BlockedDomains: []string{
				"google-analytics", "googletagmanager", "doubleclick",
				"facebook.net", "hotjar", "segment",
			},
		},
		Profile: ProfileConfig{
			Path: "./profile.json",
		},
		Targets: TargetsConfig{
			Path: "./targets.yaml",
		},
		SelfHeal: SelfHealConfig{
			MaxAttempts: 15,
		},
		Resume: ResumeConfig{
			Path:     "./resume.pdf",
			Generate: true,
		},
		Inbox: InboxConfig{
			Enabled:  false, // Requires credentials; opt-in
			Port:     993,
			UseTLS:   true,
			Mailbox:  "INBOX",
			Lookback: 48 * time.Hour,
		},
		Report: ReportConfig{
			Dir: "./reports",
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 9 * * *", // Daily morning run when enabled
			HealRun: true,
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    8090,
			Host:    "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
	}
}

// LoadFromFiles loads configuration from multiple files. Later files override
// earlier files; environment variables override all files; CLI flags are
// applied last by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Swarm configuration
	if attempt := os.Getenv("PETO_SWARM_ATTEMPT"); attempt != "" {
		if a, err := strconv.Atoi(attempt); err == nil {
			config.Swarm.Attempt = a
		}
	}
	if batchSize := os.Getenv("PETO_SWARM_BATCH_SIZE"); batchSize != "" {
		if b, err := strconv.Atoi(batchSize); err == nil {
			config.Swarm.BatchSize = b
		}
	}
	if maxSessions := os.Getenv("PETO_SWARM_MAX_SESSIONS"); maxSessions != "" {
		if m, err := strconv.Atoi(maxSessions); err == nil {
			config.Swarm.MaxSessions = m
		}
	}
	if ttl := os.Getenv("PETO_SWARM_SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Swarm.SessionTTL = d
		}
	}
	if cycles := os.Getenv("PETO_SWARM_FILL_CYCLES"); cycles != "" {
		if c, err := strconv.Atoi(cycles); err == nil {
			config.Swarm.FillCycles = c
		}
	}
	if proofDir := os.Getenv("PETO_SWARM_PROOF_DIR"); proofDir != "" {
		config.Swarm.ProofDir = proofDir
	}
	if logsDir := os.Getenv("PETO_SWARM_LOGS_DIR"); logsDir != "" {
		config.Swarm.LogsDir = logsDir
	}

	// Browser configuration
	if headful := os.Getenv("PETO_BROWSER_HEADFUL"); headful != "" {
		if h, err := strconv.ParseBool(headful); err == nil {
			config.Browser.Headful = h
		}
	}
	if userAgent := os.Getenv("PETO_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}
	if navTimeout := os.Getenv("PETO_BROWSER_NAVIGATION_TIMEOUT"); navTimeout != "" {
		if d, err := time.ParseDuration(navTimeout); err == nil {
			config.Browser.NavigationTimeout = d
		}
	}
	if settle := os.Getenv("PETO_BROWSER_SETTLE_DELAY"); settle != "" {
		if d, err := time.ParseDuration(settle); err == nil {
			config.Browser.SettleDelay = d
		}
	}

	// Profile / targets / resume paths
	if profilePath := os.Getenv("PETO_PROFILE_PATH"); profilePath != "" {
		config.Profile.Path = profilePath
	}
	if targetsPath := os.Getenv("PETO_TARGETS_PATH"); targetsPath != "" {
		config.Targets.Path = targetsPath
	}
	if resumePath := os.Getenv("PETO_RESUME_PATH"); resumePath != "" {
		config.Resume.Path = resumePath
	}

	// Inbox configuration
	if host := os.Getenv("PETO_INBOX_HOST"); host != "" {
		config.Inbox.Host = host
		config.Inbox.Enabled = true
	}
	if port := os.Getenv("PETO_INBOX_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Inbox.Port = p
		}
	}
	if username := os.Getenv("PETO_INBOX_USERNAME"); username != "" {
		config.Inbox.Username = username
	}
	if password := os.Getenv("PETO_INBOX_PASSWORD"); password != "" {
		config.Inbox.Password = password
	}
	if useTLS := os.Getenv("PETO_INBOX_USE_TLS"); useTLS != "" {
		if t, err := strconv.ParseBool(useTLS); err == nil {
			config.Inbox.UseTLS = t
		}
	}

	// Schedule configuration
	if cronExpr := os.Getenv("PETO_SCHEDULE_CRON"); cronExpr != "" {
		config.Schedule.Cron = cronExpr
		config.Schedule.Enabled = true
	}

	// Server configuration
	if port := os.Getenv("PETO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PETO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("PETO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("PETO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PETO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Command-line flags have highest priority.
func ApplyFlagOverrides(config *Config, attempt, batchSize, port int, headful bool) {
	if attempt > 0 {
		config.Swarm.Attempt = attempt
	}
	if batchSize > 0 {
		config.Swarm.BatchSize = batchSize
	}
	if port > 0 {
		config.Server.Port = port
		config.Server.Enabled = true
	}
	if headful {
		config.Browser.Headful = true
	}
}

// ValidateSchedule validates a cron schedule expression and enforces a
// minimum 5-minute interval so a scheduled swarm cannot hammer targets.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	parts := strings.Fields(schedule)
	if len(parts) < 5 {
		return fmt.Errorf("invalid cron format: expected 5 fields")
	}

	minuteField := parts[0]
	if minuteField == "*" {
		return fmt.Errorf("schedule must have minimum 5-minute interval (every minute is not allowed)")
	}
	if strings.HasPrefix(minuteField, "*/") {
		interval, err := strconv.Atoi(strings.TrimPrefix(minuteField, "*/"))
		if err == nil && interval < 5 {
			return fmt.Errorf("schedule interval must be at least 5 minutes, got %d", interval)
		}
	}

	return nil
}
