package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Config holds all service settings. Values come from the environment, which
// overrides the optional club file named by CONFIG_FILE.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Club calendar.
	ClubName               string
	DisplayTimezone        string
	Location               *time.Location
	CalendarProductID      string
	CalendarUIDDomain      string
	EventURL               string
	MaxOccurrencesPerEvent int

	// Club backend (event records).
	BackendURL      string
	BackendTimeout  time.Duration
	BackendUsername string
	BackendPassword string

	// Weather.
	WeatherAPIKey      string
	WeatherBaseURL     string
	WeatherTimeout     time.Duration
	WeatherLat         float64
	WeatherLon         float64
	WeatherLocation    string
	WeatherCacheFile   string
	WeatherCacheSize   int
	WeatherRefreshCron string
	WeatherMockOnError bool

	// Occurrence feed.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads a .env file if present, then the club file, then the
// environment, applying defaults where unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	club, err := loadClubFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}
	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	backendTimeout, err := parseDuration("BACKEND_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	weatherTimeout, err := parseDuration("WEATHER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	lat, err := parseFloat("WEATHER_LAT", club.Weather.Lat, 90)
	if err != nil {
		return nil, err
	}
	lon, err := parseFloat("WEATHER_LON", club.Weather.Lon, 180)
	if err != nil {
		return nil, err
	}
	maxOccurrences, err := parsePositiveInt("MAX_OCCURRENCES_PER_EVENT", club.Calendar.MaxOccurrencesPerEvent)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("WEATHER_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	mockOnError, err := parseBool("WEATHER_MOCK_ON_ERROR", true)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ClubName:               sharedcfg.EnvOrDefault("CLUB_NAME", club.Name),
		DisplayTimezone:        sharedcfg.EnvOrDefault("DISPLAY_TIMEZONE", club.Timezone),
		CalendarProductID:      club.Calendar.ProductID,
		CalendarUIDDomain:      sharedcfg.EnvOrDefault("CALENDAR_UID_DOMAIN", club.Calendar.UIDDomain),
		EventURL:               sharedcfg.EnvOrDefault("EVENT_URL", club.Calendar.EventURL),
		MaxOccurrencesPerEvent: maxOccurrences,

		BackendURL:      strings.TrimRight(sharedcfg.EnvOrDefault("BACKEND_URL", club.Backend.URL), "/"),
		BackendTimeout:  backendTimeout,
		BackendUsername: os.Getenv("BACKEND_USERNAME"),
		BackendPassword: os.Getenv("BACKEND_PASSWORD"),

		WeatherAPIKey:      os.Getenv("WEATHER_API_KEY"),
		WeatherBaseURL:     os.Getenv("WEATHER_BASE_URL"),
		WeatherTimeout:     weatherTimeout,
		WeatherLat:         lat,
		WeatherLon:         lon,
		WeatherLocation:    sharedcfg.EnvOrDefault("WEATHER_LOCATION", club.Weather.Location),
		WeatherCacheFile:   os.Getenv("WEATHER_CACHE_FILE"),
		WeatherCacheSize:   cacheSize,
		WeatherRefreshCron: sharedcfg.EnvOrDefault("WEATHER_REFRESH_CRON", club.Weather.RefreshCron),
		WeatherMockOnError: mockOnError,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "club-events"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "calendar-occurrences"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "club-calendar"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE %q: %w", cfg.DisplayTimezone, err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.BackendURL == "" {
		return errors.New("BACKEND_URL is required")
	}
	if (c.BackendUsername == "") != (c.BackendPassword == "") {
		return errors.New("BACKEND_USERNAME and BACKEND_PASSWORD must be set together")
	}
	if c.WeatherLocation == "" {
		return errors.New("WEATHER_LOCATION is required")
	}
	if c.EventURL != "" && !strings.Contains(c.EventURL, "%s") {
		return errors.New("EVENT_URL must contain %s for the event ID")
	}
	if !c.KafkaEnabled {
		return nil
	}
	if len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	if c.KafkaSourceTopic == "" {
		return errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required")
	}
	if c.KafkaSourceTopic == c.KafkaSinkTopic {
		return errors.New("KAFKA_SINK_TOPIC must differ from KAFKA_SOURCE_TOPIC")
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, def, limit float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < -limit || f > limit {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s", key)
	}
	return b, nil
}
