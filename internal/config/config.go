package config

import "os"

// Provider names accepted in CALENDAR_PROVIDER.
const (
	ProviderGoogle = "google"
	ProviderCalDAV = "caldav"
)

// CalDAV holds the connection settings for a CalDAV calendar-of-record.
type CalDAV struct {
	Endpoint string
	Username string
	Password string
	Calendar string
}

// Config carries all environment-sourced settings. It is built once at
// process start and passed into constructors; nothing reads the
// environment after that.
type Config struct {
	ListenAddr string
	LogLevel   string

	Provider   string
	CalendarID string
	Timezone   string

	GoogleCredentialsJSON string
	CalDAV                CalDAV
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		Provider:   getEnv("CALENDAR_PROVIDER", ProviderGoogle),
		CalendarID: getEnv("CALENDAR_ID", "primary"),
		Timezone:   getEnv("TIMEZONE", "America/Los_Angeles"),

		GoogleCredentialsJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		CalDAV: CalDAV{
			Endpoint: getEnv("CALDAV_ENDPOINT", ""),
			Username: getEnv("CALDAV_USERNAME", ""),
			Password: getEnv("CALDAV_PASSWORD", ""),
			Calendar: getEnv("CALDAV_CALENDAR", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
