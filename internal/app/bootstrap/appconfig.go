// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig handles
// framework-level settings such as ports, TLS, logging and CORS; AppConfig
// carries everything specific to ProjectHub.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Identity
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: projecthub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	JWTSecret     string        // HS256 secret for bearer tokens
	TokenTTL      time.Duration // Bearer token and session lifetime

	// Realtime fan-out (RedisAddr blank disables it)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Deadline reminder worker
	ReminderInterval time.Duration
	ReminderWindow   time.Duration

	// Base URL for notification action links, e.g. "https://projects.example.com"
	BaseURL string

	// Audit logging destinations: all, db, log or off
	AuditLogAuth  string
	AuditLogAdmin string

	// Bootstrap admin; skipped when AdminEmail is blank
	AdminEmail    string
	AdminPassword string
	AdminName     string
}
