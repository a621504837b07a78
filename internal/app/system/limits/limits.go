// internal/app/system/limits/limits.go
package limits

const (
	// MaxJSONBody caps decoded request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// DefaultNotificationPage and MaxNotificationPage bound notification
	// listings.
	DefaultNotificationPage = 50
	MaxNotificationPage     = 200

	DefaultAuditPage = 100
	MaxAuditPage     = 500
)
