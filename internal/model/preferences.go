package model

// NotificationPreferences are cached locally per user.
type NotificationPreferences struct {
	EmailOnScan    bool `json:"email_on_scan"`
	EmailOnContact bool `json:"email_on_contact"`
	WeeklySummary  bool `json:"weekly_summary"`
	ProductUpdates bool `json:"product_updates"`
}

// Theme values for AppearancePreferences
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// AppearancePreferences are cached locally per user and reapplied at startup.
type AppearancePreferences struct {
	Theme       string `json:"theme"`
	CompactMode bool   `json:"compact_mode"`
	AccentColor string `json:"accent_color"`
}

// DefaultNotificationPreferences returns the preferences used when none are stored.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{EmailOnScan: true, EmailOnContact: true, WeeklySummary: true}
}

// DefaultAppearancePreferences returns the preferences used when none are stored.
func DefaultAppearancePreferences() AppearancePreferences {
	return AppearancePreferences{Theme: ThemeSystem, AccentColor: "blue"}
}
