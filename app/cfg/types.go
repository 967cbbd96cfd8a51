package cfg

type Cfg struct {
	// Archive configuration
	DBPath string

	// Watch configuration
	WatchURL        string
	SourcesDir      string
	Headless        bool
	ScanInterval    int
	DebounceWindow  int
	NavigationDelay int
	RevertDelay     int

	// Persistence configuration
	PersistURL string

	// One-shot mode
	ClipURL string

	// Application configuration
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
