package cfg

type Cfg struct {
	// Storage configuration
	DBPath       string
	SettingsFile string

	// Application configuration
	Port               string
	BaseUrl            string
	APIAccessKey       string
	WorkerCount        int
	TokenCheckInterval int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
