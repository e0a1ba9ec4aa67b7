package dbx

// Settings holds the connection details for one database in one environment.
// Password is kept in cleartext in memory; on disk it is stored encrypted
// under the data key, and SecretHash records which key was used.
type Settings struct {
	Database    string `toml:"database"`
	Hostname    string `toml:"hostname"`
	Port        string `toml:"port"`
	User        string `toml:"user"`
	Password    string `toml:"password"`
	Environment string `toml:"environment"`
	SSLMode     string `toml:"sslmode"`
	SSLRootCert string `toml:"sslrootcert"`
	SecretHash  string `toml:"secret_hash"`
}

// DefaultEnvironment is used when no environment is given on the command line.
const DefaultEnvironment = "dev"

// DefaultSettings returns the baseline connection settings offered as
// prompt defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Database:    "sample",
		Hostname:    "localhost",
		Port:        "5432",
		User:        "postgres",
		Password:    "password",
		Environment: DefaultEnvironment,
		SSLMode:     "disable",
	}
}

// SettingsStore persists per-environment connection settings, encrypting the
// password under the given data key on save and decrypting it on load.
type SettingsStore interface {
	// Load reads the settings for the given target. Returns
	// ErrSettingsNotFound if no file exists, and ErrWrongSecretKey if the
	// file was written under a different data key.
	Load(environment, hostname, database string, key *SecretKey) (*Settings, error)

	// Save writes the settings with owner-only file permissions.
	Save(s *Settings, key *SecretKey) error
}
