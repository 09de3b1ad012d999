package core

// AdapterConfig holds configuration for connecting a backend.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	// ServerName overrides the server name a backend reports as its true name.
	ServerName string
	Collation  string
	Options    map[string]string
}
