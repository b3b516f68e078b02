package configuration

// Configuration is the set of flags/env vars idxctl accepts, loaded via
// github.com/fulldump/goconfig the same way the teacher's cmd/inceptiondb
// loads its own Configuration.
type Configuration struct {
	Dir             string `usage:"database directory (required)"`
	LogFile         string `usage:"modification/access log path, relative to Dir if not absolute"`
	PerformRecovery bool   `usage:"recover silently on open instead of failing with NeedsRecovery"`
	BlockSize       int    `usage:"block size for newly created tables (power of two, 2048..65536)"`
	ReadOnly        bool   `usage:"open the database read-only"`
}

// Default returns the configuration's defaults before goconfig.Read
// overlays flags and environment variables onto it. BlockSize mirrors
// store.DefaultBlockSize; kept as a literal here to avoid this package
// depending on store for a single constant.
func Default() Configuration {
	return Configuration{
		BlockSize: 8192,
	}
}
