package config

import "flag"

// Flags holds command-line overrides registered on a FlagSet.
type Flags struct {
	config   *string
	debug    *bool
	vmapsDir *string
	manifest *string
	listen   *string
	noLOS    *bool
}

// RegisterFlags registers the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		config:   fs.String("config", "", "Path to config file"),
		debug:    fs.Bool("debug", false, "Enable debug logging"),
		vmapsDir: fs.String("vmaps", "", "Directory holding model files"),
		manifest: fs.String("manifest", "", "Game object model manifest"),
		listen:   fs.String("listen", "", "Query service listen address"),
		noLOS:    fs.Bool("no-los", false, "Disable line of sight checks"),
	}
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.vmapsDir != "" {
		cfg.Data.VMapsDir = *f.vmapsDir
	}
	if *f.manifest != "" {
		cfg.Data.Manifest = *f.manifest
	}
	if *f.listen != "" {
		cfg.Server.Listen = *f.listen
	}
	if *f.noLOS {
		cfg.Collision.EnableLineOfSight = false
	}
}
