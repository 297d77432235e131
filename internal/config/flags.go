package config

import (
	"flag"
	"strings"
)

var (
	flagConfig   = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagFormat   = flag.String("format", "", "Force importer by extension (gltf, glb, rsm)")
	flagOutput   = flag.String("output", "", "Output format: text or yaml")
	flagVerbose  = flag.Bool("v", false, "Verbose output")
	flagArchives archiveList
)

func init() {
	flag.Var(&flagArchives, "archive", "GRF archive to read models from (repeatable)")
}

// archiveList collects repeated -archive flags.
type archiveList []string

func (a *archiveList) String() string { return strings.Join(*a, ",") }

func (a *archiveList) Set(v string) error {
	*a = append(*a, v)
	return nil
}

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the non-flag arguments.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagFormat != "" {
		cfg.Import.Format = *flagFormat
	}
	if *flagOutput != "" {
		cfg.Output.Format = *flagOutput
	}
	if *flagVerbose {
		cfg.Output.Verbose = true
	}
	if len(flagArchives) > 0 {
		// Archives named on the command line are searched first.
		cfg.Import.Archives = append(append([]string(nil), flagArchives...), cfg.Import.Archives...)
	}
}
