package cmd

import (
	"flag"

	"github.com/pkg/errors"

	"github.com/Tarek92l/renode-infrastructure/go/log"
)

// LogFlags registers -loglevel and -logjson on fs. Call the returned func after fs.Parse.
func LogFlags(fs *flag.FlagSet) func() error {
	level := fs.String("loglevel", "info", "log level (trace, debug, info, warn, error)")
	json := fs.Bool("logjson", false, "log as JSON lines instead of console text")
	return func() error {
		lvl, err := log.ParseLogLevel(*level)
		if err != nil {
			return errors.Wrapf(err, "bad -loglevel '%s'", *level)
		}
		opts := log.Options{LogLevel: lvl}
		if *json {
			opts.Type = log.JSONLogger
		}
		log.Init(opts)
		return nil
	}
}
