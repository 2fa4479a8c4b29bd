package main

import (
	"errors"
	"flag"
	"os"
	"strings"

	"github.com/magefile/mage/mg"
)

// targetArgs holds the arguments after the mage target name, for example
// ["--port", "6380"] in "mage redis:up --port 6380". Mage itself only takes
// positional parameters, so init strips them from os.Args before mage parses.
var targetArgs []string

func init() {
	os.Args, targetArgs = splitTargetArgs(os.Args)
}

// splitTargetArgs cuts args after the first non-flag argument, the target.
// Everything before "--" that starts with "-" belongs to mage.
func splitTargetArgs(args []string) (mageArgs, rest []string) {
	for i := 1; i < len(args); i++ {
		switch {
		case args[i] == "--":
			return args, nil
		case args[i] == "", strings.HasPrefix(args[i], "-"):
			continue
		default:
			return args[:i+1], args[i+1:]
		}
	}
	return args, nil
}

// parseTargetFlags parses targetArgs into fs. --help exits after fs prints
// its usage.
func parseTargetFlags(fs *flag.FlagSet) error {
	err := fs.Parse(targetArgs)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	}
	return mg.Fatalf(2, "%s: %v", fs.Name(), err)
}
