package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// testArgs builds "go test" arguments, honouring --run <regexp> after the
// target name.
func testArgs(extra ...string) ([]string, error) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	run := fs.String("run", "", "only run tests matching regexp")
	if err := parseTargetFlags(fs); err != nil {
		return nil, err
	}

	args := append([]string{"test"}, extra...)
	if *run != "" {
		args = append(args, "-run", *run)
	}
	return append(args, "./..."), nil
}

func goTest(extra ...string) error {
	args, err := testArgs(extra...)
	if err != nil {
		return err
	}
	return sh.RunV(binGo, args...)
}

// All runs all tests.
func (Test) All() error {
	return goTest("-v")
}

// Unit runs tests with -short.
func (Test) Unit() error {
	return goTest("-short")
}

// Race runs all tests with the race detector.
func (Test) Race() error {
	return goTest("-race")
}

// Cover writes a coverage profile to bin/coverage.out and prints the summary.
func (Test) Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(binaryDir, "coverage.out")
	if err := goTest("-coverprofile", profile); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func", profile)
}
