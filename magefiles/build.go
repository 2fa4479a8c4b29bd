// Package main provides build targets for eric using Mage.
//
// Usage:
//
//	mage build          Compile eric to bin/
//	mage install        Install eric to GOPATH/bin
//	mage clean          Remove build artifacts
//	mage lint           Run golangci-lint
//	mage test:all       Run all tests
//	mage test:unit      Run tests with -short
//	mage test:race      Run all tests with the race detector
//	mage test:cover     Write coverage to bin/coverage.out
//	mage redis:up       Start a development Redis container
//	mage redis:down     Stop it
//	mage stats          Print Go line counts as JSON
package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "eric"
	binaryDir  = "bin"
	cmdDir     = "./cmd/eric"
	versionVar = "github.com/mesh-intelligence/eric/internal/cli.Version"
)

// version returns the version stamped into the binary: $ERIC_VERSION, else
// the git description, else "dev".
func version() string {
	if v := os.Getenv("ERIC_VERSION"); v != "" {
		return v
	}
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || out == "" {
		return "dev"
	}
	return strings.TrimPrefix(out, "v")
}

// Build compiles the eric binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-s -w -X " + versionVar + "=" + version()
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
