package main

import "github.com/magefile/mage/sh"

const binLint = "golangci-lint"

// Lint runs golangci-lint over every package.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}
