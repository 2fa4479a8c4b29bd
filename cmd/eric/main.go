// Command eric keeps monday.com board records in a cache and serves the
// webhooks that refresh it.
package main

import "github.com/mesh-intelligence/eric/internal/cli"

func main() {
	cli.Execute()
}
