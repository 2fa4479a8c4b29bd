package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Redis groups the development Redis targets.
type Redis mg.Namespace

const (
	redisContainer = "eric-redis"
	redisImage     = "redis:7-alpine"
)

// containerRuntime returns "podman" or "docker" if a working runtime
// is available, or "" if neither is usable. It checks both that the
// binary exists on PATH and that it can connect to its daemon/machine.
func containerRuntime() string {
	for _, name := range []string{"podman", "docker"} {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		if exec.Command(name, "info").Run() != nil {
			fmt.Fprintf(os.Stderr, "WARNING: %s found on PATH but not usable (is the daemon/machine running?)\n", name)
			continue
		}
		return name
	}
	return ""
}

func runtimeCmd(rt string, args ...string) *exec.Cmd {
	cmd := exec.Command(rt, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd
}

// Up starts a throwaway Redis container. Use --port to change the host port.
//
//	mage redis:up --port 6380
func (Redis) Up() error {
	fs := flag.NewFlagSet("redis:up", flag.ContinueOnError)
	port := fs.Int("port", 6379, "host port")
	if err := parseTargetFlags(fs); err != nil {
		return err
	}

	rt := containerRuntime()
	if rt == "" {
		return fmt.Errorf("no container runtime found (tried podman, docker)")
	}
	if err := runtimeCmd(rt, "run", "-d", "--rm",
		"--name", redisContainer,
		"-p", fmt.Sprintf("%d:6379", *port),
		redisImage).Run(); err != nil {
		return fmt.Errorf("starting %s: %w", redisContainer, err)
	}
	fmt.Printf("export ERIC_CACHE_BACKEND=redis ERIC_REDIS_URL=redis://localhost:%d/0\n", *port)
	return nil
}

// Down stops the Redis container. Errors are ignored because the
// container may not be running.
func (Redis) Down() {
	rt := containerRuntime()
	if rt == "" {
		return
	}
	_ = runtimeCmd(rt, "stop", redisContainer).Run()
}
