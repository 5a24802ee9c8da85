// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ward Contributors

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sys/unix"

	"github.com/ward-dev/ward/internal/config"
	"github.com/ward-dev/ward/internal/plugin/approval"
	warderr "github.com/ward-dev/ward/pkg/errors"
	"github.com/ward-dev/ward/pkg/plugin"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check binary health, the sandbox mechanism, plugin runtimes, the plugins directory, the approval store, and disk space.",
		RunE:  runDoctor,
	}

	cmd.Flags().String("address", defaultHostAddr, "host address to check")

	return cmd
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")
	pluginsDir := resolvePluginsDir()

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Host", func() string { return checkHost(addr) }},
		{"Config", checkConfig},
		{"Sandbox", checkSandbox},
		{"Node runtime", func() string { return checkRuntime("node") }},
		{"Python runtime", func() string { return checkRuntime("python3") }},
		{"Plugins", func() string { return checkPlugins(pluginsDir) }},
		{"Approvals", checkApprovals},
		{"Disk Space", func() string { return checkDiskSpace(pluginsDir) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

// resolvePluginsDir returns the plugins directory from viper or the default.
func resolvePluginsDir() string {
	if dir := viper.GetString("plugins.dir"); dir != "" {
		return dir
	}
	dir, err := config.DefaultDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "plugins")
}

func checkBinary() string {
	return fmt.Sprintf("ward %s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkHost(addr string) string {
	host := newHostClient(addr)
	var body struct {
		Status string `json:"status"`
	}
	if err := host.getJSON("/api/v1/status", &body); err != nil {
		if warderr.HasCode(err, warderr.CodeCLIHostNotRunning) {
			return fmt.Sprintf("not running at %s (run 'ward serve')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", body.Status, addr)
}

func checkConfig() string {
	cfgFile := viper.ConfigFileUsed()
	if cfgFile != "" {
		return fmt.Sprintf("loaded from %s", cfgFile)
	}
	return "using defaults (no config file found)"
}

func checkSandbox() string {
	if runtime.GOOS != "darwin" {
		return fmt.Sprintf("no sandbox on %s (plugins need allow_unconfined)", runtime.GOOS)
	}
	if _, err := exec.LookPath("sandbox-exec"); err != nil {
		return "sandbox-exec not found"
	}
	return "seatbelt (sandbox-exec) available"
}

func checkRuntime(name string) string {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Sprintf("%s not found (plugins using it will fail to load)", name)
	}
	return path
}

func checkPlugins(pluginsDir string) string {
	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("no plugins directory at %s", pluginsDir)
		}
		return fmt.Sprintf("error reading plugins: %s", err)
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(pluginsDir, e.Name(), plugin.ManifestFilename)); err == nil {
			count++
		}
	}

	if count == 0 {
		return fmt.Sprintf("no plugins in %s", pluginsDir)
	}
	return fmt.Sprintf("%d plugin(s) found in %s", count, pluginsDir)
}

func checkApprovals() string {
	path, err := approval.DefaultPath()
	if err != nil {
		return fmt.Sprintf("unable to resolve: %s", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "no decisions recorded yet"
	}
	store := approval.Open(path)
	return fmt.Sprintf("%d approved, %d denied (%s)", len(store.Approvals()), len(store.Denials()), path)
}

func checkDiskSpace(pluginsDir string) string {
	path := pluginsDir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
