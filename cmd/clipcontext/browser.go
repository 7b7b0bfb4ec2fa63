package main

import (
	"context"
	"os"
	"runtime"
	"strings"

	"clipcontext/internal/deps"
	"clipcontext/internal/procexec"
)

func (c *commandContext) openURL(ctx context.Context, url string) error {
	if c.opener != nil {
		return c.opener(url)
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	command := browserCommand(runtime.GOOS, isWSL(), url)
	_, err = c.mediaRunner(cfg).Run(ctx, command)
	return err
}

// browserCommand picks the platform opener for url.
func browserCommand(goos string, wsl bool, url string) procexec.Command {
	switch {
	case goos == "darwin":
		return procexec.Command{Name: "open", Args: []string{url}}
	case goos == "windows":
		return procexec.Command{Name: "cmd", Args: []string{"/c", "start", "", url}}
	case wsl:
		if opener, ok := deps.FirstAvailable("wslview"); ok {
			return procexec.Command{Name: opener, Args: []string{url}}
		}
		return procexec.Command{Name: "cmd.exe", Args: []string{"/c", "start", "", url}}
	default:
		return procexec.Command{Name: "xdg-open", Args: []string{url}}
	}
}

func isWSL() bool {
	if os.Getenv("WSL_DISTRO_NAME") != "" {
		return true
	}
	data, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(data)), "microsoft")
}
