// Package service installs `whiskers serve` as a macOS launchd agent.
package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"
)

const Label = "com.whiskers.bot"

// Installer carries every path launchd needs. Run executes launchctl and is
// replaced in tests.
type Installer struct {
	BinPath     string
	PlistPath   string
	WorkDir     string
	LogDir      string
	SecretsFile string
	Run         func(args ...string) error
}

// Default uses ~/Library locations and the current directory as the working
// directory, so the service finds the same .env and secrets.json as a manual run.
func Default() (*Installer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving executable path: %w", err)
	}
	if exe, err = filepath.EvalSymlinks(exe); err != nil {
		return nil, fmt.Errorf("resolving symlinks: %w", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	secrets := os.Getenv("WHISKERS_SECRETS_FILE")
	if secrets != "" && !filepath.IsAbs(secrets) {
		secrets = filepath.Join(wd, secrets)
	}
	return &Installer{
		BinPath:     exe,
		PlistPath:   filepath.Join(home, "Library", "LaunchAgents", Label+".plist"),
		WorkDir:     wd,
		LogDir:      filepath.Join(home, "Library", "Logs"),
		SecretsFile: secrets,
		Run:         launchctl,
	}, nil
}

// Install writes the plist and loads it, replacing any previous install.
func (i *Installer) Install() error {
	plist, err := i.render()
	if err != nil {
		return fmt.Errorf("generating plist: %w", err)
	}

	if _, err := os.Stat(i.PlistPath); err == nil {
		_ = i.Run("unload", i.PlistPath)
	}
	if err := os.MkdirAll(filepath.Dir(i.PlistPath), 0o755); err != nil {
		return fmt.Errorf("creating LaunchAgents dir: %w", err)
	}
	if err := os.WriteFile(i.PlistPath, []byte(plist), 0o644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}
	if err := i.Run("load", i.PlistPath); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	return nil
}

// Uninstall unloads and removes the plist. A missing plist is not an error.
func (i *Installer) Uninstall() error {
	if _, err := os.Stat(i.PlistPath); os.IsNotExist(err) {
		return nil
	}
	if err := i.Run("unload", i.PlistPath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: unload failed: %v\n", err)
	}
	if err := os.Remove(i.PlistPath); err != nil {
		return fmt.Errorf("removing plist: %w", err)
	}
	return nil
}

func launchctl(args ...string) error {
	cmd := exec.Command("launchctl", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("launchctl %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return nil
}

var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinPath}}</string>
		<string>serve</string>
	</array>
	<key>WorkingDirectory</key>
	<string>{{.WorkDir}}</string>
{{- if .SecretsFile}}
	<key>EnvironmentVariables</key>
	<dict>
		<key>WHISKERS_SECRETS_FILE</key>
		<string>{{.SecretsFile}}</string>
	</dict>
{{- end}}
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.StdoutLog}}</string>
	<key>StandardErrorPath</key>
	<string>{{.StderrLog}}</string>
</dict>
</plist>
`))

func (i *Installer) render() (string, error) {
	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, struct {
		Label, BinPath, WorkDir, SecretsFile, StdoutLog, StderrLog string
	}{
		Label:       Label,
		BinPath:     i.BinPath,
		WorkDir:     i.WorkDir,
		SecretsFile: i.SecretsFile,
		StdoutLog:   filepath.Join(i.LogDir, "whiskers-stdout.log"),
		StderrLog:   filepath.Join(i.LogDir, "whiskers-stderr.log"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
