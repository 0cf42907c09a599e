package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type launchctlRecorder struct {
	calls []string
	err   error
}

func (r *launchctlRecorder) run(args ...string) error {
	r.calls = append(r.calls, strings.Join(args, " "))
	return r.err
}

func newInstaller(t *testing.T, rec *launchctlRecorder) *Installer {
	t.Helper()
	dir := t.TempDir()
	return &Installer{
		BinPath:   "/usr/local/bin/whiskers",
		PlistPath: filepath.Join(dir, "LaunchAgents", Label+".plist"),
		WorkDir:   "/srv/whiskers",
		LogDir:    filepath.Join(dir, "Logs"),
		Run:       rec.run,
	}
}

func TestInstall_WritesAndLoadsPlist(t *testing.T) {
	rec := &launchctlRecorder{}
	i := newInstaller(t, rec)

	if err := i.Install(); err != nil {
		t.Fatalf("install: %v", err)
	}
	raw, err := os.ReadFile(i.PlistPath)
	if err != nil {
		t.Fatalf("reading plist: %v", err)
	}
	plist := string(raw)
	for _, want := range []string{
		"<string>com.whiskers.bot</string>",
		"<string>/usr/local/bin/whiskers</string>\n\t\t<string>serve</string>",
		"<string>/srv/whiskers</string>",
		"whiskers-stderr.log",
	} {
		if !strings.Contains(plist, want) {
			t.Errorf("plist missing %q:\n%s", want, plist)
		}
	}
	if strings.Contains(plist, "WHISKERS_SECRETS_FILE") {
		t.Error("no secrets file configured, env block should be absent")
	}
	if len(rec.calls) != 1 || rec.calls[0] != "load "+i.PlistPath {
		t.Errorf("unexpected launchctl calls %v", rec.calls)
	}

	// Reinstalling unloads the old agent first.
	rec.calls = nil
	if err := i.Install(); err != nil {
		t.Fatalf("reinstall: %v", err)
	}
	if len(rec.calls) != 2 || !strings.HasPrefix(rec.calls[0], "unload") {
		t.Errorf("unexpected launchctl calls %v", rec.calls)
	}
}

func TestInstall_SecretsFile(t *testing.T) {
	i := newInstaller(t, &launchctlRecorder{})
	i.SecretsFile = "/srv/whiskers/secrets.yaml"

	plist, err := i.render()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(plist, "<key>WHISKERS_SECRETS_FILE</key>\n\t\t<string>/srv/whiskers/secrets.yaml</string>") {
		t.Errorf("secrets file not passed through:\n%s", plist)
	}
}

func TestInstall_LoadFailure(t *testing.T) {
	i := newInstaller(t, &launchctlRecorder{err: errors.New("launchctl load: denied")})
	err := i.Install()
	if err == nil || !strings.Contains(err.Error(), "loading plist") {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestUninstall(t *testing.T) {
	rec := &launchctlRecorder{}
	i := newInstaller(t, rec)

	if err := i.Uninstall(); err != nil {
		t.Fatalf("uninstall without plist: %v", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("nothing to unload, got %v", rec.calls)
	}

	if err := i.Install(); err != nil {
		t.Fatal(err)
	}
	if err := i.Uninstall(); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	if _, err := os.Stat(i.PlistPath); !os.IsNotExist(err) {
		t.Errorf("plist still present: %v", err)
	}
}
