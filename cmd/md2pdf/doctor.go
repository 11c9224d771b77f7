package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	"github.com/alnah/md2pdf-web/internal/config"
	"github.com/alnah/md2pdf-web/internal/hints"
)

// probeTimeout bounds the render service reachability check.
const probeTimeout = 5 * time.Second

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo `json:"chrome"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Export   exportInfo `json:"export"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// exportInfo describes how export would produce the PDF.
type exportInfo struct {
	Mode      string `json:"mode"` // "remote" or "native"
	Endpoint  string `json:"endpoint,omitempty"`
	Reachable bool   `json:"reachable"`
	Theme     string `json:"theme"`
	StateDB   string `json:"state_db,omitempty"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	fs := newFlagSet("doctor")
	jsonOutput := fs.Bool("json", false, "print JSON")
	var common commonFlags
	addCommonFlags(fs, &common)
	if _, err := parseFlags(fs, args, printDoctorUsage, env); err != nil {
		if errors.Is(err, errHelp) {
			return ExitSuccess
		}
		return ExitUsage
	}

	result := runDoctor(ctx, common.config)

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitGeneral
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, configName string) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkEnvironment(result)
	checkSystem(result)
	cfg := checkConfig(result, configName)
	checkExport(ctx, result, cfg)

	// Determine final status
	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkChrome detects Chrome/Chromium installation. Missing Chrome is an
// error only when export prints natively.
func checkChrome(result *doctorResult, required bool) {
	report := func(msg string) {
		if required {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg+" (only needed without a render endpoint)")
		}
	}

	chromePath := result.Env.BrowserBin
	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			report("Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		report(fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- path from launcher or ROD_BROWSER_BIN
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkEnvironment records container and CI detection.
func checkEnvironment(result *doctorResult) {
	host := hints.DetectHost()
	result.Env.Container, result.Env.ContainerHint = host.Container, host.ContainerSignal
	result.Env.CI = host.CI

	if host.NeedsNoSandbox() {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// checkSystem verifies the temp directory used by native printing.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "md2pdf-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// checkConfig loads the configuration the way export does. On failure the
// defaults are diagnosed instead.
func checkConfig(result *doctorResult, name string) *config.Config {
	cfg, err := loadConfig(name)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
		return config.DefaultConfig()
	}
	return cfg
}

// checkExport reports the export mode and probes the render service with
// a CORS preflight, which it answers without rendering.
func checkExport(ctx context.Context, result *doctorResult, cfg *config.Config) {
	result.Export.Theme = string(cfg.Theme())
	if !cfg.Session.Disabled {
		result.Export.StateDB = cfg.Session.Path
		if result.Export.StateDB == "" {
			result.Export.StateDB, _ = config.DefaultStatePath()
		}
	}

	endpoint := cfg.Export.Endpoint
	if endpoint == "" {
		result.Export.Mode = "native"
		checkChrome(result, true)
		return
	}

	result.Export.Mode = "remote"
	result.Export.Endpoint = endpoint
	checkChrome(result, false)

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, endpoint, nil)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Render service: %v", err))
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Render service unreachable: %v", err))
		return
	}
	_ = resp.Body.Close()

	result.Export.Reachable = true
	if resp.StatusCode != http.StatusNoContent {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Render service answered preflight with HTTP %d, expected 204", resp.StatusCode))
	}
}

// doctorLine is one "[LEVEL] text" row of the human report.
type doctorLine struct {
	level string // OK, WARN, ERROR
	text  string
}

func okLine(format string, a ...any) doctorLine {
	return doctorLine{"OK", fmt.Sprintf(format, a...)}
}

type doctorSection struct {
	title string
	lines []doctorLine
}

// doctorSections groups the result the way the report prints it.
func doctorSections(r *doctorResult) []doctorSection {
	var chrome []doctorLine
	switch {
	case r.Chrome.Found:
		chrome = append(chrome, okLine("Found at %s", r.Chrome.Path))
		if r.Chrome.Version != "" {
			chrome = append(chrome, okLine("Version: %s", r.Chrome.Version))
		}
		if r.Chrome.Sandbox {
			chrome = append(chrome, okLine("Sandbox: enabled"))
		} else {
			chrome = append(chrome, okLine("Sandbox: disabled (ROD_NO_SANDBOX=1)"))
		}
	case r.Export.Mode == "remote":
		chrome = append(chrome, doctorLine{"WARN", "Not found"})
	default:
		chrome = append(chrome, doctorLine{"ERROR", "Not found"})
	}

	env := []doctorLine{okLine("Platform: %s/%s", r.Env.OS, r.Env.Arch)}
	if r.Env.Container {
		env = append(env, okLine("Container: detected (%s)", r.Env.ContainerHint))
	}
	if r.Env.CI {
		env = append(env, okLine("CI: detected"))
	}

	system := []doctorLine{{"ERROR", "Temp directory: not writable"}}
	if r.System.TempWritable {
		system = []doctorLine{okLine("Temp directory: writable")}
	}

	export := []doctorLine{okLine("Theme: %s", r.Export.Theme)}
	switch {
	case r.Export.Mode != "remote":
		export = append(export, okLine("Mode: native print (no endpoint configured)"))
	case r.Export.Reachable:
		export = append(export, okLine("Render service: %s", r.Export.Endpoint))
	default:
		export = append(export, doctorLine{"ERROR", "Render service: " + r.Export.Endpoint + " unreachable"})
	}
	if r.Export.StateDB != "" {
		export = append(export, okLine("Session: %s", r.Export.StateDB))
	}

	sections := []doctorSection{
		{"Chrome/Chromium", chrome},
		{"Environment", env},
		{"System", system},
		{"Export", export},
	}
	if len(r.Warnings) > 0 {
		sections = append(sections, doctorSection{"Warnings:", levelLines("WARN", r.Warnings)})
	}
	if len(r.Errors) > 0 {
		sections = append(sections, doctorSection{"Errors:", levelLines("ERROR", r.Errors)})
	}
	return sections
}

func levelLines(level string, texts []string) []doctorLine {
	lines := make([]doctorLine, len(texts))
	for i, t := range texts {
		lines[i] = doctorLine{level, t}
	}
	return lines
}

var statusLabels = map[string]string{
	"ready":    "Ready to export",
	"warnings": "Ready with warnings",
	"errors":   "Not ready (see errors above)",
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintf(w, "md2pdf doctor\n\n")
	for _, sec := range doctorSections(r) {
		fmt.Fprintln(w, sec.title)
		for _, l := range sec.lines {
			fmt.Fprintf(w, "  [%s] %s\n", l.level, l.text)
		}
		fmt.Fprintln(w)
	}
	if label, found := statusLabels[r.Status]; found {
		fmt.Fprintln(w, "Status: "+label)
	}
}
