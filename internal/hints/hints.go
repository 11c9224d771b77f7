// Package hints turns common failures into one-line suggestions, appended to
// error messages as "\n  hint: <text>".
package hints

import (
	"os"
	"strings"
)

// ciVars mark a CI runner when any of them is set.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// Host is what the browser hints know about the machine.
type Host struct {
	Container       bool
	ContainerSignal string // which check detected the container
	CI              bool
	NoSandbox       bool // ROD_NO_SANDBOX=1
	BrowserBin      string
}

// Probe reads the host through getenv and exists, so callers and tests can
// substitute both.
func Probe(getenv func(string) string, exists func(path string) bool) Host {
	h := Host{
		NoSandbox:  getenv("ROD_NO_SANDBOX") == "1",
		BrowserBin: getenv("ROD_BROWSER_BIN"),
	}
	h.Container, h.ContainerSignal = containerSignal(getenv, exists)
	for _, v := range ciVars {
		if getenv(v) != "" {
			h.CI = true
			break
		}
	}
	return h
}

// DetectHost probes the running process.
func DetectHost() Host {
	return Probe(os.Getenv, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

// containerSignal checks, in order: the MD2PDF_CONTAINER override,
// /.dockerenv, podman's container variable, then Kubernetes.
func containerSignal(getenv func(string) string, exists func(string) bool) (bool, string) {
	switch {
	case getenv("MD2PDF_CONTAINER") == "1":
		return true, "MD2PDF_CONTAINER=1"
	case exists("/.dockerenv"):
		return true, "/.dockerenv"
	case getenv("container") != "":
		return true, "container=" + getenv("container")
	case getenv("KUBERNETES_SERVICE_HOST") != "":
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// NeedsNoSandbox reports whether Chrome will likely refuse to start sandboxed.
func (h Host) NeedsNoSandbox() bool {
	return (h.Container || h.CI) && !h.NoSandbox
}

// ForBrowserConnect suggests the launcher variables that fix Chrome start
// failures on h.
func ForBrowserConnect(h Host) string {
	var hints []string
	if h.NeedsNoSandbox() {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if h.BrowserBin == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use custom Chrome")
	}
	return join(hints)
}

// ForTimeout suggests a longer timeout.
func ForTimeout() string {
	return format("for large documents or slow image hosts, use --timeout flag")
}

// ForConfigNotFound suggests --config, and the user config location
// (~/.config/md2pdf-web/) when it was among the searched paths.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"
	for _, p := range searchedPaths {
		if strings.Contains(strings.ReplaceAll(p, `\`, "/"), "md2pdf-web/") {
			hint += " or create " + p
			break
		}
	}
	return format(hint)
}

func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForUnknownTheme lists the accepted theme names.
func ForUnknownTheme(available []string) string {
	if len(available) == 0 {
		return ""
	}
	return format("available: " + strings.Join(available, ", "))
}

// ForRemoteRender points at the render service, or at native printing.
func ForRemoteRender(endpoint string) string {
	if endpoint == "" {
		return ""
	}
	return format("check the render service at " + endpoint + " or unset MD2PDF_WORKER_URL to print locally")
}

// ForPayloadTooLarge suggests local assembly, which has no size ceiling.
func ForPayloadTooLarge() string {
	return format("inlined images count toward the limit; use `md2pdf export --local` for large documents")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func join(hints []string) string {
	return format(strings.Join(hints, "; "))
}
