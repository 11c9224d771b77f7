package main

import (
	"io"

	flag "github.com/spf13/pflag"

	"github.com/alnah/md2pdf-web/internal/config"
)

// recycleUnset detects if --recycle-after was explicitly set, since 0 is a
// valid value (never recycle).
const recycleUnset = -1

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// documentFlags select the themed document.
type documentFlags struct {
	theme string
}

// previewFlags holds all flags for the preview command.
type previewFlags struct {
	common   commonFlags
	doc      documentFlags
	output   string
	document bool // full themed document instead of the fragment
}

// exportFlags holds all flags for the export command.
type exportFlags struct {
	common     commonFlags
	doc        documentFlags
	output     string
	endpoint   string
	timeout    string
	dateFormat string
	local      bool // assemble the PDF without a browser
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common        commonFlags
	addr          string
	workers       int
	recycleAfter  int
	timeout       string
	allowedOrigin string
}

// sessionFlags holds all flags for the session command.
type sessionFlags struct {
	common     commonFlags
	theme      string
	scrollSync string // on/off, empty = unchanged
	clear      bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs")
}

// addDocumentFlags adds theme selection to a FlagSet.
func addDocumentFlags(fs *flag.FlagSet, f *documentFlags) {
	fs.StringVar(&f.theme, "theme", "", "theme: laetus, githubDark, githubLight")
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// parsePreviewFlags parses preview command flags and returns positional args.
func parsePreviewFlags(args []string, env *Environment) (*previewFlags, []string, error) {
	fs := newFlagSet("preview")
	f := &previewFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output file (default: stdout)")
	fs.BoolVarP(&f.document, "document", "d", false, "emit the full themed document")
	addCommonFlags(fs, &f.common)
	addDocumentFlags(fs, &f.doc)

	rest, err := parseFlags(fs, args, printPreviewUsage, env)
	return f, rest, err
}

// parseExportFlags parses export command flags and returns positional args.
func parseExportFlags(args []string, env *Environment) (*exportFlags, []string, error) {
	fs := newFlagSet("export")
	f := &exportFlags{}

	fs.StringVarP(&f.output, "output", "o", "", "output directory")
	fs.StringVarP(&f.endpoint, "endpoint", "e", "", "render service URL")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "export timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.dateFormat, "date-format", "", "artifact name date format")
	fs.BoolVarP(&f.local, "local", "l", false, "assemble locally with inlined images")
	addCommonFlags(fs, &f.common)
	addDocumentFlags(fs, &f.doc)

	rest, err := parseFlags(fs, args, printExportUsage, env)
	return f, rest, err
}

// parseServeFlags parses serve command flags and returns positional args.
func parseServeFlags(args []string, env *Environment) (*serveFlags, []string, error) {
	fs := newFlagSet("serve")
	f := &serveFlags{}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default :8080)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent render sessions (0 = auto)")
	fs.IntVar(&f.recycleAfter, "recycle-after", recycleUnset, "pages per browser before relaunch (0 = never)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "per render timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.allowedOrigin, "allowed-origin", "", "Access-Control-Allow-Origin value")
	addCommonFlags(fs, &f.common)

	rest, err := parseFlags(fs, args, printServeUsage, env)
	return f, rest, err
}

// parseSessionFlags parses session command flags and returns positional args.
func parseSessionFlags(args []string, env *Environment) (*sessionFlags, []string, error) {
	fs := newFlagSet("session")
	f := &sessionFlags{}

	fs.StringVar(&f.theme, "theme", "", "remember a theme")
	fs.StringVar(&f.scrollSync, "scroll-sync", "", "remember scroll sync: on, off")
	fs.BoolVar(&f.clear, "clear", false, "forget all session state")
	addCommonFlags(fs, &f.common)

	rest, err := parseFlags(fs, args, printSessionUsage, env)
	return f, rest, err
}

// parseCommonFlags parses commands that take only common flags.
func parseCommonFlags(name string, args []string, usage func(io.Writer), env *Environment) (*commonFlags, []string, error) {
	fs := newFlagSet(name)
	f := &commonFlags{}
	addCommonFlags(fs, f)

	rest, err := parseFlags(fs, args, usage, env)
	return f, rest, err
}

// mergeExportFlags applies set flags over the loaded config (CLI wins).
// --theme is resolved separately, see resolveTheme.
func mergeExportFlags(f *exportFlags, cfg *config.Config) {
	if f.endpoint != "" {
		cfg.Export.Endpoint = f.endpoint
	}
	if f.timeout != "" {
		cfg.Export.Timeout = f.timeout
	}
	if f.dateFormat != "" {
		cfg.Export.DateFormat = f.dateFormat
	}
	if f.output != "" {
		cfg.Export.OutputDir = f.output
	}
}

// mergeServeFlags applies set flags over the loaded config (CLI wins).
func mergeServeFlags(f *serveFlags, cfg *config.Config) {
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.workers != 0 {
		cfg.Server.Workers = f.workers
	}
	if f.recycleAfter != recycleUnset {
		cfg.Server.RecycleAfter = f.recycleAfter
	}
	if f.timeout != "" {
		cfg.Server.Timeout = f.timeout
	}
	if f.allowedOrigin != "" {
		cfg.Server.AllowedOrigin = f.allowedOrigin
	}
}
