package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	md2pdf "github.com/alnah/md2pdf-web"
	"github.com/alnah/md2pdf-web/internal/assets"
	"github.com/alnah/md2pdf-web/internal/browser"
	"github.com/alnah/md2pdf-web/internal/config"
	"github.com/alnah/md2pdf-web/internal/fileutil"
	"github.com/alnah/md2pdf-web/internal/hints"
	"github.com/alnah/md2pdf-web/internal/inliner"
	"github.com/alnah/md2pdf-web/internal/pipeline"
	"github.com/alnah/md2pdf-web/internal/server"
	"github.com/alnah/md2pdf-web/internal/session"
)

// stdinArg reads the document from standard input.
const stdinArg = "-"

// input is the Markdown a command works on.
type input struct {
	content string
	dir     string // directory relative images resolve against, empty = none
	source  string // file path, "stdin" or the session source
}

// ---------------------------------------------------------------------------
// preview
// ---------------------------------------------------------------------------

func runPreview(ctx context.Context, args []string, env *Environment) error {
	f, rest, err := parsePreviewFlags(args, env)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(f.common.config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(env.Stderr, f.common)

	sess, closeSession := openSession(cfg, env, logger)
	defer closeSession()

	in, err := readMarkdown(ctx, rest, env, sess)
	if err != nil {
		return err
	}

	frag := pipeline.NewRenderer().Preview(ctx, in.content)
	out := frag.HTML
	if f.document {
		theme, err := resolveTheme(ctx, f.doc.theme, cfg, sess)
		if err != nil {
			return err
		}
		styles, err := styleLoader(cfg, logger)
		if err != nil {
			return err
		}
		if out, err = md2pdf.BuildDocumentWith(ctx, styles, frag.HTML, theme); err != nil {
			return err
		}
	}

	if f.output == "" {
		_, err := io.WriteString(env.Stdout, out+"\n")
		return err
	}
	if err := fileutil.WriteFileAtomic(f.output, []byte(out), 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	newStatus(env.Stderr, f.common.quiet).Success("Wrote %s", f.output)
	return nil
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

func runExport(ctx context.Context, args []string, env *Environment) error {
	f, rest, err := parseExportFlags(args, env)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(f.common.config)
	if err != nil {
		return err
	}
	mergeExportFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(env.Stderr, f.common)
	st := newStatus(env.Stderr, f.common.quiet)

	sess, closeSession := openSession(cfg, env, logger)
	defer closeSession()

	in, err := readMarkdown(ctx, rest, env, sess)
	if err != nil {
		return err
	}
	logger.Debug("exporting", "source", in.source, "local", f.local, "endpoint", cfg.Export.Endpoint)
	switch {
	case f.local:
		st.Info("Assembling PDF locally")
	case cfg.Export.Endpoint != "":
		st.Info("Rendering with %s", cfg.Export.Endpoint)
	default:
		st.Info("Printing with headless Chrome")
	}

	var (
		artifact *md2pdf.Artifact
		warnings []string
	)
	if f.local {
		result, err := assemble(ctx, in, cfg, env, logger)
		if err != nil {
			return err
		}
		artifact, warnings = &result.Artifact, result.Warnings
	} else {
		theme, err := resolveTheme(ctx, f.doc.theme, cfg, sess)
		if err != nil {
			return err
		}
		if artifact, err = export(ctx, in, theme, cfg, env, logger); err != nil {
			return err
		}
	}

	path, err := writeArtifact(cfg.Export.OutputDir, artifact)
	if err != nil {
		return err
	}
	st.Success("Saved %s", path)
	for _, w := range warnings {
		st.Warn(w)
	}
	return nil
}

// assemble builds the PDF locally, embedding images found in the document.
func assemble(ctx context.Context, in *input, cfg *config.Config, env *Environment, logger *slog.Logger) (*md2pdf.AssembleResult, error) {
	images, err := newInliner(cfg, in.dir, logger)
	if err != nil {
		return nil, err
	}
	return md2pdf.NewAssembler(
		md2pdf.WithInliner(images),
		md2pdf.WithCreator(cfg.Export.Creator),
		md2pdf.WithDateFormat(cfg.Export.DateFormat),
		md2pdf.WithClock(env.Now),
		md2pdf.WithLogger(logger),
	).Assemble(ctx, in.content)
}

// export prints the themed document through the render service, or through
// headless Chrome when no endpoint is configured.
func export(ctx context.Context, in *input, theme assets.Theme, cfg *config.Config, env *Environment, logger *slog.Logger) (*md2pdf.Artifact, error) {
	styles, err := styleLoader(cfg, logger)
	if err != nil {
		return nil, err
	}
	opts := []md2pdf.ExporterOption{
		md2pdf.WithTheme(theme),
		md2pdf.WithStyles(styles),
		md2pdf.WithExportDateFormat(cfg.Export.DateFormat),
		md2pdf.WithExportTimeout(config.Duration(cfg.Export.Timeout, md2pdf.DefaultTimeout)),
		md2pdf.WithExportClock(env.Now),
		md2pdf.WithExportLogger(logger),
	}

	endpoint := cfg.Export.Endpoint
	if endpoint != "" {
		client, err := md2pdf.NewRemoteClient(endpoint, md2pdf.WithClientLogger(logger))
		if err != nil {
			return nil, err
		}
		opts = append(opts, md2pdf.WithRemoteClient(client))
	} else {
		printer := env.Printer
		if printer == nil {
			m := browser.NewManager(browser.Options{Workers: 1, Logger: logger})
			defer m.Close()
			printer = md2pdf.NewNativePrinter(m)
		}
		opts = append(opts, md2pdf.WithPrinter(printer), md2pdf.WithSourceDir(in.dir))
	}

	artifact, err := md2pdf.NewExporter(opts...).Export(ctx, in.content)
	if err != nil && endpoint != "" && errors.Is(err, md2pdf.ErrRemoteRender) {
		return nil, withHint(err, hints.ForRemoteRender(endpoint))
	}
	return artifact, err
}

// styleLoader reads stylesheets from preview.assetsDir, falling back to the
// embedded ones.
func styleLoader(cfg *config.Config, logger *slog.Logger) (*assets.AssetResolver, error) {
	r, err := assets.NewAssetResolver(cfg.Preview.AssetsDir)
	if err != nil {
		return nil, err
	}
	if r.HasCustomLoader() {
		logger.Debug("using style overrides", "dir", cfg.Preview.AssetsDir)
	}
	return r, nil
}

// newInliner wires the image fetchers: http(s) always, file:// under the
// document directory when allowed.
func newInliner(cfg *config.Config, dir string, logger *slog.Logger) (*inliner.Inliner, error) {
	timeout := config.Duration(cfg.Inliner.Timeout, inliner.DefaultFetchTimeout)

	httpOpts := []inliner.HTTPOption{inliner.WithHTTPTimeout(timeout)}
	if cfg.Inliner.MaxImageBytes > 0 {
		httpOpts = append(httpOpts, inliner.WithHTTPMaxBytes(cfg.Inliner.MaxImageBytes))
	}
	httpFetcher := inliner.NewHTTPFetcher(httpOpts...)
	fetchers := inliner.SchemeFetcher{"http": httpFetcher, "https": httpFetcher}

	opts := []inliner.Option{
		inliner.WithConcurrency(cfg.Inliner.Concurrency),
		inliner.WithTimeout(timeout),
		inliner.WithRateLimit(cfg.Inliner.RatePerHost),
		inliner.WithLogger(logger),
	}

	if dir != "" {
		base, err := inliner.DirURL(dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, inliner.WithBaseURL(base))

		if cfg.Inliner.AllowFiles {
			files, err := inliner.NewFileFetcher(dir)
			if err != nil {
				return nil, err
			}
			fetchers["file"] = files
		}
	}

	return inliner.New(inliner.NewLoggingFetcher(fetchers, logger), opts...), nil
}

// writeArtifact writes the PDF under dir (default: current directory).
func writeArtifact(dir string, a *md2pdf.Artifact) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", withHint(fmt.Errorf("%w: creating %s: %w", ErrWriteOutput, dir, err), hints.ForOutputDirectory())
	}
	path := filepath.Join(dir, filepath.Base(a.Filename))
	if err := fileutil.WriteFileAtomic(path, a.PDF, 0o644); err != nil {
		return "", fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	return path, nil
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func runServe(ctx context.Context, args []string, env *Environment) error {
	f, rest, err := parseServeFlags(args, env)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: serve takes no arguments", ErrTooManyArgs)
	}

	cfg, err := loadConfig(f.common.config)
	if err != nil {
		return err
	}
	mergeServeFlags(f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(env.Stderr, f.common)
	if !f.common.quiet && !f.common.verbose {
		logger = slog.New(slog.NewTextHandler(env.Stderr, nil))
	}

	timeout := config.Duration(cfg.Server.Timeout, server.DefaultRenderTimeout)
	m := browser.NewManager(browser.Options{
		Workers:      cfg.Server.Workers,
		RecycleAfter: cfg.Server.RecycleAfter,
		Timeout:      timeout,
		Logger:       logger,
	})
	defer m.Close()

	logger.Info("render sessions", "workers", m.Size(), "recycle_after", cfg.Server.RecycleAfter)

	srv := server.New(m, server.Options{
		AllowedOrigin: cfg.Server.AllowedOrigin,
		Timeout:       timeout,
		Logger:        logger,
	})
	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

// ---------------------------------------------------------------------------
// session, reset
// ---------------------------------------------------------------------------

func runSession(ctx context.Context, args []string, env *Environment) error {
	f, rest, err := parseSessionFlags(args, env)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: session takes no arguments", ErrTooManyArgs)
	}

	cfg, err := loadConfig(f.common.config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(env.Stderr, f.common)
	st := newStatus(env.Stderr, f.common.quiet)

	sess, closeSession := openSession(cfg, env, logger)
	defer closeSession()

	if f.clear {
		sess.Clear(ctx)
		st.Success("Session cleared")
		return nil
	}
	if f.theme != "" {
		theme, err := assets.ParseTheme(f.theme)
		if err != nil {
			return err
		}
		sess.SaveTheme(ctx, theme)
		st.Success("Theme set to %s", theme)
	}
	if f.scrollSync != "" {
		on, err := parseSwitch(f.scrollSync)
		if err != nil {
			return err
		}
		sess.SaveScrollSync(ctx, on)
		st.Success("Scroll sync %s", f.scrollSync)
	}

	printSessionState(env.Stdout, sess.Load(ctx), cfg)
	return nil
}

func runReset(ctx context.Context, args []string, env *Environment) error {
	f, rest, err := parseCommonFlags("reset", args, printResetUsage, env)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: reset takes no arguments", ErrTooManyArgs)
	}

	cfg, err := loadConfig(f.config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(env.Stderr, *f)

	sess, closeSession := openSession(cfg, env, logger)
	defer closeSession()

	content := sess.Reset(ctx)
	if !f.quiet {
		_, _ = io.WriteString(env.Stdout, content)
	}
	newStatus(env.Stderr, f.quiet).Success("Editor content reset")
	return nil
}

// printSessionState shows what the editor would start with.
func printSessionState(w io.Writer, s session.State, cfg *config.Config) {
	theme := cfg.Theme()
	themeSource := "config"
	if s.HasTheme {
		theme, themeSource = s.Theme, "session"
	}
	content := "none"
	if s.HasContent && s.Content != "" {
		content = fmt.Sprintf("%d bytes", len(s.Content))
	}
	scroll := "off"
	if s.ScrollSync {
		scroll = "on"
	}

	fmt.Fprintf(w, "content:     %s\n", content)
	fmt.Fprintf(w, "theme:       %s (%s)\n", theme, themeSource)
	fmt.Fprintf(w, "scroll sync: %s\n", scroll)
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected on or off, got %q", ErrUsage, s)
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func runConfig(args []string, env *Environment) error {
	f, rest, err := parseCommonFlags("config", args, printConfigUsage, env)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("%w: config takes no arguments", ErrTooManyArgs)
	}

	cfg, err := loadConfig(f.config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out, err := cfg.YAML()
	if err != nil {
		return err
	}
	_, err = io.WriteString(env.Stdout, out)
	return err
}

// ---------------------------------------------------------------------------
// Shared
// ---------------------------------------------------------------------------

// openSession opens the session store. Storage is best effort: when the
// store cannot be opened the command continues with a memory store.
func openSession(cfg *config.Config, env *Environment, logger *slog.Logger) (*session.BestEffort, func()) {
	store, err := env.OpenStore(cfg, logger)
	if err != nil {
		logger.Warn("session store unavailable, state will not persist", "error", err)
		store = session.NewMemoryStore()
	}
	return session.NewBestEffort(store, logger), func() {
		if err := store.Close(); err != nil {
			logger.Debug("closing session store", "error", err)
		}
	}
}

// readMarkdown reads the file named by args, standard input for "-", or the
// session content when no argument is given. Read documents become the
// session content.
func readMarkdown(ctx context.Context, args []string, env *Environment, sess *session.BestEffort) (*input, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("%w: expected one input, got %d", ErrTooManyArgs, len(args))
	}

	if len(args) == 0 {
		content, source := sess.InitialContent(ctx)
		return &input{content: content, source: string(source)}, nil
	}

	var in input
	if args[0] == stdinArg {
		data, err := io.ReadAll(env.Stdin)
		if err != nil {
			return nil, fmt.Errorf("%w: stdin: %w", ErrReadMarkdown, err)
		}
		in = input{content: string(data), source: "stdin"}
	} else {
		path := args[0]
		data, err := os.ReadFile(path) // #nosec G304 -- user-provided input path
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadMarkdown, err)
		}
		in = input{content: string(data), dir: filepath.Dir(path), source: path}
	}

	sess.SaveContent(ctx, in.content)
	return &in, nil
}

// resolveTheme picks the theme: --theme, then MD2PDF_THEME, then the theme
// remembered by the session, then the config file.
func resolveTheme(ctx context.Context, flagTheme string, cfg *config.Config, sess *session.BestEffort) (assets.Theme, error) {
	if flagTheme != "" {
		return assets.ParseTheme(flagTheme)
	}
	if loadEnvConfig().Theme != "" {
		return cfg.Theme(), nil
	}
	if t, ok := sess.Theme(ctx); ok {
		return t, nil
	}
	return cfg.Theme(), nil
}
