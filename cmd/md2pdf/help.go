package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/alnah/md2pdf-web/internal/dateutil"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  preview    Render markdown to an HTML fragment or themed document")
	fmt.Fprintln(w, "  export     Export markdown to PDF")
	fmt.Fprintln(w, "  serve      Run the PDF render service")
	fmt.Fprintln(w, "  session    Show or change the remembered editor state")
	fmt.Fprintln(w, "  reset      Replace the editor content with the default input")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  doctor     Check the system for PDF export")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'md2pdf help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs")
}

// printPreviewUsage prints usage for the preview command.
func printPreviewUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf preview [input] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Render markdown to sanitized HTML. Without input, the session content is used;")
	fmt.Fprintln(w, "\"-\" reads standard input.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -d, --document            Emit the full themed document")
	fmt.Fprintln(w, "      --theme <name>        Theme: laetus, githubDark, githubLight")
	fmt.Fprintln(w, "  -o, --output <file>       Output file (default: stdout)")
	printCommonUsage(w)
}

// printExportUsage prints usage for the export command.
func printExportUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf export [input] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Export markdown to markdown-<date>.pdf. The themed document is printed by the")
	fmt.Fprintln(w, "render service when an endpoint is set, otherwise by a local Chrome.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -l, --local               Assemble the PDF locally with images inlined")
	fmt.Fprintln(w, "  -e, --endpoint <url>      Render service URL (env: MD2PDF_WORKER_URL)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Export timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --theme <name>        Theme: laetus, githubDark, githubLight")
	fmt.Fprintln(w, "  -o, --output <dir>        Output directory")
	fmt.Fprintln(w, "      --date-format <s>     Artifact date: tokens YYYY, MM, DD... or a preset")
	fmt.Fprintf(w, "                            Presets (case-insensitive): %s\n", strings.Join(dateutil.Presets(), ", "))
	printCommonUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve POST / and POST /render-pdf: JSON {html, filename} in, PDF out.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default :8080)")
	fmt.Fprintln(w, "  -w, --workers <n>         Concurrent render sessions (0 = auto)")
	fmt.Fprintln(w, "      --recycle-after <n>   Pages per browser before relaunch (0 = never)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Per render timeout")
	fmt.Fprintln(w, "      --allowed-origin <s>  Access-Control-Allow-Origin value")
	printCommonUsage(w)
}

// printSessionUsage prints usage for the session command.
func printSessionUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf session [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Show the remembered editor state, optionally changing it first.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --theme <name>        Remember a theme")
	fmt.Fprintln(w, "      --scroll-sync <on|off>")
	fmt.Fprintln(w, "                            Remember scroll sync")
	fmt.Fprintln(w, "      --clear               Forget all session state")
	printCommonUsage(w)
}

// printResetUsage prints usage for the reset command.
func printResetUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf reset [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Replace the editor content with the default input and print it.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	printCommonUsage(w)
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the configuration after the config file and MD2PDF_* variables apply.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	printCommonUsage(w)
}

func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: md2pdf doctor [--json]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check Chrome, the environment, the configuration and the render service.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "preview":
		printPreviewUsage(env.Stdout)
	case "export":
		printExportUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "session":
		printSessionUsage(env.Stdout)
	case "reset":
		printResetUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: md2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: md2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
