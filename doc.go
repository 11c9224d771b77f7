// Package md2pdf turns Markdown into PDF artifacts.
//
// # Local assembly
//
// An Assembler works without a browser. It renders the Markdown, embeds
// remote images as data URIs, and writes the PDF with core fonts:
//
//	result, err := md2pdf.NewAssembler().Assemble(ctx, "# Hello\n\nWorld")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, w := range result.Warnings {
//	    log.Println(w)
//	}
//	os.WriteFile(result.Artifact.Filename, result.Artifact.PDF, 0644)
//
// Images that cannot be retrieved become placeholders and warnings; they
// never fail the assembly.
//
// # Themed export
//
// An Exporter wraps the rendered fragment into a themed HTML document and
// prints it, either through a render service or a local Chrome:
//
//	client, err := md2pdf.NewRemoteClient("https://render.example.com/render-pdf")
//	exp := md2pdf.NewExporter(md2pdf.WithRemoteClient(client))
//	artifact, err := exp.Export(ctx, markdown)
//
// Without a client the Exporter falls back to its Printer:
//
//	m := browser.NewManager(browser.Options{})
//	defer m.Close()
//	exp := md2pdf.NewExporter(md2pdf.WithPrinter(md2pdf.NewNativePrinter(m)))
//
// The render service refuses documents over MaxHTMLBytes; RemoteClient
// checks the limit before sending.
//
// # Browser Requirements
//
// Native printing and the render service require Chrome/Chromium. The go-rod
// library downloads a managed Chromium on first run (~/.cache/rod/browser/).
// Use ROD_BROWSER_BIN to specify a custom Chrome binary; the sandbox is
// disabled when it is set or when CI=true.
package md2pdf
