// Package assets provides the theme stylesheets and bundled Markdown
// documents.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - go:embed styles and documents
//	    ├── FilesystemLoader  - override directory on disk
//	    └── AssetResolver     - override first, embedded fallback
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   ├── base.css          # shared layout
//	│   ├── laetus.css        # theme overrides
//	│   ├── github-dark.css
//	│   └── github-light.css
//	└── documents/
//	    ├── default.md        # fresh session placeholder
//	    └── example.md        # first-run example
//
// # Themes
//
// The theme set is fixed: laetus, githubDark and githubLight. Stylesheet
// joins base rules, theme overrides and chroma highlighting classes into the
// one <style> block of the print document.
//
// # Security
//
// Asset names are validated to prevent path traversal. FilesystemLoader
// resolves symlinks and verifies paths stay within basePath.
package assets
