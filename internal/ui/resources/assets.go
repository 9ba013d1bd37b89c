// Package resources serves the editor's stylesheet and script.
package resources

// StaticDirectoryPath is the path to static assets from the project root.
const StaticDirectoryPath = "internal/ui/resources/static"

// Asset names referenced by the page shell.
const (
	Stylesheet = "stageflow.css"
	Script     = "stageflow.js"
)

// StaticPath returns the URL path for a static asset.
func StaticPath(path string) string {
	return "/static/" + path
}
