// Command catalog-admin runs maintenance operations against a catalog
// repository.
package main

import "github.com/marmos91/catalogadmin/cmd/catalog-admin/cmd"

// Set by the release build.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd.Execute(version, commit)
}
