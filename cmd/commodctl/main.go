package main

import "github.com/blackwell-systems/commodctl/internal/app"

// version is set by goreleaser via ldflags.
var version = "1.14.0"

func main() {
	app.SetVersion(version)
	app.Execute()
}
