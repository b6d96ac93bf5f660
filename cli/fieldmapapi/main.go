package main

import (
	"os"

	servecmder "github.com/clinforge/fieldmap/cmd/fieldmap/serve"
)

func main() {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "fieldmapapi"
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
