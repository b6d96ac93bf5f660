package main

import (
	"os"

	fieldmapcmder "github.com/clinforge/fieldmap/cmd/fieldmap"
)

func main() {
	cmd := fieldmapcmder.NewFieldmapCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
