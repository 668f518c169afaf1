package main

import (
	"os"

	"github.com/soundprediction/scenegraph/cmd/scenegraph"
)

func main() {
	if err := scenegraph.Execute(); err != nil {
		os.Exit(1)
	}
}
