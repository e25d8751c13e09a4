// Command plate reads licence plates from a video file or capture device
// and writes one CSV row per recognised plate per vehicle per frame.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/plate.report/internal/version"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: plate <command> [flags]

Commands:
  run       process a video source and write results
  models    serve local detectors and recognizer over gRPC
  migrate   manage the run database schema (up, down, status, force)
  version   print build information

Run "plate <command> -h" for command flags.
`)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(args)
	case "models":
		err = modelsCommand(args)
	case "migrate":
		err = migrateCommand(args)
	case "version":
		fmt.Println(version.Current())
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}
