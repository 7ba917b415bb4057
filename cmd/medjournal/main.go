// Command medjournal imports, inspects, and serves exported medical-journal
// documents.
package main

import (
	"fmt"
	"os"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(os.Args[2:])
	case "entries":
		err = runEntries(os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	case "repair":
		err = runRepair(os.Args[2:])
	case "context":
		err = runContext(os.Args[2:])
	case "profiles":
		err = runProfiles(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("medjournal %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`medjournal — medical journal export toolkit

Usage:
  medjournal import <file>... [--profile <name>] [--db <path>]
  medjournal entries [--profile <name>] [--category <c>] [--from <date>] [--to <date>] [--limit <n>]
  medjournal show <entry-id> [--profile <name>]
  medjournal repair <file>
  medjournal context [--profile <name>] [--max-chars <n>]
  medjournal profiles
  medjournal stats
  medjournal mcp
  medjournal version

Environment:
  MEDJOURNAL_DB       database path (default ~/.medjournal/medjournal.db)
  MEDJOURNAL_PROFILE  default profile name
  MEDJOURNAL_CONFIG   config file path (default ~/.medjournal/config.yaml)`)
}
