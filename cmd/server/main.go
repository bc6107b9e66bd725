/*
main.go - Application entry point

PURPOSE:
  Starts the settlement engine. Handles configuration, dependency
  injection, and graceful shutdown.

COMMANDS:
  serve     Run the HTTP API (and the scheduler when an interval is set)
  generate  Run one remittance generation pass and exit
  seed      Replace the ledger with a demo scenario

GLOBAL FLAGS:
  --config     YAML config file (optional)
  --driver     Storage driver: sqlite | memory
  --db         SQLite database path (":memory:" for in-memory SQLite)
  --log-level  debug | info | warn | error
  --log-file   Rotating log file, in addition to stderr

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (shutdown_timeout)
  4. Close database connection

EXAMPLES:
  ./server serve --db=./data/settlement.db
  ./server serve --driver=memory --addr=:3000
  ./server generate --config=./settlement.yaml
  ./server seed team --db=./data/settlement.db
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
