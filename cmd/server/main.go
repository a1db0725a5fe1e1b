/*
Roles of server:
- Serve the browser capture pages
- Receive key transitions from capture sources and broadcast them to viewers
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/keytrace/keytrace/internal/cfg"
	"github.com/keytrace/keytrace/internal/logging"
	"github.com/keytrace/keytrace/pkg/server"
)

func main() {
	logging.Config("/tmp/keytrace.log", "SERVER: ")

	var dbPath = flag.String("db", ".db", "Path to database")
	var host = flag.String("host", "localhost:3000", "Host address to serve server")
	var version = flag.Bool("version", false, fmt.Sprintf("keytrace server version: %s", cfg.SERVER_VERSION))

	flag.Parse()

	if *version {
		fmt.Printf("keytrace server %s\n", cfg.SERVER_VERSION)
		os.Exit(0)
	}

	s, err := server.New(*host, *dbPath)
	if err != nil {
		fmt.Printf("Failed to create server: %s\n", err)
		log.Printf("Failed to create server: %s", err)
		return
	}

	fmt.Printf("Serving at %s\nOpen http://%s/s/<session> in a browser to capture\n", *host, *host)
	s.Start()
}
