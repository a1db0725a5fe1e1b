/*
keytrace viewer: attach to a capture session and watch the key timeline.

A capture session starts as soon as a browser opens the server's /s/<name>
page and types. This program joins the same session as a viewer, feeds the
key transitions through the recorder and renders one lane per physical key:
blocks for hold time, blanks for idle time.
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"

	"github.com/manifoldco/promptui"

	"github.com/keytrace/keytrace/internal/cfg"
	"github.com/keytrace/keytrace/internal/logging"
	"github.com/keytrace/keytrace/pkg/viewer"
)

func main() {
	logging.Config("/tmp/keytrace.log", "VIEWER: ")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: keytrace [flags] [session]\n\n")
		flag.PrintDefaults()
	}

	var server = flag.String("server", "http://localhost:3000", "Server endpoint")
	var rate = flag.Int64("rate", cfg.DEFAULT_MS_PER_CELL, "Timeline scale. Unit in milliseconds per cell")
	var refresh = flag.Int("refresh", cfg.DEFAULT_REFRESH_INTERVAL, "Render cadence. Unit in milliseconds")

	flag.Parse()

	sessionName := flag.Arg(0)
	if sessionName == "" {
		validateName := func(input string) error {
			var validName = regexp.MustCompile(`^[a-z][a-z0-9._-]{2,30}$`)
			if validName.MatchString(input) {
				return nil
			}
			return fmt.Errorf("Invalid session name")
		}

		promptName := promptui.Prompt{
			Label:    "Session",
			Validate: validateName,
		}

		var err error
		sessionName, err = promptName.Run()
		if err != nil {
			os.Exit(1)
		}
	}

	v := viewer.New(*server, sessionName, *rate, *refresh)
	if err := v.Start(); err != nil {
		fmt.Printf("Failed to start viewer: %s\n", err)
		log.Printf("Failed to start viewer: %s", err)
		os.Exit(1)
	}
}
