package logging

import (
	"log"
	"os"
)

// Config routes the default logger to dest. The viewer and server both run a
// full-screen or long-lived process, so logs go to a file instead of the
// terminal. An empty dest leaves output on stderr.
func Config(dest, prefix string) {
	if dest != "" {
		f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening file: %v", err)
		}
		log.SetOutput(f)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetPrefix(prefix)
}
