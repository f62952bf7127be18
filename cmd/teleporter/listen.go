package main

import (
	"flag"
	"log"

	"github.com/deb2000-sudo/teleporter/internal/server"
)

func runListen(args []string) {
	fs := flag.NewFlagSet("teleporter listen", flag.ExitOnError)
	port := fs.Int("port", 9001, "port to listen on")
	mustEncrypt := fs.Bool("must-encrypt", false, "refuse any session that doesn't start with an Ecdh handshake (a Ping is still answered)")
	allowDangerous := fs.Bool("allow-dangerous-filepath", false, "disable filename sanitization (not recommended)")
	baseDir := fs.String("dir", ".", "directory destination files are resolved against")
	fs.Parse(args)

	cfg := server.Config{
		Version:                protocolVersion,
		MustEncrypt:            *mustEncrypt,
		AllowDangerousFilepath: *allowDangerous,
		BaseDir:                *baseDir,
	}

	if *allowDangerous {
		log.Printf("warning: --allow-dangerous-filepath is set, filenames are not sanitized against path traversal")
	}

	ln, err := server.Listen(*port)
	if err != nil {
		fatalf("listen on port %d: %v", *port, err)
	}
	defer ln.Close()

	log.Printf("teleporter listening on %s", ln.Addr())
	if err := server.Serve(ln, cfg); err != nil {
		fatalf("serve: %v", err)
	}
}
