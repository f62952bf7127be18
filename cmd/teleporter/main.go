// Command teleporter sends files to, or listens for files from, a peer
// running the Teleporter protocol.
package main

import (
	"fmt"
	"os"

	"github.com/deb2000-sudo/teleporter/pkg/wire"
)

// protocolVersion is this build's TeleportVersion, compared against the
// peer's for compatibility on every Init.
var protocolVersion = wire.Version{Major: 0, Minor: 6, Patch: 0}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "listen" {
		runListen(os.Args[2:])
		return
	}
	runSend(os.Args[1:])
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
