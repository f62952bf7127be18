package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/deb2000-sudo/teleporter/internal/client"
	"github.com/deb2000-sudo/teleporter/internal/telemetry"
	"github.com/deb2000-sudo/teleporter/pkg/humanize"
	"github.com/deb2000-sudo/teleporter/pkg/wire"
)

func runSend(args []string) {
	fs := flag.NewFlagSet("teleporter", flag.ExitOnError)
	dest := fs.String("dest", "", "destination host")
	port := fs.Int("port", 9001, "destination port")
	overwrite := fs.Bool("overwrite", false, "overwrite an existing destination file")
	rename := fs.Bool("rename", false, "rename on collision instead of refusing or overwriting")
	backup := fs.Bool("backup", false, "back up an existing destination file before overwriting")
	delta := fs.Bool("delta", false, "request a delta and skip unchanged chunks when resuming")
	encrypt := fs.Bool("encrypt", false, "negotiate an encrypted session before sending")
	chmod := fs.Uint("chmod", 0o644, "permission bits to apply at the destination")
	probe := fs.Bool("probe", false, "ping the destination and report round-trip latency before sending")
	fs.Parse(args)

	files := fs.Args()
	if *dest == "" || len(files) == 0 {
		fmt.Println("usage: teleporter <files...> --dest HOST [--port P] [--overwrite] [--rename] [--backup] [--delta] [--encrypt]")
		fatalf("missing required --dest or file arguments")
	}

	features := wire.FeatureNewFile
	if *overwrite {
		features |= wire.FeatureOverwrite
	}
	if *rename {
		features |= wire.FeatureRename
	}
	if *backup {
		features |= wire.FeatureBackup
	}
	if *delta {
		features |= wire.FeatureDelta
	}

	addr := fmt.Sprintf("%s:%d", *dest, *port)
	collector := telemetry.NewCollector()

	if *probe {
		rtt, err := client.Probe(addr, 5*time.Second, collector)
		if err != nil {
			log.Printf("probe %s: %v", addr, err)
		} else {
			log.Printf("probe %s: %s round-trip", addr, rtt.Round(time.Millisecond))
		}
	}

	for _, path := range files {
		sendOne(addr, path, features, uint32(*chmod), *encrypt, collector)
	}
}

func sendOne(addr, path string, features wire.Features, chmod uint32, encrypt bool, collector *telemetry.Collector) {
	bar := progressbar.NewOptions64(
		-1,
		progressbar.OptionSetDescription(fmt.Sprintf("sending %s", path)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	outcome, err := client.Send(addr, client.Request{
		FilePath: path,
		Features: features,
		Chmod:    chmod,
		Encrypt:  encrypt,
		Version:  protocolVersion,
		Progress: func(delta uint64) {
			_ = bar.Add64(int64(delta))
			collector.RecordBytesSent(int(delta))
		},
	})
	if err != nil {
		log.Printf("%s: %v", path, err)
		return
	}

	if outcome.Status != wire.StatusProceed {
		log.Printf("%s: %s", path, client.StatusMessage(outcome.Status))
		return
	}

	log.Printf("%s: sent %s (%d chunks skipped) in %s, %.2f Mbps overall", path, humanize.Bytes(int64(outcome.BytesSent)), outcome.SkippedChunks, outcome.Elapsed.Round(time.Millisecond), collector.BandwidthMbps())
}
