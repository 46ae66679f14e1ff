// rsoxsplan builds RSoXS energy sequences, exposure tables and NEXAFS fly
// scans, and dry-runs acquisition manifests into step queues.
//
// Usage:
//
//	rsoxsplan energies --edge carbon --frames full [--exposure "1;between:282:292=2"]
//	rsoxsplan nexafs --edge carbon --speed normal
//	rsoxsplan presets [--edge carbon]
//	rsoxsplan dryrun -f manifest.yaml [--group day] [--sort config,sample_id]
//	rsoxsplan serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "rsoxsplan:", err)
		os.Exit(1)
	}
}
