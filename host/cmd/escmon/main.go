package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"

	"gopper-esc/core"
	"gopper-esc/host/monitor"
	"gopper-esc/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate (ignored for USB CDC)")
	verbose = flag.Bool("verbose", false, "Print every frame, including jitter records")
)

func main() {
	flag.Parse()

	fmt.Println("ESC Monitor - Commutation Diagnostics")
	fmt.Println("=====================================")
	fmt.Printf("Frame format v%s\n\n", protocol.Version)

	mon := monitor.New()

	fmt.Printf("Connecting to ESC on %s...\n", *device)
	if err := mon.Connect(*device, *baud); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mon.Close()

	fmt.Println("Connected, waiting for frames (Ctrl-C to stop)")

	var stop atomic.Bool
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		stop.Store(true)
	}()

	show := func(r monitor.Record) {
		if r.Anomaly.Kind == core.AnomalyCommutationJitter && !*verbose {
			return
		}
		fmt.Println(r)
	}

	// A read timeout ends Run with no error, which gives the stop flag a chance
	for !stop.Load() {
		if err := mon.Run(show); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}
	}

	mon.PrintStats()
}
