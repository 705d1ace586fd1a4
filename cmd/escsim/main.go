// Command escsim runs the commutation core against a simulated motor and
// reports how the run went. Anomaly frames can be streamed to a serial
// port for escmon on the other end of a null-modem pair.
package main

import (
	"flag"
	"log"
	"os"
	"sort"
	"time"

	"gopper-esc/config"
	"gopper-esc/core"
	"gopper-esc/host/serial"
	"gopper-esc/sim"
)

var (
	configPath = flag.String("config", "", "Tuning file (YAML), built-in defaults if empty")
	rpm        = flag.Float64("rpm", 6000, "Speed target in mechanical rpm")
	duration   = flag.Duration("duration", 2*time.Second, "Simulated run time")
	seed       = flag.Int64("seed", 0, "ADC noise seed, overrides the tuning file when set")
	diagPort   = flag.String("diag-port", "", "Serial device for the anomaly frame stream")
	baud       = flag.Int("baud", 0, "Diagnostic baud rate, overrides the tuning file when set")
	verbose    = flag.Bool("v", false, "Enable controller debug output")
)

// chunk is the simulated time between frame drains.
const chunk = 10 * time.Millisecond

func main() {
	flag.Parse()
	log.SetFlags(0)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}
	if *seed != 0 {
		cfg.Motor.Seed = *seed
	}
	if *diagPort != "" {
		cfg.Diag.Port = *diagPort
	}
	if *baud != 0 {
		cfg.Diag.Baud = *baud
	}

	// The writer also serves the ring dump on a fault, so it is always set
	core.SetDebugWriter(func(msg string) { log.Println(msg) })
	core.SetDebugEnabled(*verbose)
	if *verbose {
		core.InitAsyncDebug()
	}

	var (
		sinks  []core.DiagSink
		frames *core.FrameSink
		port   serial.Port
	)
	if cfg.Diag.Port != "" {
		sc := serial.DefaultConfig(cfg.Diag.Port)
		sc.Baud = cfg.Diag.Baud
		p, err := serial.Open(sc)
		if err != nil {
			log.Fatalf("open diag port: %v", err)
		}
		defer p.Close()
		port = p
		frames = core.NewFrameSink(cfg.Diag.Buffer)
		sinks = append(sinks, frames)
	}

	var live *core.AsyncSink
	done := make(chan struct{})
	if *verbose {
		live = core.NewAsyncSink(64)
		sinks = append(sinks, live)
		go func() {
			defer close(done)
			for a := range live.C {
				log.Printf("anomaly %-12s t=%d v1=%d v2=%d", a.Kind, a.Time, a.Value1, a.Value2)
			}
		}()
	} else {
		close(done)
	}

	bench, err := sim.NewBench(cfg.ESC, cfg.Motor, sinks...)
	if err != nil {
		log.Fatalf("bench: %v", err)
	}

	log.Printf("starting at %.0f rpm target, %v simulated", *rpm, *duration)
	if err := bench.Start(*rpm); err != nil {
		log.Fatalf("motor on: %v", err)
	}

	step := core.TimerFromUS(uint32(chunk / time.Microsecond))
	for elapsed := time.Duration(0); elapsed < *duration; elapsed += chunk {
		bench.Run(step)
		if frames != nil {
			if _, err := frames.Drain(port); err != nil {
				log.Printf("diag write: %v", err)
			}
		}
		if !bench.Ctrl.Running() {
			break
		}
	}
	sum := bench.Summary()
	bench.Stop()
	if live != nil {
		close(live.C)
		<-done
		if n := live.Dropped(); n > 0 {
			log.Printf("%d live anomalies dropped", n)
		}
	}
	if frames != nil {
		frames.Drain(port)
		if n := frames.Dropped(); n > 0 {
			log.Printf("%d diag frames dropped", n)
		}
	}

	report(sum)

	if sum.Status.Fault != core.FaultNone {
		log.Printf("fault: %v", sum.Status.Fault)
		bench.Ring.Dump()
		os.Exit(1)
	}
}

func report(s sim.Summary) {
	log.Printf("elapsed %dus, %d commutations", core.TimerToUS(s.Elapsed), s.Commutations)
	if s.ClosedLoop {
		log.Printf("closed loop after %dus", core.TimerToUS(s.ClosedLoopAt))
		log.Printf("interval %.1f ± %.1f ticks", s.IntervalMean, s.IntervalStdDev)
		log.Printf("speed %.0f ± %.0f rpm", s.RPMMean, s.RPMStdDev)
	} else {
		log.Printf("loop never closed (startup %v)", s.Status.Startup)
	}
	log.Printf("final: motor %.0f rpm, estimate %.0f rpm, duty %.3f",
		s.MotorRPM, s.EstimatedRPM, s.Status.DutyCycle)

	st := s.Status
	log.Printf("smoothed interval %.1f, consistency errors %d, late targets %d, misses %d",
		st.Detection.SmoothedInterval, st.ConsistencyErrors, st.LateTargets, st.Misses)

	kinds := make([]string, 0, len(s.Anomalies))
	for k := range s.Anomalies {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		log.Printf("  %-12s %d", k, s.Anomalies[k])
	}
}
