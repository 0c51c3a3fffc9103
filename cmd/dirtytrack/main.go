// Copyright 2024 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/klog/v2"

	"github.com/intel/dirtytrack/pkg/dirtytrack"
	"github.com/intel/dirtytrack/pkg/metrics"
	"github.com/intel/dirtytrack/pkg/pidfile"
	_ "github.com/intel/dirtytrack/pkg/version"
)

func exit(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, fmt.Sprintf("dirtytrack: "+format+"\n", a...))
	os.Exit(1)
}

func main() {
	optPid := flag.Int("pid", 0, "-pid=PID track this process (required)")
	optInterval := flag.Int("interval", 100, "-interval=MS sampling interval in milliseconds")
	optDuration := flag.Int("duration", 10, "-duration=SEC tracking duration in seconds, 0 runs until a signal")
	optOutput := flag.String("output", "", "-output=FILE write the JSON report to FILE instead of stdout")
	optWorkload := flag.String("workload", "unknown", "-workload=NAME workload name echoed in the report")
	optConfig := flag.String("config", "", "-config=FILE read configuration defaults from a YAML file")
	optMetrics := flag.String("metrics", "", "-metrics=FILE write prometheus metrics to FILE at shutdown")
	optMaxRegions := flag.Int("max-regions", 0, "-max-regions=N track at most N memory map regions per sample")
	optMaxSamples := flag.Int("max-samples", 0, "-max-samples=N stop after N samples")
	optVerbose := flag.Bool("verbose", false, "-verbose enables debug logging and the run summary")
	optSummary := flag.Bool("summary", false, "-summary prints a run summary to stderr")
	optPidfile := flag.String("pidfile", "", "-pidfile=FILE write a pidfile for the run, refusing to start if another run owns it")

	klog.InitFlags(nil)
	flag.Parse()

	config := dirtytrack.NewConfig()
	if *optConfig != "" {
		if err := config.SetFromFile(*optConfig); err != nil {
			exit("%v", err)
		}
	}
	// Explicitly given flags win over the configuration file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "pid":
			config.Pid = *optPid
		case "interval":
			config.IntervalMs = *optInterval
		case "duration":
			config.DurationS = *optDuration
		case "workload":
			config.Workload = *optWorkload
		case "max-regions":
			config.MaxRegions = *optMaxRegions
		case "max-samples":
			config.MaxSamples = *optMaxSamples
		}
	})
	if config.Pid == 0 {
		exit("missing -pid=PID")
	}

	dirtytrack.SetLogDebug(*optVerbose)

	if !dirtytrack.ProcPidExists(config.Pid) {
		exit("process %d not found", config.Pid)
	}
	if os.Geteuid() != 0 {
		fmt.Fprintln(os.Stderr, "dirtytrack: warning: reading /proc/PID/pagemap usually requires root or CAP_SYS_ADMIN")
	}

	tracker, err := dirtytrack.NewTracker(config)
	if err != nil {
		exit("%v", err)
	}
	if *optMetrics != "" {
		err := metrics.RegisterCollector("dirtytrack", func() (prometheus.Collector, error) {
			return dirtytrack.NewCollector(tracker), nil
		})
		if err != nil {
			exit("%v", err)
		}
	}

	if *optPidfile != "" {
		pidfile.SetPath(*optPidfile)
		if owner, err := pidfile.OwnerPid(); err != nil {
			exit("%v", err)
		} else if owner > 0 {
			exit("another run (pid %d) owns %s", owner, pidfile.GetPath())
		}
		// A stale pidfile of a killed run does not block a new one.
		if err := pidfile.Remove(); err != nil {
			exit("%v", err)
		}
		if err := pidfile.Write(); err != nil {
			exit("%v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "dirtytrack: tracking PID %d (interval=%dms, duration=%ds)\n",
		config.Pid, config.IntervalMs, config.DurationS)

	runErr := tracker.Run(ctx)
	stop()
	if *optPidfile != "" {
		// Exit paths below do not return, drop the pidfile here.
		pidfile.Remove()
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "dirtytrack: %v\n", runErr)
		if !tracker.Ran() {
			// Setup failed, there is nothing to report.
			os.Exit(1)
		}
	}

	report := tracker.Report()
	if err := writeReport(report, *optOutput); err != nil {
		exit("%v", err)
	}

	if *optMetrics != "" {
		gatherer, err := metrics.NewMetricGatherer()
		if err != nil {
			exit("%v", err)
		}
		if err := metrics.WriteTextfile(gatherer, *optMetrics); err != nil {
			exit("%v", err)
		}
	}

	if *optSummary || *optVerbose {
		report.WriteSummary(os.Stderr)
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func writeReport(report *dirtytrack.Report, output string) error {
	if output == "" {
		return report.Write(os.Stdout)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := report.Write(f); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "dirtytrack: report written to %s\n", output)
	return nil
}
