package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goware/urlx"
	"github.com/jessevdk/go-flags"
	"gopkg.in/yaml.v3"
)

// defaultEndpoints is the demo service's surface; override by listing
// endpoint paths as positional arguments.
var defaultEndpoints = []string{
	"/",
	"/health",
	"/slow",
	"/error",
	"/users/1",
	"/users/2",
	"/users/3",
}

type Options struct {
	Target struct {
		URL     string        `long:"target" description:"base url of the service under test" env:"LOADGEN_TARGET" default:"http://localhost:8000"`
		Timeout time.Duration `long:"timeout" description:"client-side timeout for a single request" default:"10s"`
	} `group:"Target Options"`
	Traffic struct {
		Duration time.Duration `long:"duration" description:"length of each steady phase" default:"30s"`
		Rate     int           `long:"rate" description:"requests per second during a steady phase" default:"2"`
		Burst    int           `long:"burst" description:"number of concurrent requests in a burst phase" default:"50"`
		Rest     time.Duration `long:"rest" description:"pause between cycles" default:"10s"`
		Cycles   int           `long:"cycles" description:"number of steady+burst cycles to run (0 means run until interrupted)" default:"0" yaml:",omitempty"`
	} `group:"Traffic Options"`
	Workers struct {
		Steady int `long:"steadyworkers" description:"worker pool size for steady phases" default:"10"`
		Burst  int `long:"burstworkers" description:"worker pool size for burst phases" default:"20"`
	} `group:"Worker Pool Options"`
	Probe struct {
		Interval time.Duration `long:"probeinterval" description:"time between readiness probes" default:"2s"`
		Timeout  time.Duration `long:"probetimeout" description:"give up on readiness after this long (0 means wait forever)" default:"0s" yaml:",omitempty"`
	} `group:"Readiness Options"`
	Global struct {
		LogLevel string `long:"loglevel" description:"level of logging" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
		Seed     string `long:"seed" description:"string seed for endpoint selection (defaults to random)" yaml:",omitempty"`
		Config   string `long:"config" description:"name of config file to load(*)" default:"" yaml:"-"`
		WriteCfg string `long:"writecfg" description:"write effective YAML config to the specified output file and quit(*)" default:"" yaml:"-"`
	} `group:"Global Options"`
	Endpoints []string `yaml:"endpoints,omitempty"`
	baseURL   *url.URL
}

func newOptions() *Options {
	return &Options{}
}

func (o *Options) CopyStarredFieldsFrom(other *Options) {
	o.Global.Config = other.Global.Config
	o.Global.WriteCfg = other.Global.WriteCfg
}

func (o *Options) DebugLevel() int {
	switch o.Global.LogLevel {
	case "debug":
		return 3
	case "info":
		return 2
	case "warn":
		return 1
	default:
		return 0
	}
}

// parses the target base URL and returns a cleaned-up version so that
// partially-specified targets still work
// exits if it can't make sense of it
func parseTarget(log Logger, target string) *url.URL {
	u, err := urlx.ParseWithDefaultScheme(target, "http")
	if err != nil {
		log.Fatal("unable to parse target: %s\n", err)
	}
	return u
}

func ReadConfig(opts *Options, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(opts); err != nil {
		return err
	}
	log.Printf("read config from %s\n", filename)
	return nil
}

func WriteConfig(opts *Options, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	if err := enc.Encode(opts); err != nil {
		return err
	}
	log.Printf("wrote config to %s\n", filename)
	return nil
}

func main() {
	cmdopts := newOptions()

	parser := flags.NewParser(cmdopts, flags.Default)
	parser.Usage = `[OPTIONS] [ENDPOINT]...

	loadgen drives synthetic traffic against the obsdemo service so its
	instrumentation has something to show. After waiting for the target's
	/health endpoint to come up, it cycles forever (or for --cycles cycles):

	    steady phase: --rate requests/second for --duration, submissions
	                  spaced evenly and spread across the endpoint set
	    burst phase:  --burst requests issued all at once
	    rest:         --rest of quiet time

	Each request's outcome (status code or transport error) is printed as it
	resolves, and each phase prints a summary when it completes. A failed
	request never aborts its phase. Interrupting the process stops new
	submissions and lets in-flight requests drain.

	Endpoints default to the demo service's routes; to target a different set,
	list paths as positional arguments (e.g. loadgen /a /b/c).

	Options can be set in a config file, or on the command line; to specify
	them in the config file, specify it on the command line with
	"--config=FILENAME". The config file format is YAML.

	Note: If a config file is used, it MUST be used for all options, except
	for the ones marked in the help text with (*) -- these fields CANNOT be
	set in the config file.
	`

	args, err := parser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Fatalf("error reading command line: %v", err)
	}

	opts := newOptions()
	if cmdopts.Global.Config != "" {
		if err := ReadConfig(opts, cmdopts.Global.Config); err != nil {
			log.Fatalf("err %v -- unable to read config file %s", err, cmdopts.Global.Config)
		}
		opts.CopyStarredFieldsFrom(cmdopts)
	} else {
		opts = cmdopts
	}

	// positional args override the endpoint set
	if len(args) > 0 {
		opts.Endpoints = args
	}
	if len(opts.Endpoints) == 0 {
		opts.Endpoints = defaultEndpoints
	}

	if opts.Global.WriteCfg != "" {
		if err := WriteConfig(opts, opts.Global.WriteCfg); err != nil {
			log.Fatalf("unable to write config: %s\n", err)
		}
		os.Exit(0)
	}

	logger := NewLogger(opts.DebugLevel())
	opts.baseURL = parseTarget(logger, opts.Target.URL)

	// catch ctrl-c and cancel; in-flight requests drain on their own
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := NewHTTPRequester(opts.baseURL, opts.Target.Timeout)
	sched := NewScheduler(req, SchedulerConfig{
		Endpoints:     opts.Endpoints,
		SteadyWorkers: opts.Workers.Steady,
		BurstWorkers:  opts.Workers.Burst,
		Seed:          opts.Global.Seed,
	}, logger)

	fmt.Printf("waiting for %s to be ready...\n", opts.baseURL)
	probeCtx := ctx
	if opts.Probe.Timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, opts.Probe.Timeout)
		defer cancel()
	}
	if err := WaitUntilReady(probeCtx, req, "/health", opts.Probe.Interval, logger); err != nil {
		logger.Fatal("service never became ready: %v\n", err)
	}
	fmt.Println("service is ready!")

	cycle := 0
	for ctx.Err() == nil {
		cycle++
		fmt.Printf("\nstarting traffic cycle %d\n", cycle)

		fmt.Printf("steady traffic: %d req/s for %s\n", opts.Traffic.Rate, opts.Traffic.Duration)
		fmt.Println(sched.RunSteady(ctx, opts.Traffic.Duration, opts.Traffic.Rate))
		if ctx.Err() != nil {
			break
		}

		fmt.Printf("burst traffic: %d concurrent requests\n", opts.Traffic.Burst)
		fmt.Println(sched.RunBurst(ctx, opts.Traffic.Burst))

		if opts.Traffic.Cycles > 0 && cycle >= opts.Traffic.Cycles {
			break
		}

		fmt.Printf("resting for %s...\n", opts.Traffic.Rest)
		if !sleepCtx(ctx, opts.Traffic.Rest) {
			break
		}
	}

	logger.Warn("\nstopping traffic generator\n")
}
