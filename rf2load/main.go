package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/TermGraph/config"
	"github.com/TermGraph/db"
	param "github.com/TermGraph/dygparam"
	elog "github.com/TermGraph/errlog"
	"github.com/TermGraph/es"
	"github.com/TermGraph/grmgr"
	"github.com/TermGraph/histogram"
	"github.com/TermGraph/ident"
	"github.com/TermGraph/loader"
	"github.com/TermGraph/monitor"
	"github.com/TermGraph/mysql"
	"github.com/TermGraph/regroup"
	"github.com/TermGraph/rf2"
	"github.com/TermGraph/run"
	"github.com/TermGraph/stamp"
	slog "github.com/TermGraph/syslog"
	"github.com/TermGraph/tasks"
	"github.com/TermGraph/writer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const logid = param.Logid

func syslog(s string) {
	slog.Log(logid, s)
}

var (
	cfgFile   = flag.String("cfg", "", "YAML configuration file. Environment variables override its values")
	inputFile = flag.String("f", "", "RF2 release: directory or zip archive")
	environ   = flag.String("env", "", "Environment [ dev: Development] prd: production")
	debug     = flag.String("debug", "", `Enable logging by component "c1,c2,c3" or switch on complete logging "all"`)
	mode      = flag.String("mode", "", "Import mode [full | snapshot | active]")
	store     = flag.String("store", "", "Graph store [memory | dynamodb | spanner | neo4j]")
	batch     = flag.Int("batch", 0, "Rows per writer batch")
	multiple  = flag.Int("c", 0, "Write permits per CPU")
	release   = flag.String("release", "", "Release date yyyymmdd used for stamps without an effective time [default: today]")
	metrics   = flag.String("metrics", "", "Listen address for /metrics e.g. :9090")
)

// override applies command line flags over file and environment values.
func override(cfg *config.Config) error {
	if len(*environ) > 0 {
		cfg.Env = strings.ToLower(*environ)
	}
	if len(*debug) > 0 {
		if strings.ToUpper(*debug) == "ALL" {
			cfg.Log.Debug = true
		} else {
			for _, v := range strings.Split(*debug, ",") {
				cfg.Log.Services = append(cfg.Log.Services, strings.TrimSpace(v))
			}
		}
	}
	if len(*mode) > 0 {
		cfg.Import.Mode = *mode
	}
	if len(*store) > 0 {
		cfg.Store.Backend = *store
	}
	if *batch > 0 {
		cfg.Import.BatchSize = *batch
	}
	if *multiple > 0 {
		cfg.Import.PermitMultiplier = *multiple
	}
	if len(*metrics) > 0 {
		cfg.MetricsAddr = *metrics
	}
	if cfg.Env != "prd" && cfg.Env != "dev" {
		return fmt.Errorf("environment must be either %q or %q. Default: %[2]q", "prd", "dev")
	}
	return cfg.Validate()
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, error) {
	switch cfg.Store.Backend {
	case "dynamodb":
		return db.NewDynamo(ctx, cfg.Store.DynamoTable)
	case "spanner":
		return db.NewSpanner(ctx, cfg.Store.SpannerDB)
	case "neo4j":
		return db.NewNeo4j(ctx, cfg.Store.Neo4jURI, cfg.Store.Neo4jUser, cfg.Store.Neo4jPassword, cfg.Store.Neo4jDatabase)
	}
	return db.NewMemory(), nil
}

func main() {

	flag.Parse()

	if len(*inputFile) == 0 {
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
	if err = override(cfg); err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
	param.Environ = cfg.Env

	importMode, err := writer.ParseMode(cfg.Import.Mode)
	if err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
	rel := time.Now().UTC().Truncate(24 * time.Hour)
	if len(*release) > 0 {
		if rel, err = rf2.ParseEffectiveTime(*release); err != nil {
			fmt.Println("Error: ", err)
			os.Exit(1)
		}
	}

	// mysql is used by both the identity table and run records
	var mdb *sql.DB
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.Ident.MySQLDSN) > 0 {
		mdb, err = mysql.Open(ctx, cfg.Ident.MySQLDSN, 0)
		if err != nil {
			fmt.Println("Error: ", err)
			os.Exit(1)
		}
		defer mdb.Close()
	}

	// allocate a run id before logging starts: it names the log stream
	r, err := run.New(ctx, mdb, "rf2load")
	if err != nil {
		fmt.Printf("Error in run.New(): %s\n", err)
		os.Exit(1)
	}

	err = slog.Start(slog.Options{
		Sink:     cfg.Log.Sink,
		Dir:      cfg.Log.Dir,
		LogGroup: cfg.Log.Group,
		Debug:    cfg.Log.Debug,
		Services: cfg.Log.Services,
	})
	if err != nil {
		fmt.Println("Error: ", err)
		os.Exit(1)
	}
	defer slog.Stop()

	defer func() {
		if p := recover(); p != nil {
			r.Panic()
			panic(p)
		}
	}()

	var (
		wpStart, wpEnd sync.WaitGroup
		tstart         = time.Now()

		terminate os.Signal = syscall.SIGTERM // os kill
		interrupt os.Signal = syscall.SIGINT  // ctrl-C
	)
	appSignal := make(chan os.Signal, 3)
	signal.Notify(appSignal, terminate, interrupt)

	// cancel the context on termination: no further batches are submitted and
	// store calls that honor ctx return. Running batches are not interrupted.
	go func() {
		<-appSignal
		cancel()
		syslog(fmt.Sprintf("Terminated.....Duration: %s", time.Since(tstart)))
	}()

	// dump program parameters to syslog
	syslog(fmt.Sprintf("Argument: release: %s", *inputFile))
	syslog(fmt.Sprintf("Argument: env: %s", cfg.Env))
	syslog(fmt.Sprintf("Argument: mode: %s", importMode))
	syslog(fmt.Sprintf("Argument: store: %s", cfg.Store.Backend))
	syslog(fmt.Sprintf("Argument: ident: %s", cfg.Ident.Backend))
	syslog(fmt.Sprintf("Argument: batch: %d", cfg.Import.BatchSize))
	syslog(fmt.Sprintf("Argument: permit multiplier: %d", cfg.Import.PermitMultiplier))

	//
	// start supporting services
	//
	errs := elog.New()
	mgr := grmgr.NewManager(time.Second, 10, func(avg map[grmgr.Routine]map[int]float64) {
		for routine, a := range avg {
			syslog(fmt.Sprintf("grmgr %s: running average 10s %.1f 60s %.1f", routine, a[10], a[60]))
		}
	})
	svcCtx, svcCancel := context.WithCancel(context.Background())
	wpStart.Add(2)
	wpEnd.Add(2)
	go errs.PowerOn(svcCtx, &wpStart, &wpEnd)
	go mgr.PowerOn(svcCtx, &wpStart, &wpEnd)
	syslog("waiting on services to start....")
	wpStart.Wait()
	syslog("all load services started ")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mon := monitor.New(reg)
	if len(cfg.MetricsAddr) > 0 {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.LogErr(logid, fmt.Errorf("metrics listener: %w", err))
			}
		}()
		defer srv.Close()
	}

	err = load(ctx, cfg, mdb, importMode, rel, errs, mgr, mon)

	svcCancel()
	wpEnd.Wait()

	r.Finish(err)
	if err != nil {
		slog.LogErr(logid, err)
		fmt.Println("Error: ", err)
		slog.Stop()
		os.Exit(2)
	}
	syslog(fmt.Sprintf("Finished.....Duration: %s", time.Since(tstart)))
}

func load(ctx context.Context, cfg *config.Config, mdb *sql.DB, m writer.Mode, rel time.Time, errs *elog.Service, mgr *grmgr.Manager, mon *monitor.Monitor) error {

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var (
		ids    ident.Service = ident.NewMemory()
		stamps stamp.Service = stamp.NewMemory()
	)
	if cfg.Ident.Backend == "mysql" {
		mi, err := ident.NewMySQL(ctx, mdb)
		if err != nil {
			return err
		}
		defer mi.Close()
		ids = mi

		ms, err := stamp.NewMySQL(ctx, mdb)
		if err != nil {
			return err
		}
		defer ms.Close()
		stamps = ms
	}

	idx := es.Indexers{}
	if len(cfg.Search.Addresses) > 0 {
		e, err := es.NewElastic(cfg.Search.Addresses, cfg.Search.Index, nil)
		if err != nil {
			return err
		}
		idx = append(idx, e)
	}

	specs, ignored, err := rf2.Discover(*inputFile, m.Release())
	if err != nil {
		return err
	}
	for _, name := range ignored {
		errs.Skip(logid, fmt.Errorf("unrecognised file %s not imported", name))
	}
	syslog(fmt.Sprintf("%d import specifications, %d files ignored", len(specs), len(ignored)))

	n := grmgr.PermitCount(runtime.NumCPU())
	if cfg.Import.PermitMultiplier > 0 {
		n = cfg.Import.PermitMultiplier * runtime.NumCPU()
	}
	permits := grmgr.New("writers", n, mgr)
	defer permits.Unregister()
	mon.Permits("writers", permits.Running, permits.Ceiling)

	// every submitted unit holds a permit, so n workers never leave one waiting
	ex := tasks.NewExecutor(ctx, n, n, errs)
	defer ex.Shutdown()

	registry := tasks.NewRegistry()
	listeners := &tasks.Listeners{}
	listeners.Register(func() { syslog("derived relationships refreshed") })

	env := &writer.Env{
		Ident:   ids,
		Stamps:  stamps,
		Store:   st,
		Index:   idx,
		Errs:    errs,
		Tracker: registry,
		Monitor: mon,
		Hist:    histogram.NewSet(600000),
		Mode:    m,
		Release: rel,
	}

	logic := &regroup.Counter{}
	im := loader.New(env, permits, ex)
	im.BatchSize = cfg.Import.BatchSize
	im.Transformer = regroup.New(st, ids, permits, ex, logic, listeners)
	im.Transformer.Tracker = registry
	im.Transformer.Monitor = mon

	err = im.Import(ctx, specs)

	im.Report(os.Stdout)
	fmt.Printf("Transform units: %d  groups: %d  relationships: %d  peak permits: %d of %d\n",
		logic.Units.Load(), logic.Groups.Load(), logic.Relationships.Load(), permits.Peak(), n)
	return err
}
