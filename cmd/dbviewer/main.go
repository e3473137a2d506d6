package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/hatlonely/dbviewer/log"
	"github.com/hatlonely/dbviewer/rdb"
	"github.com/hatlonely/dbviewer/ui"
	"github.com/hatlonely/dbviewer/uid"
	"github.com/hatlonely/dbviewer/viewer"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Version = "dev"

var (
	app = kingpin.New("dbviewer", "View and edit rows of allow-listed MySQL tables.")

	configPath = app.Flag("config", "The configuration file (json, yaml, toml or ini).").
			Short('c').Envar("DBVIEWER_CONFIG").String()
	logFile = app.Flag("log-file", "Log file used when the config declares no logger output.").
		Default("dbviewer.log").String()
	debug = app.Flag("debug", "Log at debug level.").Bool()
	table = app.Flag("table", "Table selected at startup.").String()
	load  = app.Flag("load", "Load the selected table at startup.").Bool()
)

func main() {
	app.Version(Version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "dbviewer: %+v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	options, err := LoadOptions(*configPath, *logFile)
	if err != nil {
		return err
	}
	if *debug {
		options.Logger.Level = "debug"
	}
	if *table != "" {
		options.Viewer.DefaultTable = *table
	}

	logger, err := log.NewLoggerWithOptions(&options.Logger)
	if err != nil {
		return errors.WithMessage(err, "create logger")
	}
	defer logger.Close()
	log.SetDefault(logger)

	provider, err := rdb.NewProviderWithOptions(&options.Database)
	if err != nil {
		return errors.WithMessage(err, "create provider")
	}

	registry := prometheus.NewRegistry()
	opener, err := rdb.NewObservableProviderWithOptions(provider, &options.Metrics.ObservableOptions, logger, registry)
	if err != nil {
		return errors.WithMessage(err, "create observable provider")
	}
	if options.Metrics.Listen != "" {
		go serveMetrics(options.Metrics.Listen, registry, logger)
	}

	ids, err := uid.NewGeneratorWithOptions(options.IDGenerator)
	if err != nil {
		return errors.WithMessage(err, "create id generator")
	}

	u := ui.New()
	controller := viewer.NewController(opener, u, &options.Viewer)
	controller.SetLogger(logger.WithGroup("viewer"))
	controller.SetIDGenerator(ids)
	u.Bind(ctx, controller)

	logger.Info("dbviewer started", "version", Version, "driver", provider.Driver(), "table", controller.State().Table)
	if *load {
		_ = controller.Load(ctx, controller.State().Table)
	}

	if err := u.Run(); err != nil {
		return errors.Wrap(err, "run ui")
	}
	logger.Info("dbviewer stopped")
	return nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err.Error())
	}
}
