package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/datakin/workbench/cmd/fixtured/handlers"
	conf "github.com/datakin/workbench/pkg/configs/fixture"
	"github.com/datakin/workbench/pkg/db/bunt"
	"github.com/datakin/workbench/pkg/events"
	"github.com/datakin/workbench/pkg/fixture"
	"github.com/datakin/workbench/pkg/fixture/auth"
	"github.com/datakin/workbench/pkg/fixture/dataset"
	"github.com/datakin/workbench/pkg/fixture/dispatch"
	"github.com/datakin/workbench/pkg/fixture/fallback"
	"github.com/datakin/workbench/pkg/fixture/routes"
	"github.com/datakin/workbench/pkg/fixture/seed"
	"github.com/datakin/workbench/pkg/fixture/simulator"
	"github.com/datakin/workbench/pkg/loop"
	"github.com/datakin/workbench/pkg/utils/echoutil"
	"github.com/datakin/workbench/pkg/utils/filewatch"
)

func main() {

	configPath := flag.String("config-path", "", "server config path")
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	e := echo.New()
	e.Pre(middleware.AddTrailingSlash())

	// set log
	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		e.DefaultHTTPErrorHandler(err, ctx)
		e.Logger.Error(err)
	}
	e.Use(echoutil.LogHandlerFunc)

	// read configfile
	cfg, err := conf.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("can not read configration: %s", err)
	}

	// open store
	driver, err := bunt.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("can not open store at %s: %s", cfg.DBPath, err)
	}
	defer driver.Close()
	db := fixture.NewDatabase(driver)

	// seed data, reloading the server when the seed file changes
	reseed := func() error { return nil }
	if cfg.SeedPath != "" {
		s, err := seed.Load(cfg.SeedPath)
		if err != nil {
			log.Fatalf("can not read seed file: %s", err)
		}
		if _, err := seed.ApplyIfEmpty(db, s); err != nil {
			log.Fatalf("can not seed store: %s", err)
		}
		reseed = func() error { return s.Apply(db) }

		watchCtx, cancel, err := filewatch.UntilModifyContext(
			context.Background(), cfg.SeedPath,
		)
		if err != nil {
			log.Fatalf("can not watch seed file: %s", err)
		}
		defer cancel()
		context.AfterFunc(watchCtx, func() {
			log.Println("seed file is updated. quit to restart server.")
			graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(graceful); err != nil {
				log.Printf("error on shutdown by seed file update: %s", err)
			}
		})
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	bus := events.NewBus()
	sim, err := simulator.New(db, bus, cfg.Tick.Duration())
	if err != nil {
		log.Fatalf("can not build simulator: %s", err)
	}
	go func() {
		if _, err := loop.Start(ctx, simulator.Stats{}, sim.Task()); err != nil {
			log.Printf("simulator stopped: %s", err)
		}
	}()

	// autosave compaction
	go func() {
		task := func(ctx context.Context, n int) (int, loop.Next) {
			if err := db.Shrink(); err != nil {
				e.Logger.Warnf("store compaction: %s", err)
			}
			return n + 1, loop.Continue(cfg.ShrinkInterval.Duration())
		}
		if _, err := loop.Start(ctx, 0, task); err != nil {
			log.Printf("autosave stopped: %s", err)
		}
	}()

	tokens := auth.New([]byte(cfg.TokenSecret), db.Users, auth.DefaultTTL)
	loader := dataset.NewLoader(db.Datasets, http.DefaultClient)

	tables := routes.All(routes.Deps{
		DB:     db,
		Sim:    sim,
		Auth:   tokens,
		Loader: loader,
		Bus:    bus,
		Reseed: reseed,
	})
	if cfg.BackendApiRoot != "" {
		for i, table := range tables {
			tables[i] = fallback.WrapAll(table)
		}
	}
	dsp, err := dispatch.New(tokens, tables...)
	if err != nil {
		log.Fatalf("can not compile routes: %s", err)
	}

	// handlers
	{
		hub := events.NewHub(bus)
		e.GET("/api/events/", hub.Handler())
		e.GET("/api/processes/:id/stream/", handlers.ProcessStreamHandler(sim))

		api := handlers.APIHandler(dsp, cfg.BackendApiRoot, handlers.Latency{
			Min: cfg.Latency.Min.Duration(),
			Max: cfg.Latency.Max.Duration(),
		})
		e.Any("/api/*", api)
	}
	log.Println("registred routes:")
	for _, r := range e.Routes() {
		log.Println(r.Method, r.Path)
	}

	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
