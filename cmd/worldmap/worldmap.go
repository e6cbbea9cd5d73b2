package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rampage128/qgis-game-worlds/internal/cities"
	"github.com/rampage128/qgis-game-worlds/internal/export"
	"github.com/rampage128/qgis-game-worlds/internal/geo"
	"github.com/rampage128/qgis-game-worlds/internal/host"
	"github.com/rampage128/qgis-game-worlds/internal/maparea"
	"github.com/rampage128/qgis-game-worlds/internal/pipeline"
	"github.com/rampage128/qgis-game-worlds/internal/project"
	"github.com/rampage128/qgis-game-worlds/internal/source"
	"github.com/rampage128/qgis-game-worlds/internal/version"
)

var (
	dbFile = flag.String("db", "worldmap.db", "Path to the project database file")
	outDir = flag.String("out", "maps", "Directory export artifacts are written to")
	limits = flag.String("limits", "", "Optional JSON limits file")

	createArea = flag.String("create-area", "", "Create a map area with the given name")
	lat        = flag.Float64("lat", 0, "Area centroid latitude (with -create-area)")
	lon        = flag.Float64("lon", 0, "Area centroid longitude (with -create-area)")
	extent     = flag.Float64("extent", 65536, "Area edge length in meters (with -create-area)")
	resolution = flag.Float64("resolution", maparea.DefaultResolution, "Output cell size in meters (with -create-area)")
	srcKind    = flag.String("source", "xyz", "Elevation source: opentopo, hgt or xyz (with -create-area)")
	improveGPS = flag.Bool("improve-gps", false, "Apply the in-game GPS longitude correction (with -create-area)")

	exportArea   = flag.String("export", "", "Export the map area with the given name")
	cityFile     = flag.String("cities", "", "Optional city zone GeoJSON file (with -export)")
	workers      = flag.Int("workers", 0, "Reprojection worker count (0 = all CPUs)")
	allowPartial = flag.Bool("allow-partial", false, "Accept incomplete source coverage (with -export)")

	listAreas   = flag.Bool("list-areas", false, "List all map areas")
	deleteArea  = flag.String("delete-area", "", "Delete the map area with the given name")
	showVersion = flag.Bool("version", false, "Print the version and exit")

	apiKey       = flag.String("api-key", "", "Provider API key (opentopo source)")
	dataset      = flag.String("dataset", "", "Provider dataset id, e.g. COP30 (opentopo source)")
	tileDir      = flag.String("tile-dir", "", "Directory holding .hgt tiles (hgt source)")
	tileURL      = flag.String("tile-url", "", "Tile URL template with {z}/{x}/{y} (xyz source)")
	tileEncoding = flag.String("tile-encoding", "", "Tile color encoding: terrarium or mapbox (xyz source)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lim := maparea.DefaultLimits()
	if *limits != "" {
		var err error
		lim, err = maparea.LoadLimits(*limits)
		if err != nil {
			log.Fatalf("load limits: %v", err)
		}
	}

	store, err := project.Open(*dbFile)
	if err != nil {
		log.Fatalf("open project: %v", err)
	}
	defer store.Close()

	console := host.NewConsole(os.Stdin, os.Stdout, os.Stderr)

	switch {
	case *createArea != "":
		err = runCreate(store, lim, console)
	case *exportArea != "":
		err = runExport(ctx, store, lim, console)
	case *listAreas:
		err = runList(store)
	case *deleteArea != "":
		err = store.Delete(*deleteArea)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func runCreate(store *project.Store, lim *maparea.Limits, console *host.Console) error {
	area, err := maparea.Create(
		*createArea,
		geo.LatLon{Lat: *lat, Lon: *lon},
		*extent,
		*resolution,
		maparea.SourceKind(*srcKind),
		lim,
	)
	if err != nil {
		return err
	}
	area.ImproveGPS = *improveGPS

	if err := store.Save(area); err != nil {
		return err
	}
	console.PublishResult("created area", fmt.Sprintf("%s (%d segments, %.0fm)", area.Name, area.Segments, area.ExtentMeters))
	return nil
}

func runExport(ctx context.Context, store *project.Store, lim *maparea.Limits, console *host.Console) error {
	area, err := store.Get(*exportArea)
	if err != nil {
		return err
	}

	var citySet *cities.Set
	if *cityFile != "" {
		citySet, err = cities.LoadFile(*cityFile)
		if err != nil {
			return err
		}
	}

	p := &pipeline.Pipeline{
		Host:         console,
		Exporter:     export.NewExporter(nil, *outDir),
		Limits:       lim,
		Workers:      *workers,
		AllowPartial: *allowPartial,
		Source: source.Config{
			Dataset:      *dataset,
			APIKey:       *apiKey,
			TileDir:      *tileDir,
			TileURL:      *tileURL,
			TileEncoding: *tileEncoding,
		},
	}

	_, err = p.Export(ctx, area, citySet)
	return err
}

func runList(store *project.Store) error {
	areas, err := store.List()
	if err != nil {
		return err
	}
	if len(areas) == 0 {
		fmt.Println("no map areas")
		return nil
	}
	for _, a := range areas {
		fmt.Printf("%-20s %9.4f,%9.4f  %2d segments  %6.1fm/cell  %s\n",
			a.Name, a.Centroid.Lat, a.Centroid.Lon, a.Segments, a.Resolution, a.Source)
	}
	return nil
}
