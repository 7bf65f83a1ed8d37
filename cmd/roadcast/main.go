package main

import (
	"context"
	"database/sql"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/mlopera/roadcast/internal/api"
	"github.com/mlopera/roadcast/internal/forecast"
	"github.com/mlopera/roadcast/internal/geometry"
	"github.com/mlopera/roadcast/internal/models"
	"github.com/mlopera/roadcast/internal/realtime"
	"github.com/mlopera/roadcast/internal/severity"
	"github.com/mlopera/roadcast/internal/store"
)

var cli struct {
	EnvFile   kongdotenv.ENVFileConfig `kong:"name='env-file',optional,help='Optional .env file with configuration.'"`
	DB        string                   `kong:"name='db',default='data/roadcast.db',env='ROADCAST_DB',help='Path to SQLite database.'"`
	Port      string                   `kong:"name='port',default='8080',env='ROADCAST_PORT',help='HTTP server port.'"`
	Model     string                   `kong:"name='model',default='data/severity_model.json',env='ROADCAST_MODEL',help='Path to the severity classifier artifact.'"`
	TomTomKey string                   `kong:"name='tomtom-key',env='TOMTOM_API_KEY',help='TomTom traffic API key. Live blending is disabled when empty.'"`
	NoSeed    bool                     `kong:"name='no-seed',help='Skip seeding the default road segments.'"`
}

// defaultSegments covers the three corridors the model was trained on.
// Geometry follows the mapped road alignment through each area.
var defaultSegments = []models.RoadSegment{
	{
		Corridor: "Calamba_Pagsanjan", Area: "Bucal", RoadName: "Calamba-Pagsanjan Road",
		RoadType: "primary", Lanes: 2, LengthKm: 2.4, MaxSpeedKmh: 60,
		Geometry: []models.LatLng{
			{Lat: 14.1830, Lng: 121.1620},
			{Lat: 14.1870, Lng: 121.1660},
			{Lat: 14.1900, Lng: 121.1700},
			{Lat: 14.1940, Lng: 121.1740},
			{Lat: 14.1980, Lng: 121.1780},
		},
	},
	{
		Corridor: "Maharlika_Parian", Area: "Parian", RoadName: "Maharlika Highway (Parian Section)",
		RoadType: "trunk", Lanes: 4, LengthKm: 1.8, MaxSpeedKmh: 80,
		Geometry: []models.LatLng{
			{Lat: 14.2110, Lng: 121.1420},
			{Lat: 14.2130, Lng: 121.1460},
			{Lat: 14.2150, Lng: 121.1500},
			{Lat: 14.2170, Lng: 121.1540},
			{Lat: 14.2190, Lng: 121.1580},
		},
	},
	{
		Corridor: "Maharlika_Turbina", Area: "Turbina", RoadName: "Maharlika Highway (Turbina Section)",
		RoadType: "trunk", Lanes: 4, LengthKm: 2.1, MaxSpeedKmh: 80,
		Geometry: []models.LatLng{
			{Lat: 14.1810, Lng: 121.1320},
			{Lat: 14.1830, Lng: 121.1360},
			{Lat: 14.1850, Lng: 121.1400},
			{Lat: 14.1870, Lng: 121.1440},
			{Lat: 14.1890, Lng: 121.1480},
		},
	},
}

func main() {
	kong.Parse(&cli,
		kong.Name("roadcast"),
		kong.Description("Road congestion forecast service for the Calamba corridors."),
	)

	db, err := sql.Open("sqlite", cli.DB)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	// Load timezone once at startup
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		log.Printf("Warning: could not load Asia/Manila timezone, using UTC: %v", err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	if !cli.NoSeed {
		for _, seg := range defaultSegments {
			if err := st.UpsertSegment(seg); err != nil {
				log.Fatalf("upsert segment %s: %v", seg.Corridor, err)
			}
		}
		log.Println("road segments seeded")
	}

	forest, err := severity.LoadForest(cli.Model)
	if err != nil {
		log.Fatalf("load severity model %s: %v", cli.Model, err)
	}
	classifier := severity.NewFromForest(forest)
	log.Printf("severity model loaded: %d trees, %d features", len(forest.Trees), len(forest.FeatureNames))

	var live realtime.Source
	if cli.TomTomKey != "" {
		live = realtime.NewTomTom(cli.TomTomKey)
	} else {
		log.Println("no TomTom API key, live traffic blending disabled")
	}

	policy := realtime.NewPolicy(live, time.Now)
	resolver := geometry.NewResolver(st)
	engine := forecast.NewEngine(classifier, policy, resolver, time.Now)
	server := api.NewServer(st, engine, live, cli.Port, loc)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("starting server on :%s", cli.Port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
