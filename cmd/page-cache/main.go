package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	pagecache "github.com/page-cache/page-cache"
	cachecontrol "github.com/page-cache/page-cache/pkg/cache-control"
	"github.com/page-cache/page-cache/store"
)

var (
	configFilenameFlag string
	portFlag           int
	originFlag         string
	providerFlag       string
	dbFilenameFlag     string
	redisAddrFlag      string
	ttlSecondsFlag     int
	exposedFlag        bool
	verbosityTraceFlag bool

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "Path to config file")
	flag.StringVar(&originFlag, "origin", "", "Origin URL to proxy to (overrides config)")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&providerFlag, "provider", "memory", "Storage provider to use (memory, ristretto, sqlite, redis)")
	flag.StringVar(&dbFilenameFlag, "db", "cache.db", "Cache DB file name for the sqlite provider (use 'memory' for an in-memory db)")
	flag.StringVar(&redisAddrFlag, "redis", "localhost:6379", "Redis address for the redis provider")
	flag.IntVar(&ttlSecondsFlag, "ttl", -1, "Cache entry ttl in seconds (0 disables storing, -1 for the one-year default)")
	flag.BoolVar(&exposedFlag, "exposed", false, "Add a Page-Cache header to responses")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}
	log.Logger = log.Level(logLevel).Output(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Str("version", version).Logger()

	var config Config
	if configFilenameFlag != "" {
		var err error
		config, err = getConfig(configFilenameFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Cannot read config file")
		}
	}

	if originFlag != "" {
		config.Origin = originFlag
	}
	if config.Port <= 0 {
		config.Port = portFlag
	}
	if config.Provider == "" {
		config.Provider = providerFlag
	}
	if config.DBFile == "" {
		config.DBFile = dbFilenameFlag
	}
	if config.Redis.Addr == "" {
		config.Redis.Addr = redisAddrFlag
	}
	if config.TTL == nil && ttlSecondsFlag >= 0 {
		config.TTL = &ttlSecondsFlag
	}
	config.Exposed = config.Exposed || exposedFlag

	if config.Origin == "" {
		log.Fatal().Msg("Please specify origin")
	}
	originURL, err := url.Parse(config.Origin)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not parse origin url")
	}

	cacheStore, err := newStore(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not initialize storage provider")
	}

	acache := pagecache.New(pagecache.Config{
		Store:   cacheStore,
		Logger:  &log.Logger,
		Exposed: config.Exposed,
	})

	router := chi.NewRouter()
	if len(config.CacheControl) > 0 {
		patcher, err := newCacheControl(config.CacheControl)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid cacheControl config")
		}
		router.Use(patcher.Middleware)
	}
	router.Use(acache.Middleware)
	router.Handle("/*", newProxy(originURL))

	log.Info().Msgf("Caching port %v for origin %s", config.Port, originURL)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", config.Port), router); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func newStore(config Config) (store.Store, error) {
	opts := store.Options{KeyPrefix: config.KeyPrefix}
	if config.TTL != nil {
		opts.TTL = store.TTL(time.Duration(*config.TTL) * time.Second)
	}

	var (
		st  store.Store
		err error
	)
	switch config.Provider {
	case "memory":
		memory := store.NewMemoryStore(opts)
		memory.Start()
		st = memory
	case "ristretto":
		st, err = store.NewRistrettoStore(10_000, 100<<20, opts)
	case "sqlite":
		filename := config.DBFile
		if filename == "memory" {
			filename = "file::memory:?cache=shared"
		}
		st, err = store.NewSQLiteStore(filename, opts)
	case "redis":
		st, err = store.NewRedisStore(store.RedisConfig{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		}, opts)
	default:
		err = fmt.Errorf("unsupported storage provider: %s", config.Provider)
	}
	if err != nil {
		return nil, err
	}

	if config.Compress {
		st = store.NewCompressedStore(st, store.SnappyCompressor{})
	}
	return st, nil
}

func newCacheControl(directives map[string]interface{}) (*pagecache.CacheControlMiddleware, error) {
	names := make([]string, 0, len(directives))
	for name := range directives {
		names = append(names, name)
	}
	sort.Strings(names)

	overrides := cachecontrol.NewOverrides()
	for _, name := range names {
		overrides.Set(name, directives[name])
	}
	return pagecache.NewCacheControl(overrides, &log.Logger)
}

func newProxy(origin *url.URL) http.Handler {
	return &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = origin.Scheme
			req.URL.Host = origin.Host
			req.Host = origin.Host
		},
	}
}
