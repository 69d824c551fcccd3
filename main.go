package main

import (
	"flag"
	"log"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/yi-nology/survey_vault/biz/dal/db"
	"github.com/yi-nology/survey_vault/biz/handler"
	"github.com/yi-nology/survey_vault/biz/middleware"
	"github.com/yi-nology/survey_vault/biz/router"
	"github.com/yi-nology/survey_vault/biz/service"
	"github.com/yi-nology/survey_vault/pkg/assetstorage"
	"github.com/yi-nology/survey_vault/pkg/config"
	"github.com/yi-nology/survey_vault/pkg/database"
	pkgredis "github.com/yi-nology/survey_vault/pkg/redis"
	"github.com/yi-nology/survey_vault/pkg/session"
	"github.com/yi-nology/survey_vault/pkg/storage"
	"github.com/yi-nology/survey_vault/pkg/storage/sas"
	"github.com/yi-nology/survey_vault/pkg/validator"
)

// Injected at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config.yaml")
	flag.Parse()

	handler.AppVersion, handler.AppGitCommit, handler.AppBuildTime = Version, GitCommit, BuildTime

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	dbConn, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close(dbConn)
	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	store, err := storage.New(cfg.Storage.Backend)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}

	var minter sas.Minter = store
	if cfg.Storage.Cache.Enabled {
		if redisClient == nil {
			hlog.Warnf("storage.cache.enabled is set but redis is disabled; grants are not cached")
		}
		minter = storage.NewCachedMinter(store, redisClient, cfg.Storage.Cache.RefreshMargin).
			WithKeyPrefix(pkgredis.KeyPrefix(cfg.Redis))
	}

	assetCfg := cfg.Storage.AssetStorage()
	issuer := assetstorage.NewIssuer(assetCfg, service.NewGrantRecorder(minter, dbConn), session.Provider{})
	svc := service.NewStorageService(issuer, store, dbConn, validator.NewUploadConfig(cfg.Upload.MaxSize, cfg.Upload.AllowedTypes))

	verifier := session.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if !verifier.Enabled() {
		hlog.Warnf("auth.jwt_secret is empty; every request is anonymous")
	}

	h := server.Default(server.WithHostPorts(cfg.Server.Address))
	h.Use(
		middleware.Recovery(),
		middleware.Auth(verifier, cfg.Auth.SessionCookie),
		middleware.Logging(),
		middleware.CORS(&cfg.CORS),
	)

	// Only backends that verify their own tokens serve blobs from this process.
	var served []string
	if _, ok := store.(storage.TokenVerifier); ok {
		served = assetCfg.Containers()
	}
	router.RegisterStorageRoutes(h, handler.NewStorageHandler(svc), served)

	hlog.Infof("survey_vault %s (%s) listening on %s, storage backend %s", Version, GitCommit, cfg.Server.Address, store.Type())
	h.Spin()
}
