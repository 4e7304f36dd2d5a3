// 程序入口：仅负责读取配置、初始化依赖并启动服务；API 注册在 internal/api 以便扩展
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sim-api/internal/api"
	"sim-api/internal/logger"
	"sim-api/internal/lookup"
	"sim-api/internal/metrics"
	"sim-api/internal/middleware"
	"sim-api/internal/migrate"
	"sim-api/internal/simownership"
	"sim-api/internal/stats"
	"sim-api/internal/store"
	"sim-api/internal/utils"
	"sim-api/internal/version"
	"sim-api/internal/visitor"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Info("starting", "version", version.Version, "commit", version.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 统计后端：Redis 在前（/stats 读取走计数器），PostgreSQL 在后（明细日志）
	var recorders []stats.Recorder
	if rc := utils.OpenRedisFromEnv(); rc != nil {
		defer rc.Close()
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rc.Ping(pctx).Err()
		cancel()
		if err != nil {
			// 不可达的 Redis 不进入统计链，避免每次写入都耗满期限
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
			recorders = append(recorders, stats.NewRedis(rc))
		}
	} else {
		l.Info("redis_disabled")
	}
	if utils.PostgresEnabled() {
		db, err := utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
		} else {
			l.Info("db_ping_ok")
		}
		if err := migrate.EnsureSchema(ctx, db); err != nil {
			l.Error("schema_error", "err", err)
			os.Exit(1)
		}
		recorders = append(recorders, stats.NewPostgres(store.AttachDB(db)))
	} else {
		l.Info("postgres_disabled")
	}

	geo, err := visitor.Open(utils.EnvString("GEOIP_DB_PATH", ""))
	if err != nil {
		// 国家解析只用于统计，失败不阻断启动
		l.Error("geoip_open_error", "err", err)
		geo = &visitor.Resolver{}
	}
	defer geo.Close()
	l.Debug("geoip", "enabled", geo.Enabled())

	timeout := utils.EnvDuration("SIM_UPSTREAM_TIMEOUT", simownership.DefaultTimeout)
	up := simownership.NewClient(utils.EnvString("SIM_UPSTREAM_URL", ""), timeout, &http.Client{})
	l.Info("upstream", "endpoint", up.Endpoint(), "timeout", up.Timeout())
	svc := lookup.NewService(up)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("/", api.BuildRoutes(svc, stats.NewChain(recorders...), geo, utils.EnvString("PUBLIC_BASE_URL", "")))

	addr := utils.EnvString("ADDR", ":8080")
	if p := os.Getenv("PORT"); p != "" && os.Getenv("ADDR") == "" {
		// 托管平台（Railway 等）只注入 PORT
		addr = ":" + p
	}
	s := &http.Server{
		Addr:              addr,
		Handler:           middleware.Wrap(mux),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout + api.StatsWriteTimeout + 10*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if utils.EnvBool("TLS_ENABLE", false) {
			certPath := utils.EnvString("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
			keyPath := utils.EnvString("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
			if err := utils.EnsureSelfSignedCert(certPath, keyPath, "sim-api.local"); err != nil {
				return err
			}
			l.Info("listening_tls", "addr", addr, "cert", certPath)
			err = s.ListenAndServeTLS(certPath, keyPath)
		} else {
			l.Info("listening", "addr", addr)
			err = s.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), utils.EnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second))
		defer cancel()
		l.Info("shutting_down")
		return s.Shutdown(sctx)
	})
	if err := g.Wait(); err != nil {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
	l.Info("server_stopped")
}
