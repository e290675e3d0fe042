package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"ATLAS-backend/internal/backup"
	"ATLAS-backend/internal/notify"
	"ATLAS-backend/internal/orders"
	"ATLAS-backend/internal/platform/auth"
	"ATLAS-backend/internal/platform/cache"
	"ATLAS-backend/internal/platform/db"
	"ATLAS-backend/internal/returns"
	"ATLAS-backend/internal/settings"
)

func main() {
	// .env は任意（なければ無視）
	_ = godotenv.Load()

	// 設定読み込み
	cfg, err := db.LoadConfig("config/config.yaml")
	if err != nil {
		panic(err)
	}

	// 動作モード取得
	mode := cfg.Mode
	log.Printf("[INFO] mode:%s\n", mode)

	if mode != "dev" && mode != "release" && mode != "demo" {
		fmt.Println("Usage: set mode to dev, release or demo in config/config.yaml")
		return
	}

	// ストア構築。demo はDBなしでメモリ上のサンプルデータで動く
	var (
		orderStore   orders.Store
		returnStore  returns.Store
		settingStore settings.Store
		acctStore    auth.AccountStore
	)
	if mode == "demo" {
		om := orders.NewMemStore()
		om.SeedDemo(time.Now().UTC())
		am := auth.NewMemStore()
		if err := am.SeedDemoAdmin(); err != nil {
			panic(err)
		}
		orderStore = om
		returnStore = returns.NewMemStore()
		settingStore = settings.NewMemStore()
		acctStore = am
		log.Println("[INFO] demo mode: using in-memory stores")
	} else {
		conn, err := db.Connect(cfg.DB)
		if err != nil {
			panic(err)
		}
		defer conn.Close()
		log.Printf("[INFO] connected to DB: %s", cfg.DB.DBName)

		orderStore = orders.NewStore(conn)
		returnStore = returns.NewStore(conn)
		settingStore = settings.NewStore(conn)
		acctStore = auth.NewStore(conn)
	}

	// Redis（addr 未設定なら nil のまま＝キャッシュなしで動作）
	rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if rc != nil {
		defer rc.Close()
		log.Printf("[INFO] redis cache enabled: %s", cfg.Redis.Addr)
	}

	// バックアップ用のBoltDB
	bs, err := backup.NewStore(cfg.Backup.Path)
	if err != nil {
		panic(err)
	}
	defer bs.Close()

	settingSvc := settings.NewService(settingStore, rc)

	// メール通知（SMTPホスト未設定なら無効）
	var notifier returns.Notifier
	if m := notify.NewMailer(cfg.SMTP, settingSvc); m != nil {
		notifier = m
		log.Printf("[INFO] mail notification enabled: %s", cfg.SMTP.Host)
	}

	orderSvc := orders.NewService(orderStore)
	returnSvc := returns.NewService(returnStore, orderStore, rc, notifier)
	backupSvc := backup.NewService(bs, settingSvc)
	authSvc := auth.NewService(acctStore, []byte(cfg.Auth.JWTSecret))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if mode != "release" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:3000"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
			ExposeHeaders:    []string{"Content-Length", "Location"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowCredentials: true,
		}))
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// 認証不要のルート
	auth.RegisterPublicRoutes(r.Group("/api/v1/auth"), authSvc)

	// /api/v1（要JWT）
	api := r.Group("/api/v1")
	api.Use(auth.RequireAuth([]byte(cfg.Auth.JWTSecret)))
	auth.RegisterAdminRoutes(api.Group("/auth"), authSvc)
	orders.RegisterRoutes(api, orderSvc)
	returns.RegisterRoutes(api, returnSvc)
	settings.RegisterRoutes(api, settingSvc)
	backup.RegisterRoutes(api, backupSvc)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Printf("[INFO] listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("[INFO] shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
