package server

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ScoreRack/config"
	"ScoreRack/core/auth"
	"ScoreRack/core/importer"
	"ScoreRack/core/viewer"
	"ScoreRack/db"
	"ScoreRack/logger"
	"ScoreRack/model"
	"ScoreRack/repository"
	"ScoreRack/storage"

	"github.com/gorilla/mux"
	"github.com/minio/minio-go/v7"
)

// viewerSessionTTL 查看器会话的闲置回收时间
const viewerSessionTTL = 30 * time.Minute

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogOutputPath,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	})
	defer logger.Sync()

	auth.Configure(cfg.JWTSecret, cfg.JWTTTLHours)

	// 设置服务器超时
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 初始化 MinIO 客户端
	if err := storage.InitMinio(cfg); err != nil {
		log.Fatalf("Failed to initialize MinIO: %v", err)
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect GORM database: %v", err)
	}
	defer db.CloseGormDB()

	// Connect to Redis
	if err := db.ConnectRedis(cfg); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer db.CloseRedis()
	log.Println("Successfully connected to Redis")

	// Initialize database schema
	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := db.AutoMigrateModels(
		&model.MusicalPiece{},
		&model.Section{},
		&model.Instrument{},
		&model.VocalPart{},
	); err != nil {
		log.Fatalf("Failed to migrate catalog tables: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bundleRepo := repository.NewMySQLBundleRepository()
	userRepo := repository.NewMySQLUserRepository(db.DB)
	catalogRepo := repository.NewGormCatalogRepository(db.GormDB)

	store := storage.NewScoreStore(storage.GetMinioClient(), cfg.MinioBucket)

	viewerMgr := viewer.NewManager(viewerSessionTTL)
	viewerMgr.StartSweeper(ctx)

	notifyHub := NewNotifyHub()

	// 扫描件导入器，配置了监听目录才启动
	if cfg.ImportWatchDir != "" {
		watcher, err := importer.New(cfg.ImportWatchDir, store)
		if err != nil {
			log.Fatalf("Failed to start import watcher: %v", err)
		}
		watcher.Start(ctx)
	}

	// 初始化处理器
	apiHandler := NewAPIHandler(bundleRepo, userRepo, catalogRepo, store, viewerMgr, notifyHub, cfg)

	// 使用 gorilla/mux 创建路由器
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// 目录类API端点：乐曲增删改仅管理者
	router.HandleFunc("/api/pieces", apiHandler.AuthMiddleware(apiHandler.ListPiecesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/pieces", apiHandler.ManagerOnly(apiHandler.CreatePieceHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/pieces/{id}", apiHandler.AuthMiddleware(apiHandler.GetPieceHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/pieces/{id}", apiHandler.ManagerOnly(apiHandler.UpdatePieceHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/pieces/{id}", apiHandler.ManagerOnly(apiHandler.DeletePieceHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/sections", apiHandler.AuthMiddleware(apiHandler.ListSectionsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/instruments", apiHandler.AuthMiddleware(apiHandler.ListInstrumentsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/voices", apiHandler.AuthMiddleware(apiHandler.ListVoicesHandler)).Methods(http.MethodGet)

	// 资源包相关的API端点：写操作仅管理者
	router.HandleFunc("/api/bundles", apiHandler.ManagerOnly(apiHandler.ListBundlesByPieceHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/bundles", apiHandler.ManagerOnly(apiHandler.CreateBundleHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/bundles/taken", apiHandler.ManagerOnly(apiHandler.TakenVoicesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/bundles/{id}", apiHandler.AuthMiddleware(apiHandler.GetBundleHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/bundles/{id}", apiHandler.ManagerOnly(apiHandler.UpdateBundleHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/bundles/{id}", apiHandler.ManagerOnly(apiHandler.DeleteBundleHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/bundles/{id}/files/{fileId}/position", apiHandler.ManagerOnly(apiHandler.MoveFileHandler)).Methods(http.MethodPut)

	// 矩阵投影（按成员视角裁剪）
	router.HandleFunc("/api/matrix", apiHandler.AuthMiddleware(apiHandler.MatrixHandler)).Methods(http.MethodGet)

	// 沉浸式查看器会话
	router.HandleFunc("/api/viewer", apiHandler.AuthMiddleware(apiHandler.OpenViewerHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/viewer/{id}", apiHandler.AuthMiddleware(apiHandler.ViewerStateHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/viewer/{id}/command", apiHandler.AuthMiddleware(apiHandler.ViewerCommandHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/viewer/{id}", apiHandler.AuthMiddleware(apiHandler.CloseViewerHandler)).Methods(http.MethodDelete)

	// 矩阵变更的WebSocket订阅
	router.HandleFunc("/api/ws/bundles", notifyHub.Handle).Methods(http.MethodGet)

	// 添加MinIO文件服务路由
	router.PathPrefix("/files/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		objectPath := strings.TrimPrefix(r.URL.Path, "/files/")
		client := storage.GetMinioClient()
		if client == nil {
			http.Error(w, "MinIO client not available", http.StatusInternalServerError)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		object, err := client.GetObject(ctx, cfg.MinioBucket, objectPath, minio.GetObjectOptions{})
		if err != nil {
			http.Error(w, "File not found", http.StatusNotFound)
			return
		}
		defer object.Close()

		w.Header().Set("Content-Type", storage.ContentTypeFor(objectPath))
		w.Header().Set("Access-Control-Allow-Origin", "*")
		// 对象名含uuid前缀，内容不可变，可长缓存
		w.Header().Set("Cache-Control", "public, max-age=31536000")

		if _, err = io.Copy(w, object); err != nil {
			log.Printf("Error serving file from MinIO: %v", err)
		}
	})

	server.Handler = router

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 在goroutine中启动服务器
	go func() {
		log.Printf("Server starting on %s...", cfg.HTTPAddr)
		log.Println("Manage pieces via /api/pieces endpoints")
		log.Println("Manage resource bundles via /api/bundles endpoints")
		log.Println("Fetch the assignment matrix via GET /api/matrix?pieceId=")
		log.Println("Open the score viewer via POST /api/viewer")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待中断信号
	<-stop
	log.Println("Shutting down server...")

	// 创建一个5秒超时的上下文
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// 优雅关闭服务器
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
