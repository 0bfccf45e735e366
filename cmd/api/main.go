package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/config"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/domain/model"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/handler"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/infra/db"
	infraRepo "github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/infra/repository"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/notification"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/repository"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/sweeper"
	"github.com/jkge2227/KU-CIS-Online-Shirt-Sales-sub001/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	//.envは無ければ環境変数だけで動く
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := zap.NewProduction()
	if cfg.GoEnv == "dev" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Size{},
		&model.Generation{},
		&model.ProductVariant{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.AuditLog{},
		&model.StockAdjustment{},
	); err != nil {
		logger.Fatal("migrate failed", zap.Error(err))
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//初回起動用の管理者（ADMIN_EMAILが空ならスキップ）
	if err := seedAdmin(cfg, userRepo); err != nil {
		logger.Fatal("admin seed failed", zap.Error(err))
	}

	//通知。KAFKA_BROKERが空ならログに落とすだけ
	var notifier notification.Notifier
	if cfg.KafkaBroker != "" {
		kn := notification.NewKafkaNotifier(cfg.KafkaBroker)
		defer kn.Close()
		notifier = kn
	} else {
		notifier = notification.NewLogNotifier(logger)
	}

	//Usecase生成
	cartUC := usecase.NewCartUsecase(txManager)
	orderUC := usecase.NewOrderUsecase(
		txManager,
		notifier,
		logger,
		int64(cfg.LowStockThreshold),
		time.Duration(cfg.PurgeGraceHours)*time.Hour,
	)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, notifier, logger)
	adminStockUC := usecase.NewAdminStockUsecase(txManager)
	sweepUC := usecase.NewSweepUsecase(txManager, notifier, logger)

	//Handler生成
	cartH := handler.NewCartHandler(cartUC)
	orderH := handler.NewOrderHandler(orderUC)
	adminOrderH := handler.NewAdminOrderHandler(adminOrderUC, adminStockUC, sweepUC, cfg.RetentionDays)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	cartH.RegisterRoutes(e, cfg, userRepo)
	orderH.RegisterRoutes(e, cfg, userRepo)
	adminOrderH.RegisterRoutes(e, cfg, userRepo)

	//期限切れ掃除の定期実行
	scheduler := sweeper.New(
		sweepUC,
		time.Duration(cfg.SweepIntervalHour)*time.Hour,
		cfg.RetentionDays,
		logger,
	)
	scheduler.Start()

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}

	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server start failed", zap.Error(err))
		}
	}()

	//SIGINT/SIGTERMで掃除を止めてからサーバを閉じる
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

// seedAdminはADMIN_EMAIL/ADMIN_PASSWORDが設定されていて未登録なら管理者を1人作る。
func seedAdmin(cfg config.Config, users repository.UserRepository) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	ctx := context.Background()
	if _, err := users.FindByEmail(ctx, cfg.AdminEmail); err == nil {
		//すでにいる
		return nil
	} else if err != repository.ErrNotFound {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), 12)
	if err != nil {
		return err
	}

	_, err = users.Create(ctx, model.User{
		Email:        cfg.AdminEmail,
		Name:         "admin",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	})
	return err
}
