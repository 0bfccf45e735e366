package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	RetentionDays     int // READY_FOR_PICKUPの受取期限（日数）
	SweepIntervalHour int // 期限切れ掃除の実行間隔（時間）
	PurgeGraceHours   int // READYの注文を本人が消せるまでの猶予（時間）
	LowStockThreshold int // 残りこの数以下で在庫アラートを通知

	KafkaBroker string // 空ならKafka通知を使わずログに落とす

	AdminEmail    string // 初回起動時に作る管理者（空ならスキップ）
	AdminPassword string

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	retention, err := atoiOr("RETENTION_DAYS", 3)
	if err != nil {
		return Config{}, err
	}
	sweepInterval, err := atoiOr("SWEEP_INTERVAL_HOURS", 24)
	if err != nil {
		return Config{}, err
	}
	purgeGrace, err := atoiOr("PURGE_GRACE_HOURS", 24)
	if err != nil {
		return Config{}, err
	}
	lowStock, err := atoiOr("LOW_STOCK_THRESHOLD", 5)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RetentionDays:     retention,
		SweepIntervalHour: sweepInterval,
		PurgeGraceHours:   purgeGrace,
		LowStockThreshold: lowStock,

		KafkaBroker: os.Getenv("KAFKA_BROKER"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		GoEnv: os.Getenv("GO_ENV"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.RetentionDays <= 0 {
		return Config{}, fmt.Errorf("RETENTION_DAYS must be positive")
	}
	if cfg.SweepIntervalHour <= 0 {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL_HOURS must be positive")
	}

	return cfg, nil
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
