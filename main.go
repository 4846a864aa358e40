package main

import (
	"context"
	"log"
	"os"

	"gazer/internal/app"
	"gazer/internal/config"
)

func main() {
	// 設定を読み込む（GAZER_CONFIG が指定されていればそのファイルから）
	cfg, err := config.Load(os.Getenv("GAZER_CONFIG"))
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	logger, err := app.NewLogger(os.Stderr, os.Getenv("LOG_LEVEL"))
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}

	// パイプラインとサーバーを起動
	if err := app.Run(context.Background(), cfg, logger); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
