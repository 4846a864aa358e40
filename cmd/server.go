// Package main はGazerサーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gazer/internal/app"
	"gazer/internal/backends"
	"gazer/internal/config"
)

func main() {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", "", "設定ファイル (YAML または TOML)")
		source     = flag.String("source", "", "取り込み元 (カメラ番号または動画ファイル)")
		backend    = flag.String("backend", "", "キャプチャバックエンド (ffmpeg, opencv)")
		saveDir    = flag.String("save-dir", "", "録画の保存先ディレクトリ")
		motion     = flag.Bool("motion", false, "起動時に動き検出を有効にする")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		logLevel   = flag.String("log-level", "info", "ログレベル (debug, info, warn, error)")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Gazer")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Printf("利用可能なバックエンド: %s\n",
			strings.Join(backends.NewFactory(backends.Options{}).Names(), ", "))
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *source != "" {
		cfg.Source.Target = *source
	}
	if *backend != "" {
		cfg.Source.Backend = *backend
	}
	if *saveDir != "" {
		cfg.Capture.Recorder.SaveDir = *saveDir
	}
	if *motion {
		cfg.Capture.Motion.Enabled = true
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定が不正です: %v", err)
	}

	logger, err := app.NewLogger(os.Stderr, *logLevel)
	if err != nil {
		log.Fatalf("ロガーの作成に失敗しました: %v", err)
	}

	logger.Info("Gazer サーバーを起動します",
		"addr", cfg.ServerAddress(),
		"source", cfg.Source.Target,
		"backend", cfg.Source.Backend)
	if err := app.Run(context.Background(), cfg, logger); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
