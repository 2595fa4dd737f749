// Command kotakun はLINE公式アカウント「こたくん」のバックエンドサーバー。
//
// サブコマンド:
//
//	serve        APIサーバーを起動する（デフォルト）
//	migrate      データベースマイグレーションを実行する（up | down | version）
//	healthcheck  /health にリクエストして結果を終了コードで返す
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/kotakun/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "kotakun: %v\n", err)
		os.Exit(1)
	}
}
