// Package server は、キャプチャパイプラインをHTTPで操作・表示するサーバーです。
//
// このパッケージは、ワーカーの最新フレームとイベントを購読し、
// ブラウザや外部ツール向けに配信します。
//
// 責務:
//   - HTTPサーバーの起動とグレースフルシャットダウン
//   - ライブ映像のMJPEG配信とスナップショット
//   - ワーカーイベントの Server-Sent Events 配信
//   - 録画・動き検出・fps計測の操作
//   - 保存済み動画とカバー画像の配信
//
// 仕様:
//   - ルーティングは gin を使用
//   - 最新フレームの取得はワーカー側でコピー済みのものを使う
//   - 配信中の接続はシャットダウン時に閉じられる
package server
