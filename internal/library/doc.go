// Package library は録画セッションの保存先を管理する。
//
// # 責務
//
//   - セッション名の採番（開始時刻ベース、衝突時は連番を付与）
//   - 保存済みセッション（カバー画像 + 動画）の一覧
//   - カバー画像のサムネイル生成
//
// # 仕様
//
// 1セッションは保存ディレクトリ内の2ファイルで表される:
//
//	<name>.jpg  録画開始時点のフレーム（カバー）
//	<name>.avi  MJPG動画
//
// メタデータはファイル名以外に保存しない。
package library
