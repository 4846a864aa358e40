// Package ffmpeg は ffmpeg/ffprobe プロセスを使ったフレームソースと動画エンコーダを提供する。
//
// # 責務
//
//   - カメラ（V4L2 / AVFoundation）または動画ファイルから bgr24 の生フレームを読み出す
//   - ffprobe でフレームサイズとfpsを取得する
//   - 生フレームを標準入力から受け取り MJPG/AVI として書き出す
//
// # 仕様
//
// フレームは標準出力から io.ReadFull で1枚ずつ読み出す。途中で切れた読み取りは
// ストリーム終端として扱う。外部コマンドが見つからない場合はバックエンドの作成に失敗する。
package ffmpeg
