// Package camera カメラデバイスの検出を担う
//
// # 責務
// - V4L2デバイス (/dev/videoN) の検出
// - カメラ番号とデバイスパスの対応付け
// - カメラ名・フォーマット・解像度の取得
//
// # 仕様
// - Discovery: デバイスの検出と詳細情報の取得
// - カメラ番号 N は /dev/videoN に対応する
// - 同じ物理カメラの複数チャンネルは最も小さい番号だけを返す
//
// # 前提要件
//   - v4l-utils: カメラ名とフォーマットの取得に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//     Red Hat/Fedora: sudo dnf install v4l-utils
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
