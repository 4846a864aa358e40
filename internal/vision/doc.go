// Package vision はフレームとマスクに対する画素レベルの処理を担う
//
// # 責務
// - 3チャンネル8bitフレーム（BGR/RGB）の保持と色順序変換
// - 前景マスクの二値化・収縮・膨張
// - 連結成分による輪郭（外接矩形）の抽出
// - 矩形オーバーレイの描画
// - ネイティブ実装の背景モデル（画素単位ガウス分布）
//
// # 仕様
// - フレームは行優先、1画素3バイト、アルファなし
// - 色順序は Frame.Order で明示し、境界で取り違えない
// - 外部ライブラリ（OpenCV等）に依存しない純Go実装
package vision
