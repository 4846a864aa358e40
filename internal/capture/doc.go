// Package capture はカメラ/動画ファイルからの取り込みと解析パイプラインを担う
//
// # 責務
// - FrameSource からの連続フレーム取得
// - 背景差分による動き検出とエッジ（開始/終了）イベントの生成
// - 動きに連動した録画セッション（カバー画像 + MJPG動画）の管理
// - フレームレートの継続推定とオンデマンド計測
// - チャンネル別の平均・標準偏差の算出
// - 最新フレームの共有スロットとイベント配信
//
// # 仕様
// - Worker は専用ゴルーチン1本で全処理を逐次実行する
// - 共有スロットは書き込み・読み出しとも排他コピーで、読み手は途中状態を観測しない
// - 最新フレーム優先（キューではない）。遅い消費者はフレームを取りこぼす
// - 停止は協調的で、次のループ先頭で検出してからデバイスを解放する
// - 背景モデル・動画エンコーダ・フレームソースは Backend として差し替え可能
package capture
