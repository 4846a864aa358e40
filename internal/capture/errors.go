package capture

import "errors"

var (
	// ErrSourceUnavailable はデバイス/ファイルを開けなかったことを表す
	ErrSourceUnavailable = errors.New("フレームソースを開けません")

	// ErrEndOfStream はストリームの終端（または不正な読み取り）を表す。エラーではなく終了扱い
	ErrEndOfStream = errors.New("ストリーム終端")

	// ErrWriterOpenFailed は録画セッション開始時に書き出し先を作成できなかったことを表す
	ErrWriterOpenFailed = errors.New("動画ライターを開けません")
)
