//go:build opencv

// Package opencv は gocv (OpenCV) を使ったフレームソース・背景差分・動画ライターを提供する。
//
// `-tags opencv` を付けてビルドした場合のみ有効になる。OpenCV 4 の開発パッケージが必要。
package opencv
