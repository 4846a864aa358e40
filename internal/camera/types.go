package camera

import "context"

// Discovery はカメラデバイスの検出機能を提供する
type Discovery interface {
	// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
	ScanDevices(ctx context.Context) ([]string, error)

	// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
	IsDeviceAvailable(ctx context.Context, device string) bool

	// GetDeviceInfo はデバイスの詳細情報を取得する
	GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error)
}

// DeviceInfo はカメラデバイスの詳細情報を表す
type DeviceInfo struct {
	Index       int          `json:"index"`       // カメラ番号
	Device      string       `json:"device"`      // デバイスパス
	Name        string       `json:"name"`        // デバイス名
	Driver      string       `json:"driver"`      // ドライバー名
	Resolutions []Resolution `json:"resolutions"` // サポートされる解像度
	Formats     []string     `json:"formats"`     // サポートされるフォーマット
}

// Resolution はカメラの解像度を表す
type Resolution struct {
	Width  int `json:"width"`  // 幅
	Height int `json:"height"` // 高さ
}
