package camera

import (
	"context"
	"fmt"
)

// MockDiscovery はテスト用のモックDiscovery実装
type MockDiscovery struct {
	devices     []string
	deviceInfos map[string]*DeviceInfo
}

// NewMockDiscovery は新しいMockDiscoveryを作成する
func NewMockDiscovery(devices []string) *MockDiscovery {
	m := &MockDiscovery{deviceInfos: make(map[string]*DeviceInfo)}
	for _, device := range devices {
		m.AddDevice(device)
	}
	return m
}

// ScanDevices はモックデバイス一覧を返す
func (m *MockDiscovery) ScanDevices(_ context.Context) ([]string, error) {
	return append([]string(nil), m.devices...), nil
}

// IsDeviceAvailable はモックデバイスが利用可能かチェックする
func (m *MockDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	_, exists := m.deviceInfos[device]
	return exists
}

// GetDeviceInfo はモックデバイス情報を取得する
func (m *MockDiscovery) GetDeviceInfo(_ context.Context, device string) (*DeviceInfo, error) {
	info, exists := m.deviceInfos[device]
	if !exists {
		return nil, fmt.Errorf("デバイスが見つかりません: %s", device)
	}

	// コピーを返す
	result := *info
	return &result, nil
}

// AddDevice はテスト用にデバイスを追加する
func (m *MockDiscovery) AddDevice(device string) {
	if _, exists := m.deviceInfos[device]; exists {
		return
	}

	m.devices = append(m.devices, device)
	m.deviceInfos[device] = &DeviceInfo{
		Index:  DeviceIndex(device),
		Device: device,
		Name:   fmt.Sprintf("テストカメラ %d", len(m.devices)),
		Driver: "mock",
		Resolutions: []Resolution{
			{Width: 640, Height: 480},
			{Width: 1280, Height: 720},
		},
		Formats: []string{"MJPG"},
	}
}

// RemoveDevice はテスト用にデバイスを削除する
func (m *MockDiscovery) RemoveDevice(device string) {
	for i, d := range m.devices {
		if d == device {
			m.devices = append(m.devices[:i], m.devices[i+1:]...)
			break
		}
	}
	delete(m.deviceInfos, device)
}
