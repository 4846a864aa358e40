package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	deviceNumberPattern = regexp.MustCompile(`^/dev/video(\d+)$`)
	formatPattern       = regexp.MustCompile(`\[\d+\]:\s*'(\w+)'`)
	sizePattern         = regexp.MustCompile(`Size:\s*\w+\s+(\d+)x(\d+)`)
)

// DevicePath はカメラ番号に対応するデバイスパスを返す
func DevicePath(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

// DeviceIndex はデバイスパスからカメラ番号を返す。V4L2デバイスでなければ -1
func DeviceIndex(device string) int {
	m := deviceNumberPattern.FindStringSubmatch(device)
	if len(m) < 2 {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

// commandRunner は外部コマンドの出力を返す
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// LinuxDiscovery はLinux環境でのカメラデバイス検出を実装する
type LinuxDiscovery struct {
	pattern string
	run     commandRunner
	timeout time.Duration
}

// NewLinuxDiscovery は新しいLinuxDiscoveryを作成する
func NewLinuxDiscovery() *LinuxDiscovery {
	return &LinuxDiscovery{
		pattern: "/dev/video*",
		run:     runCommand,
		timeout: 5 * time.Second,
	}
}

// ScanDevices はシステム内の利用可能なカメラデバイスをスキャンする
func (d *LinuxDiscovery) ScanDevices(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(d.pattern)
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	// デバイス番号でソート
	sort.Slice(matches, func(i, j int) bool {
		return DeviceIndex(matches[i]) < DeviceIndex(matches[j])
	})

	var devices []string
	seen := make(map[string]bool) // カメラ名 → 既出
	for _, match := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if !d.IsDeviceAvailable(ctx, match) {
			continue
		}
		formats, _ := d.listFormats(ctx, match)
		if !hasColorFormat(formats) {
			continue
		}

		// 同じ物理デバイスの複数チャンネルは最も小さい番号を採用
		if name := d.cardName(ctx, match); name != "" {
			if seen[name] {
				continue
			}
			seen[name] = true
		}
		devices = append(devices, match)
	}

	return devices, nil
}

// IsDeviceAvailable は指定されたデバイスが利用可能かチェックする
func (d *LinuxDiscovery) IsDeviceAvailable(_ context.Context, device string) bool {
	if DeviceIndex(device) < 0 {
		return false
	}

	file, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	_ = file.Close()
	return true
}

// GetDeviceInfo はデバイスの詳細情報を取得する
func (d *LinuxDiscovery) GetDeviceInfo(ctx context.Context, device string) (*DeviceInfo, error) {
	if !d.IsDeviceAvailable(ctx, device) {
		return nil, fmt.Errorf("デバイスが利用できません: %s", device)
	}

	index := DeviceIndex(device)
	info := &DeviceInfo{
		Index:  index,
		Device: device,
		Name:   d.cardName(ctx, device),
		Driver: d.driverName(ctx, device),
	}
	if info.Name == "" {
		info.Name = fmt.Sprintf("カメラ %d", index)
	}

	formats, resolutions := d.listFormats(ctx, device)
	info.Formats = formats
	info.Resolutions = resolutions

	return info, nil
}

// cardName は v4l2-ctl の "Card type" からカメラ名を取得する
func (d *LinuxDiscovery) cardName(ctx context.Context, device string) string {
	return d.infoField(ctx, device, "Card type")
}

// driverName は v4l2-ctl の "Driver name" を取得する
func (d *LinuxDiscovery) driverName(ctx context.Context, device string) string {
	return d.infoField(ctx, device, "Driver name")
}

func (d *LinuxDiscovery) infoField(ctx context.Context, device, key string) string {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	output, err := d.run(ctx, "v4l2-ctl", "--device", device, "--info")
	if err != nil {
		return ""
	}
	return parseInfoField(string(output), key)
}

// listFormats はサポートされるフォーマットと解像度を取得する
func (d *LinuxDiscovery) listFormats(ctx context.Context, device string) ([]string, []Resolution) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	output, err := d.run(ctx, "v4l2-ctl", "--device", device, "--list-formats-ext")
	if err != nil {
		return nil, nil
	}
	return parseFormats(string(output))
}

// parseInfoField は "Key : Value" 形式の行から値を取り出す
func parseInfoField(output, key string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, key) {
			continue
		}
		if _, value, ok := strings.Cut(line, ":"); ok {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// parseFormats は --list-formats-ext の出力からフォーマットと解像度（重複なし）を取り出す
func parseFormats(output string) ([]string, []Resolution) {
	var formats []string
	var resolutions []Resolution
	seen := make(map[Resolution]bool)

	for _, line := range strings.Split(output, "\n") {
		if m := formatPattern.FindStringSubmatch(line); len(m) == 2 {
			formats = append(formats, m[1])
			continue
		}
		if m := sizePattern.FindStringSubmatch(line); len(m) == 3 {
			w, _ := strconv.Atoi(m[1])
			h, _ := strconv.Atoi(m[2])
			r := Resolution{Width: w, Height: h}
			if !seen[r] {
				seen[r] = true
				resolutions = append(resolutions, r)
			}
		}
	}

	sort.Slice(resolutions, func(i, j int) bool {
		if resolutions[i].Width == resolutions[j].Width {
			return resolutions[i].Height < resolutions[j].Height
		}
		return resolutions[i].Width < resolutions[j].Width
	})
	return formats, resolutions
}

// hasColorFormat はカラーフォーマット（YUYV / MJPG）を含むかを返す
// グレースケールのみのチャンネル（IRカメラ等）は除外する
func hasColorFormat(formats []string) bool {
	for _, f := range formats {
		if f == "YUYV" || f == "MJPG" {
			return true
		}
	}
	return false
}

// Describe は検出された全デバイスの詳細情報を返す
func Describe(ctx context.Context, d Discovery) ([]DeviceInfo, error) {
	devices, err := d.ScanDevices(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]DeviceInfo, 0, len(devices))
	for _, device := range devices {
		info, err := d.GetDeviceInfo(ctx, device)
		if err != nil {
			continue
		}
		infos = append(infos, *info)
	}
	return infos, nil
}
