package library

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

const (
	// CoverExt はカバー画像の拡張子
	CoverExt = ".jpg"
	// VideoExt は動画の拡張子
	VideoExt = ".avi"

	// nameLayout はセッション名の時刻フォーマット
	nameLayout = "2006-01-02_15-04-05"
)

var validName = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)

// ValidName はセッション名として安全か（パス区切り等を含まないか）を返す
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Paths はセッション名からカバー画像と動画のパスを返す
func Paths(dir, name string) (cover, video string) {
	base := filepath.Join(dir, name)
	return base + CoverExt, base + VideoExt
}

// Namer はセッション名を採番する
type Namer struct {
	dir  string
	now  func() time.Time
	mu   sync.Mutex
	used map[string]struct{}
}

// NewNamer は新しいNamerを作成する。now が nil なら time.Now を使う
func NewNamer(dir string, now func() time.Time) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{
		dir:  dir,
		now:  now,
		used: make(map[string]struct{}),
	}
}

// Next は未使用のセッション名を返す
// 同じ秒に複数回呼ばれた場合やファイルが既に存在する場合は _2, _3 ... を付与する
func (n *Namer) Next() string {
	n.mu.Lock()
	defer n.mu.Unlock()

	base := n.now().Format(nameLayout)
	name := base
	for i := 2; n.taken(name); i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	n.used[name] = struct{}{}
	return name
}

func (n *Namer) taken(name string) bool {
	if _, ok := n.used[name]; ok {
		return true
	}
	cover, video := Paths(n.dir, name)
	for _, p := range []string{cover, video} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// Video は保存済みセッションの情報
type Video struct {
	Name      string    `json:"name"`
	CoverPath string    `json:"cover_path,omitempty"` // カバーがない場合は空
	VideoPath string    `json:"video_path"`
	Size      int64     `json:"size"`       // 動画ファイルサイズ
	CreatedAt time.Time `json:"created_at"` // 動画ファイルの更新時刻
}

// List は保存ディレクトリの動画を新しい順に返す
// ディレクトリが存在しない場合は空のリストを返す
func List(dir string) ([]Video, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Video{}, nil
		}
		return nil, fmt.Errorf("ディレクトリの読み取りに失敗: %w", err)
	}

	videos := make([]Video, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != VideoExt {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), VideoExt)
		cover, video := Paths(dir, name)
		v := Video{
			Name:      name,
			VideoPath: video,
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		}
		if _, err := os.Stat(cover); err == nil {
			v.CoverPath = cover
		}
		videos = append(videos, v)
	}

	sort.Slice(videos, func(i, j int) bool {
		if videos[i].CreatedAt.Equal(videos[j].CreatedAt) {
			return videos[i].Name > videos[j].Name
		}
		return videos[i].CreatedAt.After(videos[j].CreatedAt)
	})
	return videos, nil
}

// Thumbnail はカバー画像を width×height に収まるよう縮小して返す
// どちらかが0の場合はアスペクト比を保って計算する
func Thumbnail(dir, name string, width, height int) (image.Image, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("無効なセッション名: %q", name)
	}
	cover, _ := Paths(dir, name)
	img, err := imaging.Open(cover)
	if err != nil {
		return nil, fmt.Errorf("カバー画像の読み込みに失敗: %w", err)
	}
	if width <= 0 && height <= 0 {
		return img, nil
	}
	if width > 0 && height > 0 {
		return imaging.Fit(img, width, height, imaging.Lanczos), nil
	}
	return imaging.Resize(img, width, height, imaging.Lanczos), nil
}
