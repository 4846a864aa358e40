package capture

import (
	"math"

	"gazer/internal/vision"
)

// RGB はチャンネル別の値を R, G, B の名前付きで保持する
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// FrameStats はフレームの平均と標本標準偏差
type FrameStats struct {
	Mean   RGB `json:"mean"`
	StdDev RGB `json:"stddev"`
}

// ComputeStatistics はチャンネル別の平均と標本標準偏差（n-1）を2パスで求める
// チャンネルの対応は frame.Order から決める
func ComputeStatistics(frame *vision.Frame) FrameStats {
	if !frame.Valid() {
		return FrameStats{}
	}

	ri, gi, bi := 0, 1, 2
	if frame.Order == vision.OrderBGR {
		ri, bi = 2, 0
	}

	n := float64(frame.Width * frame.Height)
	data := frame.Data

	var sum [vision.Channels]float64
	for i := 0; i < len(data); i += vision.Channels {
		sum[0] += float64(data[i])
		sum[1] += float64(data[i+1])
		sum[2] += float64(data[i+2])
	}
	var mean [vision.Channels]float64
	for c := range mean {
		mean[c] = sum[c] / n
	}

	var dev [vision.Channels]float64
	if n > 1 {
		var sq [vision.Channels]float64
		for i := 0; i < len(data); i += vision.Channels {
			for c := 0; c < vision.Channels; c++ {
				d := float64(data[i+c]) - mean[c]
				sq[c] += d * d
			}
		}
		for c := range dev {
			dev[c] = math.Sqrt(sq[c] / (n - 1))
		}
	}

	return FrameStats{
		Mean:   RGB{R: mean[ri], G: mean[gi], B: mean[bi]},
		StdDev: RGB{R: dev[ri], G: dev[gi], B: dev[bi]},
	}
}
