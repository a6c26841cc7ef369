// Package entity 定义领域实体
package entity

import (
	"fmt"
	"sort"
	"strconv"
)

// Segment 已向量化的转写片段，检索的最小单位
type Segment struct {
	ChunkID     int       `json:"chunk_id"`
	SourceIndex int       `json:"source_index"` // 播放列表中的位置，从 1 开始
	SourceTitle string    `json:"source_title"`
	StartTime   float64   `json:"start"`
	EndTime     float64   `json:"end"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"embedding"`
}

// Source 播放列表中的一个视频
type Source struct {
	Index    int    `json:"-"`
	Title    string `json:"title"`
	Filename string `json:"filename"` // 不含扩展名的基础文件名，形如 3_intro_to_go
	URL      string `json:"url"`
}

// SourceMap 按播放列表位置索引的视频元数据
type SourceMap map[int]Source

// Sorted 按 Index 升序返回
func (m SourceMap) Sorted() []Source {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	out := make([]Source, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

// ToJSONKeys 转为以十进制字符串为键的表示，用于持久化
func (m SourceMap) ToJSONKeys() map[string]Source {
	out := make(map[string]Source, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}

// SourceMapFromJSONKeys 从持久化表示还原
func SourceMapFromJSONKeys(raw map[string]Source) (SourceMap, error) {
	out := make(SourceMap, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 1 {
			return nil, fmt.Errorf("invalid source index key %q", k)
		}
		v.Index = idx
		out[idx] = v
	}
	return out, nil
}

// TranscriptChunk 转写结果中的一个时间片
type TranscriptChunk struct {
	SourceIndex int     `json:"tutorial_number"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
}

// Transcript 单个视频的转写结果
type Transcript struct {
	SourceIndex int               `json:"tutorial_number"`
	Chunks      []TranscriptChunk `json:"chunks"`
}

// Valid 片段是否可用于检索
func (c TranscriptChunk) Valid() bool {
	return c.Text != "" && c.Start < c.End
}
