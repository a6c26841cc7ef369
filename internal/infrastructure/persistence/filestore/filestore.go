// Package filestore 基于本地数据目录的产物与片段表存储
//
// 目录结构：
//
//	<dir>/audios/<base>.mp3
//	<dir>/transcripts/<base>.json
//	<dir>/youtube_map.json
//	<dir>/chunks_with_embeddings.json
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	audiosDir     = "audios"
	transcriptDir = "transcripts"
	sourceMapFile = "youtube_map.json"
	segmentsFile  = "chunks_with_embeddings.json"
)

// writeJSONAtomic 先写同目录临时文件再 rename，读取方不会看到写了一半的文件
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func readJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
