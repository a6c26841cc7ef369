package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionPlaylistSegments 片段表别名，始终指向最新一代集合
	CollectionPlaylistSegments = "playlist_segments"

	fieldChunkID     = "chunk_id"
	fieldSourceIndex = "source_index"
	fieldSourceTitle = "source_title"
	fieldStartTime   = "start_time"
	fieldEndTime     = "end_time"
	fieldText        = "text"
	fieldVector      = "vector"
)

var outputFields = []string{
	fieldChunkID, fieldSourceIndex, fieldSourceTitle,
	fieldStartTime, fieldEndTime, fieldText, fieldVector,
}

// SegmentsSchema 片段表 Collection Schema，维度取自本次导入的向量
func SegmentsSchema(collection string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: collection,
		Description:    "Playlist transcript segments with embeddings",
		Fields: []*entity.Field{
			{
				Name:       fieldChunkID,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     false,
			},
			{
				Name:     fieldSourceIndex,
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     fieldSourceTitle,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "1024",
				},
			},
			{
				Name:     fieldStartTime,
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     fieldEndTime,
				DataType: entity.FieldTypeDouble,
			},
			{
				Name:     fieldText,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     fieldVector,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
		},
	}
}
