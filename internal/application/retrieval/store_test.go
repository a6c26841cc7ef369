package retrieval

import (
	"errors"
	"testing"

	"playlist-rag-api/internal/domain/entity"
)

func TestBuildStoreAssignsDenseIDsInSourceOrder(t *testing.T) {
	sources := []SourceSegments{
		{
			Source:     entity.Source{Index: 1, Title: "Intro"},
			Chunks:     []entity.TranscriptChunk{{Start: 0, End: 2, Text: "a"}, {Start: 2, End: 4, Text: "b"}},
			Embeddings: [][]float32{{1, 0}, {0, 1}},
		},
		{
			Source:     entity.Source{Index: 3, Title: "Advanced"},
			Chunks:     []entity.TranscriptChunk{{Start: 0, End: 3, Text: "c"}},
			Embeddings: [][]float32{{1, 1}},
		},
	}

	st, err := BuildStore(sources)
	if err != nil {
		t.Fatalf("BuildStore: %v", err)
	}
	if st.Len() != 3 || st.Dim() != 2 {
		t.Fatalf("Len=%d Dim=%d", st.Len(), st.Dim())
	}
	all := st.All()
	for i, s := range all {
		if s.ChunkID != i {
			t.Errorf("segment %d has chunk_id %d", i, s.ChunkID)
		}
	}
	if all[2].SourceIndex != 3 || all[2].SourceTitle != "Advanced" {
		t.Errorf("third segment source = %d %q", all[2].SourceIndex, all[2].SourceTitle)
	}
	if st.SourceCount() != 2 {
		t.Errorf("SourceCount = %d", st.SourceCount())
	}

	matrix, norms := st.Matrix()
	if len(matrix) != 6 || len(norms) != 3 {
		t.Fatalf("matrix len %d norms len %d", len(matrix), len(norms))
	}
}

func TestBuildStoreRejectsDimensionMismatch(t *testing.T) {
	_, err := BuildStore([]SourceSegments{{
		Source:     entity.Source{Index: 1},
		Chunks:     []entity.TranscriptChunk{{Start: 0, End: 1, Text: "a"}, {Start: 1, End: 2, Text: "b"}},
		Embeddings: [][]float32{{1, 0}, {1, 0, 0}},
	}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestBuildStoreEmpty(t *testing.T) {
	if _, err := BuildStore(nil); !errors.Is(err, ErrEmptyStore) {
		t.Fatalf("err = %v, want ErrEmptyStore", err)
	}
}

func TestNewStoreFromSegmentsValidatesDensity(t *testing.T) {
	segs := []entity.Segment{seg(0, 1, 1, 0, "a"), seg(2, 1, 0, 1, "b")}
	if _, err := NewStoreFromSegments(segs); !errors.Is(err, ErrInvalidStore) {
		t.Fatalf("err = %v, want ErrInvalidStore", err)
	}
}

func TestStoreAllReturnsCopy(t *testing.T) {
	st, err := NewStoreFromSegments([]entity.Segment{seg(0, 1, 1, 0, "a")})
	if err != nil {
		t.Fatalf("NewStoreFromSegments: %v", err)
	}
	all := st.All()
	all[0].Text = "mutated"
	if s, _ := st.Segment(0); s.Text != "a" {
		t.Fatalf("store was mutated through All()")
	}
}
