package retrieval

import (
	"encoding/json"
	"fmt"
	"strings"
)

type locationRecord struct {
	VideoNumber int     `json:"video_number"`
	VideoTitle  string  `json:"video_title"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Text        string  `json:"text"`
}

type conceptRecord struct {
	Text string `json:"text"`
}

const locationTemplate = `You are a friendly instructor guiding a student through a video playlist.

Below are relevant excerpts from the playlist.
Each excerpt includes video number, title, and time range.

Content:
%s

Student question:
"%s"

Instructions:
- Your answer MUST mention:
  • video number
  • video title
  • start time and end time
- Explain clearly what is taught in that part of the video.
- Use natural, human language.
- Do NOT mention internal data formats.
`

const conceptualTemplate = `You are a knowledgeable teacher explaining a concept to a student.

Below is background material from a video playlist that discusses this topic.

Content:
%s

Student question:
"%s"

Instructions:
- Explain the concept clearly in simple terms.
- Focus on *what it is* and *why it matters*.
- Do NOT mention video numbers, titles, or timestamps.
- Do NOT mention transcripts or internal data.
`

// ComposePrompt 按问题类型拼装 Prompt。
// Location 携带视频编号、标题与时间段；Conceptual 只携带文本。
func ComposePrompt(query string, hits []Hit, kind QuestionKind) string {
	query = strings.TrimSpace(query)

	if kind == KindLocation {
		records := make([]locationRecord, len(hits))
		for i, h := range hits {
			records[i] = locationRecord{
				VideoNumber: h.Segment.SourceIndex,
				VideoTitle:  h.Segment.SourceTitle,
				Start:       h.Segment.StartTime,
				End:         h.Segment.EndTime,
				Text:        h.Segment.Text,
			}
		}
		return fmt.Sprintf(locationTemplate, mustJSON(records), query)
	}

	records := make([]conceptRecord, len(hits))
	for i, h := range hits {
		records[i] = conceptRecord{Text: h.Segment.Text}
	}
	return fmt.Sprintf(conceptualTemplate, mustJSON(records), query)
}

// mustJSON 记录只包含基础类型，序列化不会失败
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}
