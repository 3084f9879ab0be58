package chunker

import (
	"unicode/utf8"

	"rag/types"

	"github.com/pkoukk/tiktoken-go"
)

// Stats summarizes a chunking result for ingestion reports.
func Stats(chunks []types.Chunk) types.ChunkStats {
	stats := types.ChunkStats{
		TotalChunks: len(chunks),
		ByType:      make(map[types.ChunkType]int),
		ByTag:       make(map[string]int),
	}
	if len(chunks) == 0 {
		return stats
	}

	total := 0
	stats.MinLength = utf8.RuneCountInString(chunks[0].Content)

	for _, chunk := range chunks {
		n := utf8.RuneCountInString(chunk.Content)
		total += n
		if n < stats.MinLength {
			stats.MinLength = n
		}
		if n > stats.MaxLength {
			stats.MaxLength = n
		}

		stats.ByType[chunk.ChunkType]++
		for _, tag := range chunk.Tags {
			stats.ByTag[tag]++
		}
	}

	stats.AvgLength = total / len(chunks)
	return stats
}

// TokenCount reports the token length of text under a cl100k-family
// encoding, for sizing embedding payloads in loader summaries.
func TokenCount(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
