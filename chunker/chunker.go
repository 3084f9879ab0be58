package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"rag/types"
)

// Size thresholds in characters. Subsections shorter than MinChunkLen carry
// no retrievable meaning and are dropped; subsections longer than MaxChunkLen
// are re-split on paragraph boundaries against SplitTarget.
const (
	MinChunkLen = 100
	MaxChunkLen = 1000
	SplitTarget = 800
)

// Metadata is the document-level context attached to every produced chunk.
type Metadata struct {
	DocumentID   string
	DocumentName string
	Version      string
}

var (
	reH2Marker = regexp.MustCompile(`^##\s`)
	reH3Marker = regexp.MustCompile(`^###\s`)
	reH2Title  = regexp.MustCompile(`(?m)^##\s+(.+)$`)
	reH3Title  = regexp.MustCompile(`(?m)^###\s+(.+)$`)
	reH2Line   = regexp.MustCompile(`(?m)^##\s+.+$`)
	reH3Line   = regexp.MustCompile(`(?m)^###\s+.+$`)
	reParaGap  = regexp.MustCompile(`\n\n+`)
)

// Chunk splits a markdown document into retrieval units along H2/H3 heading
// boundaries. It is a pure function of its input: identical content and
// metadata always produce identical chunk ids and bodies.
func Chunk(content string, meta Metadata) []types.Chunk {
	version := meta.Version
	if version == "" {
		version = "1.0"
	}

	var chunks []types.Chunk

	sectionNum := 0
	currentH2 := ""

	for _, section := range splitBefore(content, reH2Marker) {
		if strings.TrimSpace(section) == "" {
			continue
		}

		if m := reH2Title.FindStringSubmatch(section); m != nil {
			currentH2 = strings.TrimSpace(m[1])
		}

		chunkNum := 0
		for _, subsection := range splitBefore(section, reH3Marker) {
			if strings.TrimSpace(subsection) == "" {
				continue
			}

			sectionTitle := currentH2
			if m := reH3Title.FindStringSubmatch(subsection); m != nil {
				sectionTitle = strings.TrimSpace(m[1])
			}

			body := stripFirst(subsection, reH3Line)
			body = stripFirst(body, reH2Line)
			body = strings.TrimSpace(body)

			if utf8.RuneCountInString(body) < MinChunkLen {
				continue
			}

			parts := []string{body}
			if utf8.RuneCountInString(body) > MaxChunkLen {
				parts = splitLongContent(body, SplitTarget)
			}

			for _, part := range parts {
				if utf8.RuneCountInString(part) < MinChunkLen {
					continue
				}
				chunks = append(chunks, types.Chunk{
					ID:            chunkID(meta.DocumentID, sectionNum, chunkNum),
					DocumentID:    meta.DocumentID,
					Section:       sectionTitle,
					ParentSection: currentH2,
					Content:       part,
					Tags:          ExtractTags(part),
					ChunkType:     Classify(part),
					Language:      "ko",
					Version:       version,
				})
				chunkNum++
			}
		}

		sectionNum++
	}

	return chunks
}

func chunkID(docID string, sectionNum, chunkNum int) string {
	return fmt.Sprintf("%s-%d-%d", docID, sectionNum, chunkNum)
}

// splitBefore cuts text into parts, starting a new part at every line that
// matches marker. Text before the first marker forms its own part.
func splitBefore(text string, marker *regexp.Regexp) []string {
	lines := strings.Split(text, "\n")

	var parts []string
	var current []string
	for _, line := range lines {
		if marker.MatchString(line) && len(current) > 0 {
			parts = append(parts, strings.Join(current, "\n"))
			current = current[:0:0]
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, "\n"))
	}
	return parts
}

// stripFirst removes the first occurrence of re from s.
func stripFirst(s string, re *regexp.Regexp) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[1]:]
}

// splitLongContent breaks an oversized body into sub-chunks on blank-line
// paragraph boundaries, greedily packing paragraphs until adding the next
// one would exceed maxLen.
func splitLongContent(content string, maxLen int) []string {
	var chunks []string
	paragraphs := reParaGap.Split(content, -1)

	current := ""
	for _, para := range paragraphs {
		if utf8.RuneCountInString(current)+utf8.RuneCountInString(para) > maxLen && current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
			current = para
		} else {
			if current != "" {
				current += "\n\n"
			}
			current += para
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}
