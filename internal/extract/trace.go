package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"finanzamt/internal/logger"
)

// TraceSink records every extraction attempt for post-hoc inspection.
// Local-model output is non-deterministic: debugging a bad extraction
// requires replaying exactly what was sent and received. The sink is a
// one-way side channel; the pipeline never reads it back.
type TraceSink interface {
	RecordPrompt(receiptID string, stage Stage, prompt string)
	RecordResponse(receiptID string, stage Stage, attempt int, raw string)
	RecordParsed(receiptID string, stage Stage, parsed map[string]any)
	RecordFinal(receiptID string, final any)
}

// NopTraceSink discards all traces.
type NopTraceSink struct{}

func (NopTraceSink) RecordPrompt(string, Stage, string)         {}
func (NopTraceSink) RecordResponse(string, Stage, int, string)  {}
func (NopTraceSink) RecordParsed(string, Stage, map[string]any) {}
func (NopTraceSink) RecordFinal(string, any)                    {}

// DirTraceSink writes traces under <root>/<receiptID>/:
//
//	<stage>_prompt.txt
//	<stage>_raw_<attempt>.txt
//	<stage>_parsed.json
//	final.json
//
// Write failures are logged and swallowed; tracing must never fail the
// pipeline.
type DirTraceSink struct {
	root string
	log  zerolog.Logger
}

// NewDirTraceSink creates a filesystem trace sink rooted at dir.
func NewDirTraceSink(dir string) *DirTraceSink {
	return &DirTraceSink{
		root: dir,
		log:  logger.WithComponent("trace"),
	}
}

func (s *DirTraceSink) RecordPrompt(receiptID string, stage Stage, prompt string) {
	s.write(receiptID, fmt.Sprintf("%s_prompt.txt", stage), []byte(prompt))
}

func (s *DirTraceSink) RecordResponse(receiptID string, stage Stage, attempt int, raw string) {
	s.write(receiptID, fmt.Sprintf("%s_raw_%d.txt", stage, attempt), []byte(raw))
}

func (s *DirTraceSink) RecordParsed(receiptID string, stage Stage, parsed map[string]any) {
	data, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		s.log.Warn().Err(err).Str("stage", stage.String()).Msg("Failed to marshal parsed trace")
		return
	}
	s.write(receiptID, fmt.Sprintf("%s_parsed.json", stage), data)
}

func (s *DirTraceSink) RecordFinal(receiptID string, final any) {
	data, err := json.MarshalIndent(final, "", "  ")
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to marshal final trace")
		return
	}
	s.write(receiptID, "final.json", data)
}

func (s *DirTraceSink) write(receiptID, name string, data []byte) {
	dir := filepath.Join(s.root, receiptID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.log.Warn().Err(err).Str("dir", dir).Msg("Failed to create trace directory")
		return
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("Failed to write trace file")
	}
}
