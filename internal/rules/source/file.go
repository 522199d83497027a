package source

import (
	"context"
	"os"
)

// FileSource reads a rule document from disk. The version is the content
// digest, so rewriting a file with the same content is not a change.
type FileSource struct {
	path   string
	format string
}

func NewFileSource(path, format string) *FileSource {
	if format == "" {
		format = FormatFor(path)
	}
	return &FileSource{path: path, format: format}
}

func (s *FileSource) Fetch(ctx context.Context) (RulesPayload, error) {
	if err := ctx.Err(); err != nil {
		return RulesPayload{}, err
	}
	body, err := os.ReadFile(s.path)
	if err != nil {
		return RulesPayload{}, err
	}
	rules, err := ParseRules(body, s.format)
	if err != nil {
		return RulesPayload{}, err
	}
	return RulesPayload{Rules: rules, Version: digest(body)}, nil
}
