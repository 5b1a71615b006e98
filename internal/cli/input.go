package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/artype/internal/domain/dimension"
	"github.com/okian/artype/internal/domain/scoring"
)

// submissionFile is the on-disk submission shape shared by JSON and YAML.
type submissionFile struct {
	Variant   string             `json:"variant" yaml:"variant"`
	Scores    map[string]float64 `json:"scores" yaml:"scores"`
	Responses []responseFile     `json:"responses" yaml:"responses"`
}

type responseFile struct {
	QuestionID string             `json:"question_id" yaml:"question_id"`
	Weights    map[string]float64 `json:"weights" yaml:"weights"`
}

// readSubmission decodes path by extension. "-" reads stdin as YAML, which
// also accepts JSON documents.
func readSubmission(stdin io.Reader, path string) (scoring.Submission, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return scoring.Submission{}, fmt.Errorf("read submission: %w", err)
	}

	var f submissionFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	default:
		err = decodeYAML(b, &f)
	}
	if err != nil {
		return scoring.Submission{}, fmt.Errorf("%w: %s: %v", scoring.ErrMalformedInput, path, err)
	}
	return f.submission()
}

func decodeYAML(b []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(v)
}

func (f submissionFile) submission() (scoring.Submission, error) {
	if f.Scores == nil {
		return scoring.Submission{}, fmt.Errorf("%w: missing scores", scoring.ErrMalformedInput)
	}
	scores, err := dimension.FromMap(f.Scores)
	if err != nil {
		return scoring.Submission{}, err
	}
	responses := make([]scoring.Response, 0, len(f.Responses))
	for _, r := range f.Responses {
		resp, err := scoring.ParseResponse(r.QuestionID, r.Weights)
		if err != nil {
			return scoring.Submission{}, err
		}
		responses = append(responses, resp)
	}
	return scoring.Submission{Variant: f.Variant, Scores: scores, Responses: responses}, nil
}
