package server

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var questionsYAML []byte

// Question is one step of the preference interview.
type Question struct {
	Key         string `yaml:"key"`
	Question    string `yaml:"question"`
	Description string `yaml:"description"`
}

type questionFile struct {
	Questions []Question `yaml:"questions"`
}

// loadQuestions parses the embedded interview definition.
func loadQuestions() ([]Question, error) {
	var file questionFile
	if err := yaml.Unmarshal(questionsYAML, &file); err != nil {
		return nil, fmt.Errorf("parse questions: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, fmt.Errorf("no interview questions defined")
	}
	return file.Questions, nil
}
