package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Labels are the fixed strings printed on papers and in the answer key.
type Labels struct {
	Title          string `yaml:"title"`
	VersionLabel   string `yaml:"version_label"`
	StudentInfo    string `yaml:"student_info"`
	AnswerKeySheet string `yaml:"answer_key_sheet"`
	VersionHeader  string `yaml:"version_header"`
	NumberHeader   string `yaml:"number_header"`
}

// DefaultLabels returns the built-in Vietnamese labels.
func DefaultLabels() Labels {
	return Labels{
		Title:          "ĐỀ THI",
		VersionLabel:   "Đề số",
		StudentInfo:    "Mã sinh viên: .................... Họ tên: ......................................",
		AnswerKeySheet: "Đáp án",
		VersionHeader:  "Đề số",
		NumberHeader:   "Câu",
	}
}

// LoadLabels reads a YAML labels profile. Keys absent from the file keep
// their default. An empty path returns the defaults.
func LoadLabels(path string) (Labels, error) {
	labels := DefaultLabels()
	if path == "" {
		return labels, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return labels, fmt.Errorf("read labels file: %w", err)
	}
	return ParseLabels(data)
}

// ParseLabels decodes a YAML labels profile over the defaults.
func ParseLabels(data []byte) (Labels, error) {
	labels := DefaultLabels()
	var override Labels
	if err := yaml.Unmarshal(data, &override); err != nil {
		return labels, fmt.Errorf("parse labels: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&labels.Title, override.Title)
	set(&labels.VersionLabel, override.VersionLabel)
	set(&labels.StudentInfo, override.StudentInfo)
	set(&labels.AnswerKeySheet, override.AnswerKeySheet)
	set(&labels.VersionHeader, override.VersionHeader)
	set(&labels.NumberHeader, override.NumberHeader)
	return labels, nil
}
