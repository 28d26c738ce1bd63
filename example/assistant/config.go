package main

import (
	"os"

	"github.com/bytedance/sonic"
)

type Config struct {
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"`
	Model    string `json:"model"`
	FormsDir string `json:"forms_dir"`
	// HistorySize is the number of non-system messages kept per session.
	HistorySize int `json:"history_size"`
}

func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	conf := Config{FormsDir: "forms", HistorySize: 50}
	err = sonic.Unmarshal(file, &conf)
	if err != nil {
		return nil, err
	}
	return &conf, nil
}
