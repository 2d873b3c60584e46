// Package config は YAML 形式の設定ファイルの読み込みを提供します
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"CodeCollect/internal/usecase/report"
)

// DefaultFileName はルートディレクトリ内で探す設定ファイル名です
const DefaultFileName = ".codecollect.yaml"

// Config は収集処理の設定を表します
type Config struct {
	// PrimaryExtensions は常に収集対象とする拡張子です
	PrimaryExtensions []string `yaml:"primary_extensions"`
	// SecondaryExtensions は --include-js 指定時に追加で収集する拡張子です
	SecondaryExtensions []string `yaml:"secondary_extensions"`
	// OutputName はルートディレクトリ直下に作成する出力ファイル名です
	OutputName string `yaml:"output_name"`
	// Sort は出力順を相対パスの辞書順にするかを示します
	Sort bool `yaml:"sort"`
	// SkipBinary はバイナリと判定したファイルを除外するかを示します
	SkipBinary bool `yaml:"skip_binary"`
	// LogLevel はログの出力レベルです（trace, debug, info, warn, error）
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig はデフォルト値の Config を返します
func DefaultConfig() *Config {
	return &Config{
		PrimaryExtensions:   []string{".vue"},
		SecondaryExtensions: []string{".js"},
		OutputName:          report.OutputFileName,
		Sort:                false,
		SkipBinary:          false,
		LogLevel:            "info",
	}
}

// LoadConfig は path から設定を読み込みます。
// ファイルが存在しない場合はデフォルト値を返し、不正な内容の場合はエラーを返します。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルの解析に失敗しました: %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定ファイルが不正です: %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromRoot はルートディレクトリ直下の DefaultFileName を読み込みます
func LoadFromRoot(rootDir string) (*Config, error) {
	return LoadConfig(filepath.Join(rootDir, DefaultFileName))
}

// Validate は設定値の整合性を確認します
func (c *Config) Validate() error {
	if len(c.PrimaryExtensions) == 0 {
		return fmt.Errorf("primary_extensions が空です")
	}
	for _, ext := range append(append([]string{}, c.PrimaryExtensions...), c.SecondaryExtensions...) {
		if ext == "" {
			return fmt.Errorf("空の拡張子は指定できません")
		}
	}
	if c.OutputName == "" {
		return fmt.Errorf("output_name が空です")
	}
	if filepath.Base(c.OutputName) != c.OutputName {
		return fmt.Errorf("output_name にディレクトリは含められません: %s", c.OutputName)
	}
	return nil
}
