// Copyright 2024-2025 NetCracker Technology Corporation
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MilkTeaCat52/INVSC/exception"
	"github.com/MilkTeaCat52/INVSC/view"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	OPENAI_API_KEY    = "OPENAI_API_KEY"
	INVSC_API_KEY     = "INVSC_API_KEY"
	INVSC_MODEL       = "INVSC_MODEL"
	INVSC_BACKEND     = "INVSC_BACKEND"
	INVSC_BASE_URL    = "INVSC_BASE_URL"
	INVSC_TIMEOUT     = "INVSC_TIMEOUT"
	INVSC_STRUCTURED  = "INVSC_STRUCTURED"
	INVSC_PROMPT_DIR  = "INVSC_PROMPT_DIR"
	INVSC_CONCURRENCY = "INVSC_CONCURRENCY"
	LOG_LEVEL         = "LOG_LEVEL"
	NO_COLOR          = "NO_COLOR"

	COMPILERS = "COMPILERS"

	LocalConfigFile = ".invsc.yaml"
)

const defaultLogLevel = "warn"

type SystemInfoService interface {
	Init() error
	GetBackendConfig() view.BackendConfig
	GetPromptDir() string
	GetConcurrency() int
	GetLogLevel() string
	GetNoColor() bool
	GetCompilers() map[string][]CompilerCommand
	GetConfigPath() string
}

// FileConfig is the layout of the optional YAML config file.
type FileConfig struct {
	APIKey           string                       `yaml:"api_key"`
	Model            string                       `yaml:"model"`
	Backend          string                       `yaml:"backend"`
	BaseURL          string                       `yaml:"base_url"`
	Timeout          string                       `yaml:"timeout"`
	StructuredOutput bool                         `yaml:"structured_output"`
	PromptDir        string                       `yaml:"prompt_dir"`
	Concurrency      int                          `yaml:"concurrency"`
	LogLevel         string                       `yaml:"log_level"`
	NoColor          bool                         `yaml:"no_color"`
	Compilers        map[string][]FileCompilerCmd `yaml:"compilers"`
}

type FileCompilerCmd struct {
	Binary string   `yaml:"binary"`
	Args   []string `yaml:"args"`
}

// NewSystemInfoService layers the environment over the config file. An empty
// configPath looks for .invsc.yaml in the working directory, then in the XDG
// config directory.
func NewSystemInfoService(configPath string) (SystemInfoService, error) {
	s := &systemInfoServiceImpl{
		configPath:    configPath,
		systemInfoMap: make(map[string]interface{})}
	if err := s.Init(); err != nil {
		log.Error("Failed to read system info: " + err.Error())
		return nil, err
	}
	return s, nil
}

type systemInfoServiceImpl struct {
	configPath    string
	systemInfoMap map[string]interface{}
}

func (g *systemInfoServiceImpl) Init() error {
	fileCfg, err := g.loadFileConfig()
	if err != nil {
		return err
	}

	g.setCredential(fileCfg)
	g.setString(INVSC_MODEL, fileCfg.Model, "")
	g.setString(INVSC_BACKEND, strings.ToLower(fileCfg.Backend), string(view.BackendOpenAI))
	g.setString(INVSC_BASE_URL, fileCfg.BaseURL, "")
	g.setString(INVSC_PROMPT_DIR, fileCfg.PromptDir, "")
	g.setString(LOG_LEVEL, fileCfg.LogLevel, defaultLogLevel)
	g.setNoColor(fileCfg)
	g.setCompilers(fileCfg)

	return errors.Join(
		g.setTimeout(fileCfg),
		g.setStructured(fileCfg),
		g.setConcurrency(fileCfg),
	)
}

func (g *systemInfoServiceImpl) loadFileConfig() (FileConfig, error) {
	var cfg FileConfig

	path := g.configPath
	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, &exception.CustomError{
			Code:    exception.ConfigUnreadable,
			Message: exception.ConfigUnreadableMsg,
			Params:  map[string]interface{}{"path": path},
			Debug:   err.Error(),
			Cause:   err,
		}
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &exception.CustomError{
			Code:    exception.ConfigUnreadable,
			Message: exception.ConfigUnreadableMsg,
			Params:  map[string]interface{}{"path": path},
			Debug:   err.Error(),
			Cause:   err,
		}
	}
	g.configPath = path
	log.Debugf("Loaded config from %s", path)
	return cfg, nil
}

func findConfigFile() string {
	if _, err := os.Stat(LocalConfigFile); err == nil {
		return LocalConfigFile
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	path := filepath.Join(configHome, "invsc", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func (g *systemInfoServiceImpl) setString(key string, fileValue string, def string) {
	value := os.Getenv(key)
	if value == "" {
		value = fileValue
	}
	if value == "" {
		value = def
	}
	g.systemInfoMap[key] = value
}

func (g *systemInfoServiceImpl) setCredential(fileCfg FileConfig) {
	credential := os.Getenv(INVSC_API_KEY)
	if credential == "" {
		credential = os.Getenv(OPENAI_API_KEY)
	}
	if credential == "" {
		credential = fileCfg.APIKey
	}
	g.systemInfoMap[OPENAI_API_KEY] = credential
}

func (g *systemInfoServiceImpl) setTimeout(fileCfg FileConfig) error {
	raw := os.Getenv(INVSC_TIMEOUT)
	if raw == "" {
		raw = fileCfg.Timeout
	}
	g.systemInfoMap[INVSC_TIMEOUT] = DefaultCallTimeout
	if raw == "" {
		return nil
	}
	timeout, err := ParseTimeout(raw)
	if err != nil {
		return fmt.Errorf("invalid %s value '%s': %w", INVSC_TIMEOUT, raw, err)
	}
	g.systemInfoMap[INVSC_TIMEOUT] = timeout
	return nil
}

// ParseTimeout accepts a Go duration ("90s", "2m") or a number of seconds.
func ParseTimeout(raw string) (time.Duration, error) {
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0, errors.New("timeout must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("timeout must be positive")
	}
	return d, nil
}

func (g *systemInfoServiceImpl) setStructured(fileCfg FileConfig) error {
	g.systemInfoMap[INVSC_STRUCTURED] = fileCfg.StructuredOutput
	raw := os.Getenv(INVSC_STRUCTURED)
	if raw == "" {
		return nil
	}
	structured, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid %s value '%s': %w", INVSC_STRUCTURED, raw, err)
	}
	g.systemInfoMap[INVSC_STRUCTURED] = structured
	return nil
}

func (g *systemInfoServiceImpl) setConcurrency(fileCfg FileConfig) error {
	g.systemInfoMap[INVSC_CONCURRENCY] = fileCfg.Concurrency
	raw := os.Getenv(INVSC_CONCURRENCY)
	if raw == "" {
		return nil
	}
	concurrency, err := strconv.Atoi(raw)
	if err != nil || concurrency < 0 {
		return fmt.Errorf("invalid %s value '%s'", INVSC_CONCURRENCY, raw)
	}
	g.systemInfoMap[INVSC_CONCURRENCY] = concurrency
	return nil
}

func (g *systemInfoServiceImpl) setNoColor(fileCfg FileConfig) {
	g.systemInfoMap[NO_COLOR] = fileCfg.NoColor || os.Getenv(NO_COLOR) != ""
}

func (g *systemInfoServiceImpl) setCompilers(fileCfg FileConfig) {
	compilers := make(map[string][]CompilerCommand, len(DefaultCompilers)+len(fileCfg.Compilers))
	for ext, cmds := range DefaultCompilers {
		compilers[ext] = cmds
	}
	for ext, cmds := range fileCfg.Compilers {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		var res []CompilerCommand
		for _, cmd := range cmds {
			res = append(res, CompilerCommand{Binary: cmd.Binary, Args: cmd.Args})
		}
		compilers[ext] = res
	}
	g.systemInfoMap[COMPILERS] = compilers
}

func (g systemInfoServiceImpl) GetBackendConfig() view.BackendConfig {
	return view.BackendConfig{
		Backend:          view.BackendType(g.systemInfoMap[INVSC_BACKEND].(string)),
		Credential:       g.systemInfoMap[OPENAI_API_KEY].(string),
		Model:            g.systemInfoMap[INVSC_MODEL].(string),
		BaseURL:          g.systemInfoMap[INVSC_BASE_URL].(string),
		Timeout:          g.systemInfoMap[INVSC_TIMEOUT].(time.Duration),
		StructuredOutput: g.systemInfoMap[INVSC_STRUCTURED].(bool),
	}
}

func (g systemInfoServiceImpl) GetPromptDir() string {
	return g.systemInfoMap[INVSC_PROMPT_DIR].(string)
}

func (g systemInfoServiceImpl) GetConcurrency() int {
	return g.systemInfoMap[INVSC_CONCURRENCY].(int)
}

func (g systemInfoServiceImpl) GetLogLevel() string {
	return g.systemInfoMap[LOG_LEVEL].(string)
}

func (g systemInfoServiceImpl) GetNoColor() bool {
	return g.systemInfoMap[NO_COLOR].(bool)
}

func (g systemInfoServiceImpl) GetCompilers() map[string][]CompilerCommand {
	return g.systemInfoMap[COMPILERS].(map[string][]CompilerCommand)
}

func (g systemInfoServiceImpl) GetConfigPath() string {
	return g.configPath
}
