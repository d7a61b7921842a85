package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names an optional YAML file whose values are applied before
// environment overrides.
const ConfigFileEnv = "LOAN_INTAKE_CONFIG"

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	OCR      OCRConfig      `yaml:"ocr"`
	AI       AIConfig       `yaml:"ai"`
	Queue    QueueConfig    `yaml:"queue"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"`
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr     string        `yaml:"http_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// StorageConfig locates uploaded files on disk.
type StorageConfig struct {
	UploadsDir    string        `yaml:"uploads_dir"`
	InboxDir      string        `yaml:"inbox_dir"`
	InboxDebounce time.Duration `yaml:"inbox_debounce"`
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	PythonBin          string `yaml:"python_bin"`
	PyMuPDFScript      string `yaml:"pymupdf_script"`
	PdfplumberScript   string `yaml:"pdfplumber_script"`
	EnablePopplerTiers bool   `yaml:"enable_poppler_tiers"`
	PdftotextBin       string `yaml:"pdftotext_bin"`
	PdftoppmBin        string `yaml:"pdftoppm_bin"`
	TesseractBin       string `yaml:"tesseract_bin"`
	TessdataDir        string `yaml:"tessdata_dir"`
	Language           string `yaml:"language"`
	DPI                int    `yaml:"dpi"`
	MaxPages           int    `yaml:"max_pages"`
}

// AIConfig holds chat-completion endpoint configuration
type AIConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	Temperature       float32       `yaml:"temperature"`
	Referer           string        `yaml:"referer"`
	Title             string        `yaml:"title"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	EnableDocumentAI  bool          `yaml:"enable_document_ai"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay"`
}

// QueueConfig sizes the background worker pool.
type QueueConfig struct {
	Workers    int           `yaml:"workers"`
	Size       int           `yaml:"size"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// PipelineConfig holds document processing policy.
type PipelineConfig struct {
	OverwriteEditedText bool `yaml:"overwrite_edited_text"`
	TextPrefixLen       int  `yaml:"text_prefix_len"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxConns:        20,
			MinConns:        5,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:     ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Storage: StorageConfig{
			UploadsDir:    "./uploads",
			InboxDebounce: 2 * time.Second,
		},
		OCR: OCRConfig{
			PythonBin:        "python3",
			PyMuPDFScript:    "scripts/extract_pdf_pymupdf.py",
			PdfplumberScript: "scripts/extract_pdf.py",
			PdftotextBin:     "pdftotext",
			PdftoppmBin:      "pdftoppm",
			TesseractBin:     "tesseract",
			Language:         "eng",
			DPI:              300,
			MaxPages:         50,
		},
		AI: AIConfig{
			BaseURL:           "https://openrouter.ai/api/v1",
			Model:             "openai/gpt-4o",
			Temperature:       0.1,
			Referer:           "http://localhost:8080",
			Title:             "Loan Intake",
			EnableDocumentAI:  true,
			RetryAttempts:     3,
			RetryInitialDelay: 10 * time.Second,
		},
		Queue: QueueConfig{
			Workers:    4,
			Size:       256,
			JobTimeout: 10 * time.Minute,
		},
		Pipeline: PipelineConfig{
			TextPrefixLen: 500,
		},
	}
}

// LoadConfig loads defaults, the optional YAML file, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	db := &c.Database
	db.Driver = getEnv("DB_DRIVER", db.Driver)
	db.DSN = getEnv("DB_URL", db.DSN)
	db.MaxConns = getEnvAsInt32("DB_MAX_CONNS", db.MaxConns)
	db.MinConns = getEnvAsInt32("DB_MIN_CONNS", db.MinConns)
	db.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", db.MaxConnLifetime)
	db.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", db.MaxConnIdleTime)
	db.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", db.DialTimeout)
	db.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", db.StatementTimeout)

	srv := &c.Server
	srv.HTTPAddr = getEnv("HTTP_ADDR", srv.HTTPAddr)
	srv.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", srv.ReadTimeout)
	srv.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", srv.WriteTimeout)
	srv.CORSOrigins = getEnvAsSlice("CORS_ORIGINS", srv.CORSOrigins)

	st := &c.Storage
	st.UploadsDir = getEnv("UPLOADS_DIR", st.UploadsDir)
	st.InboxDir = getEnv("INBOX_DIR", st.InboxDir)
	st.InboxDebounce = getEnvAsDuration("INBOX_DEBOUNCE", st.InboxDebounce)

	o := &c.OCR
	o.PythonBin = getEnv("PYTHON_BIN", o.PythonBin)
	o.PyMuPDFScript = getEnv("PYMUPDF_SCRIPT", o.PyMuPDFScript)
	o.PdfplumberScript = getEnv("PDFPLUMBER_SCRIPT", o.PdfplumberScript)
	o.EnablePopplerTiers = getEnvAsBool("ENABLE_POPPLER_TIERS", o.EnablePopplerTiers)
	o.PdftotextBin = getEnv("PDFTOTEXT_BIN", o.PdftotextBin)
	o.PdftoppmBin = getEnv("PDFTOPPM_BIN", o.PdftoppmBin)
	o.TesseractBin = getEnv("TESSERACT_BIN", o.TesseractBin)
	o.TessdataDir = getEnv("TESSDATA_PREFIX", o.TessdataDir)
	o.Language = getEnv("OCR_LANGUAGE", o.Language)
	o.DPI = getEnvAsInt("OCR_DPI", o.DPI)
	o.MaxPages = getEnvAsInt("OCR_MAX_PAGES", o.MaxPages)

	ai := &c.AI
	ai.APIKey = getEnv("OPENROUTER_API_KEY", getEnv("OPENAI_API_KEY", ai.APIKey))
	ai.BaseURL = getEnv("AI_BASE_URL", ai.BaseURL)
	ai.Model = getEnv("AI_MODEL", ai.Model)
	ai.Temperature = getEnvAsFloat32("AI_TEMPERATURE", ai.Temperature)
	ai.Referer = getEnv("AI_REFERER", ai.Referer)
	ai.Title = getEnv("AI_TITLE", ai.Title)
	ai.RequestsPerMinute = getEnvAsInt("AI_REQUESTS_PER_MINUTE", ai.RequestsPerMinute)
	ai.EnableDocumentAI = getEnvAsBool("ENABLE_DOCUMENT_AI", ai.EnableDocumentAI)
	ai.RetryAttempts = getEnvAsInt("AI_RETRY_ATTEMPTS", ai.RetryAttempts)
	ai.RetryInitialDelay = getEnvAsDuration("AI_RETRY_INITIAL_DELAY", ai.RetryInitialDelay)

	q := &c.Queue
	q.Workers = getEnvAsInt("QUEUE_WORKERS", q.Workers)
	q.Size = getEnvAsInt("QUEUE_SIZE", q.Size)
	q.JobTimeout = getEnvAsDuration("JOB_TIMEOUT", q.JobTimeout)

	p := &c.Pipeline
	p.OverwriteEditedText = getEnvAsBool("OVERWRITE_EDITED_TEXT", p.OverwriteEditedText)
	p.TextPrefixLen = getEnvAsInt("TEXT_PREFIX_LEN", p.TextPrefixLen)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
		}
	case "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Storage.UploadsDir == "" {
		return NewAppError("CONFIG_ERROR", "UPLOADS_DIR is required", ErrInvalidInput)
	}
	if c.AI.RetryAttempts < 1 {
		return NewAppError("CONFIG_ERROR", "AI_RETRY_ATTEMPTS must be at least 1", ErrInvalidInput)
	}
	if c.Queue.Workers < 1 {
		return NewAppError("CONFIG_ERROR", "QUEUE_WORKERS must be at least 1", ErrInvalidInput)
	}
	return nil
}
