// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/agentx/pkg/logging"
	"github.com/AleutianAI/agentx/services/orchestrator"
)

// fileConfig is the YAML config file shape. Every field maps onto
// orchestrator.Config; environment variables override file values.
type fileConfig struct {
	Port            int    `yaml:"port"`
	LLMBackend      string `yaml:"llm_backend"`
	RedisAddress    string `yaml:"redis_address"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	TaskDBPath      string `yaml:"task_db_path"`
	WeaviateURL     string `yaml:"weaviate_url"`
	EmbedServiceURL string `yaml:"embed_service_url"`
	SearchBaseURL   string `yaml:"search_base_url"`
	SearchAPIKey    string `yaml:"search_api_key"`
	SearchModel     string `yaml:"search_model"`
	OTelEndpoint    string `yaml:"otel_endpoint"`
	EnableMetrics   *bool  `yaml:"enable_metrics"`
	GinMode         string `yaml:"gin_mode"`
	LogLevel        string `yaml:"log_level"`
	LogFile         string `yaml:"log_file"`
}

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logCfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger, err := logging.New(logCfg)
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			defer logger.Close()
			slog.SetDefault(logger.Slog())

			slog.Info("Starting agentx",
				"version", version,
				"port", cfg.Port,
				"llm_backend", cfg.LLMBackend,
				"redis_address", cfg.RedisAddress,
				"weaviate_url", cfg.WeaviateURL,
			)

			// Default (no-op) extension options; hosted builds pass
			// custom ServiceOptions here.
			svc, err := orchestrator.New(cfg, nil)
			if err != nil {
				return fmt.Errorf("failed to create agent service: %w", err)
			}

			// Blocks until shutdown.
			return svc.Run()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

// loadConfig layers defaults, the optional config file, and environment
// variables, in that order.
func loadConfig(path string) (orchestrator.Config, logging.Config, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return orchestrator.Config{}, logging.Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return orchestrator.Config{}, logging.Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	enableMetrics := true
	if fc.EnableMetrics != nil {
		enableMetrics = *fc.EnableMetrics
	}

	cfg := orchestrator.Config{
		Port:            getEnvInt("AGENTX_PORT", fc.Port),
		LLMBackend:      getEnvString("LLM_BACKEND_TYPE", fc.LLMBackend),
		RedisAddress:    getEnvString("REDIS_ADDRESS", fc.RedisAddress),
		RedisPassword:   getEnvString("REDIS_PASSWORD", fc.RedisPassword),
		RedisDB:         getEnvInt("REDIS_DB", fc.RedisDB),
		TaskDBPath:      getEnvString("TASK_DB_PATH", fc.TaskDBPath),
		WeaviateURL:     getEnvString("WEAVIATE_SERVICE_URL", fc.WeaviateURL),
		EmbedServiceURL: getEnvString("EMBED_SERVICE_URL", fc.EmbedServiceURL),
		SearchBaseURL:   getEnvString("SEARCH_BASE_URL", fc.SearchBaseURL),
		SearchAPIKey:    getEnvString("SEARCH_API_KEY", fc.SearchAPIKey),
		SearchModel:     getEnvString("SEARCH_MODEL", fc.SearchModel),
		OTelEndpoint:    getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", fc.OTelEndpoint),
		EnableMetrics:   getEnvBool("AGENTX_ENABLE_METRICS", enableMetrics),
		GinMode:         getEnvString("GIN_MODE", fc.GinMode),
	}
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = "https://api.perplexity.ai"
	}

	logCfg := logging.Config{
		Level:    getEnvString("AGENTX_LOG_LEVEL", fc.LogLevel),
		FilePath: getEnvString("AGENTX_LOG_FILE", fc.LogFile),
	}
	return cfg, logCfg, nil
}

// getEnvString returns the environment variable value or a fallback.
func getEnvString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt returns the environment variable as int or a fallback.
func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns the environment variable as bool or a fallback.
func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
