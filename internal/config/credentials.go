package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// MissingCredentialError names an environment variable the configuration
// requires but the process environment does not set.
type MissingCredentialError struct {
	EnvVar  string
	Purpose string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s not found! Please set it in your environment (%s)", e.EnvVar, e.Purpose)
}

// LLMAPIKey returns the chat model API key from the environment.
func (c *AppConfig) LLMAPIKey() string {
	return strings.TrimSpace(os.Getenv(c.LLM.APIKeyEnv))
}

// CheckCredentials returns a non-nil error for each credential that is
// required by the selected providers but missing from the environment.
// It is called once at startup so the problem is reported before any
// document or query operation runs.
func CheckCredentials(cfg *AppConfig, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	var errs []error
	if err := CheckLLMCredentials(cfg, getenv); err != nil {
		errs = append(errs, err)
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil && cfg.Embedder.OpenAI.APIKeyEnv != "" {
		if strings.TrimSpace(getenv(cfg.Embedder.OpenAI.APIKeyEnv)) == "" {
			errs = append(errs, &MissingCredentialError{EnvVar: cfg.Embedder.OpenAI.APIKeyEnv, Purpose: "embeddings"})
		}
	}
	return errors.Join(errs...)
}

// CheckLLMCredentials reports only the chat model credential. Questions are
// refused while it is missing.
func CheckLLMCredentials(cfg *AppConfig, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if strings.TrimSpace(getenv(cfg.LLM.APIKeyEnv)) == "" {
		return &MissingCredentialError{EnvVar: cfg.LLM.APIKeyEnv, Purpose: "chat model"}
	}
	return nil
}
