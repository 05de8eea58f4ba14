package config

import (
	"errors"
	"fmt"
	"slices"
)

var (
	validImageSizes     = []string{"256x256", "512x512", "1024x1024", "1792x1024", "1024x1792"}
	validImageQualities = []string{"standard", "hd"}
	validImageStyles    = []string{"natural", "vivid"}
	validLogLevels      = []string{"debug", "info", "warn", "error"}
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateRoundtable(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if err := validateTemperature("llm.temperature", c.LLM.Temperature); err != nil {
		return err
	}
	return validateTemperature("debate.temperature", c.Debate.Temperature)
}

func (c *Config) validateImages() error {
	if !slices.Contains(validImageSizes, c.Images.Size) {
		return fmt.Errorf("images.size must be one of %v", validImageSizes)
	}
	if !slices.Contains(validImageQualities, c.Images.Quality) {
		return fmt.Errorf("images.quality must be one of %v", validImageQualities)
	}
	if !slices.Contains(validImageStyles, c.Images.Style) {
		return fmt.Errorf("images.style must be one of %v", validImageStyles)
	}
	if c.Images.MaxAttempts < 1 {
		return errors.New("images.max_attempts must be at least 1")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.FPS <= 0 || c.Video.FPS > 120 {
		return errors.New("video.fps must be between 1 and 120")
	}
	if c.Video.MinFreeGiB < 0 {
		return errors.New("video.min_free_gib must be non-negative")
	}
	return nil
}

func (c *Config) validateRoundtable() error {
	if c.Roundtable.MaxTurns < 0 {
		return errors.New("roundtable.max_turns must be non-negative (0 disables the ceiling)")
	}
	if c.Roundtable.MaxParticipants < 1 {
		return errors.New("roundtable.max_participants must be at least 1")
	}
	for _, temp := range c.Roundtable.Temperatures {
		if err := validateTemperature("roundtable.temperatures", temp); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %v", validLogLevels)
	}
	return nil
}

func validateTemperature(field string, value float64) error {
	if value < 0 || value > 2 {
		return fmt.Errorf("%s must be between 0 and 2", field)
	}
	return nil
}
