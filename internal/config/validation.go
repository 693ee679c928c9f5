package config

import (
	"fmt"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

var validate = validator.New()

// Validate 先做 struct tag 校验，再做 tag 无法表达的规则
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if !filepath.IsAbs(cfg.Storage.Root) {
		return fmt.Errorf("storage.root: must be an absolute path (value: %s)", cfg.Storage.Root)
	}
	if cfg.Share.MaxPasswordAttempts > 0 && cfg.Share.AttemptWindow <= 0 {
		return fmt.Errorf("share.attempt_window: must be positive when max_password_attempts is set")
	}
	if cfg.Janitor.Enabled {
		if _, err := cron.ParseStandard(cfg.Janitor.Schedule); err != nil {
			return fmt.Errorf("janitor.schedule: %w", err)
		}
	}
	return nil
}

// formatValidationError 只返回第一条校验错误，附带字段路径
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
